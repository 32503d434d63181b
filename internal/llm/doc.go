// Package llm rewrites the placeholder workflow report with a chat model.
//
// Narration is optional. The Narrator sends the Writer agent's instructions
// and the report text to an OpenAI compatible endpoint through
// cloudwego/eino and returns the reply. The API key is always passed in
// explicitly.
package llm
