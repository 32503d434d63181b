// Package log provides slog loggers that scrub secrets from their output.
//
// SecureHandler wraps any slog.Handler and masks attribute values that
// look like credentials before they are written:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - API keys, including OpenAI style "sk-..." keys anywhere in a string
//   - Bearer and Basic credentials, JWTs and private key blocks
//
// Site cookies and headers from the configuration file and the language
// model API key pass through the same loggers as everything else, so
// masking happens at the handler and not at each call site.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("request sent", "cookie", "session=abc123") // cookie=***REDACTED***
//	slog.SetDefault(logger)
package log
