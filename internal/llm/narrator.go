package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/nao1215/scrapeflow/internal/agent"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds a single narration request.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxTokens caps the length of the narrative.
	DefaultMaxTokens = 1024
)

var (
	// ErrNoAPIKey is returned when a narrator is built without an API key.
	ErrNoAPIKey = errors.New("llm: API key is required")

	// ErrEmptyResponse is returned when the model replies with no text.
	ErrEmptyResponse = errors.New("llm: empty response from model")
)

// ChatModel is the part of an eino chat model the narrator needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config holds the connection settings of the chat model.
type Config struct {
	// APIKey authenticates against the endpoint.
	APIKey string

	// Model is the model name, DefaultModel when empty.
	Model string

	// BaseURL overrides the OpenAI endpoint for compatible servers.
	BaseURL string

	// Timeout bounds one request, DefaultTimeout when zero.
	Timeout time.Duration

	// MaxTokens caps the reply, DefaultMaxTokens when zero.
	MaxTokens int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return c
}

// Narrator turns a report into prose with a chat model.
type Narrator struct {
	chat    ChatModel
	model   string
	timeout time.Duration
	prompt  string
	logger  *slog.Logger
}

// Option configures a Narrator.
type Option func(*Narrator)

// WithChatModel replaces the OpenAI client, mainly for tests and for
// other eino providers.
func WithChatModel(m ChatModel) Option {
	return func(n *Narrator) {
		if m != nil {
			n.chat = m
		}
	}
}

// WithLogger sets the logger for the narrator.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Narrator) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithSystemPrompt replaces the Writer agent's instructions as the system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(n *Narrator) {
		if prompt != "" {
			n.prompt = prompt
		}
	}
}

// NewNarrator creates a Narrator backed by an OpenAI compatible chat model.
// When WithChatModel is given, cfg.APIKey is not required.
func NewNarrator(ctx context.Context, cfg Config, opts ...Option) (*Narrator, error) {
	cfg = cfg.withDefaults()

	n := &Narrator{
		model:   cfg.Model,
		timeout: cfg.Timeout,
		prompt:  systemPrompt(agent.Writer),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.chat != nil {
		return n, nil
	}

	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	maxTokens := cfg.MaxTokens
	chat, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: &maxTokens,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	n.chat = chat

	return n, nil
}

func systemPrompt(a agent.Agent) string {
	return a.Instructions + " Rewrite the report you are given as a short, readable paragraph. " +
		"Do not add facts that are not in the report."
}

// ModelName returns the configured model name.
func (n *Narrator) ModelName() string {
	return n.model
}

// Narrate asks the model to rewrite report and returns its reply.
func (n *Narrator) Narrate(ctx context.Context, report string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	messages := []*schema.Message{
		schema.SystemMessage(n.prompt),
		schema.UserMessage(report),
	}

	n.logger.Debug("requesting narrative", "model", n.model, "report_length", len([]rune(report)))
	started := time.Now()

	resp, err := n.chat.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("narration with %s failed: %w", n.model, err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}

	n.logger.Debug("narrative received", "model", n.model, "elapsed", time.Since(started))
	return text, nil
}
