// Package genai provides LLM provider clients used by the analyze gateway.
//
// Two providers are supported: OpenAI through the official SDK, and
// Anthropic through its Messages HTTP API. Both are exposed behind the
// Generator interface so the rest of the service never sees a provider
// envelope.
package genai

import (
	"context"
	"errors"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.ChatModelGPT4o

// Error variables for client construction and response handling.
var (
	ErrMissingAPIKey     = errors.New("API key not set")
	ErrNoChoicesReturned = errors.New("no choices returned")
)

// Request describes one generation call. Exactly one provider request is
// issued per Request; there are no retries.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
	// JSONOnly asks the provider for a JSON-object reply where the API
	// supports it; providers without native JSON mode get a trailing
	// instruction instead.
	JSONOnly bool
}

// Generator is the minimal provider contract.
type Generator interface {
	// Name identifies the provider in logs and diagnostic payloads.
	Name() string
	// Generate renders one completion for the request and returns the
	// assistant's text.
	Generate(ctx context.Context, req Request) (string, error)
}

// Opts holds configuration options for provider clients.
type Opts struct {
	APIKey   string
	Model    string
	Endpoint string
}

// Option configures a provider client.
type Option func(*Opts)

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithEndpoint overrides the provider endpoint. Used by tests.
func WithEndpoint(endpoint string) Option {
	return func(o *Opts) { o.Endpoint = endpoint }
}

// chatService defines the minimal interface for chat completions, satisfied
// by the OpenAI SDK service and by test mocks.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat  chatService
	model string
}

// NewClient initializes an OpenAI client. The API key defaults to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	svc := cli.Chat.Completions
	return &Client{chat: &svc, model: cfg.Model}, nil
}

// Name identifies this provider.
func (c *Client) Name() string { return "openai" }

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Generate renders one chat completion and returns the assistant's text.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	if req.JSONOnly {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}
