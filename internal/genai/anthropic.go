// Package genai provides LLM provider clients used by the analyze gateway.
//
// This file implements the Anthropic provider over the raw Messages HTTP
// API (no official Go SDK is used).
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Anthropic API constants.
const (
	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-3-5-sonnet-latest"
	// DefaultAnthropicEndpoint is the Messages API endpoint.
	DefaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	// anthropicVersion is the required API version header value.
	anthropicVersion = "2023-06-01"
	// anthropicTimeout bounds a single Messages call.
	anthropicTimeout = 60 * time.Second
)

// AnthropicClient calls the Anthropic Messages API directly.
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	endpoint   string
}

// NewAnthropicClient initializes an Anthropic client. The API key defaults
// to the ANTHROPIC_API_KEY environment variable and the model to
// ANTHROPIC_MODEL.
func NewAnthropicClient(opts ...Option) (*AnthropicClient, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv("ANTHROPIC_MODEL")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultAnthropicEndpoint
	}
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: anthropicTimeout},
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		endpoint:   cfg.Endpoint,
	}, nil
}

// Name identifies this provider.
func (c *AnthropicClient) Name() string { return "anthropic" }

// Model returns the configured model identifier.
func (c *AnthropicClient) Model() string { return c.model }

// anthropicRequest is the Messages API request body.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int64              `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the subset of the Messages API response envelope the
// gateway needs.
type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
}

// Generate renders one message completion and returns the first text block.
func (c *AnthropicClient) Generate(ctx context.Context, req Request) (string, error) {
	user := req.User
	// The Messages API has no JSON response mode; the instruction rides in
	// the prompt instead.
	if req.JSONOnly {
		user += "\nReturn ONLY JSON."
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1200
	}
	body := anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: user}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read anthropic response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("AnthropicClient.Generate: non-2xx response", "status", resp.StatusCode)
		return "", fmt.Errorf("anthropic error: %d %s", resp.StatusCode, string(data))
	}

	var envelope anthropicResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", fmt.Errorf("failed to decode anthropic response: %w", err)
	}
	for _, block := range envelope.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", ErrNoChoicesReturned
}
