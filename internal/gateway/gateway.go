// Package gateway translates decision-analysis and coach requests into LLM
// provider calls and normalizes the replies.
//
// The gateway is stateless per call. It makes at most one provider call per
// request, classifies failures (client input, provider, parse), and never
// lets a malformed provider reply escape as an exception: the decision path
// surfaces an explicit error, the coach path substitutes a canned reply.
package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Punshui30/NF2/internal/genai"
	"github.com/Punshui30/NF2/internal/models"
)

// Token and temperature budgets per mode. The coach runs colder to damp
// hallucinated profile-patch fields.
const (
	AnalysisTemperature = 0.6
	CoachTemperature    = 0.2
	DefaultMaxTokens    = 1200
)

// ProviderError wraps a failed provider call (non-2xx, timeout, connection
// failure). Transient by nature; the caller decides whether to surface it
// or substitute a fallback.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s call failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ParseError reports that the provider replied but the text was not valid
// or salvageable JSON. Raw carries the reply for diagnostics.
type ParseError struct {
	Provider string
	Raw      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %s response was not valid JSON", e.Provider)
}

// Gateway adapts UI requests to a single LLM provider.
type Gateway struct {
	gen genai.Generator
}

// New creates a gateway over the given provider.
func New(gen genai.Generator) *Gateway {
	return &Gateway{gen: gen}
}

// Provider returns the name of the backing provider.
func (g *Gateway) Provider() string { return g.gen.Name() }

// Model returns the backing provider's model identifier when it exposes
// one, else the provider name.
func (g *Gateway) Model() string {
	if m, ok := g.gen.(interface{ Model() string }); ok {
		return m.Model()
	}
	return g.gen.Name()
}

// AnalyzeDecision validates the request, renders it into a strict-JSON
// prompt, makes one provider call, and coerces the reply into the
// normalized analysis shape. Validation failures return before any
// provider call so malformed input never incurs provider cost.
func (g *Gateway) AnalyzeDecision(ctx context.Context, req models.AnalyzeRequest) (models.AnalysisResponse, error) {
	if err := req.Validate(); err != nil {
		return models.AnalysisResponse{}, err
	}

	user, err := renderDecisionPrompt(req)
	if err != nil {
		return models.AnalysisResponse{}, err
	}
	text, err := g.gen.Generate(ctx, genai.Request{
		System:      analysisSystemPrompt,
		User:        user,
		Temperature: AnalysisTemperature,
		MaxTokens:   DefaultMaxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		slog.Error("Gateway.AnalyzeDecision: provider call failed", "error", err, "provider", g.gen.Name())
		return models.AnalysisResponse{}, &ProviderError{Provider: g.gen.Name(), Err: err}
	}

	fields, ok := ExtractJSONObject(text)
	if !ok {
		slog.Warn("Gateway.AnalyzeDecision: unsalvageable provider reply", "provider", g.gen.Name(), "chars", len(text))
		return models.AnalysisResponse{}, &ParseError{Provider: g.gen.Name(), Raw: text}
	}
	resp := coerceAnalysis(fields)
	slog.Debug("Gateway.AnalyzeDecision: reply normalized", "confidence", resp.Confidence, "reasoning_count", len(resp.Reasoning))
	return resp, nil
}

// Coach validates the request, makes one provider call, and returns the
// reply plus any inferred profile patch. Provider and parse failures are
// absorbed into a canned fallback so the chat UI never dead-ends; only
// validation errors are returned.
func (g *Gateway) Coach(ctx context.Context, req models.CoachRequest) (models.CoachResponse, error) {
	if err := req.Validate(); err != nil {
		return models.CoachResponse{}, err
	}

	user, err := renderCoachPrompt(req)
	if err != nil {
		slog.Error("Gateway.Coach: prompt rendering failed, using fallback", "error", err)
		return coachFallback(), nil
	}
	text, err := g.gen.Generate(ctx, genai.Request{
		System:      coachSystemPrompt,
		User:        user,
		Temperature: CoachTemperature,
		MaxTokens:   DefaultMaxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		slog.Warn("Gateway.Coach: provider call failed, using fallback", "error", err, "provider", g.gen.Name())
		return coachFallback(), nil
	}

	fields, ok := ExtractJSONObject(text)
	if !ok {
		slog.Warn("Gateway.Coach: unsalvageable provider reply, using fallback", "provider", g.gen.Name(), "chars", len(text))
		return coachFallback(), nil
	}
	return coerceCoach(fields), nil
}

func coachFallback() models.CoachResponse {
	return models.CoachResponse{
		Reply:        models.CoachFallbackReply,
		ProfilePatch: models.Profile{},
	}
}
