// Package ingest builds conservative social-insight profiles from public
// URLs and pasted text. Sources are fetched best-effort with per-source
// status reporting, reduced to a capped text corpus, and summarized by an
// LLM provider into a compact profile.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Punshui30/NF2/internal/gateway"
	"github.com/Punshui30/NF2/internal/genai"
	"github.com/Punshui30/NF2/internal/models"
)

const (
	// MaxPastedChars caps how much pasted text enters the corpus.
	MaxPastedChars = 30000
	// pastedSourceLabel is the status URL used for pasted text.
	pastedSourceLabel = "pasted_text"

	insightMaxTokens = 1000
)

const insightSystemPrompt = "You are NorthForm's Social Insight Engine. Extract enduring patterns from public text without overfitting. " +
	"Infer values, likely traits, tone, topics, and communication style. Be conservative and avoid strong claims."

const insightSchema = `{
  "platforms": string[],
  "personalityIndicators": string[],
  "values": string[],
  "emotionalTone": number,
  "communicationStyle": string,
  "topics": string[]
}`

// ProviderError reports an upstream provider failure during insight
// extraction. It carries the per-source statuses gathered before the
// failure so callers can still report what was fetched.
type ProviderError struct {
	Provider string
	Sources  []models.SourceStatus
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ingest provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Engine orchestrates source fetching and insight extraction.
type Engine struct {
	fetcher *Fetcher
	gen     genai.Generator
}

// New creates an ingest engine backed by the given provider.
func New(gen genai.Generator) *Engine {
	return &Engine{fetcher: NewFetcher(), gen: gen}
}

// Run fetches the request's sources, builds a capped corpus, and asks the
// provider for an insight profile. Individual source failures are reported
// in the result's Sources and never abort the batch. An unparseable
// provider reply degrades to a neutral default profile; only a failed
// provider call surfaces as an error.
func (e *Engine) Run(ctx context.Context, req models.IngestRequest) (*models.IngestResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	urls := req.URLs
	if len(urls) > models.MaxIngestURLs {
		urls = urls[:models.MaxIngestURLs]
	}

	var corpus strings.Builder
	sources := make([]models.SourceStatus, 0, len(urls)+1)
	for _, u := range urls {
		text, status := e.fetcher.Fetch(ctx, u)
		sources = append(sources, status)
		if status.Status != models.SourceOK {
			slog.Warn("Engine.Run: source not usable", "url", u, "status", status.Status, "code", status.Code)
			continue
		}
		corpus.WriteString(sourceHeader(u))
		corpus.WriteString(text)
	}

	if pasted := req.Text; strings.TrimSpace(pasted) != "" {
		capped := pasted
		if len(capped) > MaxPastedChars {
			capped = capped[:MaxPastedChars]
		}
		corpus.WriteString(sourceHeader(pastedSourceLabel))
		corpus.WriteString(capped)
		sources = append(sources, models.SourceStatus{
			URL:    pastedSourceLabel,
			Status: models.SourceOK,
			Chars:  len(pasted),
			Code:   200,
		})
	}

	reply, err := e.gen.Generate(ctx, genai.Request{
		System:    insightSystemPrompt,
		User:      renderInsightPrompt(corpus.String()),
		MaxTokens: insightMaxTokens,
		JSONOnly:  true,
	})
	if err != nil {
		return nil, &ProviderError{Provider: e.gen.Name(), Sources: sources, Err: err}
	}

	profile := defaultInsightProfile()
	if fields, ok := gateway.ExtractJSONObject(reply); ok {
		profile = coerceInsight(fields)
	} else {
		slog.Warn("Engine.Run: unparseable insight reply, using defaults", "provider", e.gen.Name())
	}

	return &models.IngestResult{Profile: profile, Sources: sources}, nil
}

func renderInsightPrompt(corpus string) string {
	return fmt.Sprintf("Analyze the corpus and return a compact JSON profile.\nSchema:\n%s\n\nCorpus:\n%s", insightSchema, corpus)
}

// defaultInsightProfile is the neutral profile used when extraction yields
// nothing usable.
func defaultInsightProfile() models.InsightProfile {
	return models.InsightProfile{
		Platforms:             []string{},
		PersonalityIndicators: []string{},
		Values:                []string{},
		EmotionalTone:         0.5,
		CommunicationStyle:    "neutral",
		Topics:                []string{},
	}
}

// coerceInsight maps loosely typed provider output onto the insight profile,
// substituting neutral defaults for missing or mistyped fields.
func coerceInsight(fields map[string]any) models.InsightProfile {
	p := defaultInsightProfile()

	raw, err := json.Marshal(fields)
	if err != nil {
		return p
	}
	var decoded models.InsightProfile
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return p
	}

	if decoded.Platforms != nil {
		p.Platforms = decoded.Platforms
	}
	if decoded.PersonalityIndicators != nil {
		p.PersonalityIndicators = decoded.PersonalityIndicators
	}
	if decoded.Values != nil {
		p.Values = decoded.Values
	}
	if _, ok := fields["emotionalTone"].(float64); ok {
		p.EmotionalTone = decoded.EmotionalTone
	}
	if strings.TrimSpace(decoded.CommunicationStyle) != "" {
		p.CommunicationStyle = decoded.CommunicationStyle
	}
	if decoded.Topics != nil {
		p.Topics = decoded.Topics
	}
	return p
}
