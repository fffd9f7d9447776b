package models

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation constants for gateway requests.
const (
	// MinDecisionOptions is the minimum number of usable options a decision
	// analysis request must carry.
	MinDecisionOptions = 2
	// MaxDecisionOptions caps the number of options forwarded to a provider.
	MaxDecisionOptions = 10
	// MaxIngestURLs caps the number of URLs processed per ingest request.
	MaxIngestURLs = 5
)

// Defaulting constants for normalized gateway responses.
const (
	// DefaultConfidence is substituted when a provider reply carries no
	// usable confidence value.
	DefaultConfidence = 60
	// DefaultRecommendation is substituted when a provider reply carries no
	// usable recommendation text.
	DefaultRecommendation = "No recommendation available."
	// CoachDefaultReply is substituted when a parsed coach reply carries no
	// usable reply text.
	CoachDefaultReply = "Got it. Tell me more."
	// CoachFallbackReply is returned on the coach path whenever the provider
	// call or reply parsing fails, so the chat UI never dead-ends.
	CoachFallbackReply = "Hmm, my analysis service hit a snag. Try again in a moment."
)

// Error variables for request validation.
var (
	ErrMissingDecision     = errors.New("decision is required")
	ErrInsufficientOptions = errors.New("provide at least two options")
	ErrTooManyOptions      = errors.New("too many options")
	ErrMissingMessage      = errors.New("message is required")
	ErrMissingSource       = errors.New("provide urls or text")
)

// validate is the shared validator instance; validator.New is expensive so
// it is constructed once per package.
var validate = validator.New()

// AnalyzeRequest is a structured decision-analysis request.
type AnalyzeRequest struct {
	Decision   string         `json:"decision" validate:"required"`
	Options    []string       `json:"options"`
	UserInputs map[string]any `json:"userInputs,omitempty"`
}

// UsableOptions returns the options with blank entries trimmed away.
func (r *AnalyzeRequest) UsableOptions() []string {
	out := make([]string, 0, len(r.Options))
	for _, o := range r.Options {
		if t := strings.TrimSpace(o); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks the request before any provider call is made, so malformed
// input never incurs provider cost.
func (r *AnalyzeRequest) Validate() error {
	if strings.TrimSpace(r.Decision) == "" {
		return ErrMissingDecision
	}
	if err := validate.Struct(r); err != nil {
		return err
	}
	usable := r.UsableOptions()
	if len(usable) < MinDecisionOptions {
		return ErrInsufficientOptions
	}
	if len(usable) > MaxDecisionOptions {
		return ErrTooManyOptions
	}
	return nil
}

// CoachRequest is a single conversational onboarding turn.
type CoachRequest struct {
	Message string   `json:"message" validate:"required"`
	Profile *Profile `json:"profile,omitempty"`
}

// Validate checks the coach request.
func (r *CoachRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrMissingMessage
	}
	return validate.Struct(r)
}

// IngestRequest asks the service to build a social-insight profile from
// public URLs and/or pasted text.
type IngestRequest struct {
	URLs []string `json:"urls,omitempty" validate:"max=5,dive,url"`
	Text string   `json:"text,omitempty"`
}

// Validate checks that at least one usable source is present.
func (r *IngestRequest) Validate() error {
	if len(r.URLs) == 0 && strings.TrimSpace(r.Text) == "" {
		return ErrMissingSource
	}
	return validate.Struct(r)
}

// AnalysisResponse is the normalized shape returned for a decision-analysis
// request. Missing or mistyped provider fields are replaced by documented
// defaults, never surfaced as errors.
type AnalysisResponse struct {
	Confidence         float64  `json:"confidence"`
	Recommendation     string   `json:"recommendation"`
	Reasoning          []string `json:"reasoning"`
	SuggestedNextSteps []string `json:"suggestedNextSteps"`
	Raw                any      `json:"raw,omitempty"`
}

// CoachResponse is the normalized shape returned for a coach turn.
type CoachResponse struct {
	Reply        string  `json:"reply"`
	ProfilePatch Profile `json:"profilePatch"`
}

// SourceStatusKind classifies the outcome of fetching one ingest source.
type SourceStatusKind string

const (
	SourceOK          SourceStatusKind = "ok"
	SourceBlockedAuth SourceStatusKind = "blocked_auth"
	SourceError       SourceStatusKind = "error"
)

// SourceStatus reports how a single ingest source was handled.
type SourceStatus struct {
	URL    string           `json:"url"`
	Status SourceStatusKind `json:"status"`
	Chars  int              `json:"chars,omitempty"`
	Code   int              `json:"code"`
}

// InsightProfile is the conservative social-insight extraction returned by
// the ingest path.
type InsightProfile struct {
	Platforms             []string `json:"platforms"`
	PersonalityIndicators []string `json:"personalityIndicators"`
	Values                []string `json:"values"`
	EmotionalTone         float64  `json:"emotionalTone"`
	CommunicationStyle    string   `json:"communicationStyle"`
	Topics                []string `json:"topics"`
}

// IngestResult pairs the extracted insight profile with per-source status.
type IngestResult struct {
	Profile InsightProfile `json:"profile"`
	Sources []SourceStatus `json:"sources"`
}

// ErrorResponse is the error body returned by every failing endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error creates an error response body with a message.
func Error(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

// ProviderFailure is the diagnostic payload returned when an upstream
// provider call or its reply parsing fails on the decision-analysis and
// ingest paths.
type ProviderFailure struct {
	Error    string         `json:"error"`
	Provider string         `json:"provider,omitempty"`
	Raw      string         `json:"raw,omitempty"`
	Sources  []SourceStatus `json:"sources,omitempty"`
}
