package gateway

import (
	"encoding/json"
	"log/slog"

	"github.com/Punshui30/NF2/internal/models"
)

// coerceAnalysis maps a parsed provider object into the normalized analysis
// shape, substituting documented defaults for missing or mistyped fields.
// The full parsed object rides along in Raw for debugging.
func coerceAnalysis(fields map[string]any) models.AnalysisResponse {
	resp := models.AnalysisResponse{
		Confidence:         models.DefaultConfidence,
		Recommendation:     models.DefaultRecommendation,
		Reasoning:          []string{},
		SuggestedNextSteps: []string{},
		Raw:                fields,
	}
	if v, ok := fields["confidence"].(float64); ok {
		resp.Confidence = clampConfidence(v)
	}
	if v, ok := fields["recommendation"].(string); ok && v != "" {
		resp.Recommendation = v
	}
	resp.Reasoning = stringSlice(fields["reasoning"])
	resp.SuggestedNextSteps = stringSlice(fields["suggestedNextSteps"])
	return resp
}

// coerceCoach maps a parsed provider object into the coach shape. A missing
// reply gets the default acknowledgment; a missing or malformed patch
// degrades to the empty patch rather than an error.
func coerceCoach(fields map[string]any) models.CoachResponse {
	resp := models.CoachResponse{
		Reply:        models.CoachDefaultReply,
		ProfilePatch: models.Profile{},
	}
	if v, ok := fields["reply"].(string); ok && v != "" {
		resp.Reply = v
	}
	if patch, ok := fields["profilePatch"].(map[string]any); ok {
		resp.ProfilePatch = decodePatch(patch)
	}
	return resp
}

// decodePatch converts a loosely-typed patch object into a Profile,
// dropping fields that do not fit the schema. Round-tripping through JSON
// keeps the coercion rules in one place (the Profile's own tags).
func decodePatch(patch map[string]any) models.Profile {
	raw, err := json.Marshal(patch)
	if err != nil {
		slog.Warn("gateway.decodePatch: patch not marshalable, dropped", "error", err)
		return models.Profile{}
	}
	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		slog.Warn("gateway.decodePatch: patch does not fit profile schema, dropped", "error", err)
		return models.Profile{}
	}
	return p
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// stringSlice coerces a parsed JSON value into a []string, skipping
// non-string entries. Anything that is not an array yields an empty slice.
func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
