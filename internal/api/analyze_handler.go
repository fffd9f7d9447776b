package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Punshui30/NF2/internal/gateway"
	"github.com/Punshui30/NF2/internal/models"
)

// analyzePayload is the wire shape of the /analyze endpoint. It serves two
// modes: decision analysis (decision + options) and conversational coaching
// (mode "coach" + message). The input field is a legacy alias for decision.
type analyzePayload struct {
	Mode       string          `json:"mode,omitempty"`
	Decision   string          `json:"decision,omitempty"`
	Input      string          `json:"input,omitempty"`
	Options    json.RawMessage `json:"options,omitempty"`
	UserInputs map[string]any  `json:"userInputs,omitempty"`
	Message    string          `json:"message,omitempty"`
	Profile    *models.Profile `json:"profile,omitempty"`
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.analyzeHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var p analyzePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		slog.Warn("Server.analyzeHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	if p.Mode == "coach" && strings.TrimSpace(p.Message) != "" {
		s.handleCoach(w, r, p)
		return
	}

	decision := p.Decision
	if decision == "" {
		decision = p.Input
	}
	if strings.TrimSpace(decision) != "" {
		s.handleDecision(w, r, decision, p)
		return
	}

	slog.Warn("Server.analyzeHandler: unsupported payload")
	writeJSONResponse(w, http.StatusBadRequest, models.Error("Unsupported payload"))
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request, decision string, p analyzePayload) {
	if s.analysis == nil {
		slog.Error("Server.handleDecision: analysis gateway not configured")
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Server missing OPENAI_API_KEY"))
		return
	}

	req := models.AnalyzeRequest{
		Decision:   decision,
		Options:    normalizeOptions(p.Options),
		UserInputs: p.UserInputs,
	}
	resp, err := s.analysis.AnalyzeDecision(r.Context(), req)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	slog.Info("Server.handleDecision: analysis complete", "confidence", resp.Confidence)
	writeJSONResponse(w, http.StatusOK, resp)
}

func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request, p analyzePayload) {
	if s.coach == nil {
		slog.Error("Server.handleCoach: coach gateway not configured")
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Server missing OPENAI_API_KEY"))
		return
	}

	session := sessionID(w, r)
	req := models.CoachRequest{Message: p.Message, Profile: p.Profile}
	resp, err := s.coach.Coach(r.Context(), req)
	if err != nil {
		slog.Warn("Server.handleCoach: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	// Persist whatever the model learned so the next turn starts from it.
	s.profiles.Merge(r.Context(), session, resp.ProfilePatch)

	writeJSONResponse(w, http.StatusOK, resp)
}

// writeAnalysisError maps decision-path failures onto the HTTP surface:
// client mistakes are 400s, upstream trouble is a 502 with diagnostics.
func writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrMissingDecision),
		errors.Is(err, models.ErrInsufficientOptions),
		errors.Is(err, models.ErrTooManyOptions):
		slog.Warn("Server.analyzeHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	var provErr *gateway.ProviderError
	if errors.As(err, &provErr) {
		slog.Error("Server.analyzeHandler: provider call failed", "provider", provErr.Provider, "error", provErr.Err)
		writeJSONResponse(w, http.StatusBadGateway, models.ProviderFailure{
			Error:    "AI Analysis Failed",
			Provider: provErr.Provider,
		})
		return
	}

	var parseErr *gateway.ParseError
	if errors.As(err, &parseErr) {
		slog.Error("Server.analyzeHandler: unparseable provider reply", "provider", parseErr.Provider)
		writeJSONResponse(w, http.StatusBadGateway, models.ProviderFailure{
			Error:    "AI Analysis Failed",
			Provider: parseErr.Provider,
			Raw:      parseErr.Raw,
		})
		return
	}

	slog.Error("Server.analyzeHandler: analysis failed", "error", err)
	writeJSONResponse(w, http.StatusInternalServerError, models.Error("Analysis failed"))
}

// normalizeOptions accepts either a JSON array of strings or a single bare
// string, matching what the browser client has historically sent.
func normalizeOptions(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	return nil
}
