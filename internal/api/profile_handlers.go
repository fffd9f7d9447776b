package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Punshui30/NF2/internal/models"
)

// profileHandler serves the session profile: GET reads it, PUT replaces it
// wholesale, DELETE resets the session.
func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	session := sessionID(w, r)

	switch r.Method {
	case http.MethodGet:
		profile := s.profiles.Get(r.Context(), session)
		writeJSONResponse(w, http.StatusOK, profile)
	case http.MethodPut:
		var profile models.Profile
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			slog.Warn("Server.profileHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		s.profiles.Set(r.Context(), session, profile)
		writeJSONResponse(w, http.StatusOK, profile)
	case http.MethodDelete:
		s.profiles.Reset(r.Context(), session)
		writeJSONResponse(w, http.StatusOK, models.Profile{})
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		slog.Warn("Server.profileHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// profileMergeHandler applies a partial patch to the session profile and
// returns the merged result.
func (s *Server) profileMergeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.profileMergeHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session := sessionID(w, r)

	var patch models.Profile
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		slog.Warn("Server.profileMergeHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	merged := s.profiles.Merge(r.Context(), session, patch)
	writeJSONResponse(w, http.StatusOK, merged)
}

// completenessResponse reports how filled-in a session profile is.
type completenessResponse struct {
	Completeness float64 `json:"completeness"`
}

func (s *Server) completenessHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.completenessHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session := sessionID(w, r)
	profile := s.profiles.Get(r.Context(), session)
	writeJSONResponse(w, http.StatusOK, completenessResponse{Completeness: models.Completeness(profile)})
}

// healthResponse is the GET /health body.
type healthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Model   string `json:"model,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body := healthResponse{OK: true, Service: "northform"}
	if s.analysis != nil {
		body.Model = s.analysis.Model()
	}
	writeJSONResponse(w, http.StatusOK, body)
}
