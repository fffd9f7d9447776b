package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Punshui30/NF2/internal/ingest"
	"github.com/Punshui30/NF2/internal/models"
)

func (s *Server) ingestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.ingestHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.ingestor == nil {
		slog.Error("Server.ingestHandler: ingest engine not configured")
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Server missing ANTHROPIC_API_KEY"))
		return
	}

	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.ingestHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	result, err := s.ingestor.Run(r.Context(), req)
	if err != nil {
		var provErr *ingest.ProviderError
		if errors.As(err, &provErr) {
			slog.Error("Server.ingestHandler: provider call failed", "provider", provErr.Provider, "error", provErr.Err)
			writeJSONResponse(w, http.StatusBadGateway, models.ProviderFailure{
				Error:    "Insight extraction failed",
				Provider: provErr.Provider,
				Sources:  provErr.Sources,
			})
			return
		}
		slog.Warn("Server.ingestHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	slog.Info("Server.ingestHandler: ingest complete", "sources", len(result.Sources))
	writeJSONResponse(w, http.StatusOK, result)
}
