package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// SessionHeader carries the caller's session identifier. Profiles are keyed
// by it; requests without one are minted a fresh session whose ID is echoed
// back in the response.
const SessionHeader = "X-Session-ID"

// corsMiddleware applies the permissive CORS policy the browser client
// needs and short-circuits preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionID returns the request's session identifier, minting a new one
// when the header is absent. The ID is always echoed on the response so
// clients can persist a minted session.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)
	return id
}
