package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Punshui30/NF2/internal/gateway"
	"github.com/Punshui30/NF2/internal/genai"
	"github.com/Punshui30/NF2/internal/ingest"
	"github.com/Punshui30/NF2/internal/models"
	"github.com/Punshui30/NF2/internal/store"
)

type stubGenerator struct {
	reply string
	err   error
	calls int
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(ctx context.Context, req genai.Request) (string, error) {
	s.calls++
	return s.reply, s.err
}

// newTestServer builds a full server on in-memory components with one stub
// provider behind every gateway.
func newTestServer(gen genai.Generator) (*httptest.Server, store.Store) {
	st := store.NewInMemoryStore()
	var g *gateway.Gateway
	var e *ingest.Engine
	if gen != nil {
		g = gateway.New(gen)
		e = ingest.New(gen)
	}
	s := NewServer(g, g, e, st)
	return httptest.NewServer(s.Handler()), st
}

func postJSON(t *testing.T, url, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(&stubGenerator{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	var body healthResponse
	decodeBody(t, resp, &body)
	if !body.OK || body.Service != "northform" {
		t.Errorf("unexpected health body: %+v", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(&stubGenerator{})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/analyze", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Headers"), SessionHeader) {
		t.Error("session header must be allowed for CORS")
	}
}

func TestAnalyze_DecisionSuccess(t *testing.T) {
	gen := &stubGenerator{reply: `{"confidence":82,"recommendation":"Accept","reasoning":["r1"],"suggestedNextSteps":["s1"]}`}
	srv, _ := newTestServer(gen)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/analyze", `{"decision":"Take the job?","options":["Accept","Decline"]}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body models.AnalysisResponse
	decodeBody(t, resp, &body)
	if body.Confidence != 82 || body.Recommendation != "Accept" {
		t.Errorf("unexpected analysis body: %+v", body)
	}
	if gen.calls != 1 {
		t.Errorf("expected one provider call, got %d", gen.calls)
	}
}

func TestAnalyze_InputAliasAndStringOptions(t *testing.T) {
	gen := &stubGenerator{}
	srv, _ := newTestServer(gen)
	defer srv.Close()

	// A bare string option yields one usable option, which fails validation
	// before any provider call.
	resp := postJSON(t, srv.URL+"/analyze", `{"input":"Move cities?","options":"Stay"}`, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if gen.calls != 0 {
		t.Errorf("invalid request must not reach the provider, got %d calls", gen.calls)
	}
}

func TestAnalyze_InsufficientOptions(t *testing.T) {
	gen := &stubGenerator{}
	srv, _ := newTestServer(gen)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/analyze", `{"decision":"D","options":["only"]}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body models.ErrorResponse
	decodeBody(t, resp, &body)
	if !strings.Contains(body.Error, "two options") {
		t.Errorf("unexpected error message: %q", body.Error)
	}
	if gen.calls != 0 {
		t.Errorf("invalid request must not reach the provider, got %d calls", gen.calls)
	}
}

func TestAnalyze_UnsupportedPayload(t *testing.T) {
	srv, _ := newTestServer(&stubGenerator{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/analyze", `{"something":"else"}`, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAnalyze_UnparseableReplyReturns502(t *testing.T) {
	gen := &stubGenerator{reply: "no json here"}
	srv, _ := newTestServer(gen)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/analyze", `{"decision":"D","options":["a","b"]}`, nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	var body models.ProviderFailure
	decodeBody(t, resp, &body)
	if body.Raw == "" {
		t.Error("502 body should carry the raw provider reply")
	}
}

func TestAnalyze_ProviderErrorReturns502(t *testing.T) {
	gen := &stubGenerator{err: errors.New("rate limited")}
	srv, _ := newTestServer(gen)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/analyze", `{"decision":"D","options":["a","b"]}`, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
}

func TestAnalyze_MissingGatewayReturns500(t *testing.T) {
	srv, _ := newTestServer(nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/analyze", `{"decision":"D","options":["a","b"]}`, nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var body models.ErrorResponse
	decodeBody(t, resp, &body)
	if !strings.Contains(body.Error, "OPENAI_API_KEY") {
		t.Errorf("500 should name the missing credential: %q", body.Error)
	}
}

func TestCoach_PersistsPatchAndMintsSession(t *testing.T) {
	gen := &stubGenerator{reply: `{"reply":"Noted.","profilePatch":{"values":["honesty"]}}`}
	srv, st := newTestServer(gen)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/analyze", `{"mode":"coach","message":"I value honesty"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	session := resp.Header.Get(SessionHeader)
	if session == "" {
		t.Fatal("missing session header on minted session")
	}
	var body models.CoachResponse
	decodeBody(t, resp, &body)
	if body.Reply != "Noted." {
		t.Errorf("unexpected reply: %q", body.Reply)
	}

	stored := st.Get(context.Background(), session)
	if len(stored.Values) != 1 || stored.Values[0] != "honesty" {
		t.Errorf("coach patch not persisted to session profile: %+v", stored)
	}
}

func TestCoach_ProviderFailureStillReturns200(t *testing.T) {
	gen := &stubGenerator{err: errors.New("boom")}
	srv, _ := newTestServer(gen)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/analyze", `{"mode":"coach","message":"hello"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("coach path should degrade gracefully, got %d", resp.StatusCode)
	}
	var body models.CoachResponse
	decodeBody(t, resp, &body)
	if body.Reply != models.CoachFallbackReply {
		t.Errorf("expected canned fallback, got %q", body.Reply)
	}
}

func TestProfileLifecycle(t *testing.T) {
	srv, _ := newTestServer(&stubGenerator{})
	defer srv.Close()
	headers := map[string]string{SessionHeader: "session-1"}

	// PUT replaces wholesale.
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/profile", strings.NewReader(`{"name":"Ada","values":["clarity"]}`))
	req.Header.Set(SessionHeader, "session-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put: expected 200, got %d", resp.StatusCode)
	}

	// Merge a patch.
	resp = postJSON(t, srv.URL+"/profile/merge", `{"email":"ada@example.com"}`, headers)
	var merged models.Profile
	decodeBody(t, resp, &merged)
	if merged.Name != "Ada" || merged.Email != "ada@example.com" {
		t.Errorf("merge result wrong: %+v", merged)
	}

	// GET reflects the merge.
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/profile", nil)
	req.Header.Set(SessionHeader, "session-1")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	var got models.Profile
	decodeBody(t, resp, &got)
	if got.Email != "ada@example.com" {
		t.Errorf("profile not persisted: %+v", got)
	}

	// Completeness reflects name and email.
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/profile/completeness", nil)
	req.Header.Set(SessionHeader, "session-1")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("completeness failed: %v", err)
	}
	var comp completenessResponse
	decodeBody(t, resp, &comp)
	if comp.Completeness <= 0 || comp.Completeness > 1 {
		t.Errorf("completeness out of range: %v", comp.Completeness)
	}

	// DELETE resets the session.
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/profile", nil)
	req.Header.Set(SessionHeader, "session-1")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/profile", nil)
	req.Header.Set(SessionHeader, "session-1")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get after delete failed: %v", err)
	}
	var after models.Profile
	decodeBody(t, resp, &after)
	if after.Name != "" {
		t.Errorf("profile should be empty after reset: %+v", after)
	}
}

func TestSessionIsolation(t *testing.T) {
	srv, _ := newTestServer(&stubGenerator{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/profile/merge", `{"name":"Ada"}`, map[string]string{SessionHeader: "a"})
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/profile", nil)
	req.Header.Set(SessionHeader, "b")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	var got models.Profile
	decodeBody(t, resp, &got)
	if got.Name != "" {
		t.Errorf("session b should not see session a's profile: %+v", got)
	}
}

func TestIngest_TextOnly(t *testing.T) {
	gen := &stubGenerator{reply: `{"values":["curiosity"],"communicationStyle":"direct"}`}
	srv, _ := newTestServer(gen)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/ingest", `{"text":"I post about science weekly."}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body models.IngestResult
	decodeBody(t, resp, &body)
	if body.Profile.CommunicationStyle != "direct" {
		t.Errorf("unexpected profile: %+v", body.Profile)
	}
	if len(body.Sources) != 1 || body.Sources[0].URL != "pasted_text" {
		t.Errorf("unexpected sources: %+v", body.Sources)
	}
}

func TestIngest_NoSources(t *testing.T) {
	srv, _ := newTestServer(&stubGenerator{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/ingest", `{}`, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestIngest_MissingEngineReturns500(t *testing.T) {
	srv, _ := newTestServer(nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/ingest", `{"text":"hello"}`, nil)
	var body models.ErrorResponse
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &body)
	if !strings.Contains(body.Error, "ANTHROPIC_API_KEY") {
		t.Errorf("500 should name the missing credential: %q", body.Error)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(&stubGenerator{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/analyze")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Allow") != http.MethodPost {
		t.Errorf("missing Allow header, got %q", resp.Header.Get("Allow"))
	}
}
