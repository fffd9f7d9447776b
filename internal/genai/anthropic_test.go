package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropicGenerate_Success(t *testing.T) {
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing anthropic-version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"reply\":\"Noted.\"}"}],"model":"claude-3-5-sonnet-latest"}`))
	}))
	defer srv.Close()

	client, err := NewAnthropicClient(WithAPIKey("test-key"), WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	out, err := client.Generate(context.Background(), Request{System: "sys", User: "usr", JSONOnly: true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != `{"reply":"Noted."}` {
		t.Errorf("unexpected output: %q", out)
	}
	if gotReq.System != "sys" {
		t.Errorf("system prompt not forwarded: %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 || !strings.Contains(gotReq.Messages[0].Content, "Return ONLY JSON.") {
		t.Errorf("JSONOnly instruction missing from prompt: %+v", gotReq.Messages)
	}
	if gotReq.MaxTokens != 1200 {
		t.Errorf("expected default max_tokens 1200, got %d", gotReq.MaxTokens)
	}
}

func TestAnthropicGenerate_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error"}`))
	}))
	defer srv.Close()

	client, err := NewAnthropicClient(WithAPIKey("test-key"), WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	_, err = client.Generate(context.Background(), Request{User: "usr"})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestAnthropicGenerate_NoTextBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[],"model":"m"}`))
	}))
	defer srv.Close()

	client, err := NewAnthropicClient(WithAPIKey("test-key"), WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	_, err = client.Generate(context.Background(), Request{User: "usr"})
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected ErrNoChoicesReturned, got %v", err)
	}
}

func TestNewAnthropicClient_NoKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewAnthropicClient()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}
