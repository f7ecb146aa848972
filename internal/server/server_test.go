package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ai-gateway/chat-relay/internal/chat"
	"github.com/ai-gateway/chat-relay/internal/config"
	"github.com/ai-gateway/chat-relay/internal/metrics"
	"github.com/ai-gateway/chat-relay/internal/provider"
	"github.com/ai-gateway/chat-relay/internal/provider/providertest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.5, 0.25}, nil
}

func newTestServer(t *testing.T, client *providertest.Client, opts ...Option) *Server {
	t.Helper()
	cfg := &config.Config{
		SystemPrompt:   "You are helpful.",
		RequestTimeout: time.Second,
		BlockedTerms:   []string{"forbidden"},
		EmbeddingModel: "text-embedding-3-small",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	usage := metrics.NewUsage()
	relay := chat.NewRelay(client, chat.WithUsage(usage), chat.WithLogger(logger))
	opts = append([]Option{WithUsage(usage), WithLogger(logger)}, opts...)
	return New(cfg, relay, opts...)
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w, out
}

func TestChat(t *testing.T) {
	client := providertest.New(provider.Groq, "llama")
	client.Reply = "Hi! How can I help?"
	s := newTestServer(t, client)

	w, out := do(t, s, http.MethodPost, "/chat", `{"system_prompt": "Be brief.", "messages": [{"role": "user", "content": "hi"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if out["response"] != "Hi! How can I help?" {
		t.Fatalf("unexpected response %v", out)
	}
	if _, ok := out["error"]; ok {
		t.Fatalf("unexpected error field %v", out)
	}
	payload := client.LastPayload()
	if len(payload) != 2 || payload[0].Content != "Be brief." || payload[1].Content != "hi" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestChatProviderFailureIsPermissive(t *testing.T) {
	client := providertest.New(provider.OpenAI, "gpt")
	client.Err = &provider.Error{Provider: provider.OpenAI, Status: 401, Message: "Invalid API Key"}
	s := newTestServer(t, client)

	w, out := do(t, s, http.MethodPost, "/chat", `{"system_prompt": "", "messages": [{"role": "user", "content": "hi"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if out["response"] != "⚠️ Error: openai: http 401: Invalid API Key" {
		t.Fatalf("unexpected response %v", out["response"])
	}
	e, ok := out["error"].(map[string]any)
	if !ok || e["kind"] != string(chat.ProviderError) {
		t.Fatalf("unexpected error field %v", out["error"])
	}
	if client.Calls() != 1 {
		t.Fatalf("expected one call, got %d", client.Calls())
	}
}

func TestChatTimeout(t *testing.T) {
	client := providertest.New(provider.Gemini, "gemini")
	client.Block = true
	s := newTestServer(t, client)
	s.cfg.RequestTimeout = 20 * time.Millisecond

	w, out := do(t, s, http.MethodPost, "/chat", `{"messages": [{"role": "user", "content": "hi"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	e, ok := out["error"].(map[string]any)
	if !ok || e["kind"] != string(chat.Timeout) {
		t.Fatalf("expected timeout, got %v", out)
	}
}

func TestChatRejectsInvalidInput(t *testing.T) {
	client := providertest.New(provider.Groq, "llama")
	s := newTestServer(t, client)

	cases := []struct {
		name string
		body string
	}{
		{"malformed", `{"messages": [`},
		{"no messages and no prompt", `{"system_prompt": "", "messages": []}`},
		{"system in history", `{"messages": [{"role": "system", "content": "x"}, {"role": "user", "content": "hi"}]}`},
		{"blocked", `{"messages": [{"role": "user", "content": "something forbidden"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := do(t, s, http.MethodPost, "/chat", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
	if client.Calls() != 0 {
		t.Fatalf("provider should not be called, got %d calls", client.Calls())
	}
}

func TestChatSystemPromptOnly(t *testing.T) {
	client := providertest.New(provider.Groq, "llama")
	client.Reply = "Hello! What can I do for you?"
	s := newTestServer(t, client)

	w, out := do(t, s, http.MethodPost, "/chat", `{"system_prompt": "Greet the user.", "messages": []}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", w.Code, out)
	}
	if out["response"] != "Hello! What can I do for you?" {
		t.Fatalf("unexpected response %v", out)
	}
	if client.Calls() != 1 {
		t.Fatalf("expected one call, got %d", client.Calls())
	}
	payload := client.LastPayload()
	if len(payload) != 1 || payload[0].Role != provider.System || payload[0].Content != "Greet the user." {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestCreateSessionBody(t *testing.T) {
	s := newTestServer(t, providertest.New(provider.Groq, "llama"))

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(""))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("empty chunked body: expected 201, got %d (%s)", w.Code, w.Body.String())
	}

	w, _ = do(t, s, http.MethodPost, "/v1/sessions", `{"system_prompt": `)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", w.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	client := providertest.New(provider.Groq, "llama")
	s := newTestServer(t, client)

	w, out := do(t, s, http.MethodPost, "/v1/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	id, _ := out["id"].(string)
	if id == "" || out["system_prompt"] != "You are helpful." {
		t.Fatalf("unexpected session %v", out)
	}
	base := "/v1/sessions/" + id

	w, out = do(t, s, http.MethodPost, base+"/messages", `{"content": "hello"}`)
	if w.Code != http.StatusOK || out["response"] != "Echo: hello" {
		t.Fatalf("unexpected reply %d %v", w.Code, out)
	}
	do(t, s, http.MethodPost, base+"/messages", `{"content": "again"}`)
	if got := client.LastPayload(); len(got) != 4 {
		t.Fatalf("expected system + 3 history entries, got %d", len(got))
	}

	_, out = do(t, s, http.MethodGet, base, "")
	if msgs, _ := out["messages"].([]any); len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %v", out["messages"])
	}

	w, _ = do(t, s, http.MethodDelete, base+"/messages", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	_, out = do(t, s, http.MethodGet, base, "")
	if msgs, _ := out["messages"].([]any); len(msgs) != 0 {
		t.Fatalf("expected empty transcript, got %v", out["messages"])
	}
	do(t, s, http.MethodPost, base+"/messages", `{"content": "fresh"}`)
	if got := client.LastPayload(); len(got) != 2 {
		t.Fatalf("expected system + 1 entry after reset, got %d", len(got))
	}

	w, _ = do(t, s, http.MethodDelete, base, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	w, _ = do(t, s, http.MethodGet, base, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSessionFailureStillAdvances(t *testing.T) {
	client := providertest.New(provider.Groq, "llama")
	client.Err = errors.New("service unavailable")
	s := newTestServer(t, client)

	_, out := do(t, s, http.MethodPost, "/v1/sessions", `{"system_prompt": ""}`)
	id := out["id"].(string)

	w, out := do(t, s, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"content": "hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	msgs, _ := out["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %v", out["messages"])
	}
	last := msgs[1].(map[string]any)
	if last["role"] != "assistant" || last["content"] != "⚠️ Error: service unavailable" {
		t.Fatalf("unexpected assistant turn %v", last)
	}
	if got := client.LastPayload(); len(got) != 1 || got[0].Role != provider.User {
		t.Fatalf("explicit empty prompt should send no system entry: %+v", got)
	}
}

func TestSessionNotFound(t *testing.T) {
	s := newTestServer(t, providertest.New(provider.Groq, "llama"))
	w, _ := do(t, s, http.MethodPost, "/v1/sessions/missing/messages", `{"content": "hi"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	w, _ = do(t, s, http.MethodDelete, "/v1/sessions/missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestEmbeddings(t *testing.T) {
	s := newTestServer(t, providertest.New(provider.Groq, "llama"))
	w, _ := do(t, s, http.MethodPost, "/v1/embeddings", `{"input": "hello"}`)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", w.Code)
	}

	s = newTestServer(t, providertest.New(provider.Groq, "llama"), WithEmbedder(fakeEmbedder{}))
	w, out := do(t, s, http.MethodPost, "/v1/embeddings", `{"input": "hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if vec, _ := out["embedding"].([]any); len(vec) != 2 {
		t.Fatalf("unexpected embedding %v", out)
	}

	s = newTestServer(t, providertest.New(provider.Groq, "llama"), WithEmbedder(fakeEmbedder{err: errors.New("quota")}))
	w, _ = do(t, s, http.MethodPost, "/v1/embeddings", `{"input": "hello"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestModelsUsageHealth(t *testing.T) {
	client := providertest.New(provider.Groq, "llama-3.3-70b-versatile")
	s := newTestServer(t, client)
	do(t, s, http.MethodPost, "/chat", `{"messages": [{"role": "user", "content": "hi"}]}`)

	w, out := do(t, s, http.MethodGet, "/v1/models", "")
	if w.Code != http.StatusOK || out["provider"] != "groq" || out["model"] != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected models %d %v", w.Code, out)
	}
	if cat, _ := out["catalog"].(map[string]any); len(cat) == 0 {
		t.Fatalf("expected catalog, got %v", out["catalog"])
	}

	_, out = do(t, s, http.MethodGet, "/v1/usage", "")
	usage, _ := out["usage"].(map[string]any)
	groq, _ := usage["groq"].(map[string]any)
	if groq["requests"] != float64(1) {
		t.Fatalf("unexpected usage %v", out)
	}

	w, out = do(t, s, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", w.Code, out)
	}
}
