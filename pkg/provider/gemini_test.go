package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conduitlabs/relay/pkg/chat"
)

func testGemini(t *testing.T, baseURL string) *Gemini {
	t.Helper()
	g, err := NewGemini(GeminiConfig{
		APIKey:        "test-key",
		BaseURL:       baseURL,
		DefaultModel:  "gemini-2.5-flash",
		FallbackModel: "gemini-2.5-flash",
	}, zap.NewNop())
	require.NoError(t, err)
	return g
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	_, err := NewGemini(GeminiConfig{}, zap.NewNop())
	var cfgErr *chat.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestResolveModel(t *testing.T) {
	g := testGemini(t, "http://localhost")

	for _, requested := range []string{"", "   ", "\t\n"} {
		model, err := g.ResolveModel(requested)
		require.NoError(t, err)
		assert.Equal(t, "gemini-2.5-flash", model, "requested %q", requested)
	}

	model, err := g.ResolveModel("  gemini-2.5-pro ")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", model)
}

func TestBuildRequestRoleMapping(t *testing.T) {
	g := testGemini(t, "http://localhost")

	body, err := g.BuildRequest([]chat.Message{
		{Role: chat.RoleSystem, Content: "be terse"},
		{Role: chat.RoleUser, Content: "hello"},
		{Role: chat.RoleAssistant, Content: "hi"},
		{Role: "tool", Content: "result"},
	}, map[string]any{"temperature": 0.5})
	require.NoError(t, err)

	payload := string(body)
	assert.Contains(t, payload, `"systemInstruction":{"parts":[{"text":"be terse"}]}`)
	assert.Contains(t, payload, `{"role":"user","parts":[{"text":"hello"}]}`)
	assert.Contains(t, payload, `{"role":"model","parts":[{"text":"hi"}]}`)
	assert.Contains(t, payload, `{"role":"model","parts":[{"text":"result"}]}`)
	assert.Contains(t, payload, `"generationConfig":{"temperature":0.5}`)
	assert.NotContains(t, payload, `"role":"system"`)
}

func TestBuildRequestConcatenatesSystemFragments(t *testing.T) {
	g := testGemini(t, "http://localhost")

	body, err := g.BuildRequest([]chat.Message{
		{Role: chat.RoleSystem, Content: "first"},
		{Role: chat.RoleUser, Content: "hello"},
		{Role: chat.RoleSystem, Content: "second"},
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, string(body), `"systemInstruction":{"parts":[{"text":"first\n\nsecond"}]}`)
}

func TestBuildRequestIdempotent(t *testing.T) {
	g := testGemini(t, "http://localhost")

	conversation := []chat.Message{
		{Role: chat.RoleSystem, Content: "sys"},
		{Role: chat.RoleUser, Content: "q"},
	}
	genCfg := map[string]any{"topP": 0.9, "temperature": 0.2, "maxOutputTokens": 64}

	first, err := g.BuildRequest(conversation, genCfg)
	require.NoError(t, err)
	second, err := g.BuildRequest(conversation, genCfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// modelServer records which models were requested and serves scripted
// responses per model name.
type modelServer struct {
	mu       sync.Mutex
	requests []string
	respond  map[string]func(w http.ResponseWriter)
}

func (m *modelServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Path shape: /models/<model>:streamGenerateContent
		trimmed := strings.TrimPrefix(r.URL.Path, "/models/")
		model := strings.SplitN(trimmed, ":", 2)[0]

		m.mu.Lock()
		m.requests = append(m.requests, model)
		respond := m.respond[model]
		m.mu.Unlock()

		if respond == nil {
			http.NotFound(w, r)
			return
		}
		respond(w)
	}
}

func (m *modelServer) requested() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

func serveSSE(text string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"candidates":[{"content":{"parts":[{"text":"` + text + `"}]}}]}` + "\n"))
	}
}

func TestStreamFallbackOnNotFound(t *testing.T) {
	ms := &modelServer{respond: map[string]func(http.ResponseWriter){
		"gemini-2.5-flash": serveSSE("ok"),
	}}
	server := httptest.NewServer(ms.handler())
	defer server.Close()

	g := testGemini(t, server.URL)

	stream, err := g.Stream(context.Background(), Request{
		Conversation: []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
		Model:        "gemini-nonexistent",
	})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, []string{"ok"}, collect(t, stream))
	assert.Equal(t, []string{"gemini-nonexistent", "gemini-2.5-flash"}, ms.requested())
}

func TestStreamNoFallbackWhenRequestedIsFallback(t *testing.T) {
	ms := &modelServer{respond: map[string]func(http.ResponseWriter){}}
	server := httptest.NewServer(ms.handler())
	defer server.Close()

	g := testGemini(t, server.URL)

	_, err := g.Stream(context.Background(), Request{
		Conversation: []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
		Model:        "gemini-2.5-flash",
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, []string{"gemini-2.5-flash"}, ms.requested())
}

func TestStreamSecondNotFoundIsTerminal(t *testing.T) {
	ms := &modelServer{respond: map[string]func(http.ResponseWriter){}}
	server := httptest.NewServer(ms.handler())
	defer server.Close()

	g := testGemini(t, server.URL)

	_, err := g.Stream(context.Background(), Request{
		Conversation: []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
		Model:        "gemini-nonexistent",
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	// Exactly one retry, no recursion.
	assert.Equal(t, []string{"gemini-nonexistent", "gemini-2.5-flash"}, ms.requested())
}

func TestStreamErrorStatusCarriesMessage(t *testing.T) {
	ms := &modelServer{respond: map[string]func(http.ResponseWriter){
		"gemini-2.5-flash": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
		},
	}}
	server := httptest.NewServer(ms.handler())
	defer server.Close()

	g := testGemini(t, server.URL)

	_, err := g.Stream(context.Background(), Request{
		Conversation: []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "quota exceeded", apiErr.Message)
}

func TestStreamSendsAPIKeyHeader(t *testing.T) {
	var gotKey, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotContentType = r.Header.Get("Content-Type")
		serveSSE("ok")(w)
	}))
	defer server.Close()

	g := testGemini(t, server.URL)

	stream, err := g.Stream(context.Background(), Request{
		Conversation: []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	stream.Close()

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "application/json", gotContentType)
}
