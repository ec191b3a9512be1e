package webapi

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/agent"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/config"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/llm"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/logging"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/store"
)

const testToken = "test-token-123"

func newTestServer(t *testing.T, responses []*llm.CompletionResponse, opts ...ServerOption) *Server {
	t.Helper()

	client := &llm.ScriptedClient{Responses: responses}
	reg := llm.NewRegistry(logging.Nop())
	reg.Register(client.Name(), client)
	reg.SetFallback(client.Name())

	toolReg := agent.NewToolRegistry()
	history := agent.NewToolCallHistory(10)
	gate := agent.NewSafetyGate(history)
	dispatcher := agent.NewDispatcher(toolReg, history, gate, logging.Nop())

	runner := agent.NewRunner(
		agent.RunnerConfig{Model: client.Name()},
		reg, toolReg, dispatcher, logging.Nop(),
	)

	cfg := config.Defaults()
	cfg.Auth.Token = testToken
	return New(cfg, logging.Nop(), runner, opts...)
}

func testMux(s *Server) http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return mux
}

func chatPost(body string, token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// sseEvents parses an SSE response body into (event name, decoded data) pairs.
func sseEvents(t *testing.T, body []byte) []agent.Event {
	t.Helper()

	var events []agent.Event
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var ev agent.Event
			require.NoError(t, json.Unmarshal([]byte(data), &ev))
			events = append(events, ev)
		}
	}
	return events
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	testMux(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestChat_StreamsEvents(t *testing.T) {
	s := newTestServer(t, []*llm.CompletionResponse{
		{Blocks: []llm.ContentBlock{llm.TextBlock("All quiet today.")}, StopReason: llm.StopEndTurn},
	})

	rec := httptest.NewRecorder()
	testMux(s).ServeHTTP(rec, chatPost(`{"message":"what's new?"}`, testToken))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := sseEvents(t, rec.Body.Bytes())
	require.Len(t, events, 2)
	assert.Equal(t, agent.EventAssistantText, events[0].Type)
	assert.Equal(t, "All quiet today.", events[0].Text)
	assert.Equal(t, agent.EventDone, events[1].Type)
	require.NotNil(t, events[1].Result)
	assert.Equal(t, "All quiet today.", events[1].Result.Response)
	assert.Equal(t, 1, events[1].Result.Iterations)
}

func TestChat_MissingMessage(t *testing.T) {
	s := newTestServer(t, nil)

	for _, body := range []string{`{}`, `{"message":42}`, `{"message":""}`} {
		rec := httptest.NewRecorder()
		testMux(s).ServeHTTP(rec, chatPost(body, testToken))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestChat_InvalidJSON(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	testMux(s).ServeHTTP(rec, chatPost(`{not json`, testToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_Unauthorized(t *testing.T) {
	s := newTestServer(t, nil)

	// No credentials
	rec := httptest.NewRecorder()
	testMux(s).ServeHTTP(rec, chatPost(`{"message":"hi"}`, ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong token
	rec = httptest.NewRecorder()
	testMux(s).ServeHTTP(rec, chatPost(`{"message":"hi"}`, "wrong"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChat_NoServerToken(t *testing.T) {
	s := newTestServer(t, nil)
	s.token = ""

	rec := httptest.NewRecorder()
	testMux(s).ServeHTTP(rec, chatPost(`{"message":"hi"}`, testToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChat_RateLimitsFailedAuth(t *testing.T) {
	s := newTestServer(t, nil)
	mux := testMux(s)

	for i := 0; i < authRateMaxFails; i++ {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, chatPost(`{"message":"hi"}`, "wrong"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// Next attempt is throttled even with the right token
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, chatPost(`{"message":"hi"}`, testToken))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestChat_AbortedRunStillStreams(t *testing.T) {
	// A model that always asks for an unknown tool hits the iteration
	// bound and the run ends with aborted set, still a 200 stream.
	resp := &llm.CompletionResponse{
		Blocks:     []llm.ContentBlock{llm.ToolUseBlock("tu", "nope", []byte(`{}`))},
		StopReason: llm.StopToolUse,
	}
	responses := make([]*llm.CompletionResponse, 20)
	for i := range responses {
		responses[i] = resp
	}
	s := newTestServer(t, responses)

	rec := httptest.NewRecorder()
	testMux(s).ServeHTTP(rec, chatPost(`{"message":"go"}`, testToken))

	assert.Equal(t, http.StatusOK, rec.Code)
	events := sseEvents(t, rec.Body.Bytes())
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, agent.EventDone, last.Type)
	require.NotNil(t, last.Result)
	assert.True(t, last.Result.Aborted)
}

func TestChat_PersistsTurns(t *testing.T) {
	db, err := store.Open(":memory:", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cs := store.NewConversationStore(db)

	s := newTestServer(t, []*llm.CompletionResponse{
		{Blocks: []llm.ContentBlock{llm.TextBlock("Saved reply.")}, StopReason: llm.StopEndTurn},
	}, WithConversations(cs))

	rec := httptest.NewRecorder()
	testMux(s).ServeHTTP(rec, chatPost(`{"message":"hello","sessionId":"sess-1"}`, testToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	history, err := cs.History("sess-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Blocks[0].Text)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
	assert.Equal(t, "Saved reply.", history[1].Blocks[0].Text)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/chat/ws?token=qp-token", nil)
	assert.Equal(t, "qp-token", bearerToken(r))

	r = httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	r.Header.Set("Authorization", "Bearer hdr-token")
	assert.Equal(t, "hdr-token", bearerToken(r))

	r = httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	r.Header.Set("Authorization", "Basic dXNlcg==")
	assert.Equal(t, "", bearerToken(r))
}

func TestSafeEqual(t *testing.T) {
	assert.True(t, safeEqual("abc", "abc"))
	assert.False(t, safeEqual("abc", "abd"))
	assert.False(t, safeEqual("abc", "abcd"))
	assert.False(t, safeEqual("", "abc"))
}

func TestResolveBindAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:18790", resolveBindAddr(config.ServerConfig{Port: 18790, Bind: "loopback"}))
	assert.Equal(t, "0.0.0.0:18790", resolveBindAddr(config.ServerConfig{Port: 18790, Bind: "lan"}))
}
