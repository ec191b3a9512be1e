package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/logging"
)

func TestContentBlockRoundTrip(t *testing.T) {
	blocks := []ContentBlock{
		TextBlock("hello"),
		ToolUseBlock("toolu_1", "list_events", json.RawMessage(`{"maxResults":5}`)),
		ToolResultBlock("toolu_1", `{"success":true}`, false),
	}

	data, err := json.Marshal(blocks)
	require.NoError(t, err)

	var decoded []ContentBlock
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 3)

	assert.Equal(t, BlockText, decoded[0].Type)
	assert.Equal(t, "hello", decoded[0].Text)

	assert.Equal(t, BlockToolUse, decoded[1].Type)
	assert.Equal(t, "toolu_1", decoded[1].ID)
	assert.Equal(t, "list_events", decoded[1].Name)
	assert.JSONEq(t, `{"maxResults":5}`, string(decoded[1].Input))

	assert.Equal(t, BlockToolResult, decoded[2].Type)
	assert.Equal(t, "toolu_1", decoded[2].ToolUseID)
	assert.Equal(t, `{"success":true}`, decoded[2].Content)
}

func TestMessageText(t *testing.T) {
	msg := AssistantMessage([]ContentBlock{
		TextBlock("part one "),
		ToolUseBlock("toolu_1", "list_events", nil),
		TextBlock("part two"),
	})
	assert.Equal(t, "part one part two", msg.Text())
}

func TestResponseToolUses(t *testing.T) {
	resp := &CompletionResponse{
		Blocks: []ContentBlock{
			TextBlock("thinking"),
			ToolUseBlock("a", "list_events", nil),
			ToolUseBlock("b", "delete_event", nil),
		},
	}
	uses := resp.ToolUses()
	require.Len(t, uses, 2)
	assert.Equal(t, "a", uses[0].ID)
	assert.Equal(t, "b", uses[1].ID)
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry(logging.Nop())
	claude := &MockClient{ProviderName: "claude"}
	reg.Register("claude", claude)
	reg.Alias("claude-sonnet-4", "claude")
	reg.SetFallback("claude")

	got, err := reg.Resolve("claude")
	require.NoError(t, err)
	assert.Same(t, Client(claude), got)

	got, err = reg.Resolve("claude-sonnet-4")
	require.NoError(t, err)
	assert.Same(t, Client(claude), got)

	got, err = reg.Resolve("something-else")
	require.NoError(t, err)
	assert.Same(t, Client(claude), got)
}

func TestRegistryResolveNoProvider(t *testing.T) {
	reg := NewRegistry(logging.Nop())
	_, err := reg.Resolve("ghost")
	assert.Error(t, err)
}

func TestClaudeAPIComplete(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "Let me check."},
				{"type": "tool_use", "id": "toolu_1", "name": "list_events", "input": {"maxResults": 10}}
			],
			"usage": {"input_tokens": 42, "output_tokens": 17}
		}`))
	}))
	defer srv.Close()

	client := NewClaudeAPIClientWithBaseURL("test-key", "claude-test", srv.URL)
	resp, err := client.Complete(context.Background(), CompletionRequest{
		System:   "you are a scheduler",
		Messages: []Message{UserText("what's on my calendar?")},
		Tools: []ToolDefinition{
			{Name: "list_events", Description: "List events", InputSchema: `{"type":"object"}`},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StopToolUse, resp.StopReason)
	require.Len(t, resp.Blocks, 2)
	assert.Equal(t, "Let me check.", resp.Blocks[0].Text)
	assert.Equal(t, "list_events", resp.Blocks[1].Name)
	assert.Equal(t, 42, resp.Usage.InputTokens)

	// The tool catalog must appear in the wire body.
	tools, ok := gotBody["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, "you are a scheduler", gotBody["system"])
}

func TestClaudeAPICompleteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"invalid_request_error"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClaudeAPIClientWithBaseURL("test-key", "claude-test", srv.URL)
	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{UserText("hi")},
	})
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusBadRequest, provErr.Code)
}

func TestScriptedClient(t *testing.T) {
	sc := &ScriptedClient{
		Responses: []*CompletionResponse{
			{Blocks: []ContentBlock{TextBlock("first")}, StopReason: StopEndTurn},
		},
	}

	resp, err := sc.Complete(context.Background(), CompletionRequest{Messages: []Message{UserText("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Text())

	_, err = sc.Complete(context.Background(), CompletionRequest{})
	assert.Error(t, err)
	assert.Equal(t, 2, sc.Calls())
	require.Len(t, sc.Requests, 2)
}
