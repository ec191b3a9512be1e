package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	claudeMessagesURL = "https://api.anthropic.com/v1/messages"
	claudeAPIVersion  = "2023-06-01"
)

// ClaudeAPIClient is a direct HTTP client for the Anthropic Messages API.
type ClaudeAPIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClaudeAPIClient creates a new Claude API client. Transient HTTP
// failures and 429/5xx responses are retried with backoff.
func NewClaudeAPIClient(apiKey, model string) *ClaudeAPIClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 120 * time.Second
	rc.Logger = nil

	return &ClaudeAPIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: claudeMessagesURL,
		client:  rc.StandardClient(),
	}
}

// NewClaudeAPIClientWithBaseURL creates a client against a custom endpoint.
// Used in tests against httptest servers.
func NewClaudeAPIClientWithBaseURL(apiKey, model, baseURL string) *ClaudeAPIClient {
	c := NewClaudeAPIClient(apiKey, model)
	c.baseURL = baseURL
	return c
}

// Name returns the provider name.
func (c *ClaudeAPIClient) Name() string {
	return "claude"
}

// Complete sends a completion request to the Claude API.
func (c *ClaudeAPIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(c.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", claudeAPIVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: c.Name(),
			Code:     resp.StatusCode,
			Message:  string(respBody),
		}
	}

	var result claudeAPIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return c.responseToCompletion(&result, time.Since(start)), nil
}

func (c *ClaudeAPIClient) buildRequestBody(req CompletionRequest) map[string]any {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body := map[string]any{
		"model":      c.model,
		"messages":   messagesToClaude(req.Messages),
		"max_tokens": maxTokens,
	}
	if req.System != "" {
		body["system"] = req.System
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]any, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = map[string]any{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": parseJSONSchema(t.InputSchema),
			}
		}
		body["tools"] = tools
	}
	return body
}

// messagesToClaude converts block-structured messages to the wire shape.
func messagesToClaude(msgs []Message) []map[string]any {
	result := make([]map[string]any, len(msgs))
	for i, m := range msgs {
		content := make([]map[string]any, 0, len(m.Blocks))
		for _, blk := range m.Blocks {
			switch blk.Type {
			case BlockText:
				content = append(content, map[string]any{
					"type": "text",
					"text": blk.Text,
				})
			case BlockToolUse:
				input := blk.Input
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				content = append(content, map[string]any{
					"type":  "tool_use",
					"id":    blk.ID,
					"name":  blk.Name,
					"input": input,
				})
			case BlockToolResult:
				entry := map[string]any{
					"type":        "tool_result",
					"tool_use_id": blk.ToolUseID,
					"content":     blk.Content,
				}
				if blk.IsError {
					entry["is_error"] = true
				}
				content = append(content, entry)
			}
		}
		result[i] = map[string]any{
			"role":    m.Role,
			"content": content,
		}
	}
	return result
}

func (c *ClaudeAPIClient) responseToCompletion(resp *claudeAPIResponse, duration time.Duration) *CompletionResponse {
	blocks := make([]ContentBlock, 0, len(resp.Content))
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			blocks = append(blocks, TextBlock(block.Text))
		case "tool_use":
			blocks = append(blocks, ToolUseBlock(block.ID, block.Name, block.Input))
		}
	}

	return &CompletionResponse{
		Blocks:     blocks,
		StopReason: resp.StopReason,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
		Model:    resp.Model,
		Duration: duration,
	}
}

// API response structures

type claudeAPIResponse struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Role       string               `json:"role"`
	Content    []claudeContentBlock `json:"content"`
	Model      string               `json:"model"`
	StopReason string               `json:"stop_reason"`
	Usage      claudeUsage          `json:"usage"`
}

type claudeContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// parseJSONSchema converts a JSON schema string to a map for the wire body.
func parseJSONSchema(schemaStr string) map[string]any {
	if schemaStr == "" {
		return map[string]any{"type": "object"}
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(schemaStr), &schema); err != nil {
		return map[string]any{"type": "object"}
	}
	return schema
}
