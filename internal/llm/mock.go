package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{
		Blocks:     []ContentBlock{TextBlock("mock response")},
		StopReason: StopEndTurn,
	}, nil
}

// ScriptedClient returns a fixed sequence of completions, one per Complete
// call. It also records every request it receives so tests can inspect the
// transcript the caller sent.
type ScriptedClient struct {
	mu        sync.Mutex
	Responses []*CompletionResponse
	Requests  []CompletionRequest
	calls     int
}

func (s *ScriptedClient) Name() string { return "scripted" }

func (s *ScriptedClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, req)
	if s.calls >= len(s.Responses) {
		return nil, fmt.Errorf("scripted client exhausted after %d calls", s.calls)
	}
	resp := s.Responses[s.calls]
	s.calls++
	return resp, nil
}

// Calls returns how many Complete calls have been made.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
