package webapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/agent"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/llm"
)

// eventBuffer bounds the in-flight event queue between the runner and a
// slow client connection.
const eventBuffer = 32

// chatRequest is the body of POST /api/chat and of each WebSocket message.
// Message is unmarshalled loosely so a non-string value can be rejected
// with a clear error instead of a generic decode failure.
type chatRequest struct {
	Message      any           `json:"message"`
	SessionID    string        `json:"sessionId,omitempty"`
	UserName     string        `json:"userName,omitempty"`
	Conversation []llm.Message `json:"conversation,omitempty"`
}

// validate extracts the message text, rejecting missing or non-string values.
func (c *chatRequest) validate() (string, error) {
	if c.Message == nil {
		return "", fmt.Errorf("message is required")
	}
	text, ok := c.Message.(string)
	if !ok {
		return "", fmt.Errorf("message must be a string")
	}
	if text == "" {
		return "", fmt.Errorf("message is required")
	}
	return text, nil
}

// prepareInput resolves the session and prior transcript for a chat request.
func (s *Server) prepareInput(req *chatRequest, message string) (agent.RunInput, error) {
	input := agent.RunInput{
		SessionID:    req.SessionID,
		UserName:     req.UserName,
		Message:      message,
		Conversation: req.Conversation,
	}

	if s.conversations == nil {
		return input, nil
	}

	id, err := s.conversations.Ensure(req.SessionID, req.UserName)
	if err != nil {
		return input, err
	}
	input.SessionID = id

	// A client-supplied transcript wins over the stored one
	if len(input.Conversation) == 0 {
		history, err := s.conversations.History(id)
		if err != nil {
			return input, err
		}
		input.Conversation = history
	}
	return input, nil
}

// persistTurns records the user message and the final assistant response.
func (s *Server) persistTurns(sessionID, message string, result *agent.RunResult) {
	if s.conversations == nil || result == nil {
		return
	}
	if err := s.conversations.AppendTurn(sessionID, llm.UserText(message)); err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("persisting user turn")
		return
	}
	if result.Response == "" {
		return
	}
	reply := llm.AssistantMessage([]llm.ContentBlock{llm.TextBlock(result.Response)})
	err := s.conversations.AppendTurn(sessionID, reply)
	if err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("persisting assistant turn")
	}
}

// handleChat runs one agent turn and streams progress as Server-Sent Events.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.authLimiter.allow(r.RemoteAddr) {
		writeJSONError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	if ok, reason := s.authorize(r); !ok {
		s.authLimiter.recordFailure(r.RemoteAddr)
		writeJSONError(w, http.StatusUnauthorized, reason)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	message, err := req.validate()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	input, err := s.prepareInput(&req, message)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan agent.Event, eventBuffer)
	var result *agent.RunResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Run errors surface on the stream as error events
		result, _ = s.runner.Run(r.Context(), input, events)
	}()

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			s.log.Error().Err(err).Msg("encoding event")
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		flusher.Flush()
	}
	<-done

	s.persistTurns(input.SessionID, message, result)
}

// handleChatWS serves the same chat flow over a WebSocket. Each client
// message is one chat request; its events stream back as JSON frames.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	if !s.authLimiter.allow(r.RemoteAddr) {
		writeJSONError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	if ok, reason := s.authorize(r); !ok {
		s.authLimiter.recordFailure(r.RemoteAddr)
		writeJSONError(w, http.StatusUnauthorized, reason)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(4 * 1024 * 1024) // 4MB

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("new websocket connection")

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}

		message, err := req.validate()
		if err != nil {
			conn.WriteJSON(agent.Event{Type: agent.EventError, Error: err.Error()})
			continue
		}

		input, err := s.prepareInput(&req, message)
		if err != nil {
			conn.WriteJSON(agent.Event{Type: agent.EventError, Error: err.Error()})
			continue
		}

		events := make(chan agent.Event, eventBuffer)
		var result *agent.RunResult
		done := make(chan struct{})
		go func() {
			defer close(done)
			result, _ = s.runner.Run(r.Context(), input, events)
		}()

		for ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Debug().Err(err).Msg("websocket write failed")
				// Drain so the runner can finish and close the channel
				for range events {
				}
				break
			}
		}
		<-done

		s.persistTurns(input.SessionID, message, result)
	}
}
