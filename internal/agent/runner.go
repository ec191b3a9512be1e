package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/llm"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/logging"
)

// Default loop bounds. Two independent counters because one iteration can
// request many tool calls; either alone would not bound worst-case API usage.
const (
	DefaultMaxIterations = 15
	DefaultMaxToolCalls  = 50
)

// refusalFallback replaces the model's own text when it stops with a
// refusal. Raw refusal output is never surfaced to the caller.
const refusalFallback = "I can't help with that request."

// RunnerConfig configures the orchestration loop.
type RunnerConfig struct {
	AgentName     string
	Model         string
	MaxTokens     int
	Temperature   *float64
	MaxIterations int
	MaxToolCalls  int
	ExtraPrompt   string
}

// RunInput is one inbound request: a user message plus the prior transcript.
type RunInput struct {
	SessionID    string
	UserName     string
	Message      string
	Conversation []llm.Message
}

// RunResult is the outcome of one orchestration run.
type RunResult struct {
	Response   string        `json:"response"`
	SessionID  string        `json:"sessionId"`
	Model      string        `json:"model,omitempty"`
	Usage      llm.Usage     `json:"usage"`
	Iterations int           `json:"iterations"`
	ToolCalls  int           `json:"toolCalls"`
	Aborted    bool          `json:"aborted,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Runner drives the model/tool orchestration loop. It alternates between
// asking the model for the next step and executing the tool calls the model
// requested, streaming progress events as they occur, until the model stops
// requesting tools or a bound is hit.
type Runner struct {
	cfg        RunnerConfig
	registry   *llm.Registry
	dispatcher *Dispatcher
	tools      *ToolRegistry
	log        *logging.Logger
}

// NewRunner creates an orchestration runner.
func NewRunner(
	cfg RunnerConfig,
	registry *llm.Registry,
	tools *ToolRegistry,
	dispatcher *Dispatcher,
	log *logging.Logger,
) *Runner {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = DefaultMaxToolCalls
	}
	return &Runner{
		cfg:        cfg,
		registry:   registry,
		dispatcher: dispatcher,
		tools:      tools,
		log:        log.Sub("agent"),
	}
}

// Run executes one orchestration run, emitting events on the given channel.
// The channel is closed exactly once before Run returns, after the terminal
// done or error event. The transcript is owned exclusively by this run.
//
// A canceled context stops the loop promptly: no further model or tool calls
// are issued and pending results are discarded rather than emitted.
func (r *Runner) Run(ctx context.Context, input RunInput, events chan<- Event) (result *RunResult, err error) {
	defer close(events)

	start := time.Now()

	client, err := r.registry.Resolve(r.cfg.Model)
	if err != nil {
		r.emit(ctx, events, Event{Type: EventError, Error: err.Error()})
		return nil, err
	}

	// The catalog is computed once so the model's view of available tools
	// never shifts within a run.
	catalog := r.tools.Catalog()
	system := BuildSystemPrompt(PromptConfig{
		AgentName:   r.cfg.AgentName,
		UserName:    input.UserName,
		ExtraPrompt: r.cfg.ExtraPrompt,
	})

	transcript := make([]llm.Message, 0, len(input.Conversation)+2)
	transcript = append(transcript, input.Conversation...)
	transcript = append(transcript, llm.UserText(input.Message))

	r.log.Info().
		Str("sessionId", input.SessionID).
		Str("model", r.cfg.Model).
		Int("historyLen", len(input.Conversation)).
		Msg("starting run")

	var (
		iterations int
		toolCalls  int
		usage      llm.Usage
		aborted    bool
		response   string
	)

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, cerr := client.Complete(ctx, llm.CompletionRequest{
			Model:       r.cfg.Model,
			System:      system,
			Messages:    transcript,
			Tools:       catalog,
			MaxTokens:   r.cfg.MaxTokens,
			Temperature: r.cfg.Temperature,
		})
		if cerr != nil {
			r.emit(ctx, events, Event{Type: EventError, Error: cerr.Error()})
			return nil, fmt.Errorf("model completion: %w", cerr)
		}
		iterations++
		usage.Add(resp.Usage)

		if resp.StopReason == llm.StopRefusal {
			response = refusalFallback
			if err := r.emit(ctx, events, Event{Type: EventAssistantText, Text: refusalFallback}); err != nil {
				return nil, err
			}
			break
		}

		// Model commentary streams before any tool event of this iteration.
		for _, blk := range resp.Blocks {
			if blk.Type == llm.BlockText && blk.Text != "" {
				if err := r.emit(ctx, events, Event{Type: EventAssistantText, Text: blk.Text}); err != nil {
					return nil, err
				}
			}
		}

		uses := resp.ToolUses()
		if len(uses) == 0 {
			response = resp.Text()
			break
		}

		r.log.Info().
			Str("sessionId", input.SessionID).
			Int("iteration", iterations).
			Int("toolCalls", len(uses)).
			Msg("dispatching tool calls")

		// Tools run strictly sequentially, in the order received, so later
		// calls see earlier ones in the history and event order matches
		// invocation order.
		results := make([]llm.ContentBlock, 0, len(uses))
		for _, use := range uses {
			if err := r.emit(ctx, events, Event{
				Type:      EventToolCall,
				ToolName:  use.Name,
				ToolUseID: use.ID,
				Input:     use.Input,
				Summary:   fmt.Sprintf("calling %s", use.Name),
			}); err != nil {
				return nil, err
			}

			outcome := r.dispatcher.Execute(ctx, input.SessionID, use.Name, use.Input)
			if err := r.emit(ctx, events, Event{
				Type:      EventToolResult,
				ToolName:  outcome.Tool,
				ToolUseID: use.ID,
				Success:   outcome.Success,
				Summary:   outcome.Summary(),
			}); err != nil {
				return nil, err
			}

			// Every tool_use is answered by exactly one tool_result before
			// the next completion request.
			results = append(results, llm.ToolResultBlock(use.ID, outcome.ResultJSON(), !outcome.Success))
		}
		toolCalls += len(uses)

		transcript = append(transcript,
			llm.AssistantMessage(resp.Blocks),
			llm.ToolResultsMessage(results),
		)

		if iterations >= r.cfg.MaxIterations || toolCalls >= r.cfg.MaxToolCalls {
			// Soft limit: the run stops but partial output was delivered.
			r.log.Warn().
				Str("sessionId", input.SessionID).
				Int("iterations", iterations).
				Int("toolCalls", toolCalls).
				Msg("run aborted: loop bound reached")
			aborted = true
			response = resp.Text()
			break
		}
	}

	result = &RunResult{
		Response:   response,
		SessionID:  input.SessionID,
		Model:      r.cfg.Model,
		Usage:      usage,
		Iterations: iterations,
		ToolCalls:  toolCalls,
		Aborted:    aborted,
		Duration:   time.Since(start),
	}

	if err := r.emit(ctx, events, Event{Type: EventDone, Result: result}); err != nil {
		return nil, err
	}

	r.log.Info().
		Str("sessionId", input.SessionID).
		Int("iterations", iterations).
		Int("toolCalls", toolCalls).
		Bool("aborted", aborted).
		Dur("duration", result.Duration).
		Msg("run finished")

	return result, nil
}

// emit delivers one event, blocking on backpressure. A canceled context wins
// over delivery so a disconnected consumer stops the run.
func (r *Runner) emit(ctx context.Context, events chan<- Event, evt Event) error {
	select {
	case events <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
