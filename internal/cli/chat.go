package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/agent"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/llm"
)

// persistChat records one user/assistant exchange in the transcript store.
func persistChat(a *app, sessionID, message, response string) error {
	if err := a.conversations.AppendTurn(sessionID, llm.UserText(message)); err != nil {
		return err
	}
	reply := llm.AssistantMessage([]llm.ContentBlock{llm.TextBlock(response)})
	return a.conversations.AppendTurn(sessionID, reply)
}

func newChatCmd() *cobra.Command {
	var (
		sessionID string
		showTools bool
	)

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message to the agent and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			message := strings.Join(args, " ")

			sessionID, err = a.conversations.Ensure(sessionID, "")
			if err != nil {
				return err
			}
			history, err := a.conversations.History(sessionID)
			if err != nil {
				return err
			}

			input := agent.RunInput{
				SessionID:    sessionID,
				Message:      message,
				Conversation: history,
			}

			events := make(chan agent.Event, 16)
			var result *agent.RunResult
			var runErr error
			done := make(chan struct{})
			go func() {
				defer close(done)
				result, runErr = a.runner.Run(ctx, input, events)
			}()

			out := cmd.OutOrStdout()
			for ev := range events {
				switch ev.Type {
				case agent.EventAssistantText:
					fmt.Fprintln(out, ev.Text)
				case agent.EventToolCall:
					if showTools {
						fmt.Fprintf(out, "-> %s %s\n", ev.ToolName, ev.Input)
					}
				case agent.EventToolResult:
					if showTools {
						fmt.Fprintf(out, "<- %s: %s\n", ev.ToolName, ev.Summary)
					}
				case agent.EventError:
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", ev.Error)
				case agent.EventDone:
					if ev.Result != nil && ev.Result.Aborted {
						fmt.Fprintln(cmd.ErrOrStderr(), "(run hit its iteration or tool-call limit)")
					}
				}
			}
			<-done

			if runErr != nil {
				return runErr
			}
			if result != nil && result.Response != "" {
				if err := persistChat(a, sessionID, message, result.Response); err != nil {
					log.Error().Err(err).Msg("persisting chat turn")
				}
			}
			fmt.Fprintf(out, "\nsession: %s\n", sessionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session ID to continue (default: new session)")
	cmd.Flags().BoolVar(&showTools, "show-tools", false, "print tool calls and results as they happen")
	return cmd
}
