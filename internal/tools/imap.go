package tools

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// IMAPConfig holds connection settings for a plain IMAP mailbox.
type IMAPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Addr returns the dial address.
func (c IMAPConfig) Addr() string {
	port := c.Port
	if port == 0 {
		port = 993
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// ListInboxTool lists recent messages from a non-Gmail mailbox over IMAP.
// A fresh connection is made per call; IMAP connections are cheap relative
// to tool-call frequency and holding one open risks server-side timeouts.
type ListInboxTool struct {
	cfg IMAPConfig
}

// NewListInboxTool creates the list_inbox tool.
func NewListInboxTool(cfg IMAPConfig) *ListInboxTool {
	return &ListInboxTool{cfg: cfg}
}

func (t *ListInboxTool) Name() string { return "list_inbox" }

func (t *ListInboxTool) Description() string {
	return "List the most recent messages in an IMAP mailbox. Use for accounts not backed by Gmail."
}

func (t *ListInboxTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"mailbox": {"type": "string", "description": "Mailbox name; defaults to INBOX"},
			"limit": {"type": "integer", "description": "Maximum messages to return; defaults to 10, capped at 50"}
		}
	}`
}

type listInboxInput struct {
	Mailbox string `json:"mailbox"`
	Limit   uint32 `json:"limit"`
}

func (t *ListInboxTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var in listInboxInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
	}
	if in.Mailbox == "" {
		in.Mailbox = "INBOX"
	}
	if in.Limit == 0 {
		in.Limit = 10
	}
	if in.Limit > 50 {
		in.Limit = 50
	}

	c, err := client.DialTLS(t.cfg.Addr(), &tls.Config{})
	if err != nil {
		return "", fmt.Errorf("connecting to IMAP server: %w", err)
	}
	defer c.Logout()

	if err := c.Login(t.cfg.Username, t.cfg.Password); err != nil {
		return "", fmt.Errorf("IMAP login: %w", err)
	}

	mbox, err := c.Select(in.Mailbox, true)
	if err != nil {
		return "", fmt.Errorf("selecting mailbox %s: %w", in.Mailbox, err)
	}

	if mbox.Messages == 0 {
		return marshalResult(map[string]any{
			"success":  true,
			"count":    0,
			"messages": []EmailSummary{},
		})
	}

	from := uint32(1)
	if mbox.Messages > in.Limit {
		from = mbox.Messages - in.Limit + 1
	}
	seqset := new(imap.SeqSet)
	seqset.AddRange(from, mbox.Messages)

	messages := make(chan *imap.Message, in.Limit)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}, messages)
	}()

	var summaries []EmailSummary
	for msg := range messages {
		if msg.Envelope == nil {
			continue
		}
		s := EmailSummary{
			ID:      fmt.Sprintf("%d", msg.Uid),
			Subject: msg.Envelope.Subject,
			Date:    msg.Envelope.Date.String(),
		}
		if len(msg.Envelope.From) > 0 {
			s.From = msg.Envelope.From[0].Address()
		}
		summaries = append(summaries, s)
	}
	if err := <-done; err != nil {
		return "", fmt.Errorf("fetching messages: %w", err)
	}

	// Newest first.
	for i, j := 0, len(summaries)-1; i < j; i, j = i+1, j-1 {
		summaries[i], summaries[j] = summaries[j], summaries[i]
	}

	return marshalResult(map[string]any{
		"success":  true,
		"count":    len(summaries),
		"messages": summaries,
	})
}
