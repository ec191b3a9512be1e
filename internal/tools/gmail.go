package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"google.golang.org/api/gmail/v1"
)

const gmailUser = "me"

// EmailSummary is one mailbox entry as shown to the model.
type EmailSummary struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Snippet string `json:"snippet,omitempty"`
}

// Email is a full message, including its extracted body.
type Email struct {
	EmailSummary
	To   string `json:"to,omitempty"`
	Cc   string `json:"cc,omitempty"`
	Body string `json:"body,omitempty"`
}

// MailAPI is the narrow slice of the Gmail API the tools need.
type MailAPI interface {
	ListMessages(ctx context.Context, query string, maxResults int64) ([]EmailSummary, error)
	GetMessage(ctx context.Context, messageID string) (*Email, error)
}

// googleMailAPI implements MailAPI against the real Gmail service.
type googleMailAPI struct {
	svc *gmail.Service
}

// NewGoogleMailAPI wraps a Gmail service.
func NewGoogleMailAPI(svc *gmail.Service) MailAPI {
	return &googleMailAPI{svc: svc}
}

func (g *googleMailAPI) ListMessages(ctx context.Context, query string, maxResults int64) ([]EmailSummary, error) {
	call := g.svc.Users.Messages.List(gmailUser).MaxResults(maxResults).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, err
	}

	summaries := make([]EmailSummary, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		detail, err := g.svc.Users.Messages.Get(gmailUser, msg.Id).
			Format("metadata").
			MetadataHeaders("From", "Subject", "Date").
			Context(ctx).
			Do()
		if err != nil {
			continue
		}
		s := EmailSummary{ID: msg.Id, Snippet: detail.Snippet}
		for _, h := range detail.Payload.Headers {
			switch h.Name {
			case "From":
				s.From = h.Value
			case "Subject":
				s.Subject = h.Value
			case "Date":
				s.Date = h.Value
			}
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func (g *googleMailAPI) GetMessage(ctx context.Context, messageID string) (*Email, error) {
	msg, err := g.svc.Users.Messages.Get(gmailUser, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	email := &Email{EmailSummary: EmailSummary{ID: msg.Id, Snippet: msg.Snippet}}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "From":
			email.From = h.Value
		case "To":
			email.To = h.Value
		case "Cc":
			email.Cc = h.Value
		case "Subject":
			email.Subject = h.Value
		case "Date":
			email.Date = h.Value
		}
	}
	email.Body = extractBody(msg.Payload)
	return email, nil
}

// extractBody walks the MIME tree for the first text part.
func extractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if payload.MimeType == "text/plain" || payload.MimeType == "text/html" {
		if payload.Body != nil && payload.Body.Data != "" {
			if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
				return string(data)
			}
		}
	}
	for _, part := range payload.Parts {
		if body := extractBody(part); body != "" {
			return body
		}
	}
	return ""
}

// ListEmailsTool lists recent mailbox messages.
type ListEmailsTool struct {
	api MailAPI
}

// NewListEmailsTool creates the list_emails tool.
func NewListEmailsTool(api MailAPI) *ListEmailsTool {
	return &ListEmailsTool{api: api}
}

func (t *ListEmailsTool) Name() string { return "list_emails" }

func (t *ListEmailsTool) Description() string {
	return "List messages in the user's mailbox. Accepts a Gmail search query; defaults to the inbox."
}

func (t *ListEmailsTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Gmail search query; defaults to 'in:inbox'"},
			"maxResults": {"type": "integer", "description": "Maximum messages to return; defaults to 10, capped at 50"}
		}
	}`
}

type listEmailsInput struct {
	Query      string `json:"query"`
	MaxResults int64  `json:"maxResults"`
}

func (t *ListEmailsTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var in listEmailsInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
	}
	if in.Query == "" {
		in.Query = "in:inbox"
	}
	if in.MaxResults <= 0 {
		in.MaxResults = 10
	}
	if in.MaxResults > 50 {
		in.MaxResults = 50
	}

	summaries, err := t.api.ListMessages(ctx, in.Query, in.MaxResults)
	if err != nil {
		return "", fmt.Errorf("listing emails: %w", err)
	}

	return marshalResult(map[string]any{
		"success":  true,
		"count":    len(summaries),
		"messages": summaries,
	})
}

// ReadEmailTool reads one message in full.
type ReadEmailTool struct {
	api MailAPI
}

// NewReadEmailTool creates the read_email tool.
func NewReadEmailTool(api MailAPI) *ReadEmailTool {
	return &ReadEmailTool{api: api}
}

func (t *ReadEmailTool) Name() string { return "read_email" }

func (t *ReadEmailTool) Description() string {
	return "Read a single email message, including its body, by message id."
}

func (t *ReadEmailTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"messageId": {"type": "string", "description": "Id of the message, from a prior list_emails result"}
		},
		"required": ["messageId"]
	}`
}

type readEmailInput struct {
	MessageID string `json:"messageId"`
}

func (t *ReadEmailTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var in readEmailInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if in.MessageID == "" {
		return "", fmt.Errorf("messageId is required")
	}

	email, err := t.api.GetMessage(ctx, in.MessageID)
	if err != nil {
		return "", fmt.Errorf("reading email: %w", err)
	}

	return marshalResult(map[string]any{
		"success": true,
		"message": email,
	})
}

// EmailTagger persists user-defined tags on email messages.
// The store package provides the SQLite implementation.
type EmailTagger interface {
	AddTag(messageID, tag string) error
	RemoveTag(messageID, tag string) error
	Tags(messageID string) ([]string, error)
}

// TagEmailTool applies or removes a tag on an email message.
type TagEmailTool struct {
	tagger EmailTagger
}

// NewTagEmailTool creates the tag_email tool.
func NewTagEmailTool(tagger EmailTagger) *TagEmailTool {
	return &TagEmailTool{tagger: tagger}
}

func (t *TagEmailTool) Name() string { return "tag_email" }

func (t *TagEmailTool) Description() string {
	return "Apply or remove a tag on an email message for later classification."
}

func (t *TagEmailTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"messageId": {"type": "string", "description": "Id of the message to tag"},
			"tag": {"type": "string", "description": "Tag to apply or remove"},
			"remove": {"type": "boolean", "description": "Remove the tag instead of adding it; defaults to false"}
		},
		"required": ["messageId", "tag"]
	}`
}

type tagEmailInput struct {
	MessageID string `json:"messageId"`
	Tag       string `json:"tag"`
	Remove    bool   `json:"remove"`
}

func (t *TagEmailTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var in tagEmailInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if in.MessageID == "" || in.Tag == "" {
		return "", fmt.Errorf("messageId and tag are required")
	}

	var err error
	if in.Remove {
		err = t.tagger.RemoveTag(in.MessageID, in.Tag)
	} else {
		err = t.tagger.AddTag(in.MessageID, in.Tag)
	}
	if err != nil {
		return "", fmt.Errorf("updating tags: %w", err)
	}

	tags, err := t.tagger.Tags(in.MessageID)
	if err != nil {
		return "", fmt.Errorf("reading tags: %w", err)
	}
	return marshalResult(map[string]any{
		"success":   true,
		"messageId": in.MessageID,
		"tags":      tags,
	})
}
