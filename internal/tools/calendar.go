package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
)

// DefaultCalendarID is used when a tool input omits the calendar identifier.
const DefaultCalendarID = "primary"

const defaultListWindow = 7 * 24 * time.Hour

// CalendarAPI is the narrow slice of the Calendar API the tools need.
// Tests substitute a fake; production wraps *calendar.Service.
type CalendarAPI interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error)
	CreateEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// googleCalendarAPI implements CalendarAPI against the real service.
type googleCalendarAPI struct {
	svc *calendar.Service
}

// NewGoogleCalendarAPI wraps a calendar service.
func NewGoogleCalendarAPI(svc *calendar.Service) CalendarAPI {
	return &googleCalendarAPI{svc: svc}
}

func (g *googleCalendarAPI) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error) {
	result, err := g.svc.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (g *googleCalendarAPI) CreateEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	return g.svc.Events.Insert(calendarID, event).Context(ctx).Do()
}

func (g *googleCalendarAPI) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return g.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
}

// eventSummary is the JSON shape returned to the model for one event.
type eventSummary struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	Where   string `json:"location,omitempty"`
}

func summarizeEvent(ev *calendar.Event) eventSummary {
	s := eventSummary{ID: ev.Id, Summary: ev.Summary, Where: ev.Location}
	if ev.Start != nil {
		s.Start = ev.Start.DateTime
		if s.Start == "" {
			s.Start = ev.Start.Date
		}
	}
	if ev.End != nil {
		s.End = ev.End.DateTime
		if s.End == "" {
			s.End = ev.End.Date
		}
	}
	return s
}

// ListEventsTool lists upcoming calendar events.
type ListEventsTool struct {
	api CalendarAPI
	now func() time.Time
}

// NewListEventsTool creates the list_events tool.
func NewListEventsTool(api CalendarAPI) *ListEventsTool {
	return &ListEventsTool{api: api, now: time.Now}
}

func (t *ListEventsTool) Name() string { return "list_events" }

func (t *ListEventsTool) Description() string {
	return "List events on the user's calendar. Returns event ids, titles, and times. " +
		"Defaults to the next 7 days on the primary calendar."
}

func (t *ListEventsTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"calendarId": {"type": "string", "description": "Calendar identifier; defaults to 'primary'"},
			"timeMin": {"type": "string", "description": "RFC3339 lower bound; defaults to now"},
			"timeMax": {"type": "string", "description": "RFC3339 upper bound; defaults to 7 days from now"},
			"maxResults": {"type": "integer", "description": "Maximum events to return; defaults to 10, capped at 100"}
		}
	}`
}

type listEventsInput struct {
	CalendarID string `json:"calendarId"`
	TimeMin    string `json:"timeMin"`
	TimeMax    string `json:"timeMax"`
	MaxResults int64  `json:"maxResults"`
}

func (t *ListEventsTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var in listEventsInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
	}
	if in.CalendarID == "" {
		in.CalendarID = DefaultCalendarID
	}
	if in.MaxResults <= 0 {
		in.MaxResults = 10
	}
	if in.MaxResults > 100 {
		in.MaxResults = 100
	}

	timeMin := t.now()
	if in.TimeMin != "" {
		parsed, err := time.Parse(time.RFC3339, in.TimeMin)
		if err != nil {
			return "", fmt.Errorf("invalid timeMin: %w", err)
		}
		timeMin = parsed
	}
	timeMax := timeMin.Add(defaultListWindow)
	if in.TimeMax != "" {
		parsed, err := time.Parse(time.RFC3339, in.TimeMax)
		if err != nil {
			return "", fmt.Errorf("invalid timeMax: %w", err)
		}
		timeMax = parsed
	}

	events, err := t.api.ListEvents(ctx, in.CalendarID, timeMin, timeMax, in.MaxResults)
	if err != nil {
		return "", fmt.Errorf("listing events: %w", err)
	}

	summaries := make([]eventSummary, 0, len(events))
	for _, ev := range events {
		summaries = append(summaries, summarizeEvent(ev))
	}
	return marshalResult(map[string]any{
		"success": true,
		"count":   len(summaries),
		"events":  summaries,
	})
}

// CreateEventTool creates a calendar event.
type CreateEventTool struct {
	api CalendarAPI
}

// NewCreateEventTool creates the create_event tool.
func NewCreateEventTool(api CalendarAPI) *CreateEventTool {
	return &CreateEventTool{api: api}
}

func (t *CreateEventTool) Name() string { return "create_event" }

func (t *CreateEventTool) Description() string {
	return "Create an event on the user's calendar. Start and end are RFC3339 timestamps."
}

func (t *CreateEventTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"calendarId": {"type": "string", "description": "Calendar identifier; defaults to 'primary'"},
			"summary": {"type": "string", "description": "Event title"},
			"description": {"type": "string", "description": "Optional event description"},
			"location": {"type": "string", "description": "Optional location"},
			"start": {"type": "string", "description": "RFC3339 start time"},
			"end": {"type": "string", "description": "RFC3339 end time"}
		},
		"required": ["summary", "start", "end"]
	}`
}

type createEventInput struct {
	CalendarID  string `json:"calendarId"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

func (t *CreateEventTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var in createEventInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if in.Summary == "" {
		return "", fmt.Errorf("summary is required")
	}
	if in.Start == "" || in.End == "" {
		return "", fmt.Errorf("start and end are required")
	}
	if _, err := time.Parse(time.RFC3339, in.Start); err != nil {
		return "", fmt.Errorf("invalid start: %w", err)
	}
	if _, err := time.Parse(time.RFC3339, in.End); err != nil {
		return "", fmt.Errorf("invalid end: %w", err)
	}
	if in.CalendarID == "" {
		in.CalendarID = DefaultCalendarID
	}

	created, err := t.api.CreateEvent(ctx, in.CalendarID, &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		Start:       &calendar.EventDateTime{DateTime: in.Start},
		End:         &calendar.EventDateTime{DateTime: in.End},
	})
	if err != nil {
		return "", fmt.Errorf("creating event: %w", err)
	}

	return marshalResult(map[string]any{
		"success": true,
		"event":   summarizeEvent(created),
	})
}

// DeleteEventTool deletes a calendar event. It is registered as a protected
// tool: the safety gate requires a recent list_events call so the event id
// the model names is plausibly still valid.
type DeleteEventTool struct {
	api CalendarAPI
}

// NewDeleteEventTool creates the delete_event tool.
func NewDeleteEventTool(api CalendarAPI) *DeleteEventTool {
	return &DeleteEventTool{api: api}
}

func (t *DeleteEventTool) Name() string { return "delete_event" }

func (t *DeleteEventTool) Description() string {
	return "Delete an event from the user's calendar by id. " +
		"Requires a recent list_events call so the id is known to be current."
}

func (t *DeleteEventTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"calendarId": {"type": "string", "description": "Calendar identifier; defaults to 'primary'"},
			"eventId": {"type": "string", "description": "Id of the event to delete, from a prior list_events result"}
		},
		"required": ["eventId"]
	}`
}

type deleteEventInput struct {
	CalendarID string `json:"calendarId"`
	EventID    string `json:"eventId"`
}

func (t *DeleteEventTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var in deleteEventInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if in.EventID == "" {
		return "", fmt.Errorf("eventId is required")
	}
	if in.CalendarID == "" {
		in.CalendarID = DefaultCalendarID
	}

	if err := t.api.DeleteEvent(ctx, in.CalendarID, in.EventID); err != nil {
		return "", fmt.Errorf("deleting event: %w", err)
	}

	return marshalResult(map[string]any{
		"success": true,
		"deleted": in.EventID,
	})
}

// marshalResult encodes a tool result body as JSON.
func marshalResult(body map[string]any) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(data), nil
}
