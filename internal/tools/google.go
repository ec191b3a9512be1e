// Package tools implements the external tool collaborators the agent can
// invoke: Google Calendar and Gmail operations, IMAP mailbox listing, and
// email tagging.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GoogleScopes are the OAuth scopes the agent needs.
var GoogleScopes = []string{
	calendar.CalendarScope,
	gmail.GmailReadonlyScope,
	gmail.GmailModifyScope,
}

// LoadOAuthConfig reads a Google OAuth client credentials file.
func LoadOAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, GoogleScopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	return cfg, nil
}

// LoadToken reads a cached OAuth token from disk.
func LoadToken(tokenPath string) (*oauth2.Token, error) {
	f, err := os.Open(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("no auth token at %s - run 'gmail-agent auth' first: %w", tokenPath, err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("parsing token file: %w", err)
	}
	return tok, nil
}

// SaveToken writes an OAuth token to disk with owner-only permissions.
func SaveToken(tokenPath string, tok *oauth2.Token) error {
	f, err := os.OpenFile(tokenPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// NewCalendarService builds a Calendar API client from cached credentials.
func NewCalendarService(ctx context.Context, credentialsPath, tokenPath string) (*calendar.Service, error) {
	cfg, err := LoadOAuthConfig(credentialsPath)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, err
	}
	return calendar.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
}

// NewGmailService builds a Gmail API client from cached credentials.
func NewGmailService(ctx context.Context, credentialsPath, tokenPath string) (*gmail.Service, error) {
	cfg, err := LoadOAuthConfig(credentialsPath)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, err
	}
	return gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
}
