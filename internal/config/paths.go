package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".gmail-agent"

// Paths holds resolved filesystem paths for gmail-agent data.
type Paths struct {
	Base        string // ~/.gmail-agent
	Config      string // ~/.gmail-agent/config.yaml
	Credentials string // ~/.gmail-agent/credentials.json
	Token       string // ~/.gmail-agent/token.json
	Data        string // ~/.gmail-agent/data
	Database    string // ~/.gmail-agent/data/agent.db
	Logs        string // ~/.gmail-agent/logs
}

// ResolvePaths computes all standard paths from the home directory.
// If GMAIL_AGENT_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("GMAIL_AGENT_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:        base,
		Config:      filepath.Join(base, "config.yaml"),
		Credentials: filepath.Join(base, "credentials.json"),
		Token:       filepath.Join(base, "token.json"),
		Data:        filepath.Join(base, "data"),
		Database:    filepath.Join(base, "data", "agent.db"),
		Logs:        filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	dirs := []string{p.Base, p.Data, p.Logs}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
