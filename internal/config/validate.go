package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"loopback", "lan"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	if cfg.Agent.MaxIterations < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxIterations",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Agent.MaxIterations),
		})
	}
	if cfg.Agent.MaxToolCalls < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxToolCalls",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Agent.MaxToolCalls),
		})
	}
	if cfg.Agent.HistorySize < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.historySize",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Agent.HistorySize),
		})
	}
	if cfg.Agent.SafetyWindowSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.safetyWindowSeconds",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Agent.SafetyWindowSeconds),
		})
	}

	if cfg.IMAP.Host != "" && cfg.IMAP.Username == "" {
		issues = append(issues, ValidationIssue{
			Path:    "imap.username",
			Message: "required when imap.host is set",
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
