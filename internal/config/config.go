// Package config loads and validates gmail-agent configuration.
package config

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// Defaults returns a Config populated with default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 18790,
			Bind: "loopback",
		},
		Agent: AgentConfig{
			Name:                "gmail-agent",
			Model:               "claude-sonnet-4-5",
			MaxTokens:           4096,
			MaxIterations:       15,
			MaxToolCalls:        50,
			HistorySize:         10,
			SafetyWindowSeconds: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
