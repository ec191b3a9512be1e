package config

// Config is the root configuration for gmail-agent.
type Config struct {
	Server  ServerConfig  `yaml:"server,omitempty"`
	Auth    AuthConfig    `yaml:"auth,omitempty"`
	Agent   AgentConfig   `yaml:"agent,omitempty"`
	Google  GoogleConfig  `yaml:"google,omitempty"`
	IMAP    IMAPConfig    `yaml:"imap,omitempty"`
	Store   StoreConfig   `yaml:"store,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP/WebSocket API server.
type ServerConfig struct {
	Port int    `yaml:"port,omitempty"`
	Bind string `yaml:"bind,omitempty"` // "loopback" | "lan"
}

// AuthConfig controls API authentication.
type AuthConfig struct {
	Token string `yaml:"token,omitempty"` // supports ${ENV_VAR} expansion
}

// AgentConfig controls the model loop.
type AgentConfig struct {
	Name                string  `yaml:"name,omitempty"`
	Model               string  `yaml:"model,omitempty"`
	APIKey              string  `yaml:"apiKey,omitempty"` // supports ${ENV_VAR} expansion
	MaxTokens           int     `yaml:"maxTokens,omitempty"`
	Temperature         float64 `yaml:"temperature,omitempty"`
	MaxIterations       int     `yaml:"maxIterations,omitempty"`
	MaxToolCalls        int     `yaml:"maxToolCalls,omitempty"`
	HistorySize         int     `yaml:"historySize,omitempty"`
	SafetyWindowSeconds int     `yaml:"safetyWindowSeconds,omitempty"`
	ExtraPrompt         string  `yaml:"extraPrompt,omitempty"`
}

// GoogleConfig locates Google API credentials.
type GoogleConfig struct {
	CredentialsPath string `yaml:"credentialsPath,omitempty"`
	TokenPath       string `yaml:"tokenPath,omitempty"`
}

// IMAPConfig configures the optional IMAP inbox tool.
type IMAPConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"` // supports ${ENV_VAR} expansion
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // silent|fatal|error|warn|info|debug|trace
}
