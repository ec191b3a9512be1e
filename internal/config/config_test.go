package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 18790, cfg.Server.Port)
	assert.Equal(t, "loopback", cfg.Server.Bind)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Agent.Model)
	assert.Equal(t, 15, cfg.Agent.MaxIterations)
	assert.Equal(t, 50, cfg.Agent.MaxToolCalls)
	assert.Equal(t, 10, cfg.Agent.HistorySize)
	assert.Equal(t, 30, cfg.Agent.SafetyWindowSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	// Should return defaults
	assert.Equal(t, 18790, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  port: 9999
  bind: lan
agent:
  model: claude-opus-4
  maxIterations: 5
  maxToolCalls: 20
imap:
  host: imap.example.com
  username: kenneth@example.com
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "lan", cfg.Server.Bind)
	assert.Equal(t, "claude-opus-4", cfg.Agent.Model)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, 20, cfg.Agent.MaxToolCalls)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset fields get defaults
	assert.Equal(t, 10, cfg.Agent.HistorySize)
	assert.Equal(t, 30, cfg.Agent.SafetyWindowSeconds)
	assert.Equal(t, 993, cfg.IMAP.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_TOKEN_VALUE", "sekrit")

	assert.Equal(t, "sekrit", expandEnvVars("${TEST_TOKEN_VALUE}"))
	assert.Equal(t, "pre-sekrit-post", expandEnvVars("pre-${TEST_TOKEN_VALUE}-post"))
	assert.Equal(t, "${UNSET_VAR_XYZ}", expandEnvVars("${UNSET_VAR_XYZ}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestLoadExpandsSensitiveFields(t *testing.T) {
	t.Setenv("TEST_AGENT_KEY", "sk-ant-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
agent:
  apiKey: ${TEST_AGENT_KEY}
auth:
  token: ${UNSET_VAR_XYZ}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-123", cfg.Agent.APIKey)
	assert.Equal(t, "${UNSET_VAR_XYZ}", cfg.Auth.Token)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GMAIL_AGENT_PORT", "7777")
	t.Setenv("GMAIL_AGENT_TOKEN", "env-token")
	t.Setenv("GMAIL_AGENT_LOG_LEVEL", "DEBUG")

	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "env-token", cfg.Auth.Token)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestResolvePaths_HomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GMAIL_AGENT_HOME", dir)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, dir, paths.Base)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(dir, "data", "agent.db"), paths.Database)

	require.NoError(t, paths.EnsureDirs())
	for _, d := range []string{paths.Base, paths.Data, paths.Logs} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	assert.Nil(t, Validate(&cfg))

	cfg.Server.Port = 99999
	cfg.Server.Bind = "everywhere"
	cfg.Agent.MaxIterations = 0
	cfg.Logging.Level = "loud"

	issues := Validate(&cfg)
	require.Len(t, issues, 4)

	paths := make([]string, len(issues))
	for i, issue := range issues {
		paths[i] = issue.Path
	}
	assert.Contains(t, paths, "server.port")
	assert.Contains(t, paths, "server.bind")
	assert.Contains(t, paths, "agent.maxIterations")
	assert.Contains(t, paths, "logging.level")
}

func TestValidate_IMAPRequiresUsername(t *testing.T) {
	cfg := Defaults()
	cfg.IMAP.Host = "imap.example.com"

	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "imap.username", issues[0].Path)
}
