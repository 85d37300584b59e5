package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadClientConfigMissingFile(t *testing.T) {
	cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultClientConfig(), cfg)
}

func TestLoadClientConfigPartial(t *testing.T) {
	path := writeProfile(t, `
server {
  url   = "wss://flip.example.com/ws"
  token = "alice"
}

play {
  amount = "0.25"
  choice = "option2"
}
`)
	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://flip.example.com/ws", cfg.Server.URL)
	assert.Equal(t, "alice", cfg.Server.Token)
	assert.Equal(t, "0.25", cfg.Play.Amount)
	assert.Equal(t, "option2", cfg.Play.Choice)
	assert.Equal(t, 30, cfg.Play.PollAttempts)
	assert.Equal(t, "warn", cfg.UI.LogLevel)
	require.NoError(t, cfg.Validate())

	timeout, err := cfg.RequestTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestLoadClientConfigParseError(t *testing.T) {
	_, err := LoadClientConfig(writeProfile(t, `server {`))
	assert.Error(t, err)
}

func TestClientConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ClientConfig)
	}{
		{"missing token", func(c *ClientConfig) { c.Server.Token = "" }},
		{"bad timeout", func(c *ClientConfig) { c.Server.RequestTimeout = "soon" }},
		{"zero interval", func(c *ClientConfig) { c.Play.PollInterval = "0s" }},
		{"bad amount", func(c *ClientConfig) { c.Play.Amount = "-1" }},
		{"tie choice", func(c *ClientConfig) { c.Play.Choice = "tie" }},
		{"unknown choice", func(c *ClientConfig) { c.Play.Choice = "heads" }},
		{"no attempts", func(c *ClientConfig) { c.Play.PollAttempts = -1 }},
		{"bad log level", func(c *ClientConfig) { c.UI.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultClientConfig()
			cfg.Server.Token = "alice"
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
