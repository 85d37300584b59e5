package client

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/ryanschwarting/coinflip/internal/coinflip"
	"github.com/ryanschwarting/coinflip/internal/ledger"
)

// ClientConfig is a player's connection profile.
type ClientConfig struct {
	Server ServerConnection
	Play   PlaySettings
	UI     UISettings
}

type clientFile struct {
	Server *ServerConnection `hcl:"server,block"`
	Play   *PlaySettings     `hcl:"play,block"`
	UI     *UISettings       `hcl:"ui,block"`
}

// ServerConnection contains server connection settings
type ServerConnection struct {
	URL            string `hcl:"url,optional"`
	Token          string `hcl:"token,optional"`
	RequestTimeout string `hcl:"request_timeout,optional"`
}

// PlaySettings are defaults for the play command.
type PlaySettings struct {
	Amount       string `hcl:"amount,optional"`
	Choice       string `hcl:"choice,optional"`
	PollInterval string `hcl:"poll_interval,optional"`
	PollAttempts int    `hcl:"poll_attempts,optional"`
}

// UISettings contains user interface settings
type UISettings struct {
	LogLevel string `hcl:"log_level,optional"`
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Server: ServerConnection{
			URL:            "ws://localhost:8080/ws",
			RequestTimeout: "30s",
		},
		Play: PlaySettings{
			Amount:       "0.1",
			Choice:       "option1",
			PollInterval: "2s",
			PollAttempts: 30,
		},
		UI: UISettings{
			LogLevel: "warn",
		},
	}
}

// LoadClientConfig loads a profile from an HCL file. A missing file yields
// the defaults.
func LoadClientConfig(filename string) (*ClientConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultClientConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw clientFile
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config := &ClientConfig{}
	if raw.Server != nil {
		config.Server = *raw.Server
	}
	if raw.Play != nil {
		config.Play = *raw.Play
	}
	if raw.UI != nil {
		config.UI = *raw.UI
	}
	config.applyDefaults()
	return config, nil
}

func (c *ClientConfig) applyDefaults() {
	defaults := DefaultClientConfig()

	if c.Server.URL == "" {
		c.Server.URL = defaults.Server.URL
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = defaults.Server.RequestTimeout
	}
	if c.Play.Amount == "" {
		c.Play.Amount = defaults.Play.Amount
	}
	if c.Play.Choice == "" {
		c.Play.Choice = defaults.Play.Choice
	}
	if c.Play.PollInterval == "" {
		c.Play.PollInterval = defaults.Play.PollInterval
	}
	if c.Play.PollAttempts == 0 {
		c.Play.PollAttempts = defaults.Play.PollAttempts
	}
	if c.UI.LogLevel == "" {
		c.UI.LogLevel = defaults.UI.LogLevel
	}
}

// Validate validates the client configuration
func (c *ClientConfig) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server URL is required")
	}
	if c.Server.Token == "" {
		return fmt.Errorf("token is required")
	}
	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	if _, err := ledger.ParseSOL(c.Play.Amount); err != nil {
		return fmt.Errorf("play.amount: %w", err)
	}
	choice, err := coinflip.ParseChoice(c.Play.Choice)
	if err != nil || !choice.Valid() {
		return fmt.Errorf("play.choice: %q is not option1 or option2", c.Play.Choice)
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}
	if c.Play.PollAttempts <= 0 {
		return fmt.Errorf("play.poll_attempts must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.UI.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.UI.LogLevel)
	}
	return nil
}

// RequestTimeout bounds each request/reply round trip.
func (c *ClientConfig) RequestTimeout() (time.Duration, error) {
	return positiveDuration("server.request_timeout", c.Server.RequestTimeout)
}

// PollInterval is the wait between finalize attempts.
func (c *ClientConfig) PollInterval() (time.Duration, error) {
	return positiveDuration("play.poll_interval", c.Play.PollInterval)
}

func positiveDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return d, nil
}
