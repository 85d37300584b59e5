package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ryanschwarting/coinflip/internal/client"
)

func setupLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}

// signalContext is cancelled on interrupt or SIGTERM.
func signalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Debug("Received signal, shutting down")
	}()
	return ctx, stop
}

// RemoteFlags are shared by every command that talks to a running server.
// Unset flags fall back to the client profile.
type RemoteFlags struct {
	Config   string        `short:"c" default:"coinflip-client.hcl" env:"COINFLIP_CLIENT_CONFIG" help:"Path to client HCL profile"`
	URL      string        `name:"url" env:"COINFLIP_URL" help:"Server WebSocket URL (overrides profile)"`
	Token    string        `name:"token" env:"COINFLIP_TOKEN" help:"Connection token, the player name in dev mode (overrides profile)"`
	LogLevel string        `name:"log-level" help:"Log level (overrides profile)"`
	Timeout  time.Duration `help:"Per-request timeout (overrides profile)"`

	profile *client.ClientConfig
}

// load resolves the profile once, applying flag overrides.
func (f *RemoteFlags) load() (*client.ClientConfig, error) {
	if f.profile != nil {
		return f.profile, nil
	}
	cfg, err := client.LoadClientConfig(f.Config)
	if err != nil {
		return nil, fmt.Errorf("error loading profile: %w", err)
	}
	if f.URL != "" {
		cfg.Server.URL = f.URL
	}
	if f.Token != "" {
		cfg.Server.Token = f.Token
	}
	if f.LogLevel != "" {
		cfg.UI.LogLevel = f.LogLevel
	}
	if f.Timeout > 0 {
		cfg.Server.RequestTimeout = f.Timeout.String()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if f.Timeout <= 0 {
		f.Timeout, _ = cfg.RequestTimeout()
	}
	f.profile = cfg
	return cfg, nil
}

func (f *RemoteFlags) connect() (*client.Client, *log.Logger, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, nil, err
	}
	logger := setupLogger(cfg.UI.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), f.Timeout)
	defer cancel()
	c, err := client.Dial(ctx, cfg.Server.URL, cfg.Server.Token, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return c, logger, nil
}

func (f *RemoteFlags) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), f.Timeout)
}
