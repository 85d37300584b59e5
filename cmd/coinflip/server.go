package main

import (
	"encoding/hex"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/ryanschwarting/coinflip/internal/auth"
	"github.com/ryanschwarting/coinflip/internal/coinflip"
	"github.com/ryanschwarting/coinflip/internal/config"
	"github.com/ryanschwarting/coinflip/internal/oracle"
	"github.com/ryanschwarting/coinflip/internal/server"
	"github.com/ryanschwarting/coinflip/internal/store"
)

// ServerCmd runs the house.
type ServerCmd struct {
	Config   string `short:"c" default:"coinflip.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Server address to bind to (overrides config)"`
	Port     int    `short:"p" help:"Port to listen on (overrides config)"`
	LogLevel string `short:"l" name:"log-level" help:"Log level (overrides config)"`
	Storage  string `help:"Storage backend: memory or leveldb (overrides config)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.Storage != "" {
		cfg.Storage.Backend = c.Storage
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := setupLogger(cfg.Server.LogLevel)
	limits, err := cfg.Limits()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer st.Close()

	o, oracleHandler, err := buildOracle(cfg.Oracle, logger)
	if err != nil {
		return err
	}
	validator, err := buildValidator(cfg.Auth)
	if err != nil {
		return err
	}

	ctrl := coinflip.New(st, o, logger, coinflip.WithLimits(limits))
	opts := []server.Option{server.WithValidator(validator)}
	if oracleHandler != nil {
		opts = append(opts, server.WithOracleHandler(oracleHandler))
	}
	srv := server.NewServer(ctrl, logger, opts...)

	logger.Info("Starting coinflip server",
		"addr", cfg.ServerAddress(),
		"storage", cfg.Storage.Backend,
		"oracle", cfg.Oracle.Mode,
		"auth", cfg.Auth.Mode,
		"min_bet", cfg.House.MinBet,
		"max_bet", cfg.House.MaxBet)

	ctx, stop := signalContext(logger)
	defer stop()
	return srv.Serve(ctx, cfg.ServerAddress())
}

// buildOracle returns the configured oracle. A local oracle is also served
// over HTTP so other deployments can use it.
func buildOracle(cfg config.OracleSettings, logger *log.Logger) (oracle.Oracle, *oracle.Handler, error) {
	switch cfg.Mode {
	case config.OracleHTTP:
		timeout, err := cfg.RequestTimeout()
		if err != nil {
			return nil, nil, err
		}
		return oracle.NewHTTPClient(cfg.URL, timeout), nil, nil
	default:
		delay, err := cfg.Delay()
		if err != nil {
			return nil, nil, err
		}
		var keySeed []byte
		if cfg.Seed != "" {
			if keySeed, err = hex.DecodeString(cfg.Seed); err != nil {
				return nil, nil, fmt.Errorf("oracle.seed: %w", err)
			}
		}
		local, err := oracle.NewLocal(keySeed, delay, quartz.NewReal(), logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Local oracle ready", "public_key", hex.EncodeToString(local.PublicKey()), "delay", delay)
		return local, oracle.NewHandler(local, logger), nil
	}
}

func buildValidator(cfg config.AuthSettings) (auth.Validator, error) {
	switch cfg.Mode {
	case config.AuthNoop:
		return auth.NewNoopValidator(), nil
	case config.AuthStatic:
		return auth.NewStaticValidator(cfg.Tokens), nil
	case config.AuthHTTP:
		return auth.NewHTTPValidator(cfg.URL, cfg.AdminSecret), nil
	}
	return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
}
