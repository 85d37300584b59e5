// Package config loads the coinflip HCL configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/ryanschwarting/coinflip/internal/coinflip"
	"github.com/ryanschwarting/coinflip/internal/ledger"
	"github.com/ryanschwarting/coinflip/internal/store"
)

// Oracle modes.
const (
	OracleLocal = "local"
	OracleHTTP  = "http"
)

// Auth modes.
const (
	AuthNoop   = "noop"
	AuthStatic = "static"
	AuthHTTP   = "http"
)

// Config represents the complete configuration.
type Config struct {
	Server  ServerSettings
	House   HouseSettings
	Oracle  OracleSettings
	Storage StorageSettings
	Auth    AuthSettings
}

// file is the on-disk shape; every block may be omitted.
type file struct {
	Server  *ServerSettings  `hcl:"server,block"`
	House   *HouseSettings   `hcl:"house,block"`
	Oracle  *OracleSettings  `hcl:"oracle,block"`
	Storage *StorageSettings `hcl:"storage,block"`
	Auth    *AuthSettings    `hcl:"auth,block"`
}

// ServerSettings contains listener and logging configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// HouseSettings are the house rules. Amounts are SOL, durations are Go
// duration strings.
type HouseSettings struct {
	MinBet            string `hcl:"min_bet,optional"`
	MaxBet            string `hcl:"max_bet,optional"`
	Reserve           string `hcl:"reserve,optional"`
	RestrictFunding   bool   `hcl:"restrict_funding,optional"`
	RoomCooldown      string `hcl:"room_cooldown,optional"`
	WaitingTTL        string `hcl:"waiting_ttl,optional"`
	ProcessingTimeout string `hcl:"processing_timeout,optional"`
}

// OracleSettings selects the randomness source.
type OracleSettings struct {
	Mode         string `hcl:"mode,optional"`
	URL          string `hcl:"url,optional"`
	FulfillDelay string `hcl:"fulfill_delay,optional"`
	Timeout      string `hcl:"timeout,optional"`
	// Seed is a hex ed25519 key seed for the local oracle. Empty generates one.
	Seed string `hcl:"seed,optional"`
}

// StorageSettings selects the state backend.
type StorageSettings struct {
	Backend   string `hcl:"backend,optional"`
	Path      string `hcl:"path,optional"`
	CacheSize int    `hcl:"cache_size,optional"`
}

// AuthSettings selects how connection tokens map to players.
type AuthSettings struct {
	Mode        string            `hcl:"mode,optional"`
	URL         string            `hcl:"url,optional"`
	AdminSecret string            `hcl:"admin_secret,optional"`
	Tokens      map[string]string `hcl:"tokens,optional"`
}

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from an HCL file. A missing file yields the
// defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var f file
	diags = gohcl.DecodeBody(hclFile.Body, nil, &f)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	var cfg Config
	if f.Server != nil {
		cfg.Server = *f.Server
	}
	if f.House != nil {
		cfg.House = *f.House
	}
	if f.Oracle != nil {
		cfg.Oracle = *f.Oracle
	}
	if f.Storage != nil {
		cfg.Storage = *f.Storage
	}
	if f.Auth != nil {
		cfg.Auth = *f.Auth
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	defaults := coinflip.DefaultLimits()
	if c.House.MinBet == "" {
		c.House.MinBet = ledger.FormatSOL(defaults.MinBet)
	}
	if c.House.MaxBet == "" {
		c.House.MaxBet = ledger.FormatSOL(defaults.MaxBet)
	}
	if c.House.Reserve == "" {
		c.House.Reserve = "0"
	}
	if c.House.RoomCooldown == "" {
		c.House.RoomCooldown = defaults.RoomCooldown.String()
	}
	if c.House.WaitingTTL == "" {
		c.House.WaitingTTL = defaults.WaitingTTL.String()
	}
	if c.House.ProcessingTimeout == "" {
		c.House.ProcessingTimeout = defaults.ProcessingTimeout.String()
	}

	if c.Oracle.Mode == "" {
		c.Oracle.Mode = OracleLocal
	}
	if c.Oracle.FulfillDelay == "" {
		c.Oracle.FulfillDelay = "3s"
	}
	if c.Oracle.Timeout == "" {
		c.Oracle.Timeout = "5s"
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = store.BackendMemory
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "coinflip.db"
	}
	if c.Storage.CacheSize == 0 {
		c.Storage.CacheSize = 1024
	}

	if c.Auth.Mode == "" {
		c.Auth.Mode = AuthNoop
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	limits, err := c.Limits()
	if err != nil {
		return err
	}
	if limits.MinBet == 0 {
		return fmt.Errorf("house: min_bet must be positive")
	}
	if limits.MaxBet < limits.MinBet {
		return fmt.Errorf("house: max_bet must not be below min_bet")
	}

	switch c.Oracle.Mode {
	case OracleLocal:
		if _, err := c.Oracle.Delay(); err != nil {
			return err
		}
	case OracleHTTP:
		if c.Oracle.URL == "" {
			return fmt.Errorf("oracle: url is required in http mode")
		}
		if _, err := duration("oracle.timeout", c.Oracle.Timeout); err != nil {
			return err
		}
	default:
		return fmt.Errorf("oracle: invalid mode %s", c.Oracle.Mode)
	}

	switch c.Storage.Backend {
	case store.BackendMemory:
	case store.BackendLevelDB:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage: path is required for leveldb")
		}
	default:
		return fmt.Errorf("storage: invalid backend %s", c.Storage.Backend)
	}
	if c.Storage.CacheSize < 0 {
		return fmt.Errorf("storage: cache_size must not be negative")
	}

	switch c.Auth.Mode {
	case AuthNoop:
	case AuthStatic:
		if len(c.Auth.Tokens) == 0 {
			return fmt.Errorf("auth: static mode needs tokens")
		}
	case AuthHTTP:
		if c.Auth.URL == "" {
			return fmt.Errorf("auth: url is required in http mode")
		}
	default:
		return fmt.Errorf("auth: invalid mode %s", c.Auth.Mode)
	}
	return nil
}

// Limits converts the house block to controller limits.
func (c *Config) Limits() (coinflip.Limits, error) {
	var (
		limits coinflip.Limits
		err    error
	)
	if limits.MinBet, err = sol("house.min_bet", c.House.MinBet); err != nil {
		return limits, err
	}
	if limits.MaxBet, err = sol("house.max_bet", c.House.MaxBet); err != nil {
		return limits, err
	}
	if limits.Reserve, err = sol("house.reserve", c.House.Reserve); err != nil {
		return limits, err
	}
	if limits.RoomCooldown, err = duration("house.room_cooldown", c.House.RoomCooldown); err != nil {
		return limits, err
	}
	if limits.WaitingTTL, err = duration("house.waiting_ttl", c.House.WaitingTTL); err != nil {
		return limits, err
	}
	if limits.ProcessingTimeout, err = duration("house.processing_timeout", c.House.ProcessingTimeout); err != nil {
		return limits, err
	}
	limits.RestrictFunding = c.House.RestrictFunding
	return limits, nil
}

// Delay is the local oracle's fulfillment delay.
func (o OracleSettings) Delay() (time.Duration, error) {
	return duration("oracle.fulfill_delay", o.FulfillDelay)
}

// RequestTimeout is the HTTP oracle's per-request timeout.
func (o OracleSettings) RequestTimeout() (time.Duration, error) {
	return duration("oracle.timeout", o.Timeout)
}

// StoreOptions returns the storage block as store options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:   c.Storage.Backend,
		Path:      c.Storage.Path,
		CacheSize: c.Storage.CacheSize,
	}
}

// ServerAddress returns the full listen address.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

func sol(field, s string) (uint64, error) {
	v, err := ledger.ParseSOL(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func duration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", field)
	}
	return d, nil
}
