// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/passvault/internal/cryptox"
)

// Config holds runtime settings for the passvault server. It is built once
// at startup and not modified afterwards.
//
// StorageDriver selects the user store (sqlite or postgres). VaultBackend
// selects where sealed entries live: sql keeps them next to the users, s3
// puts them in an object store bucket. An empty DatabaseDSN with the sqlite
// driver means a passvault.db file inside DataDir.
type Config struct {
	ListenAddr    string
	StorageDriver string
	DatabaseDSN   string
	DataDir       string
	VaultBackend  string

	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3BaseEndpoint string

	// BreachURL is the range API root. Empty disables breach checks.
	BreachURL         string
	BreachAPIKey      string
	BreachAPIKeyFile  string
	BreachTimeout     time.Duration
	BreachRate        float64
	BreachBurst       int
	BreachCacheSize   int
	BreachCacheTTL    time.Duration
	CheckFailedPolicy string

	Workers        int
	InboxLines     int
	MaxLineBytes   int
	MaxConnections int
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration

	LoginRate  float64
	LoginBurst int

	KDFTime      uint32
	KDFMemoryKiB uint32
	KDFThreads   uint8

	LogLevel string
}

// LoadDefaults populates Config with settings suitable for a local run.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":7070"
	c.StorageDriver = "sqlite"
	c.DatabaseDSN = ""
	c.DataDir = "data"
	c.VaultBackend = "sql"

	c.S3Bucket = "vault"
	c.S3Prefix = "passvault"
	c.S3Region = "us-east-1"

	c.BreachURL = "https://api.pwnedpasswords.com"
	c.BreachTimeout = 2 * time.Second
	c.BreachRate = 10
	c.BreachBurst = 10
	c.BreachCacheSize = 1024
	c.BreachCacheTTL = time.Hour
	c.CheckFailedPolicy = "reject"

	c.Workers = 8
	c.InboxLines = 16
	c.MaxLineBytes = 4096
	c.MaxConnections = 1024
	c.WriteTimeout = 10 * time.Second
	c.IdleTimeout = 15 * time.Minute

	c.LoginRate = 0.5
	c.LoginBurst = 5

	c.KDFTime = cryptox.DefaultParams.Time
	c.KDFMemoryKiB = cryptox.DefaultParams.MemoryKiB
	c.KDFThreads = cryptox.DefaultParams.Threads

	c.LogLevel = "info"
}

// KDFParams returns the key derivation costs applied to newly registered
// users. Existing users keep the costs stored with their account.
func (c *Config) KDFParams() cryptox.Params {
	return cryptox.Params{
		Time:      c.KDFTime,
		MemoryKiB: c.KDFMemoryKiB,
		Threads:   c.KDFThreads,
		SaltLen:   cryptox.DefaultParams.SaltLen,
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	switch c.StorageDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("postgres driver needs a DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.StorageDriver))
	}
	switch c.VaultBackend {
	case "sql":
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3 vault backend needs a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vault backend %q", c.VaultBackend))
	}
	if c.CheckFailedPolicy != "reject" && c.CheckFailedPolicy != "allow" {
		errs = append(errs, fmt.Errorf("unknown breach policy %q", c.CheckFailedPolicy))
	}
	if c.Workers < 1 {
		errs = append(errs, errors.New("workers must be >= 1"))
	}
	if c.InboxLines < 1 {
		errs = append(errs, errors.New("inbox lines must be >= 1"))
	}
	if c.MaxConnections < 1 {
		errs = append(errs, errors.New("max connections must be >= 1"))
	}
	if c.LoginRate < 0 {
		errs = append(errs, errors.New("login rate must not be negative"))
	}

	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
