package config

import "time"

// Config holds runtime settings for the passvault client.
//
// ReadTimeout bounds the wait for each reply. It has to cover a breach
// check on the server, so keep it well above the server's check deadline.
type Config struct {
	ServerAddr  string
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "127.0.0.1:7070"
	c.DialTimeout = 5 * time.Second
	c.ReadTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
