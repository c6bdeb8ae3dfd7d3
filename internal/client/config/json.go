package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/passvault/internal/flagx"
	"github.com/dmitrijs2005/passvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerAddr  string         `json:"server_addr"`
	DialTimeout timex.Duration `json:"dial_timeout"`
	ReadTimeout timex.Duration `json:"read_timeout"`
}

// parseJson overlays cfg with the JSON file named by -c or -config. Keys
// absent from the file leave cfg unchanged.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	jc := JsonConfig{
		ServerAddr:  cfg.ServerAddr,
		DialTimeout: timex.Duration{Duration: cfg.DialTimeout},
		ReadTimeout: timex.Duration{Duration: cfg.ReadTimeout},
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ServerAddr = jc.ServerAddr
	cfg.DialTimeout = jc.DialTimeout.Duration
	cfg.ReadTimeout = jc.ReadTimeout.Duration
	return nil
}
