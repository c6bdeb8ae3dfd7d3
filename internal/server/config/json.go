package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/passvault/internal/flagx"
	"github.com/dmitrijs2005/passvault/internal/timex"
)

// JsonConfig mirrors Config for JSON decoding. Durations use timex.Duration
// so files may say "2s" or give integer nanoseconds.
type JsonConfig struct {
	ListenAddr    string `json:"listen_addr"`
	StorageDriver string `json:"storage_driver"`
	DatabaseDSN   string `json:"database_dsn"`
	DataDir       string `json:"data_dir"`
	VaultBackend  string `json:"vault_backend"`

	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
	S3Bucket       string `json:"s3_bucket"`
	S3Prefix       string `json:"s3_prefix"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	BreachURL         string         `json:"breach_url"`
	BreachAPIKey      string         `json:"breach_api_key"`
	BreachAPIKeyFile  string         `json:"breach_api_key_file"`
	BreachTimeout     timex.Duration `json:"breach_timeout"`
	BreachRate        float64        `json:"breach_rate"`
	BreachBurst       int            `json:"breach_burst"`
	BreachCacheSize   int            `json:"breach_cache_size"`
	BreachCacheTTL    timex.Duration `json:"breach_cache_ttl"`
	CheckFailedPolicy string         `json:"check_failed_policy"`

	Workers        int            `json:"workers"`
	InboxLines     int            `json:"inbox_lines"`
	MaxLineBytes   int            `json:"max_line_bytes"`
	MaxConnections int            `json:"max_connections"`
	WriteTimeout   timex.Duration `json:"write_timeout"`
	IdleTimeout    timex.Duration `json:"idle_timeout"`

	LoginRate  float64 `json:"login_rate"`
	LoginBurst int     `json:"login_burst"`

	KDFTime      uint32 `json:"kdf_time"`
	KDFMemoryKiB uint32 `json:"kdf_memory_kib"`
	KDFThreads   uint8  `json:"kdf_threads"`

	LogLevel string `json:"log_level"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		ListenAddr: c.ListenAddr, StorageDriver: c.StorageDriver, DatabaseDSN: c.DatabaseDSN,
		DataDir: c.DataDir, VaultBackend: c.VaultBackend,
		S3AccessKey: c.S3AccessKey, S3SecretKey: c.S3SecretKey, S3Bucket: c.S3Bucket,
		S3Prefix: c.S3Prefix, S3Region: c.S3Region, S3BaseEndpoint: c.S3BaseEndpoint,
		BreachURL: c.BreachURL, BreachAPIKey: c.BreachAPIKey, BreachAPIKeyFile: c.BreachAPIKeyFile,
		BreachTimeout: timex.Duration{Duration: c.BreachTimeout}, BreachRate: c.BreachRate,
		BreachBurst: c.BreachBurst, BreachCacheSize: c.BreachCacheSize,
		BreachCacheTTL: timex.Duration{Duration: c.BreachCacheTTL}, CheckFailedPolicy: c.CheckFailedPolicy,
		Workers: c.Workers, InboxLines: c.InboxLines, MaxLineBytes: c.MaxLineBytes,
		MaxConnections: c.MaxConnections, WriteTimeout: timex.Duration{Duration: c.WriteTimeout},
		IdleTimeout: timex.Duration{Duration: c.IdleTimeout},
		LoginRate: c.LoginRate, LoginBurst: c.LoginBurst,
		KDFTime: c.KDFTime, KDFMemoryKiB: c.KDFMemoryKiB, KDFThreads: c.KDFThreads,
		LogLevel: c.LogLevel,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.ListenAddr = j.ListenAddr
	c.StorageDriver = j.StorageDriver
	c.DatabaseDSN = j.DatabaseDSN
	c.DataDir = j.DataDir
	c.VaultBackend = j.VaultBackend
	c.S3AccessKey = j.S3AccessKey
	c.S3SecretKey = j.S3SecretKey
	c.S3Bucket = j.S3Bucket
	c.S3Prefix = j.S3Prefix
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.BreachURL = j.BreachURL
	c.BreachAPIKey = j.BreachAPIKey
	c.BreachAPIKeyFile = j.BreachAPIKeyFile
	c.BreachTimeout = j.BreachTimeout.Duration
	c.BreachRate = j.BreachRate
	c.BreachBurst = j.BreachBurst
	c.BreachCacheSize = j.BreachCacheSize
	c.BreachCacheTTL = j.BreachCacheTTL.Duration
	c.CheckFailedPolicy = j.CheckFailedPolicy
	c.Workers = j.Workers
	c.InboxLines = j.InboxLines
	c.MaxLineBytes = j.MaxLineBytes
	c.MaxConnections = j.MaxConnections
	c.WriteTimeout = j.WriteTimeout.Duration
	c.IdleTimeout = j.IdleTimeout.Duration
	c.LoginRate = j.LoginRate
	c.LoginBurst = j.LoginBurst
	c.KDFTime = j.KDFTime
	c.KDFMemoryKiB = j.KDFMemoryKiB
	c.KDFThreads = j.KDFThreads
	c.LogLevel = j.LogLevel
}

// parseJson overlays the JSON file named by -c or -config onto config.
// Keys missing from the file keep their current values. Without either
// flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	// decoding over the current values keeps absent keys unchanged
	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.apply(config)
	return nil
}
