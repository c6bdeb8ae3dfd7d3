package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/passvault/internal/flagx"
)

var flagNames = []string{
	"-a", "-driver", "-d", "-data", "-vault",
	"-u", "-p", "-b", "-s3-prefix", "-g", "-e",
	"-breach-url", "-breach-key", "-breach-key-file", "-breach-timeout", "-breach-rate",
	"-breach-burst", "-breach-cache", "-breach-cache-ttl", "-check-failed",
	"-w", "-inbox", "-max-line", "-max-conns", "-write-timeout", "-idle-timeout",
	"-login-rate", "-login-burst",
	"-kdf-time", "-kdf-memory", "-kdf-threads",
	"-l",
}

// parseFlags overlays Config fields given on the command line.
//
// Short flags kept from the first release:
//
//	-a string   listen address (e.g., ":7070")
//	-d string   database DSN
//	-u, -p      S3 access key and secret key
//	-b, -g, -e  S3 bucket, region and base endpoint
//	-w int      worker goroutines
//	-l string   log level
//
// Durations use time.ParseDuration syntax ("2s", "15m"). Only the flags
// listed in flagNames are taken from args; -c/-config belongs to parseJson.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, flagNames)

	fs := flag.NewFlagSet("passvault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to listen on")
	fs.StringVar(&config.StorageDriver, "driver", config.StorageDriver, "user store driver: sqlite or postgres")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DataDir, "data", config.DataDir, "data directory for the embedded database")
	fs.StringVar(&config.VaultBackend, "vault", config.VaultBackend, "vault backend: sql or s3")

	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Prefix, "s3-prefix", config.S3Prefix, "S3 key prefix")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.BreachURL, "breach-url", config.BreachURL, "breach range API base URL, empty disables checks")
	fs.StringVar(&config.BreachAPIKey, "breach-key", config.BreachAPIKey, "breach API key")
	fs.StringVar(&config.BreachAPIKeyFile, "breach-key-file", config.BreachAPIKeyFile, "file holding the breach API key")
	fs.DurationVar(&config.BreachTimeout, "breach-timeout", config.BreachTimeout, "deadline for one breach check")
	fs.Float64Var(&config.BreachRate, "breach-rate", config.BreachRate, "breach API requests per second")
	fs.IntVar(&config.BreachBurst, "breach-burst", config.BreachBurst, "breach API request burst")
	fs.IntVar(&config.BreachCacheSize, "breach-cache", config.BreachCacheSize, "cached hash prefixes")
	fs.DurationVar(&config.BreachCacheTTL, "breach-cache-ttl", config.BreachCacheTTL, "lifetime of a cached prefix")
	fs.StringVar(&config.CheckFailedPolicy, "check-failed", config.CheckFailedPolicy, "write policy when a check fails: reject or allow")

	fs.IntVar(&config.Workers, "w", config.Workers, "command worker goroutines")
	fs.IntVar(&config.InboxLines, "inbox", config.InboxLines, "queued lines per connection")
	fs.IntVar(&config.MaxLineBytes, "max-line", config.MaxLineBytes, "longest accepted request line")
	fs.IntVar(&config.MaxConnections, "max-conns", config.MaxConnections, "open connection limit")
	fs.DurationVar(&config.WriteTimeout, "write-timeout", config.WriteTimeout, "deadline for writing a response")
	fs.DurationVar(&config.IdleTimeout, "idle-timeout", config.IdleTimeout, "close connections idle this long, 0 disables")

	fs.Float64Var(&config.LoginRate, "login-rate", config.LoginRate, "login attempts per second per connection, 0 disables")
	fs.IntVar(&config.LoginBurst, "login-burst", config.LoginBurst, "login attempt burst")

	kdfTime := fs.Uint("kdf-time", uint(config.KDFTime), "argon2id time cost for new users")
	kdfMemory := fs.Uint("kdf-memory", uint(config.KDFMemoryKiB), "argon2id memory in KiB for new users")
	kdfThreads := fs.Uint("kdf-threads", uint(config.KDFThreads), "argon2id threads for new users")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.KDFTime = uint32(*kdfTime)
	config.KDFMemoryKiB = uint32(*kdfMemory)
	config.KDFThreads = uint8(*kdfThreads)
	return nil
}
