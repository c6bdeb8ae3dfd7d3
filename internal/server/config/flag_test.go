package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	defaults := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		return c
	}

	tests := []struct {
		name    string
		args    []string
		want    func() *Config
		wantErr bool
	}{
		{
			name: "no flags keep defaults",
			args: nil,
			want: defaults,
		},
		{
			name: "short flags",
			args: []string{"-a", "127.0.0.1:9090", "-d", "vault.db", "-u", "user", "-p", "password",
				"-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint", "-w", "3", "-l", "debug"},
			want: func() *Config {
				c := defaults()
				c.ListenAddr = "127.0.0.1:9090"
				c.DatabaseDSN = "vault.db"
				c.S3AccessKey = "user"
				c.S3SecretKey = "password"
				c.S3Bucket = "bucket"
				c.S3Region = "us-west-1"
				c.S3BaseEndpoint = "http://endpoint"
				c.Workers = 3
				c.LogLevel = "debug"
				return c
			},
		},
		{
			name: "long flags and durations",
			args: []string{"-driver", "postgres", "-vault=s3", "-breach-url=", "-breach-timeout", "500ms",
				"-breach-cache-ttl", "10m", "-check-failed", "allow", "-idle-timeout", "0s",
				"-login-rate", "2.5", "-kdf-time", "2", "-kdf-memory", "8192", "-kdf-threads", "1"},
			want: func() *Config {
				c := defaults()
				c.StorageDriver = "postgres"
				c.VaultBackend = "s3"
				c.BreachURL = ""
				c.BreachTimeout = 500 * time.Millisecond
				c.BreachCacheTTL = 10 * time.Minute
				c.CheckFailedPolicy = "allow"
				c.IdleTimeout = 0
				c.LoginRate = 2.5
				c.KDFTime = 2
				c.KDFMemoryKiB = 8192
				c.KDFThreads = 1
				return c
			},
		},
		{
			name: "foreign flags are ignored",
			args: []string{"-c", "cfg.json", "-zzz", "1", "-a", ":1"},
			want: func() *Config {
				c := defaults()
				c.ListenAddr = ":1"
				return c
			},
		},
		{
			name:    "bad integer",
			args:    []string{"-max-conns", "lots"},
			wantErr: true,
		},
		{
			name:    "bad duration",
			args:    []string{"-write-timeout", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := defaults()
			err := parseFlags(got, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.want(), got))
		})
	}
}
