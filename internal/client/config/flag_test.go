package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	// Test cases
	tests := []struct {
		expected  *Config
		name      string
		args      []string
		expectErr bool
	}{
		{name: "Test1 OK", args: []string{"-a", "127.0.0.1:9090", "-t", "1s", "-r", "1m"},
			expected: &Config{ServerAddr: "127.0.0.1:9090", DialTimeout: time.Second, ReadTimeout: time.Minute}},
		{name: "Test2 foreign flags skipped", args: []string{"-x", "1", "-a=h:1"},
			expected: &Config{ServerAddr: "h:1"}},
		{name: "Test3 incorrect timeout", args: []string{"-a", "127.0.0.1:9090", "-r", "abc"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}

			err := parseFlags(config, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(config, tt.expected))
		})
	}
}
