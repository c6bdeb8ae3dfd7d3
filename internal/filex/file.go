// Package filex holds the small filesystem bootstrap helpers used at startup.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates dir (and parents) with 0700 permissions if missing and
// returns its absolute path. Relative paths resolve against the working directory.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// ReadSecretFile reads a one-line secret (an API key) from path and trims
// surrounding whitespace. An empty file is an error.
func ReadSecretFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", errors.New("secret file " + path + " is empty")
	}

	return s, nil
}
