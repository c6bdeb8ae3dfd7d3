// Package passgen generates random passwords from a crypto/rand source.
package passgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

const (
	MinLength = 4
	MaxLength = 128

	letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	special = "!@#$%^&*()-_=+[]{};:,.?/~"
)

var ErrInvalidLength = errors.New("invalid password length")

// Options select the length and character classes of a password. Letters
// are always used.
type Options struct {
	Length     int
	HasDigits  bool
	HasSpecial bool
}

// Generator draws characters from an io.Reader, crypto/rand.Reader by default.
type Generator struct {
	rnd io.Reader
}

func New() *Generator {
	return &Generator{rnd: rand.Reader}
}

// NewWithReader is for tests that need a deterministic source.
func NewWithReader(r io.Reader) *Generator {
	return &Generator{rnd: r}
}

// Generate returns a password that contains at least one character of every
// requested class.
func (g *Generator) Generate(opts Options) (string, error) {
	if opts.Length < MinLength || opts.Length > MaxLength {
		return "", fmt.Errorf("%w: must be between %d and %d", ErrInvalidLength, MinLength, MaxLength)
	}

	classes := []string{letters}
	if opts.HasDigits {
		classes = append(classes, digits)
	}
	if opts.HasSpecial {
		classes = append(classes, special)
	}

	alphabet := ""
	for _, c := range classes {
		alphabet += c
	}

	out := make([]byte, opts.Length)
	// one guaranteed character per class, the rest from the full alphabet
	for i, c := range classes {
		ch, err := g.pick(c)
		if err != nil {
			return "", err
		}
		out[i] = ch
	}
	for i := len(classes); i < opts.Length; i++ {
		ch, err := g.pick(alphabet)
		if err != nil {
			return "", err
		}
		out[i] = ch
	}

	if err := g.shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

func (g *Generator) index(n int) (int, error) {
	v, err := rand.Int(g.rnd, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random source: %w", err)
	}
	return int(v.Int64()), nil
}

func (g *Generator) pick(set string) (byte, error) {
	i, err := g.index(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

// shuffle is Fisher-Yates so the guaranteed characters are not always first.
func (g *Generator) shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := g.index(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
