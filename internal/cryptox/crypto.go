// Package cryptox derives per-user keys from master passwords and seals
// vault entries with them.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/security"
	"golang.org/x/crypto/argon2"
)

// ErrKeyDerivation reports malformed salt or derivation parameters.
// Password content never causes it.
var ErrKeyDerivation = errors.New("key derivation error")

// KeyLen is the derived key size: an AES-256 key.
const KeyLen = 32

// Params are the Argon2id cost parameters.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	SaltLen   int
}

// DefaultParams are the costs applied to newly registered users. Each user
// row records the costs it was registered with.
var DefaultParams = Params{Time: 1, MemoryKiB: 64 * 1024, Threads: 4, SaltLen: 32}

func (p Params) validate() error {
	switch {
	case p.Time < 1:
		return fmt.Errorf("%w: time cost must be >= 1", ErrKeyDerivation)
	case p.Threads < 1:
		return fmt.Errorf("%w: threads must be >= 1", ErrKeyDerivation)
	case p.MemoryKiB < 8*uint32(p.Threads):
		return fmt.Errorf("%w: memory must be >= 8KiB per thread", ErrKeyDerivation)
	case p.SaltLen < 8:
		return fmt.Errorf("%w: salt length must be >= 8", ErrKeyDerivation)
	}
	return nil
}

// Deriver turns master passwords into keys. It is safe for concurrent use.
type Deriver struct {
	params Params
}

func NewDeriver(p Params) (*Deriver, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Deriver{params: p}, nil
}

// NewSalt returns a fresh random salt for a registering user.
func (d *Deriver) NewSalt() []byte {
	return common.GenerateRandByteArray(d.params.SaltLen)
}

// Params returns the costs used for new users.
func (d *Deriver) Params() Params { return d.params }

// Derive runs Argon2id over password and salt with the deriver's own costs.
// Identical inputs always give identical keys.
func (d *Deriver) Derive(password, salt []byte) (security.Secret, error) {
	return DeriveWith(d.params, password, salt)
}

// DeriveWith runs Argon2id with explicit costs, as recorded for an existing
// user. p.SaltLen must match len(salt).
func DeriveWith(p Params, password, salt []byte) (security.Secret, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(salt) != p.SaltLen {
		return nil, fmt.Errorf("%w: salt is %d bytes, want %d", ErrKeyDerivation, len(salt), p.SaltLen)
	}
	key := argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Threads, KeyLen)
	return security.Secret(key), nil
}

// MakeVerifier returns the value stored in place of the key: SHA-256(key).
func MakeVerifier(key security.Secret) []byte {
	var out []byte
	_ = key.Use(func(b []byte) error {
		sum := sha256.Sum256(b)
		out = sum[:]
		return nil
	})
	return out
}

// CheckVerifier compares a stored verifier with the one computed from key in
// constant time.
func CheckVerifier(stored []byte, key security.Secret) bool {
	return subtle.ConstantTimeCompare(stored, MakeVerifier(key)) == 1
}
