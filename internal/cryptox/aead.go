package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/security"
)

// AlgorithmAESGCM names the only sealing scheme; it is stored with every blob.
const AlgorithmAESGCM = "AES-256-GCM"

// ErrDecrypt means the blob could not be opened: wrong key, wrong label or
// tampered data. The cause is deliberately not distinguished.
var ErrDecrypt = errors.New("decryption failed")

// ErrNoKey means the key is empty or has already been wiped.
var ErrNoKey = errors.New("no key")

// Sealed is a ciphertext together with everything needed to open it.
type Sealed struct {
	Algorithm  string `json:"algorithm"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext under key with a fresh random nonce. aad is
// authenticated but not encrypted; the vault passes the entry label so a
// blob cannot be moved to another label.
func Seal(key security.Secret, plaintext, aad []byte) (Sealed, error) {
	if key.IsZero() {
		return Sealed{}, fmt.Errorf("seal: %w", ErrNoKey)
	}
	var out Sealed
	err := key.Use(func(k []byte) error {
		gcm, err := newGCM(k)
		if err != nil {
			return err
		}
		nonce := common.GenerateRandByteArray(gcm.NonceSize())
		out = Sealed{
			Algorithm:  AlgorithmAESGCM,
			Nonce:      nonce,
			Ciphertext: gcm.Seal(nil, nonce, plaintext, aad),
		}
		return nil
	})
	if err != nil {
		return Sealed{}, fmt.Errorf("seal: %w", err)
	}
	return out, nil
}

// Open reverses Seal. The caller should wipe the returned plaintext once used.
func Open(key security.Secret, s Sealed, aad []byte) ([]byte, error) {
	if s.Algorithm != AlgorithmAESGCM {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrDecrypt, s.Algorithm)
	}

	var plaintext []byte
	err := key.Use(func(k []byte) error {
		gcm, err := newGCM(k)
		if err != nil {
			return err
		}
		if len(s.Nonce) != gcm.NonceSize() {
			return ErrDecrypt
		}
		plaintext, err = gcm.Open(nil, s.Nonce, s.Ciphertext, aad)
		if err != nil {
			return ErrDecrypt
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDecrypt) {
			return nil, err
		}
		return nil, fmt.Errorf("open: %w", err)
	}
	return plaintext, nil
}
