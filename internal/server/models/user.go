// Package models defines server-side records persisted by the repositories.
package models

// User is a registered account. The master password is never stored: only
// the per-user salt, the Argon2id costs it was registered with and a verifier
// derived from the key.
type User struct {
	ID           string
	UserName     string
	Salt         []byte
	KDFTime      uint32
	KDFMemoryKiB uint32
	KDFThreads   uint8
	Verifier     []byte
}
