// Package vault stores sealed credential entries per user. A Store
// serializes all operations on one user's vault while leaving different
// users fully concurrent; durability is delegated to a Backend.
package vault

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
)

// ErrNotFound is returned for a label that is not in the user's vault.
var ErrNotFound = common.ErrorNotFound

// Backend persists entries. Implementations may assume calls for the same
// username never overlap.
type Backend interface {
	Put(ctx context.Context, username, label string, entry cryptox.Sealed) error
	Update(ctx context.Context, username, label string, entry cryptox.Sealed) error
	Get(ctx context.Context, username, label string) (cryptox.Sealed, error)
	Delete(ctx context.Context, username, label string) error
	List(ctx context.Context, username string) ([]string, error)
}

type Store struct {
	backend Backend
	locks   *userLocks
}

func NewStore(b Backend) *Store {
	return &Store{backend: b, locks: newUserLocks()}
}

// Put inserts or overwrites an entry. An overwritten label keeps its
// position in List.
func (s *Store) Put(ctx context.Context, username, label string, entry cryptox.Sealed) error {
	return s.withUser(ctx, username, func() error {
		return s.backend.Put(ctx, username, label, entry)
	})
}

// Update overwrites an existing entry or returns ErrNotFound.
func (s *Store) Update(ctx context.Context, username, label string, entry cryptox.Sealed) error {
	return s.withUser(ctx, username, func() error {
		return s.backend.Update(ctx, username, label, entry)
	})
}

func (s *Store) Get(ctx context.Context, username, label string) (cryptox.Sealed, error) {
	var out cryptox.Sealed
	err := s.withUser(ctx, username, func() error {
		var err error
		out, err = s.backend.Get(ctx, username, label)
		return err
	})
	return out, err
}

func (s *Store) Delete(ctx context.Context, username, label string) error {
	return s.withUser(ctx, username, func() error {
		return s.backend.Delete(ctx, username, label)
	})
}

// List returns the user's labels in insertion order.
func (s *Store) List(ctx context.Context, username string) ([]string, error) {
	var out []string
	err := s.withUser(ctx, username, func() error {
		var err error
		out, err = s.backend.List(ctx, username)
		return err
	})
	return out, err
}

func (s *Store) withUser(ctx context.Context, username string, fn func() error) error {
	unlock, err := s.locks.Lock(ctx, username)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}
