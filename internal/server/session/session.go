// Package session models an authenticated user bound to one connection.
package session

import (
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/security"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Session holds the user's derived key for as long as the user stays logged
// in. Once ended it is never reused; a new LOGIN creates a new Session.
type Session struct {
	ID       string
	Username string

	key      security.Secret
	loggedIn *atomic.Bool
}

// New starts a logged-in session. The session takes ownership of key.
func New(username string, key security.Secret) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Username: username,
		key:      key,
		loggedIn: atomic.NewBool(true),
	}
}

func (s *Session) LoggedIn() bool {
	return s.loggedIn.Load()
}

// Key returns the derived key, or nil after End.
func (s *Session) Key() security.Secret {
	if !s.LoggedIn() {
		return nil
	}
	return s.key
}

// End wipes the key and marks the session logged out. Only the first call
// has an effect; it reports whether this call ended the session.
func (s *Session) End() bool {
	if !s.loggedIn.CompareAndSwap(true, false) {
		return false
	}
	s.key.Zero()
	return true
}

// String omits the key.
func (s *Session) String() string {
	return fmt.Sprintf("session{id=%s user=%s logged_in=%t}", s.ID, s.Username, s.LoggedIn())
}
