package dispatch

import (
	"github.com/dmitrijs2005/passvault/internal/server/session"
	"golang.org/x/time/rate"
)

// State is one connection's position in the ANONYMOUS / AUTHENTICATED
// state machine. Only the Dispatcher changes it.
type State struct {
	connID  string
	session *session.Session
	logins  *rate.Limiter
}

// Authenticated reports whether a live session is attached.
func (s *State) Authenticated() bool {
	return s.session != nil && s.session.LoggedIn()
}

// Username returns the logged-in user or "".
func (s *State) Username() string {
	if !s.Authenticated() {
		return ""
	}
	return s.session.Username
}

func (s *State) actor() string {
	if u := s.Username(); u != "" {
		return u
	}
	return "conn:" + s.connID
}

// Close ends the session, if any, and returns to ANONYMOUS.
func (s *State) Close() {
	if s.session != nil {
		s.session.End()
		s.session = nil
	}
}
