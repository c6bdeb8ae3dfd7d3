package client

import "errors"

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrBadGreeting = errors.New("unexpected server greeting")
	ErrBadReply    = errors.New("malformed server reply")
)
