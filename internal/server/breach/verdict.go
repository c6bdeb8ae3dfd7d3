// Package breach checks candidate passwords against a known-compromised
// password corpus without ever sending the password or its full hash.
package breach

import (
	"context"
	"fmt"
)

type Status int

const (
	StatusClean Status = iota
	StatusCompromised
	StatusCheckFailed
)

func (s Status) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusCompromised:
		return "compromised"
	default:
		return "check_failed"
	}
}

// Verdict is the outcome of one check. Count is set for compromised
// passwords, Reason for failed checks.
type Verdict struct {
	Status Status
	Count  int
	Reason string
}

func Clean() Verdict { return Verdict{Status: StatusClean} }

func Compromised(count int) Verdict {
	return Verdict{Status: StatusCompromised, Count: count}
}

func CheckFailed(reason string) Verdict {
	return Verdict{Status: StatusCheckFailed, Reason: reason}
}

func (v Verdict) String() string {
	switch v.Status {
	case StatusCompromised:
		return fmt.Sprintf("compromised (seen %d times)", v.Count)
	case StatusCheckFailed:
		return "check failed: " + v.Reason
	default:
		return "clean"
	}
}

// Checker reports whether a password is known to be compromised. A failure
// to decide is reported as CheckFailed, never as Clean.
type Checker interface {
	Check(ctx context.Context, password []byte) Verdict
}

// Disabled is used when no range API is configured.
type Disabled struct{}

func (Disabled) Check(context.Context, []byte) Verdict {
	return CheckFailed("checker disabled")
}
