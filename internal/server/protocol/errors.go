package protocol

import "fmt"

// Code is the stable, machine-readable part of an ERR response.
type Code string

const (
	CodeInvalidCommand        Code = "InvalidCommand"
	CodeInvalidArgumentsCount Code = "InvalidArgumentsCount"
	CodeInvalidArgument       Code = "InvalidArgument"
	CodeUserNotLoggedIn       Code = "UserNotLoggedIn"
	CodeUserAlreadyLoggedIn   Code = "UserAlreadyLoggedIn"
	CodeAuthenticationFailed  Code = "AuthenticationFailed"
	CodeUserAlreadyExists     Code = "UserAlreadyExists"
	CodeEntryNotFound         Code = "EntryNotFound"
	CodePasswordCompromised   Code = "PasswordCompromised"
	CodeCheckFailed           Code = "CheckFailed"
	CodeInternal              Code = "Internal"
	CodeServerBusy            Code = "ServerBusy"
)

// Error is a client-visible failure. Message must be safe to send to the
// peer: no secrets, no internal detail.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
