package protocol

import (
	"bufio"
	"errors"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/common"
)

// Response is one or more lines sent back for a single command.
type Response struct {
	Lines []string
}

func OK(payload string) Response {
	if payload == "" {
		return Response{Lines: []string{"OK"}}
	}
	return Response{Lines: []string{"OK " + payload}}
}

// Fail renders err as a single ERR line. Errors that are not *Error become
// a generic Internal failure so no detail leaks to the peer.
func Fail(err error) Response {
	var pe *Error
	if !errors.As(err, &pe) {
		pe = &Error{Code: CodeInternal, Message: "internal error"}
	}
	return Response{Lines: []string{"ERR " + string(pe.Code) + " " + sanitize(pe.Message)}}
}

// List renders the LIST-PASS block: a count line, one label per line and
// the terminator.
func List(labels []string) Response {
	lines := make([]string, 0, len(labels)+2)
	lines = append(lines, "OK "+strconv.Itoa(len(labels)))
	lines = append(lines, labels...)
	lines = append(lines, common.ListTerminator)
	return Response{Lines: lines}
}

// WriteTo writes every line followed by '\n'.
func (r Response) WriteTo(w *bufio.Writer) error {
	for _, l := range r.Lines {
		if _, err := w.WriteString(l); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

func (r Response) String() string {
	return strings.Join(r.Lines, "\n")
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
}
