package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/passvault/internal/client/client"
	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
	errs  map[string]error
}

func (f *fakeExec) Exec(ctx context.Context, line string) error {
	f.calls = append(f.calls, line)
	return f.errs[line]
}

func capturePrints(t *testing.T) *[]string {
	t.Helper()
	var printed []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		printed = append(printed, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &printed
}

func TestRunREPL_ForwardsLinesUntilExit(t *testing.T) {
	printed := capturePrints(t)

	input := strings.NewReader(strings.Join([]string{
		"PING",
		"",
		"   ",
		"  LOGIN alice  ",
		"bad",
		"EXIT",
		"PING",
	}, "\n"))

	exec := &fakeExec{errs: map[string]error{"bad": errors.New("nope")}}
	runREPL(context.Background(), exec, func() string { return "(anonymous)" }, bufio.NewScanner(input))

	assert.Equal(t, []string{"PING", "LOGIN alice", "bad"}, exec.calls)
	assert.Contains(t, *printed, "Error: nope")
	assert.Contains(t, *printed, "Bye!")
	assert.Contains(t, *printed, "pv (anonymous)>")
}

func TestRunREPL_StopsWhenConnectionLost(t *testing.T) {
	printed := capturePrints(t)

	lost := fmt.Errorf("%w: EOF", client.ErrUnavailable)
	exec := &fakeExec{errs: map[string]error{"PING": lost}}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("PING\nHELP\n")))

	assert.Equal(t, []string{"PING"}, exec.calls)
	assert.Contains(t, *printed, "Connection lost: server unavailable: EOF")
}

func TestRunREPL_EOF(t *testing.T) {
	capturePrints(t)
	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("")))
	assert.Empty(t, exec.calls)
}
