package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/client/client"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Exec(ctx context.Context, line string) error
}

// runREPL reads lines from scanner and hands each non-empty one to a.Exec.
// The loop exits on scanner EOF, on "exit" or "quit", or when the
// connection to the server is lost. Other errors are reported and the loop
// continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("pv %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		err := a.Exec(ctx, line)
		switch {
		case err == nil:
		case errors.Is(err, client.ErrUnavailable):
			printlnFn("Connection lost:", err)
			return
		default:
			printlnFn("Error:", err)
		}
	}
}
