package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/client/client"
	"github.com/dmitrijs2005/passvault/internal/client/config"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/server/protocol"
)

// conn is the part of *client.Conn the App uses.
type conn interface {
	Do(line string) (client.Reply, error)
	Greeting() string
	Close() error
}

var dialServer = func(ctx context.Context, c *config.Config) (conn, error) {
	return client.Dial(ctx, c.ServerAddr, c.DialTimeout, c.ReadTimeout)
}

var errEmptyPassword = errors.New("empty password, nothing sent")

type App struct {
	config   *config.Config
	conn     conn
	userName string
	out      io.Writer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	cn, err := dialServer(ctx, c)
	if err != nil {
		return nil, err
	}
	return &App{config: c, conn: cn, out: os.Stdout}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.conn.Close()

	fmt.Fprintf(a.out, "Connected to %s (%s). Type HELP for commands, exit to quit.\n", a.config.ServerAddr, a.conn.Greeting())
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}

func (a *App) status() string {
	if a.userName == "" {
		return "(anonymous)"
	}
	return "(" + a.userName + ")"
}

// Exec sends one command, prompting for a missing password first, and
// prints the reply.
func (a *App) Exec(ctx context.Context, line string) error {
	line, err := a.complete(line)
	if err != nil {
		return err
	}

	reply, err := a.conn.Do(line)
	if err != nil {
		return err
	}

	a.track(line, reply)
	a.render(reply)
	return nil
}

// complete appends a password read from the terminal when line names a
// password-carrying command without one.
func (a *App) complete(line string) (string, error) {
	fields := strings.Fields(line)
	name := protocol.Name(strings.ToUpper(fields[0]))

	var prompt string
	switch {
	case (name == protocol.CmdRegister || name == protocol.CmdLogin) && len(fields) == 2:
		prompt = "Master password: "
	case (name == protocol.CmdAddPass || name == protocol.CmdUpdatePass) && len(fields) == 2:
		prompt = "Password for " + fields[1] + ": "
	case name == protocol.CmdCheckPass && len(fields) == 1:
		prompt = "Password to check: "
	default:
		return line, nil
	}

	pw, err := GetPassword(a.out, prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(pw)
	if len(pw) == 0 {
		return "", errEmptyPassword
	}
	return strings.Join(fields, " ") + " " + string(pw), nil
}

func (a *App) track(line string, reply client.Reply) {
	if !reply.OK {
		return
	}
	fields := strings.Fields(line)
	switch protocol.Name(strings.ToUpper(fields[0])) {
	case protocol.CmdLogin:
		a.userName = fields[1]
	case protocol.CmdLogout:
		a.userName = ""
	}
}

func (a *App) render(reply client.Reply) {
	switch {
	case !reply.OK:
		fmt.Fprintf(a.out, "error (%s): %s\n", reply.Code, reply.Text)
	case reply.Items != nil:
		if len(reply.Items) == 0 {
			fmt.Fprintln(a.out, "(empty)")
		}
		for _, it := range reply.Items {
			fmt.Fprintln(a.out, it)
		}
	case reply.Text == "":
		fmt.Fprintln(a.out, "OK")
	default:
		fmt.Fprintln(a.out, reply.Text)
	}
}
