// Package protocol implements the line-oriented wire format: parsing one
// request line into a Command and rendering Responses.
package protocol

import (
	"strings"
)

type Name string

const (
	CmdRegister   Name = "REGISTER"
	CmdLogin      Name = "LOGIN"
	CmdLogout     Name = "LOGOUT"
	CmdGenPass    Name = "GEN-PASS"
	CmdAddPass    Name = "ADD-PASS"
	CmdGetPass    Name = "GET-PASS"
	CmdUpdatePass Name = "UPDATE-PASS"
	CmdDelPass    Name = "DEL-PASS"
	CmdListPass   Name = "LIST-PASS"
	CmdCheckPass  Name = "CHECK-PASS"
	CmdPing       Name = "PING"
	CmdHelp       Name = "HELP"
)

// shape describes a command's arguments. A greedy command's last argument
// takes the rest of the line, inner whitespace included.
type shape struct {
	arity   int
	greedy  bool
	session bool
	usage   string
}

var shapes = map[Name]shape{
	CmdRegister:   {arity: 2, greedy: true, usage: "REGISTER <username> <master password>"},
	CmdLogin:      {arity: 2, greedy: true, usage: "LOGIN <username> <master password>"},
	CmdLogout:     {session: true, usage: "LOGOUT"},
	CmdGenPass:    {arity: 3, usage: "GEN-PASS <length> <digits:true|false> <special:true|false>"},
	CmdAddPass:    {arity: 2, greedy: true, session: true, usage: "ADD-PASS <label> <password>"},
	CmdGetPass:    {arity: 1, session: true, usage: "GET-PASS <label>"},
	CmdUpdatePass: {arity: 2, greedy: true, session: true, usage: "UPDATE-PASS <label> <password>"},
	CmdDelPass:    {arity: 1, session: true, usage: "DEL-PASS <label>"},
	CmdListPass:   {session: true, usage: "LIST-PASS"},
	CmdCheckPass:  {arity: 1, greedy: true, usage: "CHECK-PASS <password>"},
	CmdPing:       {usage: "PING"},
	CmdHelp:       {usage: "HELP"},
}

// order is the HELP listing order.
var order = []Name{
	CmdRegister, CmdLogin, CmdLogout, CmdGenPass,
	CmdAddPass, CmdGetPass, CmdUpdatePass, CmdDelPass, CmdListPass,
	CmdCheckPass, CmdPing, CmdHelp,
}

type Command struct {
	Name Name
	Args []string
}

// RequiresSession reports whether the command is only valid when logged in.
func (c Command) RequiresSession() bool {
	return shapes[c.Name].session
}

// Usage returns one usage line per known command.
func Usage() []string {
	out := make([]string, 0, len(order))
	for _, n := range order {
		out = append(out, shapes[n].usage)
	}
	return out
}

const blanks = " \t"

func cut(s string) (tok, rest string) {
	s = strings.TrimLeft(s, blanks)
	if i := strings.IndexAny(s, blanks); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

// Parse turns one line (without its '\n') into a Command. Command names are
// case-insensitive; arguments are kept verbatim.
func Parse(line string) (Command, error) {
	line = strings.TrimSuffix(line, "\r")

	tok, rest := cut(line)
	if tok == "" {
		return Command{}, Errorf(CodeInvalidCommand, "empty command")
	}
	name := Name(strings.ToUpper(tok))
	sh, ok := shapes[name]
	if !ok {
		return Command{}, Errorf(CodeInvalidCommand, "unknown command %q", truncate(tok, 32))
	}

	var args []string
	if sh.greedy {
		for i := 0; i < sh.arity-1; i++ {
			var a string
			a, rest = cut(rest)
			if a == "" {
				return Command{}, arityError(name, sh)
			}
			args = append(args, a)
		}
		// one blank separates the final argument; the rest is kept verbatim
		last := rest
		if last != "" {
			last = last[1:]
		}
		if strings.Trim(last, blanks) == "" {
			return Command{}, arityError(name, sh)
		}
		args = append(args, last)
	} else {
		fields := strings.Fields(rest)
		if len(fields) != sh.arity {
			return Command{}, arityError(name, sh)
		}
		if len(fields) > 0 {
			args = fields
		}
	}

	return Command{Name: name, Args: args}, nil
}

func arityError(n Name, sh shape) error {
	return Errorf(CodeInvalidArgumentsCount, "%s expects %d argument(s), usage: %s", n, sh.arity, sh.usage)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
