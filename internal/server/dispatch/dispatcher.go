// Package dispatch executes parsed commands against the user service, the
// vault and the breach checker, driving each connection's State.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/passgen"
	"github.com/dmitrijs2005/passvault/internal/security"
	"github.com/dmitrijs2005/passvault/internal/server/breach"
	"github.com/dmitrijs2005/passvault/internal/server/protocol"
	"github.com/dmitrijs2005/passvault/internal/server/session"
	"golang.org/x/time/rate"
)

type UserService interface {
	Register(ctx context.Context, username string, password []byte) error
	Authenticate(ctx context.Context, username string, password []byte) (security.Secret, error)
}

// VaultStore is satisfied by *vault.Store.
type VaultStore interface {
	Put(ctx context.Context, username, label string, entry cryptox.Sealed) error
	Update(ctx context.Context, username, label string, entry cryptox.Sealed) error
	Get(ctx context.Context, username, label string) (cryptox.Sealed, error)
	Delete(ctx context.Context, username, label string) error
	List(ctx context.Context, username string) ([]string, error)
}

// Policy decides what a write does when the breach check cannot decide.
type Policy string

const (
	PolicyReject Policy = "reject"
	PolicyAllow  Policy = "allow"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyReject, PolicyAllow:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown breach policy %q (want reject or allow)", s)
	}
}

type Options struct {
	CheckFailedPolicy Policy
	// LoginRate and LoginBurst throttle LOGIN attempts per connection.
	// A zero LoginRate disables throttling.
	LoginRate  rate.Limit
	LoginBurst int
}

const maxLabelLen = 128

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

	errBadCredentials = protocol.Errorf(protocol.CodeAuthenticationFailed, "invalid username or password")
	errNotLoggedIn    = protocol.Errorf(protocol.CodeUserNotLoggedIn, "login required")
	errInternal       = protocol.Errorf(protocol.CodeInternal, "internal error")
)

type Dispatcher struct {
	users   UserService
	vault   VaultStore
	checker breach.Checker
	gen     *passgen.Generator
	opts    Options
	log     logging.Logger
	audit   logging.Auditor
}

func New(users UserService, vault VaultStore, checker breach.Checker, opts Options, log logging.Logger, audit logging.Auditor) *Dispatcher {
	if opts.CheckFailedPolicy == "" {
		opts.CheckFailedPolicy = PolicyReject
	}
	if opts.LoginRate == 0 {
		opts.LoginRate = rate.Inf
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 1
	}
	return &Dispatcher{
		users:   users,
		vault:   vault,
		checker: checker,
		gen:     passgen.New(),
		opts:    opts,
		log:     log.With("component", "dispatch"),
		audit:   audit,
	}
}

func (d *Dispatcher) NewState(connID string) *State {
	return &State{
		connID: connID,
		logins: rate.NewLimiter(d.opts.LoginRate, d.opts.LoginBurst),
	}
}

// Dispatch parses and executes one request line. It never returns an
// error: every failure is rendered as an ERR response.
func (d *Dispatcher) Dispatch(ctx context.Context, st *State, line string) protocol.Response {
	cmd, err := protocol.Parse(line)
	if err != nil {
		return protocol.Fail(err)
	}
	if cmd.RequiresSession() && !st.Authenticated() {
		return protocol.Fail(errNotLoggedIn)
	}

	switch cmd.Name {
	case protocol.CmdRegister:
		return d.register(ctx, st, cmd.Args[0], cmd.Args[1])
	case protocol.CmdLogin:
		return d.login(ctx, st, cmd.Args[0], cmd.Args[1])
	case protocol.CmdLogout:
		return d.logout(ctx, st)
	case protocol.CmdGenPass:
		return d.genPass(ctx, cmd.Args)
	case protocol.CmdAddPass:
		return d.write(ctx, st, cmd.Name, cmd.Args[0], cmd.Args[1])
	case protocol.CmdUpdatePass:
		return d.write(ctx, st, cmd.Name, cmd.Args[0], cmd.Args[1])
	case protocol.CmdGetPass:
		return d.getPass(ctx, st, cmd.Args[0])
	case protocol.CmdDelPass:
		return d.delPass(ctx, st, cmd.Args[0])
	case protocol.CmdListPass:
		return d.listPass(ctx, st)
	case protocol.CmdCheckPass:
		return d.checkPass(ctx, st, cmd.Args[0])
	case protocol.CmdPing:
		return protocol.OK("PONG")
	case protocol.CmdHelp:
		return protocol.List(protocol.Usage())
	}
	return protocol.Fail(protocol.Errorf(protocol.CodeInvalidCommand, "unsupported command %s", cmd.Name))
}

func (d *Dispatcher) internal(ctx context.Context, st *State, cmd protocol.Name, err error) protocol.Response {
	d.log.Error(ctx, "command failed", "conn_id", st.connID, "command", cmd, "error", err)
	d.audit.LogEvent(ctx, logging.LevelError, st.actor(), string(cmd), "error")
	return protocol.Fail(errInternal)
}

func (d *Dispatcher) register(ctx context.Context, st *State, username, password string) protocol.Response {
	if !usernameRe.MatchString(username) {
		return protocol.Fail(protocol.Errorf(protocol.CodeInvalidArgument,
			"username must be 1-64 characters of letters, digits, '.', '_' or '-'"))
	}

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	err := d.users.Register(ctx, username, pw)
	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		d.audit.LogEvent(ctx, logging.LevelWarn, username, string(protocol.CmdRegister), "duplicate")
		return protocol.Fail(protocol.Errorf(protocol.CodeUserAlreadyExists, "username is already taken"))
	case err != nil:
		return d.internal(ctx, st, protocol.CmdRegister, err)
	}

	d.audit.LogEvent(ctx, logging.LevelInfo, username, string(protocol.CmdRegister), "success")
	return protocol.OK("registered")
}

func (d *Dispatcher) login(ctx context.Context, st *State, username, password string) protocol.Response {
	if st.Authenticated() {
		return protocol.Fail(protocol.Errorf(protocol.CodeUserAlreadyLoggedIn,
			"already logged in as %s, LOGOUT first", st.Username()))
	}
	if !st.logins.Allow() {
		d.audit.LogEvent(ctx, logging.LevelWarn, username, string(protocol.CmdLogin), "throttled")
		return protocol.Fail(protocol.Errorf(protocol.CodeAuthenticationFailed, "too many login attempts, retry later"))
	}

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	key, err := d.users.Authenticate(ctx, username, pw)
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		d.audit.LogEvent(ctx, logging.LevelWarn, username, string(protocol.CmdLogin), "failure")
		return protocol.Fail(errBadCredentials)
	case err != nil:
		return d.internal(ctx, st, protocol.CmdLogin, err)
	}

	st.session = session.New(username, key)
	d.audit.LogEvent(ctx, logging.LevelInfo, username, string(protocol.CmdLogin), "success")
	return protocol.OK("session " + st.session.ID)
}

func (d *Dispatcher) logout(ctx context.Context, st *State) protocol.Response {
	user := st.Username()
	st.Close()
	d.audit.LogEvent(ctx, logging.LevelInfo, user, string(protocol.CmdLogout), "success")
	return protocol.OK("logged out")
}

func (d *Dispatcher) genPass(ctx context.Context, args []string) protocol.Response {
	length, err := strconv.Atoi(args[0])
	if err != nil {
		return protocol.Fail(protocol.Errorf(protocol.CodeInvalidArgument, "length must be a number"))
	}
	digits, err1 := strconv.ParseBool(args[1])
	special, err2 := strconv.ParseBool(args[2])
	if err1 != nil || err2 != nil {
		return protocol.Fail(protocol.Errorf(protocol.CodeInvalidArgument, "hasDigits and hasSpecial must be true or false"))
	}

	pw, err := d.gen.Generate(passgen.Options{Length: length, HasDigits: digits, HasSpecial: special})
	if errors.Is(err, passgen.ErrInvalidLength) {
		return protocol.Fail(protocol.Errorf(protocol.CodeInvalidArgument,
			"length must be between %d and %d", passgen.MinLength, passgen.MaxLength))
	}
	if err != nil {
		d.log.Error(ctx, "password generation failed", "error", err)
		return protocol.Fail(errInternal)
	}
	return protocol.OK(pw)
}

func validLabel(label string) error {
	if len(label) > maxLabelLen {
		return protocol.Errorf(protocol.CodeInvalidArgument, "label is longer than %d bytes", maxLabelLen)
	}
	if label == common.ListTerminator {
		return protocol.Errorf(protocol.CodeInvalidArgument, "label %q is reserved", label)
	}
	return nil
}

// screen runs the breach check for a write. A nil error lets the write
// proceed.
func (d *Dispatcher) screen(ctx context.Context, st *State, cmd protocol.Name, password []byte) error {
	v := d.checker.Check(ctx, password)
	switch v.Status {
	case breach.StatusCompromised:
		d.audit.LogEvent(ctx, logging.LevelWarn, st.actor(), string(cmd), "compromised")
		return protocol.Errorf(protocol.CodePasswordCompromised,
			"password found in %d known breaches, choose another", v.Count)
	case breach.StatusCheckFailed:
		if d.opts.CheckFailedPolicy == PolicyAllow {
			d.log.Warn(ctx, "breach check failed, write allowed by policy", "conn_id", st.connID, "reason", v.Reason)
			d.audit.LogEvent(ctx, logging.LevelWarn, st.actor(), string(cmd), "check_failed_allowed")
			return nil
		}
		d.audit.LogEvent(ctx, logging.LevelWarn, st.actor(), string(cmd), "check_failed")
		return protocol.Errorf(protocol.CodeCheckFailed, "could not verify password: %s", v.Reason)
	}
	d.audit.LogEvent(ctx, logging.LevelInfo, st.actor(), string(cmd), "clean")
	return nil
}

func (d *Dispatcher) write(ctx context.Context, st *State, cmd protocol.Name, label, password string) protocol.Response {
	if err := validLabel(label); err != nil {
		return protocol.Fail(err)
	}

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	if err := d.screen(ctx, st, cmd, pw); err != nil {
		return protocol.Fail(err)
	}

	sealed, err := cryptox.Seal(st.session.Key(), pw, []byte(label))
	if err != nil {
		return d.internal(ctx, st, cmd, err)
	}

	user := st.Username()
	if cmd == protocol.CmdUpdatePass {
		err = d.vault.Update(ctx, user, label, sealed)
	} else {
		err = d.vault.Put(ctx, user, label, sealed)
	}
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return protocol.Fail(protocol.Errorf(protocol.CodeEntryNotFound, "no entry named %s", label))
	case err != nil:
		return d.internal(ctx, st, cmd, err)
	}

	d.audit.LogEvent(ctx, logging.LevelInfo, user, string(cmd), "stored")
	return protocol.OK("stored")
}

func (d *Dispatcher) getPass(ctx context.Context, st *State, label string) protocol.Response {
	sealed, err := d.vault.Get(ctx, st.Username(), label)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return protocol.Fail(protocol.Errorf(protocol.CodeEntryNotFound, "no entry named %s", label))
	case err != nil:
		return d.internal(ctx, st, protocol.CmdGetPass, err)
	}

	pt, err := cryptox.Open(st.session.Key(), sealed, []byte(label))
	if err != nil {
		return d.internal(ctx, st, protocol.CmdGetPass, err)
	}
	defer common.WipeByteArray(pt)
	return protocol.OK(string(pt))
}

func (d *Dispatcher) delPass(ctx context.Context, st *State, label string) protocol.Response {
	err := d.vault.Delete(ctx, st.Username(), label)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return protocol.Fail(protocol.Errorf(protocol.CodeEntryNotFound, "no entry named %s", label))
	case err != nil:
		return d.internal(ctx, st, protocol.CmdDelPass, err)
	}
	d.audit.LogEvent(ctx, logging.LevelInfo, st.Username(), string(protocol.CmdDelPass), "deleted")
	return protocol.OK("deleted")
}

func (d *Dispatcher) listPass(ctx context.Context, st *State) protocol.Response {
	labels, err := d.vault.List(ctx, st.Username())
	if err != nil {
		return d.internal(ctx, st, protocol.CmdListPass, err)
	}
	return protocol.List(labels)
}

func (d *Dispatcher) checkPass(ctx context.Context, st *State, password string) protocol.Response {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	v := d.checker.Check(ctx, pw)
	d.audit.LogEvent(ctx, logging.LevelInfo, st.actor(), string(protocol.CmdCheckPass), v.Status.String())
	switch v.Status {
	case breach.StatusCompromised:
		return protocol.OK(fmt.Sprintf("compromised %d", v.Count))
	case breach.StatusCheckFailed:
		return protocol.Fail(protocol.Errorf(protocol.CodeCheckFailed, "could not verify password: %s", v.Reason))
	}
	return protocol.OK("clean")
}
