package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/passvault/internal/client/client"
	"github.com/dmitrijs2005/passvault/internal/client/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	sent    []string
	replies map[string]client.Reply
	err     error
	closed  bool
}

func (f *fakeConn) Do(line string) (client.Reply, error) {
	f.sent = append(f.sent, line)
	if f.err != nil {
		return client.Reply{}, f.err
	}
	return f.replies[line], nil
}

func (f *fakeConn) Greeting() string { return "passvault/1 ready" }
func (f *fakeConn) Close() error     { f.closed = true; return nil }

func newTestApp(replies map[string]client.Reply) (*App, *fakeConn, *bytes.Buffer) {
	fc := &fakeConn{replies: replies}
	out := &bytes.Buffer{}
	return &App{config: &config.Config{ServerAddr: "x:1"}, conn: fc, out: out}, fc, out
}

func TestExec_PromptsForMissingPasswords(t *testing.T) {
	stubPassword(t, "typed pw", nil)

	tests := []struct {
		line string
		sent string
	}{
		{line: "REGISTER alice", sent: "REGISTER alice typed pw"},
		{line: "login   alice", sent: "login alice typed pw"},
		{line: "ADD-PASS email", sent: "ADD-PASS email typed pw"},
		{line: "update-pass email", sent: "update-pass email typed pw"},
		{line: "CHECK-PASS", sent: "CHECK-PASS typed pw"},
		{line: "ADD-PASS email  given  ", sent: "ADD-PASS email  given  "},
		{line: "LOGIN alice given", sent: "LOGIN alice given"},
		{line: "GET-PASS email", sent: "GET-PASS email"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			a, fc, _ := newTestApp(nil)
			require.NoError(t, a.Exec(context.Background(), tt.line))
			assert.Equal(t, []string{tt.sent}, fc.sent)
		})
	}
}

func TestExec_EmptyPasswordNotSent(t *testing.T) {
	stubPassword(t, "", nil)
	a, fc, _ := newTestApp(nil)

	err := a.Exec(context.Background(), "LOGIN alice")
	assert.ErrorIs(t, err, errEmptyPassword)
	assert.Empty(t, fc.sent)
}

func TestExec_PasswordReadError(t *testing.T) {
	stubPassword(t, "", errors.New("not a terminal"))
	a, fc, _ := newTestApp(nil)

	assert.Error(t, a.Exec(context.Background(), "CHECK-PASS"))
	assert.Empty(t, fc.sent)
}

func TestExec_RendersReplies(t *testing.T) {
	a, _, out := newTestApp(map[string]client.Reply{
		"GET-PASS email": {OK: true, Text: "P@ss"},
		"LOGOUT":         {OK: true},
		"LIST-PASS":      {OK: true, Text: "2", Items: []string{"email", "bank"}},
		"HELP":           {OK: true, Text: "0", Items: []string{}},
		"GET-PASS nope":  {Code: "EntryNotFound", Text: "no entry named nope"},
	})
	ctx := context.Background()

	for _, l := range []string{"GET-PASS email", "LOGOUT", "LIST-PASS", "HELP", "GET-PASS nope"} {
		require.NoError(t, a.Exec(ctx, l))
	}
	assert.Equal(t, "P@ss\nOK\nemail\nbank\n(empty)\nerror (EntryNotFound): no entry named nope\n", out.String())
}

func TestExec_TracksLogin(t *testing.T) {
	a, _, _ := newTestApp(map[string]client.Reply{
		"LOGIN alice pw": {OK: true, Text: "session 1"},
		"LOGIN bob bad":  {Code: "AuthenticationFailed", Text: "invalid username or password"},
		"LOGOUT":         {OK: true, Text: "logged out"},
	})
	ctx := context.Background()

	assert.Equal(t, "(anonymous)", a.status())
	require.NoError(t, a.Exec(ctx, "LOGIN alice pw"))
	assert.Equal(t, "(alice)", a.status())
	require.NoError(t, a.Exec(ctx, "LOGIN bob bad"))
	assert.Equal(t, "(alice)", a.status())
	require.NoError(t, a.Exec(ctx, "LOGOUT"))
	assert.Equal(t, "(anonymous)", a.status())
}

func TestExec_TransportError(t *testing.T) {
	a, fc, _ := newTestApp(nil)
	fc.err = client.ErrUnavailable
	assert.ErrorIs(t, a.Exec(context.Background(), "PING"), client.ErrUnavailable)
}

func TestNewApp_UsesDialer(t *testing.T) {
	orig := dialServer
	t.Cleanup(func() { dialServer = orig })

	fc := &fakeConn{}
	dialServer = func(ctx context.Context, c *config.Config) (conn, error) { return fc, nil }
	a, err := NewApp(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.Same(t, fc, a.conn)

	dialServer = func(ctx context.Context, c *config.Config) (conn, error) { return nil, client.ErrUnavailable }
	_, err = NewApp(context.Background(), &config.Config{})
	assert.ErrorIs(t, err, client.ErrUnavailable)
}
