package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/server/protocol"
)

// dialContext is a seam for tests.
var dialContext = (&net.Dialer{}).DialContext

// Reply is one decoded server response.
type Reply struct {
	OK      bool
	Code    string   // error code when !OK
	Text    string   // payload after OK, or the error message
	Items   []string // block lines for LIST-PASS and HELP
	Raw     string   // first response line as received
}

type Conn struct {
	nc          net.Conn
	r           *bufio.Reader
	w           *bufio.Writer
	readTimeout time.Duration
	greeting    string
}

// Dial connects to addr and consumes the greeting line.
func Dial(ctx context.Context, addr string, dialTimeout, readTimeout time.Duration) (*Conn, error) {
	if dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dialTimeout)
		defer cancel()
	}

	nc, err := dialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c := &Conn{nc: nc, r: bufio.NewReader(nc), w: bufio.NewWriter(nc), readTimeout: readTimeout}

	head, err := c.readLine()
	if err != nil {
		_ = nc.Close()
		return nil, err
	}
	reply, err := parseHead(head)
	if err != nil || !reply.OK || !strings.HasPrefix(reply.Text, common.ProtocolVersion) {
		_ = nc.Close()
		return nil, fmt.Errorf("%w: %q", ErrBadGreeting, head)
	}
	c.greeting = reply.Text
	return c, nil
}

// Greeting returns the server banner, e.g. "passvault/1 ready".
func (c *Conn) Greeting() string { return c.greeting }

func (c *Conn) Close() error { return c.nc.Close() }

// Do sends line and returns the server reply.
func (c *Conn) Do(line string) (Reply, error) {
	if strings.ContainsAny(line, "\r\n") {
		return Reply{}, errors.New("request must be a single line")
	}
	if _, err := c.w.WriteString(line + "\n"); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := c.w.Flush(); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	head, err := c.readLine()
	if err != nil {
		return Reply{}, err
	}
	reply, err := parseHead(head)
	if err != nil {
		return Reply{}, err
	}
	if !reply.OK || !isBlock(line) {
		return reply, nil
	}

	n, err := strconv.Atoi(reply.Text)
	if err != nil || n < 0 {
		return Reply{}, fmt.Errorf("%w: block header %q", ErrBadReply, head)
	}
	reply.Items = make([]string, 0, n)
	for range n {
		l, err := c.readLine()
		if err != nil {
			return Reply{}, err
		}
		reply.Items = append(reply.Items, l)
	}
	tail, err := c.readLine()
	if err != nil {
		return Reply{}, err
	}
	if tail != common.ListTerminator {
		return Reply{}, fmt.Errorf("%w: block of %d lines ended with %q", ErrBadReply, n, tail)
	}
	return reply, nil
}

func (c *Conn) readLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.nc.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	s, err := c.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// isBlock reports whether the request's reply is a multi-line block.
func isBlock(line string) bool {
	cmd, err := protocol.Parse(line)
	if err != nil {
		return false
	}
	return cmd.Name == protocol.CmdListPass || cmd.Name == protocol.CmdHelp
}

func parseHead(head string) (Reply, error) {
	status, rest, _ := strings.Cut(head, " ")
	switch status {
	case "OK":
		return Reply{OK: true, Text: rest, Raw: head}, nil
	case "ERR":
		code, msg, _ := strings.Cut(rest, " ")
		if code == "" {
			break
		}
		return Reply{Code: code, Text: msg, Raw: head}, nil
	}
	return Reply{}, fmt.Errorf("%w: %q", ErrBadReply, head)
}
