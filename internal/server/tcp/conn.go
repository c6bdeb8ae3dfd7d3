package tcp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/protocol"
)

type conn struct {
	id      string
	nc      net.Conn
	srv     *Server
	handler ConnHandler
	log     logging.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	pending   []string
	scheduled bool
	closed    bool
	eof       bool

	out   chan protocol.Response
	done  chan struct{}
	drain chan struct{}

	closeOnce   sync.Once
	drainOnce   sync.Once
	releaseOnce sync.Once
}

func newConn(id string, nc net.Conn, s *Server, h ConnHandler) *conn {
	c := &conn{
		id:      id,
		nc:      nc,
		srv:     s,
		handler: h,
		log:     s.logger.With("conn_id", id),
		out:     make(chan protocol.Response, s.opts.OutboxResponses),
		done:    make(chan struct{}),
		drain:   make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *conn) start(ctx context.Context) {
	if g := c.srv.opts.Greeting; g != "" {
		c.out <- protocol.OK(g)
	}
	c.srv.connWG.Add(2)
	go func() {
		defer c.srv.connWG.Done()
		c.readLoop(ctx)
	}()
	go func() {
		defer c.srv.connWG.Done()
		c.writeLoop(ctx)
	}()
}

// readLoop splits the stream into lines and queues them. It blocks while
// the inbox is full, which stops reading from the socket.
func (c *conn) readLoop(ctx context.Context) {
	br := bufio.NewReaderSize(c.nc, c.srv.opts.MaxLineBytes)
	idle := c.srv.opts.IdleTimeout
	for {
		if idle > 0 {
			_ = c.nc.SetReadDeadline(time.Now().Add(idle))
		}
		raw, err := br.ReadSlice('\n')
		if errors.Is(err, io.EOF) {
			c.peerClosed()
			return
		}
		if err != nil {
			c.close(readErrReason(err))
			return
		}

		line := strings.TrimSuffix(string(raw[:len(raw)-1]), "\r")
		if !utf8.ValidString(line) {
			c.close("invalid utf-8")
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !c.enqueue(line) {
			return
		}
	}
}

func readErrReason(err error) string {
	var ne net.Error
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		return "line too long"
	case errors.Is(err, net.ErrClosed):
		return "closed"
	case errors.As(err, &ne) && ne.Timeout():
		return "idle timeout"
	default:
		return "read error: " + err.Error()
	}
}

func (c *conn) enqueue(line string) bool {
	c.mu.Lock()
	for len(c.pending) >= c.srv.opts.InboxLines && !c.closed {
		c.cond.Wait()
	}
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.pending = append(c.pending, line)
	kick := !c.scheduled
	c.scheduled = true
	c.mu.Unlock()

	if kick {
		c.srv.schedule(c)
	}
	return true
}

// peerClosed handles EOF from the peer. Lines already received still run and
// their responses are flushed before the connection is closed.
func (c *conn) peerClosed() {
	c.mu.Lock()
	c.eof = true
	idle := !c.scheduled && !c.closed
	c.mu.Unlock()
	if idle {
		c.finish()
	}
}

// finish asks the writer to flush the outbox and close the connection.
func (c *conn) finish() {
	c.drainOnce.Do(func() { close(c.drain) })
}

// serveOne runs the oldest queued line on the calling worker and puts the
// connection back in the ready queue if more lines are waiting.
func (c *conn) serveOne(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.scheduled = false
		c.mu.Unlock()
		c.release()
		return
	}
	line := c.pending[0]
	c.pending[0] = ""
	c.pending = c.pending[1:]
	c.cond.Signal()
	c.mu.Unlock()

	// commands are not cancelled by connection or server shutdown
	resp := c.handle(context.WithoutCancel(ctx), line)
	c.srv.commands.Inc()
	c.send(resp)

	c.mu.Lock()
	switch {
	case c.closed:
		c.scheduled = false
		c.mu.Unlock()
		c.release()
	case len(c.pending) > 0:
		c.mu.Unlock()
		c.srv.schedule(c)
	default:
		c.scheduled = false
		eof := c.eof
		c.mu.Unlock()
		if eof {
			c.finish()
		}
	}
}

func (c *conn) handle(ctx context.Context, line string) (resp protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error(ctx, "handler panic", "panic", r)
			resp = protocol.Fail(errors.New("handler panic"))
		}
	}()
	return c.handler.Handle(ctx, line)
}

// send queues resp for the writer. A peer that lets the outbox fill up is
// not reading its responses and is disconnected.
func (c *conn) send(resp protocol.Response) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.out <- resp:
	default:
		c.close("outbox overflow")
	}
}

func (c *conn) writeLoop(ctx context.Context) {
	bw := bufio.NewWriter(c.nc)
	for {
		select {
		case <-c.done:
			return
		case <-c.drain:
			c.flushOutbox(bw)
			c.close("peer closed")
			return
		case resp := <-c.out:
			_ = c.nc.SetWriteDeadline(time.Now().Add(c.srv.opts.WriteTimeout))
			if err := resp.WriteTo(bw); err != nil {
				c.close("write error: " + err.Error())
				return
			}
			if len(c.out) > 0 {
				continue
			}
			if err := bw.Flush(); err != nil {
				c.close("write error: " + err.Error())
				return
			}
		}
	}
}

func (c *conn) flushOutbox(bw *bufio.Writer) {
	_ = c.nc.SetWriteDeadline(time.Now().Add(c.srv.opts.WriteTimeout))
	for {
		select {
		case resp := <-c.out:
			if err := resp.WriteTo(bw); err != nil {
				return
			}
		default:
			_ = bw.Flush()
			return
		}
	}
}

// close tears the connection down. Release of the handler is left to the
// worker when one is serving or about to serve the connection.
func (c *conn) close(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.nc.Close()

		c.mu.Lock()
		c.closed = true
		busy := c.scheduled
		c.pending = nil
		c.cond.Broadcast()
		c.mu.Unlock()

		c.log.Debug(context.Background(), "connection closed", "reason", reason)
		if !busy {
			c.release()
		}
	})
}

func (c *conn) release() {
	c.releaseOnce.Do(func() {
		c.handler.Close(context.Background())
		c.srv.remove(c.id)
	})
}
