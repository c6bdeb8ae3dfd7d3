// Package tcp is the connection multiplexer: it accepts TCP connections,
// splits their byte streams into request lines and runs each line on a
// fixed pool of worker goroutines.
//
// Every connection has a reader goroutine that parks on the runtime network
// poller until bytes arrive and a writer goroutine that drains its outbox.
// Neither ever executes a command. A connection is handed to the pool only
// when it has queued lines and no worker is already serving it, so lines
// from one connection run strictly in order while different connections
// share the workers round robin.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/protocol"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// ConnHandler executes the lines of one connection. Handle is never called
// concurrently for the same connection; Close is called exactly once, after
// the last Handle has returned.
type ConnHandler interface {
	Handle(ctx context.Context, line string) protocol.Response
	Close(ctx context.Context)
}

// HandlerFactory creates the handler for a newly accepted connection.
type HandlerFactory func(connID string) ConnHandler

type Options struct {
	Workers         int
	InboxLines      int
	OutboxResponses int
	MaxLineBytes    int
	MaxConnections  int
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration // zero disables
	Greeting        string        // first line sent on every connection, if set
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.InboxLines <= 0 {
		o.InboxLines = 16
	}
	if o.OutboxResponses <= 0 {
		o.OutboxResponses = 64
	}
	if o.MaxLineBytes < 64 {
		o.MaxLineBytes = 4096
	}
	if o.MaxConnections <= 0 {
		o.MaxConnections = 1024
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	return o
}

// Stats are cumulative counters since the server started.
type Stats struct {
	Active   int64
	Accepted int64
	Rejected int64
	Commands int64
}

type Server struct {
	address    string
	opts       Options
	newHandler HandlerFactory
	logger     logging.Logger

	mu      sync.Mutex
	conns   map[string]*conn
	closing bool

	ready  chan *conn
	connWG sync.WaitGroup

	active   *atomic.Int64
	accepted *atomic.Int64
	rejected *atomic.Int64
	commands *atomic.Int64
}

func NewServer(address string, opts Options, newHandler HandlerFactory, l logging.Logger) *Server {
	opts = opts.withDefaults()
	return &Server{
		address:    address,
		opts:       opts,
		newHandler: newHandler,
		logger:     l.With("module", "tcp_server"),
		conns:      make(map[string]*conn),
		ready:      make(chan *conn, opts.MaxConnections),
		active:     atomic.NewInt64(0),
		accepted:   atomic.NewInt64(0),
		rejected:   atomic.NewInt64(0),
		commands:   atomic.NewInt64(0),
	}
}

func (s *Server) Stats() Stats {
	return Stats{
		Active:   s.active.Load(),
		Accepted: s.accepted.Load(),
		Rejected: s.rejected.Load(),
		Commands: s.commands.Load(),
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or accepting fails.
// On return every connection is closed and every handler released.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info(ctx, "Starting TCP server", "address", ln.Addr().String(), "workers", s.opts.Workers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < s.opts.Workers; i++ {
		g.Go(func() error {
			s.work(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info(ctx, "Stopping TCP server...")
		_ = ln.Close()
		s.closeAll("server shutdown")
		return nil
	})

	g.Go(func() error {
		// a listener closed from outside stops the server too
		defer cancel()
		return s.acceptLoop(gctx, ln)
	})

	err := g.Wait()
	s.connWG.Wait()
	s.releaseAll()

	st := s.Stats()
	s.logger.Info(ctx, "TCP server stopped", "accepted", st.Accepted, "rejected", st.Rejected, "commands", st.Commands)
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var backoff time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			backoff = nextBackoff(backoff)
			s.logger.Warn(ctx, "accept failed", "error", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		backoff = 0
		s.register(ctx, nc)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		return time.Second
	}
	return d
}

func (s *Server) register(ctx context.Context, nc net.Conn) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = nc.Close()
		return
	}
	if len(s.conns) >= s.opts.MaxConnections {
		s.mu.Unlock()
		s.rejected.Inc()
		s.connWG.Add(1)
		go func() {
			defer s.connWG.Done()
			s.reject(ctx, nc)
		}()
		return
	}
	id := uuid.NewString()
	c := newConn(id, nc, s, s.newHandler(id))
	s.conns[id] = c
	s.mu.Unlock()

	s.accepted.Inc()
	s.active.Inc()
	c.log.Debug(ctx, "connection accepted", "remote", nc.RemoteAddr().String())
	c.start(ctx)
}

func (s *Server) reject(ctx context.Context, nc net.Conn) {
	defer nc.Close()
	s.logger.Warn(ctx, "connection rejected, server busy", "remote", nc.RemoteAddr().String())
	_ = nc.SetWriteDeadline(time.Now().Add(time.Second))
	resp := protocol.Fail(protocol.Errorf(protocol.CodeServerBusy,
		"too many connections (limit %d), try again later", s.opts.MaxConnections))
	_, _ = fmt.Fprintln(nc, resp.String())
}

// schedule hands c to the worker pool. The channel holds at most one entry
// per registered connection, so the send never blocks.
func (s *Server) schedule(c *conn) {
	s.ready <- c
}

func (s *Server) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-s.ready:
			c.serveOne(ctx)
		}
	}
}

func (s *Server) remove(id string) {
	s.mu.Lock()
	_, ok := s.conns[id]
	delete(s.conns, id)
	s.mu.Unlock()
	if ok {
		s.active.Dec()
	}
}

func (s *Server) snapshot() []*conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

func (s *Server) closeAll(reason string) {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	for _, c := range s.snapshot() {
		c.close(reason)
	}
}

// releaseAll frees connections whose release was left to a worker that
// has since stopped.
func (s *Server) releaseAll() {
	for _, c := range s.snapshot() {
		c.release()
	}
}
