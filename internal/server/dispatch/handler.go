package dispatch

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/protocol"
)

// Handler binds a Dispatcher to one connection's State. It is not safe for
// concurrent use; the connection layer runs one command at a time.
type Handler struct {
	d  *Dispatcher
	st *State
}

func (d *Dispatcher) NewHandler(connID string) *Handler {
	return &Handler{d: d, st: d.NewState(connID)}
}

func (h *Handler) Handle(ctx context.Context, line string) protocol.Response {
	return h.d.Dispatch(ctx, h.st, line)
}

// Close ends the connection's session. It is called once, after the last
// command on the connection has finished.
func (h *Handler) Close(ctx context.Context) {
	if user := h.st.Username(); user != "" {
		h.d.audit.LogEvent(ctx, logging.LevelInfo, user, "DISCONNECT", "session_ended")
	}
	h.st.Close()
}
