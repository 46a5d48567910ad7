package jsonrpc2

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

type requestTimingKey struct{}

type requestTiming struct {
	method string
	start  time.Time
}

// LoggingHandler logs every request/response pair that flows through a Conn
// and measures round-trip latency. It generalizes the teacher's
// BackoffHandler into a pure observer: no sleeping, no retry state, just
// structured log lines at a verbosity the bridge's caller can filter.
type LoggingHandler struct {
	logger logr.Logger

	mu      sync.Mutex
	started map[ID]time.Time
}

func NewLoggingHandler(log logr.Logger) *LoggingHandler {
	return &LoggingHandler{logger: log, started: make(map[ID]time.Time)}
}

var _ Handler = (*LoggingHandler)(nil)

func (h *LoggingHandler) Request(ctx context.Context, conn *Conn, direction Direction, r *WireRequest) context.Context {
	if r.ID != nil {
		h.mu.Lock()
		h.started[*r.ID] = time.Now()
		h.mu.Unlock()
	}
	dir := "->"
	if direction == Receive {
		dir = "<-"
	}
	h.logger.V(6).Info("rpc request", "dir", dir, "method", r.Method)
	return context.WithValue(ctx, requestTimingKey{}, &requestTiming{method: r.Method, start: time.Now()})
}

func (h *LoggingHandler) Response(ctx context.Context, conn *Conn, direction Direction, r *WireResponse) context.Context {
	var elapsed time.Duration
	if r.ID != nil {
		h.mu.Lock()
		start, ok := h.started[*r.ID]
		if ok {
			delete(h.started, *r.ID)
		}
		h.mu.Unlock()
		if ok {
			elapsed = time.Since(start)
		}
	}
	if r.Error != nil {
		h.logger.V(4).Info("rpc error response", "code", r.Error.Code, "message", r.Error.Message, "elapsed", elapsed)
	} else {
		h.logger.V(7).Info("rpc response", "elapsed", elapsed)
	}
	return ctx
}

func (h *LoggingHandler) Done(ctx context.Context, err error) {
	timing, ok := ctx.Value(requestTimingKey{}).(*requestTiming)
	if !ok {
		return
	}
	if err != nil {
		h.logger.V(4).Info("rpc call failed", "method", timing.method, "elapsed", time.Since(timing.start), "error", err.Error())
	}
}

func (h *LoggingHandler) Read(ctx context.Context, bytes int64) context.Context  { return ctx }
func (h *LoggingHandler) Wrote(ctx context.Context, bytes int64) context.Context { return ctx }

func (h *LoggingHandler) Error(ctx context.Context, err error) {
	h.logger.Error(err, "rpc stream error")
}

func (h *LoggingHandler) Cancel(ctx context.Context, conn *Conn, id ID, cancelled bool) bool {
	return cancelled
}
