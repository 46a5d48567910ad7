package jsonrpc2

import "context"

// Direction indicates which way a message travelled through a Conn.
type Direction bool

const (
	Send    Direction = true
	Receive Direction = false
)

// Handler is invoked at each stage of request/response processing. It
// mirrors the shape of an LSP middleware chain: every handler in a Conn's
// chain sees every message, most recently added first.
type Handler interface {
	Request(ctx context.Context, conn *Conn, direction Direction, r *WireRequest) context.Context
	Response(ctx context.Context, conn *Conn, direction Direction, r *WireResponse) context.Context
	Done(ctx context.Context, err error)
	Read(ctx context.Context, bytes int64) context.Context
	Wrote(ctx context.Context, bytes int64) context.Context
	Error(ctx context.Context, err error)
	Cancel(ctx context.Context, conn *Conn, id ID, cancelled bool) bool
}

type defaultHandler struct{}

func (defaultHandler) Request(ctx context.Context, conn *Conn, direction Direction, r *WireRequest) context.Context {
	return ctx
}
func (defaultHandler) Response(ctx context.Context, conn *Conn, direction Direction, r *WireResponse) context.Context {
	return ctx
}
func (defaultHandler) Done(ctx context.Context, err error)                    {}
func (defaultHandler) Read(ctx context.Context, bytes int64) context.Context  { return ctx }
func (defaultHandler) Wrote(ctx context.Context, bytes int64) context.Context { return ctx }
func (defaultHandler) Error(ctx context.Context, err error)                   {}
func (defaultHandler) Cancel(ctx context.Context, conn *Conn, id ID, cancelled bool) bool {
	return cancelled
}

var _ Handler = defaultHandler{}
