// Package jsonrpc2 implements the framed JSON-RPC 2.0 codec the sidecar
// bridge uses to talk to the compiler subprocess: Content-Length framed
// messages over the subprocess's stdio, a pending-request table keyed by
// request id, and a small handler chain for cross-cutting concerns like
// logging.
package jsonrpc2

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
)

// RequestFunc handles an incoming call or notification from the other end
// of the connection. For a call (req.ID != nil) the returned value is
// marshalled into the response; the returned error becomes a response
// error. For a notification (req.ID == nil) both return values are ignored.
type RequestFunc func(ctx context.Context, req *WireRequest) (interface{}, error)

// Conn is a JSON-RPC 2.0 connection over a Stream. It is bidirectional: the
// same Conn both issues calls/notifications to the peer and answers calls
// the peer issues back, which is how the bridge's health check and the
// compiler's own server-initiated notifications share one pipe.
type Conn struct {
	seq        int64 // atomic
	handlers   []Handler
	stream     Stream
	pendingMu  sync.Mutex
	pending    map[ID]chan *WireResponse
	logger     logr.Logger
	onRequest  RequestFunc
}

// NewConn creates a new connection around the supplied stream. Call Run to
// start pumping incoming frames; Run must be called exactly once.
func NewConn(s Stream, log logr.Logger) *Conn {
	return &Conn{
		handlers: []Handler{defaultHandler{}},
		stream:   s,
		pending:  make(map[ID]chan *WireResponse),
		logger:   log,
	}
}

// AddHandler adds a handler to the chain. Handlers added later run first.
func (c *Conn) AddHandler(h Handler) {
	c.handlers = append([]Handler{h}, c.handlers...)
}

// OnRequest registers the function invoked for calls and notifications
// initiated by the peer. Only one may be registered; a second call
// replaces the first.
func (c *Conn) OnRequest(f RequestFunc) {
	c.onRequest = f
}

// Notify sends a notification; it returns once the message is written, no
// response is expected.
func (c *Conn) Notify(ctx context.Context, method string, params interface{}) (err error) {
	jsonParams, err := marshalToRaw(params)
	if err != nil {
		return fmt.Errorf("marshalling notify parameters: %w", err)
	}
	request := &WireRequest{Method: method, Params: jsonParams}
	data, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshalling notify request: %w", err)
	}
	for _, h := range c.handlers {
		ctx = h.Request(ctx, c, Send, request)
	}
	defer func() {
		for _, h := range c.handlers {
			h.Done(ctx, err)
		}
	}()
	n, err := c.stream.Write(ctx, data)
	for _, h := range c.handlers {
		ctx = h.Wrote(ctx, n)
	}
	return err
}

// UnmarshalError wraps a response body that failed to decode into the
// caller's result type.
type UnmarshalError struct {
	JSON string
	Err  error
}

func (e *UnmarshalError) Error() string {
	return fmt.Sprintf("jsonrpc2: cannot unmarshal %q into result: %v", e.JSON, e.Err)
}

func (e *UnmarshalError) Unwrap() error { return e.Err }

// Call sends a request and blocks for its response. result, if non-nil,
// receives the decoded response payload.
func (c *Conn) Call(ctx context.Context, method string, params, result interface{}) (err error) {
	id := ID{Number: atomic.AddInt64(&c.seq, 1)}
	jsonParams, err := marshalToRaw(params)
	if err != nil {
		return fmt.Errorf("marshalling call parameters: %w", err)
	}
	request := &WireRequest{ID: &id, Method: method, Params: jsonParams}
	data, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshalling call request: %w", err)
	}
	for _, h := range c.handlers {
		ctx = h.Request(ctx, c, Send, request)
	}

	rchan := make(chan *WireResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = rchan
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		for _, h := range c.handlers {
			h.Done(ctx, err)
		}
	}()

	n, err := c.stream.Write(ctx, data)
	for _, h := range c.handlers {
		ctx = h.Wrote(ctx, n)
	}
	if err != nil {
		return err
	}

	select {
	case response := <-rchan:
		for _, h := range c.handlers {
			ctx = h.Response(ctx, c, Receive, response)
		}
		if response.Error != nil {
			return response.Error
		}
		if result == nil || response.Result == nil {
			return nil
		}
		if err := json.Unmarshal(*response.Result, result); err != nil {
			return &UnmarshalError{JSON: string(*response.Result), Err: err}
		}
		return nil
	case <-ctx.Done():
		cancelled := false
		for _, h := range c.handlers {
			if h.Cancel(ctx, c, id, cancelled) {
				cancelled = true
			}
		}
		return ctx.Err()
	}
}

// combined decodes either a request, a notification, or a response; the
// caller distinguishes by which fields are populated.
type combined struct {
	VersionTag VersionTag       `json:"jsonrpc"`
	ID         *ID              `json:"id,omitempty"`
	Method     string           `json:"method"`
	Params     *json.RawMessage `json:"params,omitempty"`
	Result     *json.RawMessage `json:"result,omitempty"`
	Error      *Error           `json:"error,omitempty"`
}

// Run pumps incoming frames until the stream closes or the context is
// cancelled, dispatching responses to their waiting Call and incoming
// calls/notifications to the registered RequestFunc. It must be called
// exactly once and blocks until the connection ends.
func (c *Conn) Run(runCtx context.Context) error {
	c.logger.V(5).Info("starting jsonrpc2 connection")
	baseCtx := runCtx
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-baseCtx.Done():
			_ = c.stream.Close() // unblock a pending Read
		case <-stop:
		}
	}()
	for {
		data, n, err := c.stream.Read(runCtx)
		if err != nil {
			if ctxErr := baseCtx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		for _, h := range c.handlers {
			runCtx = h.Read(runCtx, n)
		}
		msg := &combined{}
		if err := decodeBody(data, msg); err != nil {
			for _, h := range c.handlers {
				h.Error(runCtx, err)
			}
			continue
		}
		switch {
		case msg.ID != nil && msg.Method == "":
			c.dispatchResponse(runCtx, msg)
		case msg.Method != "":
			c.dispatchIncoming(runCtx, msg)
		default:
			for _, h := range c.handlers {
				h.Error(runCtx, fmt.Errorf("jsonrpc2: message is neither a call, notification, nor response"))
			}
		}
	}
}

func (c *Conn) dispatchResponse(ctx context.Context, msg *combined) {
	c.pendingMu.Lock()
	rchan, ok := c.pending[*msg.ID]
	if ok {
		delete(c.pending, *msg.ID)
	}
	c.pendingMu.Unlock()
	if !ok {
		return
	}
	rchan <- &WireResponse{Result: msg.Result, Error: msg.Error, ID: msg.ID}
	close(rchan)
}

func (c *Conn) dispatchIncoming(ctx context.Context, msg *combined) {
	req := &WireRequest{ID: msg.ID, Method: msg.Method, Params: msg.Params}
	for _, h := range c.handlers {
		ctx = h.Request(ctx, c, Receive, req)
	}
	if c.onRequest == nil {
		if msg.ID != nil {
			c.writeError(ctx, *msg.ID, NewErrorf(CodeMethodNotFound, "method not found: %s", msg.Method))
		}
		return
	}
	result, err := c.onRequest(ctx, req)
	if msg.ID == nil {
		return // notification, no response expected
	}
	if err != nil {
		c.writeError(ctx, *msg.ID, asWireError(err))
		return
	}
	raw, merr := marshalToRaw(result)
	if merr != nil {
		c.writeError(ctx, *msg.ID, NewErrorf(CodeInternalError, "marshalling result: %v", merr))
		return
	}
	if raw == nil {
		null := json.RawMessage("null")
		raw = &null
	}
	resp := &WireResponse{ID: msg.ID, Result: raw}
	data, merr := json.Marshal(resp)
	if merr != nil {
		return
	}
	_, _ = c.stream.Write(ctx, data)
}

func (c *Conn) writeError(ctx context.Context, id ID, rpcErr *Error) {
	resp := &WireResponse{ID: &id, Error: rpcErr}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_, _ = c.stream.Write(ctx, data)
}

func asWireError(err error) *Error {
	if rpcErr, ok := err.(*Error); ok {
		return rpcErr
	}
	return NewErrorf(CodeInternalError, "%v", err)
}

// NewErrorf builds an Error for the supplied code and formatted message.
func NewErrorf(code int64, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func marshalToRaw(obj interface{}) (*json.RawMessage, error) {
	if obj == nil {
		return nil, nil
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	raw := json.RawMessage(data)
	return &raw, nil
}
