package jsonrpc2_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotlin-lsp/sidecar-bridge/internal/jsonrpc2"
)

// pipePair wires two Conns together over in-memory pipes, as if one side
// were the bridge and the other were the compiler subprocess.
func pipePair(t *testing.T) (client, server *jsonrpc2.Conn) {
	t.Helper()
	cr, sw := io.Pipe()
	sr, cw := io.Pipe()

	clientStream := jsonrpc2.NewHeaderStream(cr, cw)
	serverStream := jsonrpc2.NewHeaderStream(sr, sw)

	client = jsonrpc2.NewConn(clientStream, logr.Discard())
	server = jsonrpc2.NewConn(serverStream, logr.Discard())

	go client.Run(context.Background())
	go server.Run(context.Background())

	t.Cleanup(func() {
		cr.Close()
		cw.Close()
		sr.Close()
		sw.Close()
	})
	return client, server
}

func TestCallReceivesResult(t *testing.T) {
	client, server := pipePair(t)
	server.OnRequest(func(ctx context.Context, req *jsonrpc2.WireRequest) (interface{}, error) {
		require.Equal(t, "ping", req.Method)
		return map[string]string{"pong": "ok"}, nil
	})

	var result map[string]string
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := client.Call(ctx, "ping", nil, &result)
	require.NoError(t, err)
	assert.Equal(t, "ok", result["pong"])
}

func TestCallPropagatesServerError(t *testing.T) {
	client, server := pipePair(t)
	server.OnRequest(func(ctx context.Context, req *jsonrpc2.WireRequest) (interface{}, error) {
		return nil, jsonrpc2.NewErrorf(jsonrpc2.CodeInvalidParams, "bad param: %s", "x")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := client.Call(ctx, "doThing", nil, nil)
	require.Error(t, err)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeInvalidParams), rpcErr.Code)
}

func TestCallTimesOutWhenNoResponse(t *testing.T) {
	client, server := pipePair(t)
	block := make(chan struct{})
	defer close(block)
	server.OnRequest(func(ctx context.Context, req *jsonrpc2.WireRequest) (interface{}, error) {
		<-block
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := client.Call(ctx, "slow", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNotifyDeliveredWithoutResponse(t *testing.T) {
	client, server := pipePair(t)
	received := make(chan string, 1)
	server.OnRequest(func(ctx context.Context, req *jsonrpc2.WireRequest) (interface{}, error) {
		received <- req.Method
		return nil, nil
	})

	err := client.Notify(context.Background(), "didOpen", map[string]string{"uri": "file:///a.kt"})
	require.NoError(t, err)

	select {
	case method := <-received:
		assert.Equal(t, "didOpen", method)
	case <-time.After(time.Second):
		t.Fatal("notification never delivered")
	}
}

func TestMethodNotFoundWhenNoHandlerRegistered(t *testing.T) {
	client, _ := pipePair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := client.Call(ctx, "unregistered", nil, nil)
	require.Error(t, err)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)
}
