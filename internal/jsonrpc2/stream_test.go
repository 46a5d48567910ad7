package jsonrpc2_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotlin-lsp/sidecar-bridge/internal/jsonrpc2"
)

func TestHeaderStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writer := jsonrpc2.NewHeaderStream(io.NopCloser(&bytes.Buffer{}), &buf)
	_, err := writer.Write(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"x"}`))
	require.NoError(t, err)

	reader := jsonrpc2.NewHeaderStream(bytes.NewReader(buf.Bytes()), io.Discard)
	data, n, err := reader.Read(context.Background())
	require.NoError(t, err)
	assert.Greater(t, n, int64(0))
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"x"}`, string(data))
}

func TestHeaderStreamMissingContentLength(t *testing.T) {
	reader := jsonrpc2.NewHeaderStream(bytes.NewBufferString("Foo: bar\r\n\r\n"), io.Discard)
	_, _, err := reader.Read(context.Background())
	require.Error(t, err)
}

func TestHeaderStreamUnexpectedEOF(t *testing.T) {
	reader := jsonrpc2.NewHeaderStream(bytes.NewBufferString("Content-Length: 10\r\n\r\n{\"a\":1}"), io.Discard)
	_, _, err := reader.Read(context.Background())
	require.Error(t, err)
}
