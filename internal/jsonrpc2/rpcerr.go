package jsonrpc2

import (
	"fmt"
	"strings"
)

const (
	errFileClosed = "file already closed"
	errBrokenPipe = "broken pipe"
	oomError      = "java.lang.OutOfMemoryError"
)

// IsClosed reports whether err indicates the underlying pipe was closed,
// the shape of the error a write to the sidecar's stdin returns once the
// subprocess has exited.
func IsClosed(err error) bool {
	msg := err.Error()
	return strings.HasSuffix(msg, errFileClosed) || strings.HasSuffix(msg, errBrokenPipe)
}

// IsOOMError reports whether an RPC error's Data field carries a JVM
// OutOfMemoryError, which the bridge treats as a crash rather than a
// retryable protocol error.
func IsOOMError(err *Error) bool {
	return strings.Contains(fmt.Sprintf("%s", err.Data), oomError)
}
