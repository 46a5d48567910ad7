package jsonrpc2

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/kotlin-lsp/sidecar-bridge/internal/errs"
)

// Stream abstracts the framed transport a Conn reads and writes.
// HeaderStream is the only implementation; tests run it over io.Pipe.
type Stream interface {
	Read(ctx context.Context) ([]byte, int64, error)
	Write(ctx context.Context, data []byte) (int64, error)
	Close() error
}

// HeaderStream frames messages with an LSP-style Content-Length header,
// separated from the JSON body by a blank line. It is safe for one reader
// goroutine and any number of writer goroutines to use concurrently:
// writes are serialized by a mutex, reads are not.
type HeaderStream struct {
	in     *bufio.Reader
	out    io.Writer
	closer io.Closer
	mu     sync.Mutex
}

// NewHeaderStream builds a Stream around a reader/writer pair, typically
// the stdout/stdin pipes of a subprocess. If in additionally implements
// io.Closer, Close closes it; out is never closed by the stream.
func NewHeaderStream(in io.Reader, out io.Writer) *HeaderStream {
	hs := &HeaderStream{in: bufio.NewReader(in), out: out}
	if c, ok := in.(io.Closer); ok {
		hs.closer = c
	}
	return hs
}

func (s *HeaderStream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// Read blocks for the next full framed message, parsing headers up to the
// blank-line separator and then reading exactly Content-Length bytes.
func (s *HeaderStream) Read(ctx context.Context) ([]byte, int64, error) {
	var contentLength int64 = -1
	var headerBytes int64
	for {
		line, err := s.in.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return nil, 0, errs.UnexpectedEOF()
			}
			return nil, 0, err
		}
		headerBytes += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, 0, errs.InvalidContentLength(value)
		}
		contentLength = n
	}
	if contentLength < 0 {
		return nil, 0, errs.MissingContentLength()
	}
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(s.in, body); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, 0, errs.UnexpectedEOF()
		}
		return nil, 0, err
	}
	return body, headerBytes + contentLength, nil
}

// Write frames data with a Content-Length header and writes it atomically
// with respect to other Write calls.
func (s *HeaderStream) Write(ctx context.Context, data []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	n, err := io.WriteString(s.out, header)
	if err != nil {
		return int64(n), err
	}
	m, err := s.out.Write(data)
	return int64(n + m), err
}

// decodeBody is a convenience used by Conn.Run to turn a raw frame body
// into the combined request/response shape.
func decodeBody(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errs.JSONParse(err)
	}
	return nil
}
