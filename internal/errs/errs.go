// Package errs collects the typed error taxonomy shared by the bridge,
// protocol codec, and project resolver, as described in the error handling
// design. Each domain gets one constructor per kind; there is no inheritance,
// only wrapping with %w so errors.Is/errors.As keep working across package
// boundaries.
package errs

import "fmt"

// BridgeError is returned by the sidecar bridge's public operations.
type BridgeError struct {
	Kind    BridgeErrorKind
	Message string
	Wrapped error
}

type BridgeErrorKind int

const (
	BridgeNotReady BridgeErrorKind = iota
	BridgeCrashed
	BridgeTimeout
	BridgeMalformedResponse
	BridgeSpawnFailed
)

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge: %s", e.Message)
}

func (e *BridgeError) Unwrap() error { return e.Wrapped }

func NotReady(reason string) *BridgeError {
	return &BridgeError{Kind: BridgeNotReady, Message: fmt.Sprintf("sidecar not ready: %s", reason)}
}

func Crashed(reason string) *BridgeError {
	return &BridgeError{Kind: BridgeCrashed, Message: fmt.Sprintf("sidecar crashed: %s", reason)}
}

func Timeout(ms int64) *BridgeError {
	return &BridgeError{Kind: BridgeTimeout, Message: fmt.Sprintf("sidecar response timeout after %dms", ms)}
}

func MalformedResponse(code int64, message string) *BridgeError {
	return &BridgeError{Kind: BridgeMalformedResponse, Message: fmt.Sprintf("%d: %s", code, message)}
}

func SpawnFailed(err error) *BridgeError {
	return &BridgeError{Kind: BridgeSpawnFailed, Message: fmt.Sprintf("spawn failed: %v", err), Wrapped: err}
}

// ProtocolError is returned by the framed JSON-RPC codec.
type ProtocolError struct {
	Kind    ProtocolErrorKind
	Message string
	Wrapped error
}

type ProtocolErrorKind int

const (
	ProtocolMissingContentLength ProtocolErrorKind = iota
	ProtocolInvalidContentLength
	ProtocolContentLengthMismatch
	ProtocolJSONParse
	ProtocolUnexpectedEOF
)

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error { return e.Wrapped }

func MissingContentLength() *ProtocolError {
	return &ProtocolError{Kind: ProtocolMissingContentLength, Message: "missing Content-Length header"}
}

func InvalidContentLength(value string) *ProtocolError {
	return &ProtocolError{Kind: ProtocolInvalidContentLength, Message: fmt.Sprintf("invalid Content-Length value: %q", value)}
}

func ContentLengthMismatch(expected, actual int) *ProtocolError {
	return &ProtocolError{
		Kind:    ProtocolContentLengthMismatch,
		Message: fmt.Sprintf("content-length mismatch: expected %d, got %d", expected, actual),
	}
}

func JSONParse(err error) *ProtocolError {
	return &ProtocolError{Kind: ProtocolJSONParse, Message: fmt.Sprintf("json parse error: %v", err), Wrapped: err}
}

func UnexpectedEOF() *ProtocolError {
	return &ProtocolError{Kind: ProtocolUnexpectedEOF, Message: "unexpected EOF reading framed message"}
}

// ProjectError is returned by the project resolver.
type ProjectError struct {
	Kind    ProjectErrorKind
	Message string
	Wrapped error
}

type ProjectErrorKind int

const (
	ProjectBuildToolFailed ProjectErrorKind = iota
	ProjectNoBuildSystem
	ProjectClasspathExtraction
	ProjectJvmNotFound
)

func (e *ProjectError) Error() string {
	return fmt.Sprintf("project: %s", e.Message)
}

func (e *ProjectError) Unwrap() error { return e.Wrapped }

func BuildToolFailed(tool, detail string) *ProjectError {
	return &ProjectError{Kind: ProjectBuildToolFailed, Message: fmt.Sprintf("%s execution failed: %s", tool, detail)}
}

func NoBuildSystem(root string) *ProjectError {
	return &ProjectError{Kind: ProjectNoBuildSystem, Message: fmt.Sprintf("no build system found in %s", root)}
}

func ClasspathExtraction(detail string) *ProjectError {
	return &ProjectError{Kind: ProjectClasspathExtraction, Message: fmt.Sprintf("classpath extraction failed: %s", detail)}
}

func JvmNotFound(detail string) *ProjectError {
	return &ProjectError{Kind: ProjectJvmNotFound, Message: fmt.Sprintf("jvm not found: %s", detail)}
}

// FirstN truncates stderr-style output for error messages, matching the
// build-tool failure contract of carrying only the first ~500 chars.
func FirstN(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
