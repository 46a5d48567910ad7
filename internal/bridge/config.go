package bridge

import "time"

// FormattingTool selects which formatter the sidecar applies to
// formatting requests.
type FormattingTool string

const (
	FormattingToolKtfmt    FormattingTool = "ktfmt"
	FormattingToolKtlint   FormattingTool = "ktlint"
	FormattingToolBuiltin  FormattingTool = "builtin"
)

// TraceServer mirrors the LSP client's traceServer setting, forwarded to
// the sidecar so its own logs match the editor's verbosity choice.
type TraceServer string

const (
	TraceOff      TraceServer = "off"
	TraceMessages TraceServer = "messages"
	TraceVerbose  TraceServer = "verbose"
)

// Config is the sidecar's tunable configuration, reloadable at runtime via
// UpdateConfig without requiring a restart for most fields.
type Config struct {
	JavaHome        string         `json:"javaHome,omitempty"`
	CompilerFlags   []string       `json:"compilerFlags,omitempty"`
	FormattingTool  FormattingTool `json:"formattingTool,omitempty"`
	FormattingStyle string         `json:"formattingStyle,omitempty"`
	SidecarMaxMemory string        `json:"sidecarMaxMemory,omitempty"`
	TraceServer     TraceServer    `json:"traceServer,omitempty"`

	// ArtifactRepoAuth, if set, requests a client-credentials OAuth2 token
	// exported into the environment of the build-tool invocation the
	// resolver runs, for authenticated artifact repository access (see
	// internal/resolver).
	ArtifactRepoAuth *OAuthClientCredentials `json:"artifactRepoAuth,omitempty"`
}

// OAuthClientCredentials configures a client-credentials token fetch for a
// private artifact repository proxy.
type OAuthClientCredentials struct {
	TokenURL     string `json:"tokenUrl"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// DefaultConfig matches the sidecar's own defaults, applied when a field is
// left unset.
func DefaultConfig() Config {
	return Config{
		FormattingTool:   FormattingToolKtfmt,
		SidecarMaxMemory: "512m",
		TraceServer:      TraceOff,
	}
}

// healthCheckInterval is the period between liveness pings once the
// sidecar has left Starting (pings continue while Degraded, so a recovered
// sidecar returns to Ready).
const healthCheckInterval = 10 * time.Second

// maxConsecutiveHealthFailures is the number of consecutive failed health
// pings that moves the bridge from Ready to Degraded.
const maxConsecutiveHealthFailures = 3

// readyTimeout bounds how long WaitForReady and Request/Notify block
// waiting for the bridge to become usable before giving up, and how long
// Start's initialize handshake may take.
const readyTimeout = 30 * time.Second

// requestTimeout bounds how long a single Request/Notify call waits for
// the sidecar to respond once it has been sent.
const requestTimeout = 60 * time.Second
