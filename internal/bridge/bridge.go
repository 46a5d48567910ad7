// Package bridge implements the sidecar bridge: a supervised, bidirectional
// framed JSON-RPC channel to a long-lived compiler subprocess. The bridge
// owns the subprocess's full lifecycle - spawn, health check, crash
// detection, shutdown - and exposes a request/notify surface that blocks
// until the sidecar is usable (Ready or Degraded) rather than failing fast,
// so a burst of calls
// issued immediately after Start does not need its own retry loop.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kotlin-lsp/sidecar-bridge/internal/errs"
	"github.com/kotlin-lsp/sidecar-bridge/internal/jsonrpc2"
)

// Bridge supervises one sidecar subprocess and the JSON-RPC connection to
// it. The zero value is not usable; construct with New.
type Bridge struct {
	logger logr.Logger
	tracer trace.Tracer

	configMu sync.RWMutex
	config   Config

	state *stateWatch

	runMu          sync.Mutex
	cmd            *exec.Cmd
	conn           *jsonrpc2.Conn
	cancelRun      context.CancelFunc
	healthFailures int32
	restartCount   int32

	sidecarPath string
	workDir     string
	classpath   []string
}

// Options configures a new Bridge. SidecarPath is the sidecar jar, placed
// first on the java -cp of the compiler subprocess; Classpath and WorkDir
// are passed through from the project resolver's result.
type Options struct {
	SidecarPath string
	WorkDir     string
	Classpath   []string
	Config      Config
	Logger      logr.Logger
	Tracer      trace.Tracer
}

func New(opts Options) *Bridge {
	logger := opts.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("bridge")
	}
	return &Bridge{
		logger:      logger,
		tracer:      tracer,
		config:      opts.Config,
		state:       newStateWatch(Stopped),
		sidecarPath: opts.SidecarPath,
		workDir:     opts.WorkDir,
		classpath:   opts.Classpath,
	}
}

// State returns the bridge's current lifecycle state.
func (b *Bridge) State() State {
	return b.state.get()
}

// Start spawns the sidecar subprocess and begins supervising it. It
// returns once the subprocess has been launched, before the handshake
// completes; callers that need the sidecar to be usable should follow
// with WaitForReady.
func (b *Bridge) Start(ctx context.Context) error {
	ctx, span := b.tracer.Start(ctx, "bridge.start")
	defer span.End()

	b.runMu.Lock()
	defer b.runMu.Unlock()

	if b.state.get() != Stopped {
		return errs.NotReady("start called while bridge is " + b.state.get().String())
	}
	b.state.set(Starting)

	javaPath, err := findJava(b.config.JavaHome)
	if err != nil {
		b.state.set(Stopped)
		return err
	}

	args := []string{
		fmt.Sprintf("-Xmx%s", b.config.SidecarMaxMemory),
		"-cp", joinClasspath(b.sidecarPath, b.classpath),
		"org.jetbrains.kotlin.analyzer.sidecar.MainKt",
	}
	cmd := exec.CommandContext(context.Background(), javaPath, args...)
	cmd.Dir = b.workDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		b.state.set(Stopped)
		return errs.SpawnFailed(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		b.state.set(Stopped)
		return errs.SpawnFailed(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		b.state.set(Stopped)
		return errs.SpawnFailed(err)
	}

	if err := cmd.Start(); err != nil {
		b.state.set(Stopped)
		return errs.SpawnFailed(err)
	}

	stream := jsonrpc2.NewHeaderStream(stdout, stdin)
	conn := jsonrpc2.NewConn(stream, b.logger)
	conn.AddHandler(jsonrpc2.NewLoggingHandler(b.logger))

	runCtx, cancel := context.WithCancel(context.Background())
	b.cmd = cmd
	b.conn = conn
	b.cancelRun = cancel
	atomic.StoreInt32(&b.healthFailures, 0)

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return b.runConn(groupCtx, conn)
	})
	group.Go(func() error {
		return b.forwardStderr(groupCtx, stderr)
	})
	group.Go(func() error {
		return b.healthLoop(groupCtx)
	})

	go func() {
		err := group.Wait()
		b.onSupervisionDone(err)
	}()

	go func() {
		b.logger.V(3).Info("waiting for sidecar initialize response")
		handshakeCtx, handshakeCancel := context.WithTimeout(runCtx, readyTimeout)
		defer handshakeCancel()
		var result json.RawMessage
		if err := conn.Call(handshakeCtx, "initialize", map[string]interface{}{"rootUri": b.workDir}, &result); err != nil {
			b.logger.Error(err, "sidecar initialize handshake failed")
			b.state.set(Stopped)
			cancel()
			return
		}
		if b.state.get() == Starting {
			b.state.set(Ready)
			b.logger.Info("sidecar ready")
		}
	}()

	return nil
}

// WaitForReady blocks until the bridge reaches Ready, the context is
// cancelled, readyTimeout elapses, or the bridge settles into Stopped
// (meaning start failed or the sidecar crashed before becoming ready).
func (b *Bridge) WaitForReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	for {
		state, changed := b.state.snapshot()
		switch state {
		case Ready:
			return nil
		case Stopped:
			return errs.Crashed("bridge stopped while waiting to become ready")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// waitForUsable blocks until the bridge is Ready or Degraded (both accept
// requests, per the sidecar's health-check design: a degraded sidecar is
// still alive, just slow to answer health pings) or gives up once it is
// Stopped or readyTimeout elapses.
func (b *Bridge) waitForUsable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	for {
		state, changed := b.state.snapshot()
		switch state {
		case Ready, Degraded:
			return nil
		case Stopped:
			return errs.NotReady("bridge is stopped")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Request issues a call to the sidecar and blocks for the response. It
// first waits for the bridge to be usable (Ready or Degraded), so a caller
// racing Start does not need its own retry loop.
func (b *Bridge) Request(ctx context.Context, method string, params, result interface{}) error {
	ctx, span := b.tracer.Start(ctx, "bridge.request")
	defer span.End()

	if err := b.waitForUsable(ctx); err != nil {
		return err
	}
	conn := b.currentConn()
	if conn == nil {
		return errs.NotReady("no active sidecar connection")
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	err := conn.Call(reqCtx, method, params, result)
	if err != nil {
		if rpcErr, ok := err.(*jsonrpc2.Error); ok && jsonrpc2.IsOOMError(rpcErr) {
			b.triggerCrash(fmt.Errorf("sidecar reported OOM: %w", rpcErr))
			return errs.Crashed("sidecar out of memory")
		}
		if jsonrpc2.IsClosed(err) {
			b.triggerCrash(err)
			return errs.Crashed("sidecar connection closed")
		}
		if reqCtx.Err() != nil {
			return errs.Timeout(requestTimeout.Milliseconds())
		}
	}
	return err
}

// Notify sends a notification to the sidecar. Per design, this blocks on
// bridge readiness exactly like Request - a notification sent while the
// sidecar is still starting is held until it is usable rather than
// silently dropped or sent into a half-initialized process.
func (b *Bridge) Notify(ctx context.Context, method string, params interface{}) error {
	if err := b.waitForUsable(ctx); err != nil {
		return err
	}
	conn := b.currentConn()
	if conn == nil {
		return errs.NotReady("no active sidecar connection")
	}
	notifyCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return conn.Notify(notifyCtx, method, params)
}

// UpdateConfig replaces the bridge's configuration with cfg and, if the
// sidecar is Ready,
// forwards it as a workspace/didChangeConfiguration notification. It does
// not restart the subprocess - most fields take effect on the sidecar's
// next analysis cycle.
func (b *Bridge) UpdateConfig(ctx context.Context, cfg Config) error {
	b.configMu.Lock()
	b.config = cfg
	b.configMu.Unlock()

	if b.state.get() != Ready {
		return nil
	}
	return b.Notify(ctx, "workspace/didChangeConfiguration", map[string]interface{}{"settings": cfg})
}

// Restart explicitly tears down and respawns the sidecar. It is never
// called automatically by the health-check path - a Degraded bridge stays
// Degraded until a health ping succeeds again, a caller decides to restart
// it, or the process exits on its own.
func (b *Bridge) Restart(ctx context.Context) error {
	atomic.AddInt32(&b.restartCount, 1)
	b.state.set(Restarting)
	if err := b.Shutdown(ctx); err != nil {
		b.logger.Error(err, "error shutting down sidecar before restart")
	}
	b.state.set(Stopped)
	return b.Start(ctx)
}

// Shutdown requests a graceful sidecar exit and tears down supervision.
// It is idempotent: calling it on an already-stopped bridge is a no-op.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.runMu.Lock()
	conn := b.conn
	cmd := b.cmd
	cancel := b.cancelRun
	b.runMu.Unlock()

	if conn == nil {
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = conn.Notify(shutdownCtx, "exit", nil)

	if cancel != nil {
		cancel()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	}
	b.state.set(Stopped)
	return nil
}

func (b *Bridge) currentConn() *jsonrpc2.Conn {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	return b.conn
}

func (b *Bridge) runConn(ctx context.Context, conn *jsonrpc2.Conn) error {
	err := conn.Run(ctx)
	if err != nil && ctx.Err() == nil {
		b.logger.Error(err, "sidecar connection terminated unexpectedly")
	}
	return err
}

func (b *Bridge) forwardStderr(ctx context.Context, stderr io.ReadCloser) error {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		b.logger.Info(scanner.Text(), "source", "sidecar")
	}
	return scanner.Err()
}

func (b *Bridge) healthLoop(ctx context.Context) error {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.ping(ctx)
		}
	}
}

func (b *Bridge) ping(ctx context.Context) {
	if b.state.get() == Starting {
		return
	}
	conn := b.currentConn()
	if conn == nil {
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var pong json.RawMessage
	err := conn.Call(pingCtx, "$/ping", nil, &pong)
	if err == nil {
		atomic.StoreInt32(&b.healthFailures, 0)
		if b.state.get() == Degraded {
			b.state.set(Ready)
			b.logger.Info("sidecar health recovered")
		}
		return
	}
	failures := atomic.AddInt32(&b.healthFailures, 1)
	b.logger.V(4).Info("health ping failed", "consecutiveFailures", failures, "error", err.Error())
	if failures >= maxConsecutiveHealthFailures && b.state.get() == Ready {
		b.state.set(Degraded)
		b.logger.Info("sidecar marked degraded after consecutive health ping failures", "failures", failures)
	}
}

// triggerCrash marks the bridge Stopped after an unrecoverable transport
// failure. It does not restart the subprocess - see Restart's doc comment.
func (b *Bridge) triggerCrash(cause error) {
	if b.state.get() == Stopped {
		return
	}
	b.logger.Error(cause, "sidecar crashed")
	b.state.set(Stopped)
	b.runMu.Lock()
	if b.cancelRun != nil {
		b.cancelRun()
	}
	b.runMu.Unlock()
}

func (b *Bridge) onSupervisionDone(err error) {
	if err != nil && err != context.Canceled {
		b.triggerCrash(err)
	}
}

func joinClasspath(sidecarPath string, extra []string) string {
	entries := append([]string{sidecarPath}, extra...)
	out := entries[0]
	for _, e := range entries[1:] {
		out += classpathSeparator() + e
	}
	return out
}
