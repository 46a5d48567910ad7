// Package debounce coalesces rapid-fire document changes into a single
// analysis request per document, fired after a quiet period. Only one URI
// is ever pending: a second change to the same document before the window
// elapses restarts the window rather than queuing a second analysis, and a
// change to a different document replaces whichever URI was pending -
// there is one analysis slot, not one per document.
package debounce

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"go.lsp.dev/uri"
)

// Window is the quiet period a document's changes must go unperturbed
// before an analysis cycle fires for it.
const Window = 300 * time.Millisecond

// ReadyFunc reports whether the analysis backend can currently accept a
// request. AnalyzeFunc is only invoked when this returns true at the
// moment the debounce window elapses.
type ReadyFunc func() bool

// AnalyzeFunc runs one analysis cycle for a document.
type AnalyzeFunc func(ctx context.Context, u uri.URI) error

// Debouncer owns the single pending-URI slot and the goroutine that drains
// it into AnalyzeFunc calls.
type Debouncer struct {
	logger   logr.Logger
	ready    ReadyFunc
	analyze  AnalyzeFunc
	window   time.Duration
	requests chan uri.URI
}

func New(logger logr.Logger, ready ReadyFunc, analyze AnalyzeFunc) *Debouncer {
	return &Debouncer{
		logger:   logger,
		ready:    ready,
		analyze:  analyze,
		window:   Window,
		requests: make(chan uri.URI, 64),
	}
}

// Notify schedules a document for analysis, restarting the debounce window
// if one was already pending. Safe to call from any goroutine; never
// blocks unless the internal queue has backed up far beyond normal use.
func (d *Debouncer) Notify(u uri.URI) {
	d.requests <- u
}

// Run drains the request queue until ctx is cancelled. It must be run in
// its own goroutine; callers typically supervise it with an errgroup
// alongside the bridge's own background tasks.
func (d *Debouncer) Run(ctx context.Context) error {
	var pending uri.URI
	var havePending bool
	timer := time.NewTimer(d.window)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-d.requests:
			pending = u
			havePending = true
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d.window)
		case <-timer.C:
			if !havePending {
				continue
			}
			u := pending
			havePending = false
			d.fire(ctx, u)
		}
	}
}

func (d *Debouncer) fire(ctx context.Context, u uri.URI) {
	if !d.ready() {
		d.logger.V(4).Info("skipping analysis cycle, backend not ready", "uri", u)
		return
	}
	if err := d.analyze(ctx, u); err != nil {
		d.logger.Error(err, "analysis cycle failed", "uri", u)
	}
}
