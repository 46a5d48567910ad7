package debounce_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/uri"

	"github.com/kotlin-lsp/sidecar-bridge/internal/debounce"
)

func TestCoalescesRapidChangesIntoOneAnalysis(t *testing.T) {
	var calls int32
	var lastURI atomic.Value
	analyze := func(ctx context.Context, u uri.URI) error {
		atomic.AddInt32(&calls, 1)
		lastURI.Store(u)
		return nil
	}
	d := debounce.New(logr.Discard(), func() bool { return true }, analyze)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	u := uri.File("/a.kt")
	for i := 0; i < 5; i++ {
		d.Notify(u)
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, u, lastURI.Load())
}

func TestSkipsCycleWhenNotReady(t *testing.T) {
	var calls int32
	analyze := func(ctx context.Context, u uri.URI) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	d := debounce.New(logr.Discard(), func() bool { return false }, analyze)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Notify(uri.File("/a.kt"))
	time.Sleep(debounce.Window + 100*time.Millisecond)

	assert.EqualValues(t, 0, atomic.LoadInt32(&calls))
}

func TestLatestURIWinsWhenDifferentDocumentsChange(t *testing.T) {
	var analyzed []uri.URI
	done := make(chan struct{}, 1)
	analyze := func(ctx context.Context, u uri.URI) error {
		analyzed = append(analyzed, u)
		done <- struct{}{}
		return nil
	}
	d := debounce.New(logr.Discard(), func() bool { return true }, analyze)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Notify(uri.File("/a.kt"))
	d.Notify(uri.File("/b.kt"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("analysis never fired")
	}
	require.Len(t, analyzed, 1)
	assert.Equal(t, uri.File("/b.kt"), analyzed[0])
}
