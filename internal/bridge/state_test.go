package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateWatchSetAndGet(t *testing.T) {
	w := newStateWatch(Stopped)
	assert.Equal(t, Stopped, w.get())
	w.set(Starting)
	assert.Equal(t, Starting, w.get())
}

func TestStateWatchSetSameValueDoesNotClosePrematurely(t *testing.T) {
	w := newStateWatch(Ready)
	_, ch := w.snapshot()
	w.set(Ready)
	select {
	case <-ch:
		t.Fatal("channel closed on a no-op transition")
	default:
	}
}

func TestStateWatchUnblocksWaiter(t *testing.T) {
	w := newStateWatch(Starting)
	_, ch := w.snapshot()

	done := make(chan State, 1)
	go func() {
		<-ch
		done <- w.get()
	}()

	w.set(Ready)

	select {
	case s := <-done:
		assert.Equal(t, Ready, s)
	case <-time.After(time.Second):
		t.Fatal("waiter never unblocked")
	}
}

func TestStateStringer(t *testing.T) {
	require.Equal(t, "ready", Ready.String())
	require.Equal(t, "degraded", Degraded.String())
}
