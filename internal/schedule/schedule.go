// Package schedule models one-shot scheduled tasks with cancellable handles.
// The debounce window of the operation batcher, the post-delete prompt drain
// and the retry backoff timers of the sync manager all run through it, so
// cancelling a timer whose operation was superseded is an explicit call
// rather than an accidental race.
package schedule

import (
	"sync"
	"time"
)

// Handle is a one-shot scheduled task. The zero value is not usable; obtain
// handles via After.
type Handle struct {
	mu    sync.Mutex
	timer *time.Timer
	done  bool
}

// After schedules fn to run once on its own goroutine after d has elapsed.
func After(d time.Duration, fn func()) *Handle {
	h := &Handle{}
	h.timer = time.AfterFunc(d, func() {
		h.mu.Lock()
		h.done = true
		h.mu.Unlock()
		fn()
	})
	return h
}

// Reset re-arms the task to fire after d, whether or not it already fired.
func (h *Handle) Reset(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.done = false
	h.timer.Reset(d)
}

// Cancel stops the task. It reports whether the cancellation prevented the
// run; false means the function already ran or was already cancelled. Cancel
// does not wait for a concurrently running fn to return.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done {
		return false
	}
	h.done = true
	return h.timer.Stop()
}
