package tinyg

import (
	"errors"
	"sync"
)

// ErrFlowClosed is returned from Acquire once the pool was interrupted
// by a stop request or torn down.
var ErrFlowClosed = errors.New("flow control closed")

// FlowControl coordinates the status reader and the upload streamer.
//
// It owns the credit pool (free command slots on the controller), the claim
// signal, and the open/running/paused flags. Each flag has its own lock; the
// paused flag also owns the condition pause waiters sleep on.
type FlowControl struct {
	max int

	creditMx    sync.Mutex
	creditCond  *sync.Cond
	available   int
	interrupted bool
	torn        bool

	// claim holds at most one pending signal.
	claim chan struct{}

	openMx sync.Mutex
	open   bool

	runMx   sync.Mutex
	running bool

	pauseMx   sync.Mutex
	pauseCond *sync.Cond
	paused    bool
}

// NewFlowControl creates a pool of max slots with initial credits available.
func NewFlowControl(max, initial int) *FlowControl {
	f := &FlowControl{
		max:       max,
		available: clamp(initial, 0, max),
		claim:     make(chan struct{}, 1),
	}
	f.creditCond = sync.NewCond(&f.creditMx)
	f.pauseCond = sync.NewCond(&f.pauseMx)
	return f
}

func clamp(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// Available returns the current number of credits.
func (f *FlowControl) Available() int {
	f.creditMx.Lock()
	defer f.creditMx.Unlock()
	return f.available
}

// TryAcquire takes one credit if one is available.
func (f *FlowControl) TryAcquire() bool {
	f.creditMx.Lock()
	defer f.creditMx.Unlock()
	if f.interrupted || f.torn || f.available == 0 {
		return false
	}
	f.available--
	return true
}

// Acquire takes one credit, waiting for a resync if the pool is empty.
//
// It returns ErrFlowClosed instead of a credit after Interrupt or Teardown.
func (f *FlowControl) Acquire() error {
	f.creditMx.Lock()
	defer f.creditMx.Unlock()
	for {
		if f.interrupted || f.torn {
			return ErrFlowClosed
		}
		if f.available > 0 {
			f.available--
			return nil
		}
		f.creditCond.Wait()
	}
}

// Resync sets the pool to the controller-reported free count, clipped to
// [0, max], and reports whether the pool is now exhausted. Exhaustion raises
// the claim signal.
func (f *FlowControl) Resync(free int) (exhausted bool) {
	f.creditMx.Lock()
	defer f.creditMx.Unlock()

	free = clamp(free, 0, f.max)
	if free > f.available {
		f.creditCond.Broadcast()
	}
	f.available = free

	if f.available == 0 {
		f.raiseClaim()
		return true
	}
	return false
}

func (f *FlowControl) raiseClaim() {
	select {
	case f.claim <- struct{}{}:
	default:
	}
}

// ClaimPending reports whether a claim signal is waiting to be released.
func (f *FlowControl) ClaimPending() bool { return len(f.claim) > 0 }

// ReleaseClaim drains the claim signal without blocking.
func (f *FlowControl) ReleaseClaim() {
	select {
	case <-f.claim:
	default:
	}
}

// Reset prepares the pool for a new upload job.
func (f *FlowControl) Reset(initial int) {
	f.creditMx.Lock()
	f.available = clamp(initial, 0, f.max)
	f.interrupted = false
	f.creditMx.Unlock()
	f.ReleaseClaim()
}

// Interrupt makes every current and future Acquire return ErrFlowClosed
// until the next Reset.
func (f *FlowControl) Interrupt() {
	f.creditMx.Lock()
	f.interrupted = true
	f.creditCond.Broadcast()
	f.creditMx.Unlock()
}

// Teardown forces the session closed and wakes every waiter. It is safe to
// call more than once and concurrently with any other method.
func (f *FlowControl) Teardown() {
	f.SetOpen(false)

	f.creditMx.Lock()
	f.torn = true
	f.available = f.max
	f.creditCond.Broadcast()
	f.creditMx.Unlock()

	f.ReleaseClaim()
	f.SetPaused(false)
}

// SetOpen marks the session open or closed.
func (f *FlowControl) SetOpen(v bool) {
	f.openMx.Lock()
	f.open = v
	f.openMx.Unlock()
}

// IsOpen reports whether the session is open; the status reader loops while it is.
func (f *FlowControl) IsOpen() bool {
	f.openMx.Lock()
	defer f.openMx.Unlock()
	return f.open
}

// SetRunning marks an upload job active or stopped.
func (f *FlowControl) SetRunning(v bool) {
	f.runMx.Lock()
	f.running = v
	f.runMx.Unlock()
}

// IsRunning reports whether an upload job is active.
func (f *FlowControl) IsRunning() bool {
	f.runMx.Lock()
	defer f.runMx.Unlock()
	return f.running
}

// SetPaused sets the paused flag; clearing it wakes every pause waiter.
func (f *FlowControl) SetPaused(v bool) {
	f.pauseMx.Lock()
	f.paused = v
	if !v {
		f.pauseCond.Broadcast()
	}
	f.pauseMx.Unlock()
}

// IsPaused reports whether the upload is held.
func (f *FlowControl) IsPaused() bool {
	f.pauseMx.Lock()
	defer f.pauseMx.Unlock()
	return f.paused
}

// WaitWhilePaused blocks until the paused flag is clear.
func (f *FlowControl) WaitWhilePaused() {
	f.pauseMx.Lock()
	for f.paused {
		f.pauseCond.Wait()
	}
	f.pauseMx.Unlock()
}
