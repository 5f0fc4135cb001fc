package tinyg

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFlowControl_Resync(t *testing.T) {
	f := NewFlowControl(4, 4)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		b := rng.Intn(10) - 3
		exhausted := f.Resync(b)

		exp := clamp(b, 0, 4)
		assert.Equal(t, exp, f.Available(), "resync(%d)", b)
		assert.Equal(t, exp == 0, exhausted, "resync(%d)", b)
		if exp == 0 {
			assert.True(t, f.ClaimPending())
		}
		f.ReleaseClaim()
	}
}

func TestFlowControl_Claim(t *testing.T) {
	f := NewFlowControl(4, 4)
	assert.False(t, f.ClaimPending())

	f.Resync(0)
	f.Resync(0)
	assert.True(t, f.ClaimPending())

	f.ReleaseClaim()
	assert.False(t, f.ClaimPending())
	f.ReleaseClaim()
	assert.False(t, f.ClaimPending())
}

func TestFlowControl_TryAcquire(t *testing.T) {
	f := NewFlowControl(4, 2)
	assert.True(t, f.TryAcquire())
	assert.True(t, f.TryAcquire())
	assert.False(t, f.TryAcquire())
	assert.Equal(t, 0, f.Available())

	f.Resync(1)
	assert.True(t, f.TryAcquire())
}

func TestFlowControl_AcquireWaitsForResync(t *testing.T) {
	f := NewFlowControl(4, 0)

	done := make(chan error, 1)
	go func() { done <- f.Acquire() }()

	select {
	case <-done:
		t.Fatal("acquire returned with an empty pool")
	case <-time.After(quietPeriod):
	}

	f.Resync(3)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("acquire still blocked after resync")
	}
	assert.Equal(t, 2, f.Available())
}

func TestFlowControl_TeardownUnblocksWaiters(t *testing.T) {
	f := NewFlowControl(4, 0)
	f.SetOpen(true)
	f.SetPaused(true)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.Acquire()
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.WaitWhilePaused()
	}()

	time.Sleep(10 * time.Millisecond)
	f.Teardown()
	f.Teardown()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("waiters still blocked after teardown")
	}

	close(errs)
	for err := range errs {
		assert.Equal(t, ErrFlowClosed, err)
	}
	assert.False(t, f.IsOpen())
	assert.False(t, f.IsPaused())
	assert.False(t, f.TryAcquire())
	assert.Equal(t, ErrFlowClosed, f.Acquire())
}

func TestFlowControl_InterruptAndReset(t *testing.T) {
	f := NewFlowControl(4, 0)

	done := make(chan error, 1)
	go func() { done <- f.Acquire() }()
	time.Sleep(10 * time.Millisecond)
	f.Interrupt()
	assert.Equal(t, ErrFlowClosed, <-done)

	f.Resync(0)
	f.Reset(3)
	assert.False(t, f.ClaimPending())
	assert.Equal(t, 3, f.Available())
	assert.NoError(t, f.Acquire())
}

func TestFlowControl_Pause(t *testing.T) {
	f := NewFlowControl(4, 4)
	f.SetPaused(true)

	done := make(chan struct{})
	go func() {
		f.WaitWhilePaused()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("waiter returned while paused")
	case <-time.After(quietPeriod):
	}

	f.SetPaused(false)
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("waiter not woken by resume")
	}
}

func TestFlowControl_Concurrent(t *testing.T) {
	f := NewFlowControl(8, 8)
	f.SetOpen(true)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if !f.TryAcquire() {
				f.ReleaseClaim()
				if f.Acquire() != nil {
					return
				}
			}
		}
	}()
	go func() {
		defer wg.Done()
		rng := rand.New(rand.NewSource(2))
		for i := 0; i < 5000; i++ {
			f.Resync(rng.Intn(9))
			n := f.Available()
			if n < 0 || n > 8 {
				t.Errorf("available out of range: %d", n)
			}
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(stop)
	f.Teardown()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("deadlock")
	}
}
