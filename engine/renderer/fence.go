package renderer

import (
	"context"
	"sync"
)

// Fence is a monotonic completion marker: the consumer signals ever-higher
// values as work finishes, the producer waits until a value is reached. The
// rest of the pipeline is agnostic to what drives it.
type Fence struct {
	mu        sync.Mutex
	cond      *sync.Cond
	completed uint64
	err       error
}

func NewFence() *Fence {
	f := &Fence{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Signal publishes that all work up to value has completed. Values must be
// non-decreasing; a lower value is ignored.
func (f *Fence) Signal(value uint64) {
	f.mu.Lock()
	if value > f.completed {
		f.completed = value
		f.cond.Broadcast()
	}
	f.mu.Unlock()
}

// Fail wakes all waiters with a permanent error. Used on device loss, after
// which no forward progress is possible.
func (f *Fence) Fail(err error) {
	f.mu.Lock()
	if f.err == nil {
		f.err = err
		f.cond.Broadcast()
	}
	f.mu.Unlock()
}

// Completed returns the highest signaled value.
func (f *Fence) Completed() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// WaitUntil blocks until the fence reaches value, the fence fails, or the
// context is cancelled. The wait itself is unbounded; this is the
// backpressure point that stops the producer racing ahead.
func (f *Fence) WaitUntil(ctx context.Context, value uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	for f.completed < value && f.err == nil && ctx.Err() == nil {
		f.cond.Wait()
	}
	if f.err != nil {
		return f.err
	}
	return ctx.Err()
}
