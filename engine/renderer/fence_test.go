package renderer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFenceSignalIsMonotonic(t *testing.T) {
	f := NewFence()
	assert.Zero(t, f.Completed())

	f.Signal(5)
	assert.Equal(t, uint64(5), f.Completed())

	// A lower value never rolls the fence back.
	f.Signal(3)
	assert.Equal(t, uint64(5), f.Completed())

	f.Signal(8)
	assert.Equal(t, uint64(8), f.Completed())
}

func TestFenceWaitUntilReturnsForReachedValue(t *testing.T) {
	f := NewFence()
	f.Signal(2)
	require.NoError(t, f.WaitUntil(context.Background(), 2))
	require.NoError(t, f.WaitUntil(context.Background(), 1))
}

func TestFenceWaitUntilBlocksUntilSignaled(t *testing.T) {
	f := NewFence()

	done := make(chan error, 1)
	go func() { done <- f.WaitUntil(context.Background(), 4) }()

	select {
	case <-done:
		t.Fatal("wait returned before the value was reached")
	case <-time.After(20 * time.Millisecond):
	}

	f.Signal(4)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not wake after signal")
	}
}

func TestFenceWaitUntilHonorsContext(t *testing.T) {
	f := NewFence()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.WaitUntil(ctx, 1) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("wait did not observe cancellation")
	}
}

func TestFenceFailWakesAllWaiters(t *testing.T) {
	f := NewFence()

	const waiters = 4
	var wg sync.WaitGroup
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.WaitUntil(context.Background(), 100)
		}()
	}

	f.Fail(assert.AnError)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, assert.AnError)
	}

	// Failure is permanent.
	assert.ErrorIs(t, f.WaitUntil(context.Background(), 1), assert.AnError)
}

func TestFenceConcurrentSignalers(t *testing.T) {
	f := NewFence()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			f.Signal(v)
		}(uint64(i))
	}
	wg.Wait()

	assert.Equal(t, uint64(50), f.Completed())
}
