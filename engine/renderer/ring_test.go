package renderer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRing(t *testing.T, size, objectCount int) (*FrameRing, *Fence) {
	t.Helper()
	fence := NewFence()
	ring, err := NewFrameRing(size, objectCount, fence)
	require.NoError(t, err)
	return ring, fence
}

func TestNewFrameRingValidation(t *testing.T) {
	fence := NewFence()

	_, err := NewFrameRing(0, 1, fence)
	assert.Error(t, err)

	_, err = NewFrameRing(3, -1, fence)
	assert.Error(t, err)

	_, err = NewFrameRing(3, 1, nil)
	assert.Error(t, err)
}

func TestAdvanceNeverBlocksOnUnsubmittedResources(t *testing.T) {
	ring, _ := newTestRing(t, 3, 1)

	// A full first cycle finds only never-submitted resources.
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		fr, err := ring.Advance(ctx)
		require.NoError(t, err)
		assert.Zero(t, fr.Marker)
		ring.MarkSubmitted()
	}
	assert.Equal(t, uint64(3), ring.HighestMarker())
}

func TestAdvanceBlocksUntilResourceCompletes(t *testing.T) {
	ring, fence := newTestRing(t, 3, 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := ring.Advance(ctx)
		require.NoError(t, err)
		ring.MarkSubmitted()
	}

	// The next resource in cyclic order carries marker 1, still pending.
	done := make(chan error, 1)
	go func() {
		_, err := ring.Advance(ctx)
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("advance returned before the resource completed")
	case <-time.After(20 * time.Millisecond):
	}

	fence.Signal(1)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("advance did not wake after signal")
	}
}

func TestAdvanceReturnsImmediatelyWhenAlreadyComplete(t *testing.T) {
	ring, fence := newTestRing(t, 2, 1)
	ctx := context.Background()

	_, err := ring.Advance(ctx)
	require.NoError(t, err)
	ring.MarkSubmitted()
	fence.Signal(1)

	_, err = ring.Advance(ctx)
	require.NoError(t, err)
	fr, err := ring.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fr.Marker)
}

func TestAdvanceHonorsContextCancellation(t *testing.T) {
	ring, _ := newTestRing(t, 1, 1)
	ctx := context.Background()

	_, err := ring.Advance(ctx)
	require.NoError(t, err)
	ring.MarkSubmitted()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ring.Advance(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdvancePropagatesFenceFailure(t *testing.T) {
	ring, fence := newTestRing(t, 1, 1)
	ctx := context.Background()

	_, err := ring.Advance(ctx)
	require.NoError(t, err)
	ring.MarkSubmitted()

	wantErr := assert.AnError
	fence.Fail(wantErr)
	_, err = ring.Advance(ctx)
	assert.ErrorIs(t, err, wantErr)
}

func TestMarkersAreStrictlyIncreasing(t *testing.T) {
	ring, fence := newTestRing(t, 2, 1)
	ctx := context.Background()

	var last uint64
	for i := 0; i < 6; i++ {
		_, err := ring.Advance(ctx)
		require.NoError(t, err)
		m := ring.MarkSubmitted()
		assert.Equal(t, last+1, m)
		last = m
		fence.Signal(m)
	}
}

func TestDrainWaitsForHighestMarker(t *testing.T) {
	ring, fence := newTestRing(t, 2, 1)
	ctx := context.Background()

	// Nothing submitted, nothing to wait for.
	require.NoError(t, ring.Drain(ctx))

	_, err := ring.Advance(ctx)
	require.NoError(t, err)
	ring.MarkSubmitted()

	done := make(chan error, 1)
	go func() { done <- ring.Drain(ctx) }()

	select {
	case <-done:
		t.Fatal("drain returned with work outstanding")
	case <-time.After(20 * time.Millisecond):
	}

	fence.Signal(ring.HighestMarker())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("drain did not complete after signal")
	}
}

func TestRingResourcesAreDistinct(t *testing.T) {
	ring, _ := newTestRing(t, 3, 4)
	assert.Equal(t, 3, ring.Size())
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			assert.NotSame(t, ring.Resource(i), ring.Resource(j))
		}
		assert.Len(t, ring.Resource(i).ObjectConstants, 4)
	}
}
