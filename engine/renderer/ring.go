package renderer

import (
	"context"
	"fmt"
)

// FrameRing owns the fixed array of frame resources and the cursor that
// cycles through them. Selection is strictly single-threaded: one producer
// calls Advance, writes into the selected resource, submits, and stamps it.
type FrameRing struct {
	resources  []*FrameResource
	cursor     int
	nextMarker uint64
	fence      *Fence
}

func NewFrameRing(size, objectCount int, fence *Fence) (*FrameRing, error) {
	if size < 1 {
		return nil, fmt.Errorf("frame ring size must be at least 1, got %d", size)
	}
	if objectCount < 0 {
		return nil, fmt.Errorf("object count must not be negative, got %d", objectCount)
	}
	if fence == nil {
		return nil, fmt.Errorf("frame ring requires a fence")
	}
	r := &FrameRing{
		resources: make([]*FrameResource, size),
		fence:     fence,
	}
	for i := range r.resources {
		r.resources[i] = NewFrameResource(objectCount)
	}
	return r, nil
}

func (r *FrameRing) Size() int {
	return len(r.resources)
}

// Cursor returns the index of the currently selected frame resource.
func (r *FrameRing) Cursor() int {
	return r.cursor
}

func (r *FrameRing) Current() *FrameResource {
	return r.resources[r.cursor]
}

func (r *FrameRing) Resource(i int) *FrameResource {
	return r.resources[i]
}

func (r *FrameRing) Fence() *Fence {
	return r.fence
}

// Advance selects the next frame resource in cyclic order, blocking while
// the consumer is still using it. The block happens iff the resource has
// been submitted before (Marker != 0) and that submission has not completed
// yet. A fence failure is fatal to the frame loop.
func (r *FrameRing) Advance(ctx context.Context) (*FrameResource, error) {
	r.cursor = (r.cursor + 1) % len(r.resources)
	fr := r.resources[r.cursor]
	if fr.Marker != 0 && r.fence.Completed() < fr.Marker {
		if err := r.fence.WaitUntil(ctx, fr.Marker); err != nil {
			return nil, fmt.Errorf("waiting for frame resource %d (marker %d): %w", r.cursor, fr.Marker, err)
		}
	}
	return fr, nil
}

// MarkSubmitted stamps the current resource with a freshly incremented
// marker and returns the value the consumer must signal once all commands
// up to this submission have finished.
func (r *FrameRing) MarkSubmitted() uint64 {
	r.nextMarker++
	r.resources[r.cursor].Marker = r.nextMarker
	return r.nextMarker
}

// HighestMarker returns the most recently issued marker value.
func (r *FrameRing) HighestMarker() uint64 {
	return r.nextMarker
}

// Drain blocks until every issued submission has completed. Called at
// shutdown before any frame resource memory is released.
func (r *FrameRing) Drain(ctx context.Context) error {
	if r.nextMarker == 0 {
		return nil
	}
	return r.fence.WaitUntil(ctx, r.nextMarker)
}
