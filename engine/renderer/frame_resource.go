package renderer

// CommandAllocator is the scoped recording resource backing one frame's
// command stream. Reset must only be called after the GPU has finished the
// frame that last used it.
type CommandAllocator interface {
	Reset() error
}

// FrameResource is one self-contained per-frame-in-flight bundle: a CPU
// canonical copy of every object's constant record, the pass constants, the
// marker of its last submission, and its command allocator. Exactly ringSize
// of these exist for the process lifetime.
type FrameResource struct {
	// ObjectConstants is indexed by RenderItem.Slot.
	ObjectConstants []ObjectConstants
	PassConstants   PassConstants

	// Marker is the completion value stamped at this resource's last
	// submission. Zero means never submitted.
	Marker uint64

	Allocator CommandAllocator
}

func NewFrameResource(objectCount int) *FrameResource {
	return &FrameResource{
		ObjectConstants: make([]ObjectConstants, objectCount),
	}
}
