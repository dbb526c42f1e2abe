package renderer

import (
	"github.com/kilnworks/vetro/engine/math"
)

type FillMode uint8

const (
	FillModeSolid FillMode = iota
	FillModeWireframe
)

// Device is the GPU boundary. The renderer drives it through a fixed
// per-tick protocol: reset the frame's allocator, BeginFrame (transitions
// and clears), BindPass, one DrawIndexed per item, EndFrame (close, submit,
// present, signal the marker on the renderer's fence).
//
// Write methods mirror the CPU-canonical constant records into GPU-visible
// memory for one frame index; they are only called for dirty items, which
// is what keeps redundant uploads off the bus.
type Device interface {
	Initialize(applicationName string, width, height uint32) error
	Shutdown() error

	// Resized notifies the device that the drawable surface changed.
	Resized(width, height uint32)

	// UploadGeometry transfers the mesh store's concatenated buffers to
	// device-local memory. Called once, after the store is frozen.
	UploadGeometry(vertices []math.ColorVertex, indices []uint32) error

	// PrepareFrameResources allocates per-frame GPU memory and descriptors
	// for the ring and table, and installs a CommandAllocator on every
	// frame resource. Called once, after the scene is fixed.
	PrepareFrameResources(ring *FrameRing, table *SlotTable) error

	WriteObjectConstants(frameIndex, slot int, data ObjectConstants) error
	WritePassConstants(frameIndex int, data PassConstants) error

	// BeginFrame acquires the next image and starts recording into the
	// frame's command stream. May return core.ErrSwapchainBooting while the
	// surface is being recreated, in which case the frame is skipped.
	BeginFrame(frameIndex int, mode FillMode) error

	// BindPass binds the pass-constant descriptor for this frame. Once per
	// frame, before any draws.
	BindPass(frameIndex int) error

	// DrawIndexed binds the object descriptor at the table index derived
	// from (frameIndex, slot) and issues one indexed draw of the range.
	DrawIndexed(frameIndex, slot int, mesh MeshRange) error

	// EndFrame closes the command stream, submits it, presents, and
	// arranges for marker to be signaled on the renderer's fence once the
	// GPU has consumed everything up to this submission.
	EndFrame(frameIndex int, marker uint64) error
}
