package renderer

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilnworks/vetro/engine/core"
	"github.com/kilnworks/vetro/engine/math"
)

// DefaultRingSize is how many frame resources are kept in rotation: the CPU
// may run up to DefaultRingSize-1 ticks ahead of the GPU before stalling.
const DefaultRingSize = 3

// Renderer drives the frame-pipelined tick: select the next frame resource,
// wait out the GPU if it still owns it, refresh dirty per-object constants
// and the pass constants, then record and submit one draw per item.
type Renderer struct {
	device Device
	meshes *MeshStore
	items  []*RenderItem
	fence  *Fence
	ring   *FrameRing
	table  *SlotTable

	width  uint32
	height uint32
}

// New validates the scene, builds the ring and slot table, and pushes the
// static geometry and per-frame resources to the device. The item set is
// immutable afterwards.
func New(device Device, meshes *MeshStore, items []*RenderItem, ringSize int, width, height uint32) (*Renderer, error) {
	if device == nil {
		return nil, fmt.Errorf("renderer requires a device")
	}
	if meshes == nil {
		return nil, fmt.Errorf("renderer requires a mesh store")
	}
	if !meshes.Frozen() {
		return nil, fmt.Errorf("mesh store must be frozen before renderer construction")
	}

	fence := NewFence()
	ring, err := NewFrameRing(ringSize, len(items), fence)
	if err != nil {
		return nil, err
	}

	table, err := BuildSlotTable(ringSize, len(items), ObjectConstantsStride)
	if err != nil {
		return nil, err
	}

	// Slot indices must form a permutation of [0, len(items)). Checked here,
	// once, so draw submission never has to.
	seen := make([]bool, len(items))
	for _, item := range items {
		if err := table.CheckSlot(item.Slot); err != nil {
			return nil, err
		}
		if seen[item.Slot] {
			return nil, fmt.Errorf("duplicate slot index %d", item.Slot)
		}
		seen[item.Slot] = true
		if item.Mesh.IndexCount == 0 {
			return nil, fmt.Errorf("item at slot %d references an empty mesh range", item.Slot)
		}
	}

	if err := device.UploadGeometry(meshes.Vertices(), meshes.Indices()); err != nil {
		return nil, fmt.Errorf("uploading geometry: %w", err)
	}
	if err := device.PrepareFrameResources(ring, table); err != nil {
		return nil, fmt.Errorf("preparing frame resources: %w", err)
	}

	return &Renderer{
		device: device,
		meshes: meshes,
		items:  items,
		fence:  fence,
		ring:   ring,
		table:  table,
		width:  width,
		height: height,
	}, nil
}

func (r *Renderer) Ring() *FrameRing {
	return r.ring
}

func (r *Renderer) SlotTable() *SlotTable {
	return r.table
}

func (r *Renderer) Items() []*RenderItem {
	return r.items
}

// OnResized propagates a surface size change to the device.
func (r *Renderer) OnResized(width, height uint32) {
	r.width = width
	r.height = height
	r.device.Resized(width, height)
}

// DrawFrame runs one tick. view comes from the host's camera layer;
// totalTime and delta feed the pass constants; mode picks the solid or
// wireframe pipeline. Synchronization failures are fatal and returned; a
// booting swapchain just skips the frame.
func (r *Renderer) DrawFrame(ctx context.Context, view PassView, totalTime, delta float64, mode FillMode) error {
	fr, err := r.ring.Advance(ctx)
	if err != nil {
		return err
	}
	frame := r.ring.Cursor()

	if err := r.updateObjectConstants(frame, fr); err != nil {
		return err
	}
	if err := r.updatePassConstants(frame, fr, view, totalTime, delta); err != nil {
		return err
	}

	// Safe to reset: Advance proved the GPU is done with this resource.
	if fr.Allocator != nil {
		if err := fr.Allocator.Reset(); err != nil {
			return fmt.Errorf("resetting command allocator: %w", err)
		}
	}

	if err := r.device.BeginFrame(frame, mode); err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			return nil
		}
		return err
	}
	if err := r.device.BindPass(frame); err != nil {
		return err
	}
	for _, item := range r.items {
		if err := r.device.DrawIndexed(frame, item.Slot, item.Mesh); err != nil {
			return err
		}
	}

	marker := r.ring.MarkSubmitted()
	return r.device.EndFrame(frame, marker)
}

// updateObjectConstants writes fresh records for every item whose dirty
// counter is still positive, into the currently selected frame resource
// only. Each tick decrements by one, so a change reaches all ring members
// in exactly ringSize ticks.
func (r *Renderer) updateObjectConstants(frame int, fr *FrameResource) error {
	for _, item := range r.items {
		if item.dirty <= 0 {
			continue
		}
		oc := ObjectConstants{World: math.NewMat4Transposed(item.world)}
		fr.ObjectConstants[item.Slot] = oc
		if err := r.device.WriteObjectConstants(frame, item.Slot, oc); err != nil {
			return fmt.Errorf("writing object constants for slot %d: %w", item.Slot, err)
		}
		item.dirty--
	}
	return nil
}

// updatePassConstants rebuilds the pass record unconditionally; the camera
// moves every tick, so there is nothing to dirty-track.
func (r *Renderer) updatePassConstants(frame int, fr *FrameResource, view PassView, totalTime, delta float64) error {
	viewProj := view.View.Mul(view.Proj)

	pc := PassConstants{
		View:        math.NewMat4Transposed(view.View),
		InvView:     math.NewMat4Transposed(view.View.Inverse()),
		Proj:        math.NewMat4Transposed(view.Proj),
		InvProj:     math.NewMat4Transposed(view.Proj.Inverse()),
		ViewProj:    math.NewMat4Transposed(viewProj),
		InvViewProj: math.NewMat4Transposed(viewProj.Inverse()),
		EyePos:      view.EyePos,
		RenderTargetSize: math.Vec2{
			X: float32(r.width),
			Y: float32(r.height),
		},
		InvRenderTargetSize: math.Vec2{
			X: 1.0 / float32(r.width),
			Y: 1.0 / float32(r.height),
		},
		NearZ:     view.NearZ,
		FarZ:      view.FarZ,
		TotalTime: float32(totalTime),
		DeltaTime: float32(delta),
	}

	fr.PassConstants = pc
	if err := r.device.WritePassConstants(frame, pc); err != nil {
		return fmt.Errorf("writing pass constants: %w", err)
	}
	return nil
}

// Shutdown waits for the GPU to reach the highest issued marker, then
// releases device resources.
func (r *Renderer) Shutdown(ctx context.Context) error {
	if err := r.ring.Drain(ctx); err != nil {
		return fmt.Errorf("draining frame ring: %w", err)
	}
	return r.device.Shutdown()
}
