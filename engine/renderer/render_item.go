package renderer

import (
	"github.com/kilnworks/vetro/engine/math"
)

// RenderItem describes one instance to draw: a world transform, the mesh
// sub-range it draws, a stable slot into every frame resource's object
// array, and a counter of how many frame resources still hold stale
// constant data.
type RenderItem struct {
	// Slot is assigned at creation and never changes; it indexes this
	// item's record in every frame resource and in the slot table.
	Slot int
	// Mesh locates the geometry in the shared store. Never mutated.
	Mesh MeshRange

	world math.Mat4
	dirty int
	// ringSize is how many frame resources a change must propagate to.
	ringSize int
}

// NewRenderItem creates an item whose constant data starts dirty, so the
// initial transform reaches every frame resource during the first ring cycle.
func NewRenderItem(slot int, mesh MeshRange, world math.Mat4, ringSize int) *RenderItem {
	return &RenderItem{
		Slot:     slot,
		Mesh:     mesh,
		world:    world,
		dirty:    ringSize,
		ringSize: ringSize,
	}
}

// SetWorld replaces the transform and marks every frame resource stale.
func (ri *RenderItem) SetWorld(world math.Mat4) {
	ri.world = world
	ri.dirty = ri.ringSize
}

func (ri *RenderItem) World() math.Mat4 {
	return ri.world
}

// Dirty reports how many frame resources still need this item's data.
func (ri *RenderItem) Dirty() int {
	return ri.dirty
}
