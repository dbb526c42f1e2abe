package renderer

import (
	"fmt"

	"github.com/kilnworks/vetro/engine/math"
)

// ShapeID identifies one registered shape. IDs are assigned densely at load
// time so hot-path lookups are a slice index, never a map probe.
type ShapeID int

// MeshRange locates one shape inside the store's concatenated buffers.
type MeshRange struct {
	IndexCount uint32
	StartIndex uint32
	BaseVertex int32
}

// MeshStore owns a single concatenated vertex buffer and a single
// concatenated index buffer for every shape in the scene. Read-only once
// frozen; shared across frames without locks.
type MeshStore struct {
	vertices []math.ColorVertex
	indices  []uint32
	ranges   []MeshRange
	names    []string
	frozen   bool
}

func NewMeshStore() *MeshStore {
	return &MeshStore{}
}

// Register appends the shape's geometry to the concatenated buffers and
// returns its ShapeID. The name is kept for diagnostics only.
func (s *MeshStore) Register(name string, vertices []math.ColorVertex, indices []uint32) (ShapeID, error) {
	if s.frozen {
		return 0, fmt.Errorf("mesh store is frozen, cannot register %q", name)
	}
	if len(vertices) == 0 || len(indices) == 0 {
		return 0, fmt.Errorf("shape %q has empty geometry", name)
	}

	r := MeshRange{
		IndexCount: uint32(len(indices)),
		StartIndex: uint32(len(s.indices)),
		BaseVertex: int32(len(s.vertices)),
	}

	s.vertices = append(s.vertices, vertices...)
	s.indices = append(s.indices, indices...)
	s.ranges = append(s.ranges, r)
	s.names = append(s.names, name)

	return ShapeID(len(s.ranges) - 1), nil
}

// Freeze marks the store immutable. Must be called before the buffers are
// handed to the device.
func (s *MeshStore) Freeze() {
	s.frozen = true
}

func (s *MeshStore) Frozen() bool {
	return s.frozen
}

// Range resolves a ShapeID to its buffer sub-range.
func (s *MeshStore) Range(id ShapeID) (MeshRange, error) {
	if id < 0 || int(id) >= len(s.ranges) {
		return MeshRange{}, fmt.Errorf("shape id %d out of range (have %d shapes)", id, len(s.ranges))
	}
	return s.ranges[id], nil
}

func (s *MeshStore) Name(id ShapeID) string {
	if id < 0 || int(id) >= len(s.names) {
		return ""
	}
	return s.names[id]
}

func (s *MeshStore) ShapeCount() int {
	return len(s.ranges)
}

// Vertices returns the concatenated vertex buffer. Callers must not mutate.
func (s *MeshStore) Vertices() []math.ColorVertex {
	return s.vertices
}

// Indices returns the concatenated index buffer. Callers must not mutate.
func (s *MeshStore) Indices() []uint32 {
	return s.indices
}
