package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnworks/vetro/engine/math"
)

// requireValidMesh checks the structural invariants every generator must
// hold: triangle lists, all indices in range, no degenerate empty mesh.
func requireValidMesh(t *testing.T, m MeshData) {
	t.Helper()
	require.NotEmpty(t, m.Positions)
	require.NotEmpty(t, m.Indices)
	require.Zero(t, len(m.Indices)%3, "index count %d is not a triangle list", len(m.Indices))
	for i, idx := range m.Indices {
		require.Less(t, int(idx), len(m.Positions), "index %d out of range at position %d", idx, i)
	}
}

func TestGeneratorsProduceValidMeshes(t *testing.T) {
	cases := []struct {
		name string
		mesh MeshData
	}{
		{"box", NewBox(1, 1, 1)},
		{"grid", NewGrid(75, 75, 60, 20)},
		{"sphere", NewSphere(0.5, 20, 20)},
		{"cylinder", NewCylinder(0.5, 0.4, 3, 20, 20)},
		{"cone", NewCone(0.5, 1, 10)},
		{"wedge", NewWedge(2, 2, 2)},
		{"pyramid", NewPyramid(2, 2, 2)},
		{"diamond", NewDiamond(2, 2, 2)},
		{"triPrism", NewTriPrism(2, 2, 2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requireValidMesh(t, tc.mesh)
		})
	}
}

func TestBoxCounts(t *testing.T) {
	box := NewBox(2, 4, 6)
	assert.Len(t, box.Positions, 8)
	assert.Len(t, box.Indices, 36)

	// Corners sit at the half extents.
	for _, p := range box.Positions {
		assert.Equal(t, float32(1), absf(p.X))
		assert.Equal(t, float32(2), absf(p.Y))
		assert.Equal(t, float32(3), absf(p.Z))
	}
}

func TestGridCounts(t *testing.T) {
	grid := NewGrid(75, 75, 60, 20)
	assert.Len(t, grid.Positions, 60*20)
	assert.Len(t, grid.Indices, 59*19*6)

	// Flat in the xz plane, inside the half extents.
	for _, p := range grid.Positions {
		assert.Zero(t, p.Y)
		assert.LessOrEqual(t, absf(p.X), float32(37.5)+1e-3)
		assert.LessOrEqual(t, absf(p.Z), float32(37.5)+1e-3)
	}
}

func TestGridMinimumDimensions(t *testing.T) {
	grid := NewGrid(1, 1, 0, 0)
	assert.Len(t, grid.Positions, 4)
	assert.Len(t, grid.Indices, 6)
}

func TestSphereVerticesOnRadius(t *testing.T) {
	const radius = 0.5
	sphere := NewSphere(radius, 20, 20)

	for i, p := range sphere.Positions {
		assert.InDelta(t, radius, p.Length(), 1e-4, "vertex %d off the sphere", i)
	}
	// Poles present.
	assert.Equal(t, float32(radius), sphere.Positions[0].Y)
	assert.Equal(t, float32(-radius), sphere.Positions[len(sphere.Positions)-1].Y)
}

func TestCylinderSpansHeight(t *testing.T) {
	cyl := NewCylinder(0.5, 0.4, 3, 20, 20)

	var minY, maxY float32
	for _, p := range cyl.Positions {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	assert.InDelta(t, -1.5, minY, 1e-4)
	assert.InDelta(t, 1.5, maxY, 1e-4)
}

func TestConeHasNoTopCap(t *testing.T) {
	slices := 10
	cone := NewCone(0.5, 1, slices)
	cyl := NewCylinder(0.5, 0.4, 1, slices, 1)

	// The degenerate apex ring drops the top center vertex and its fan.
	assert.Equal(t, len(cyl.Positions)-1, len(cone.Positions))
	assert.Equal(t, len(cyl.Indices)-slices*3, len(cone.Indices))
}

func TestTintAppliesUniformColor(t *testing.T) {
	box := NewBox(1, 1, 1)
	color := math.NewVec4Create(1, 0.5, 0.25, 1)

	verts := box.Tint(color)
	require.Len(t, verts, len(box.Positions))
	for i, v := range verts {
		assert.Equal(t, box.Positions[i], v.Position)
		assert.Equal(t, color, v.Color)
	}
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
