// Package geometry builds the primitive shape meshes the renderer draws.
// Every generator returns positions and counter-clockwise triangle indices;
// colors are applied when the mesh is registered, one tint per shape.
package geometry

import (
	"github.com/kilnworks/vetro/engine/math"
)

type MeshData struct {
	Positions []math.Vec3
	Indices   []uint32
}

// Tint expands the positions into color vertices with a uniform color.
func (m MeshData) Tint(color math.Vec4) []math.ColorVertex {
	out := make([]math.ColorVertex, len(m.Positions))
	for i, p := range m.Positions {
		out[i] = math.ColorVertex{Position: p, Color: color}
	}
	return out
}

// NewBox builds an axis-aligned box centered at the origin. Eight corners,
// twelve triangles.
func NewBox(width, height, depth float32) MeshData {
	w, h, d := width*0.5, height*0.5, depth*0.5

	positions := []math.Vec3{
		{X: -w, Y: -h, Z: -d},
		{X: -w, Y: h, Z: -d},
		{X: w, Y: h, Z: -d},
		{X: w, Y: -h, Z: -d},
		{X: -w, Y: -h, Z: d},
		{X: -w, Y: h, Z: d},
		{X: w, Y: h, Z: d},
		{X: w, Y: -h, Z: d},
	}

	indices := []uint32{
		// front
		0, 1, 2, 0, 2, 3,
		// back
		4, 6, 5, 4, 7, 6,
		// left
		4, 5, 1, 4, 1, 0,
		// right
		3, 2, 6, 3, 6, 7,
		// top
		1, 5, 6, 1, 6, 2,
		// bottom
		4, 0, 3, 4, 3, 7,
	}

	return MeshData{Positions: positions, Indices: indices}
}

// NewGrid builds a flat grid in the xz plane with rows*cols vertices
// covering width by depth, centered at the origin.
func NewGrid(width, depth float32, rows, cols int) MeshData {
	if rows < 2 {
		rows = 2
	}
	if cols < 2 {
		cols = 2
	}

	halfWidth := width * 0.5
	halfDepth := depth * 0.5
	dx := width / float32(cols-1)
	dz := depth / float32(rows-1)

	positions := make([]math.Vec3, 0, rows*cols)
	for i := 0; i < rows; i++ {
		z := halfDepth - float32(i)*dz
		for j := 0; j < cols; j++ {
			x := -halfWidth + float32(j)*dx
			positions = append(positions, math.Vec3{X: x, Y: 0, Z: z})
		}
	}

	indices := make([]uint32, 0, (rows-1)*(cols-1)*6)
	for i := 0; i < rows-1; i++ {
		for j := 0; j < cols-1; j++ {
			indices = append(indices,
				uint32(i*cols+j),
				uint32(i*cols+j+1),
				uint32((i+1)*cols+j),

				uint32((i+1)*cols+j),
				uint32(i*cols+j+1),
				uint32((i+1)*cols+j+1),
			)
		}
	}

	return MeshData{Positions: positions, Indices: indices}
}

// NewSphere builds a uv sphere from stacked rings between two pole
// vertices.
func NewSphere(radius float32, slices, stacks int) MeshData {
	if slices < 3 {
		slices = 3
	}
	if stacks < 2 {
		stacks = 2
	}

	positions := []math.Vec3{{X: 0, Y: radius, Z: 0}}

	phiStep := math.K_PI / float32(stacks)
	thetaStep := math.K_PI_2 / float32(slices)

	for i := 1; i < stacks; i++ {
		phi := float32(i) * phiStep
		for j := 0; j <= slices; j++ {
			theta := float32(j) * thetaStep
			positions = append(positions, math.Vec3{
				X: radius * math.Sin(phi) * math.Cos(theta),
				Y: radius * math.Cos(phi),
				Z: radius * math.Sin(phi) * math.Sin(theta),
			})
		}
	}
	positions = append(positions, math.Vec3{X: 0, Y: -radius, Z: 0})

	var indices []uint32
	// Top cap.
	for j := 1; j <= slices; j++ {
		indices = append(indices, 0, uint32(j+1), uint32(j))
	}
	// Interior rings.
	baseIndex := uint32(1)
	ringVertexCount := uint32(slices + 1)
	for i := 0; i < stacks-2; i++ {
		for j := 0; j < slices; j++ {
			a := baseIndex + uint32(i)*ringVertexCount + uint32(j)
			b := a + 1
			c := a + ringVertexCount
			d := c + 1
			indices = append(indices, a, b, c, c, b, d)
		}
	}
	// Bottom cap.
	southPole := uint32(len(positions) - 1)
	ringStart := southPole - ringVertexCount
	for j := 0; j < slices; j++ {
		indices = append(indices, southPole, ringStart+uint32(j), ringStart+uint32(j)+1)
	}

	return MeshData{Positions: positions, Indices: indices}
}

// NewCylinder builds a capped cylinder along the y axis. A zero top radius
// degenerates cleanly into a cone.
func NewCylinder(bottomRadius, topRadius, height float32, slices, stacks int) MeshData {
	if slices < 3 {
		slices = 3
	}
	if stacks < 1 {
		stacks = 1
	}

	stackHeight := height / float32(stacks)
	radiusStep := (topRadius - bottomRadius) / float32(stacks)

	var positions []math.Vec3
	for i := 0; i <= stacks; i++ {
		y := -0.5*height + float32(i)*stackHeight
		r := bottomRadius + float32(i)*radiusStep
		for j := 0; j <= slices; j++ {
			theta := float32(j) * math.K_PI_2 / float32(slices)
			positions = append(positions, math.Vec3{
				X: r * math.Cos(theta),
				Y: y,
				Z: r * math.Sin(theta),
			})
		}
	}

	var indices []uint32
	ringVertexCount := uint32(slices + 1)
	for i := 0; i < stacks; i++ {
		for j := 0; j < slices; j++ {
			a := uint32(i)*ringVertexCount + uint32(j)
			b := a + 1
			c := a + ringVertexCount
			d := c + 1
			indices = append(indices, a, c, b, b, c, d)
		}
	}

	// Bottom cap fan.
	bottomCenter := uint32(len(positions))
	positions = append(positions, math.Vec3{X: 0, Y: -0.5 * height, Z: 0})
	for j := 0; j < slices; j++ {
		indices = append(indices, bottomCenter, uint32(j), uint32(j)+1)
	}

	// Top cap fan, skipped for a degenerate apex ring.
	if topRadius > 0 {
		topCenter := uint32(len(positions))
		positions = append(positions, math.Vec3{X: 0, Y: 0.5 * height, Z: 0})
		topRingStart := uint32(stacks) * ringVertexCount
		for j := 0; j < slices; j++ {
			indices = append(indices, topCenter, topRingStart+uint32(j)+1, topRingStart+uint32(j))
		}
	}

	return MeshData{Positions: positions, Indices: indices}
}

// NewCone builds a capped cone along the y axis.
func NewCone(bottomRadius, height float32, slices int) MeshData {
	return NewCylinder(bottomRadius, 0, height, slices, 1)
}

// NewWedge builds a right-triangular prism: a box with one top edge
// collapsed onto the base.
func NewWedge(width, height, depth float32) MeshData {
	w, h, d := width*0.5, height*0.5, depth*0.5

	positions := []math.Vec3{
		{X: -w, Y: -h, Z: -d},
		{X: -w, Y: h, Z: -d},
		{X: w, Y: -h, Z: -d},
		{X: -w, Y: -h, Z: d},
		{X: -w, Y: h, Z: d},
		{X: w, Y: -h, Z: d},
	}

	indices := []uint32{
		// front and back triangles
		0, 1, 2,
		3, 5, 4,
		// slope
		1, 4, 5, 1, 5, 2,
		// left
		3, 4, 1, 3, 1, 0,
		// bottom
		3, 0, 2, 3, 2, 5,
	}

	return MeshData{Positions: positions, Indices: indices}
}

// NewPyramid builds a four-sided pyramid with a square base.
func NewPyramid(width, height, depth float32) MeshData {
	w, h, d := width*0.5, height*0.5, depth*0.5

	positions := []math.Vec3{
		{X: -w, Y: -h, Z: -d},
		{X: w, Y: -h, Z: -d},
		{X: w, Y: -h, Z: d},
		{X: -w, Y: -h, Z: d},
		{X: 0, Y: h, Z: 0},
	}

	indices := []uint32{
		// sides
		0, 4, 1,
		1, 4, 2,
		2, 4, 3,
		3, 4, 0,
		// base
		3, 0, 1, 3, 1, 2,
	}

	return MeshData{Positions: positions, Indices: indices}
}

// NewDiamond builds two pyramids joined at a square equator.
func NewDiamond(width, height, depth float32) MeshData {
	w, h, d := width*0.5, height*0.5, depth*0.5

	positions := []math.Vec3{
		{X: -w, Y: 0, Z: -d},
		{X: w, Y: 0, Z: -d},
		{X: w, Y: 0, Z: d},
		{X: -w, Y: 0, Z: d},
		{X: 0, Y: h, Z: 0},
		{X: 0, Y: -h, Z: 0},
	}

	indices := []uint32{
		// upper half
		0, 4, 1,
		1, 4, 2,
		2, 4, 3,
		3, 4, 0,
		// lower half
		1, 5, 0,
		2, 5, 1,
		3, 5, 2,
		0, 5, 3,
	}

	return MeshData{Positions: positions, Indices: indices}
}

// NewTriPrism builds a triangular prism along the z axis with an isosceles
// cross section.
func NewTriPrism(width, height, depth float32) MeshData {
	w, h, d := width*0.5, height*0.5, depth*0.5

	positions := []math.Vec3{
		{X: -w, Y: -h, Z: -d},
		{X: 0, Y: h, Z: -d},
		{X: w, Y: -h, Z: -d},
		{X: -w, Y: -h, Z: d},
		{X: 0, Y: h, Z: d},
		{X: w, Y: -h, Z: d},
	}

	indices := []uint32{
		// front and back triangles
		0, 1, 2,
		3, 5, 4,
		// left slope
		3, 4, 1, 3, 1, 0,
		// right slope
		1, 4, 5, 1, 5, 2,
		// bottom
		3, 0, 2, 3, 2, 5,
	}

	return MeshData{Positions: positions, Indices: indices}
}
