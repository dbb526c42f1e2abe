package components

import (
	"github.com/kilnworks/vetro/engine/math"
)

// OrbitCamera circles a fixed look-at target on a sphere described by
// spherical coordinates. Dragging converts pixel deltas into angle and
// radius changes; the view matrix is rebuilt lazily when read.
type OrbitCamera struct {
	// Azimuth and polar angle in radians, and the distance to the target.
	Theta  float32
	Phi    float32
	Radius float32

	Target math.Vec3

	isDirty    bool
	viewMatrix math.Mat4
	eyePos     math.Vec3
}

const (
	// Each dragged pixel is a quarter of a degree of rotation.
	rotateRadiansPerPixel = 0.25 * math.K_DEG2RAD_MULTIPLIER
	// Each dragged pixel moves the camera 0.05 scene units.
	zoomUnitsPerPixel = 0.05

	minPhi    = 0.1
	maxPhi    = math.K_PI - 0.1
	minRadius = 5.0
	maxRadius = 150.0
)

func NewOrbitCamera() *OrbitCamera {
	c := &OrbitCamera{}
	c.Reset()
	return c
}

func (c *OrbitCamera) Reset() {
	c.Theta = 1.5 * math.K_PI
	c.Phi = 0.2 * math.K_PI
	c.Radius = 15.0
	c.Target = math.NewVec3Zero()
	c.isDirty = true
}

// Rotate applies a drag of (dx, dy) pixels to the orbit angles. Phi is
// restricted away from the poles to keep the view basis well defined.
func (c *OrbitCamera) Rotate(dx, dy float32) {
	c.Theta += dx * rotateRadiansPerPixel
	c.Phi += dy * rotateRadiansPerPixel
	c.Phi = math.Clamp(c.Phi, float32(minPhi), float32(maxPhi))
	c.isDirty = true
}

// Zoom applies a drag of (dx, dy) pixels to the orbit radius.
func (c *OrbitCamera) Zoom(dx, dy float32) {
	c.Radius += (dx - dy) * zoomUnitsPerPixel
	c.Radius = math.Clamp(c.Radius, float32(minRadius), float32(maxRadius))
	c.isDirty = true
}

func (c *OrbitCamera) refresh() {
	if !c.isDirty {
		return
	}
	// Spherical to Cartesian.
	c.eyePos = math.Vec3{
		X: c.Target.X + c.Radius*math.Sin(c.Phi)*math.Cos(c.Theta),
		Y: c.Target.Y + c.Radius*math.Cos(c.Phi),
		Z: c.Target.Z + c.Radius*math.Sin(c.Phi)*math.Sin(c.Theta),
	}
	c.viewMatrix = math.NewMat4LookAt(c.eyePos, c.Target, math.NewVec3Up())
	c.isDirty = false
}

func (c *OrbitCamera) GetView() math.Mat4 {
	c.refresh()
	return c.viewMatrix
}

func (c *OrbitCamera) GetPosition() math.Vec3 {
	c.refresh()
	return c.eyePos
}
