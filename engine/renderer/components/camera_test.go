package components

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilnworks/vetro/engine/math"
)

const tol = 1e-4

func TestOrbitCameraDefaults(t *testing.T) {
	c := NewOrbitCamera()

	assert.InDelta(t, 1.5*math.K_PI, c.Theta, tol)
	assert.InDelta(t, 0.2*math.K_PI, c.Phi, tol)
	assert.InDelta(t, 15.0, c.Radius, tol)
	assert.Equal(t, math.NewVec3Zero(), c.Target)
}

func TestOrbitCameraRotate(t *testing.T) {
	c := NewOrbitCamera()
	theta, phi := c.Theta, c.Phi

	// A 4 pixel drag is one degree.
	c.Rotate(4, 0)
	assert.InDelta(t, theta+math.K_DEG2RAD_MULTIPLIER, c.Theta, tol)
	assert.InDelta(t, phi, c.Phi, tol)

	c.Rotate(0, -4)
	assert.InDelta(t, phi-math.K_DEG2RAD_MULTIPLIER, c.Phi, tol)
}

func TestOrbitCameraPhiClamp(t *testing.T) {
	c := NewOrbitCamera()

	c.Rotate(0, 1e6)
	assert.InDelta(t, math.K_PI-0.1, c.Phi, tol)

	c.Rotate(0, -1e6)
	assert.InDelta(t, 0.1, c.Phi, tol)

	// Theta is free running.
	c.Rotate(1e6, 0)
	assert.Greater(t, c.Theta, float32(math.K_PI_2))
}

func TestOrbitCameraZoomClamp(t *testing.T) {
	c := NewOrbitCamera()

	// dx pulls out, dy pushes in.
	c.Zoom(20, 0)
	assert.InDelta(t, 16.0, c.Radius, tol)

	c.Zoom(0, 20)
	assert.InDelta(t, 15.0, c.Radius, tol)

	c.Zoom(1e6, 0)
	assert.InDelta(t, 150.0, c.Radius, tol)

	c.Zoom(0, 1e6)
	assert.InDelta(t, 5.0, c.Radius, tol)
}

func TestOrbitCameraPositionOnSphere(t *testing.T) {
	c := NewOrbitCamera()
	c.Theta = 0
	c.Phi = 0.5 * math.K_PI
	c.Radius = 10
	c.Rotate(0, 0) // mark dirty

	pos := c.GetPosition()
	assert.InDelta(t, 10.0, pos.X, tol)
	assert.InDelta(t, 0.0, pos.Y, tol)
	assert.InDelta(t, 0.0, pos.Z, tol)

	// Distance to target stays the radius wherever the camera orbits.
	c.Rotate(137, 59)
	pos = c.GetPosition()
	d := pos.Sub(c.Target).Length()
	assert.InDelta(t, 10.0, d, tol)
}

func TestOrbitCameraViewLooksAtTarget(t *testing.T) {
	c := NewOrbitCamera()
	view := c.GetView()

	// The target is straight down the view axis, Radius units away.
	target := c.Target.Transform(view)
	assert.InDelta(t, 0.0, target.X, tol)
	assert.InDelta(t, 0.0, target.Y, tol)
	assert.InDelta(t, 15.0, absf(target.Z), tol)

	// View space preserves distances; a point one unit above the target
	// stays one unit away regardless of the orbit radius.
	above := math.NewVec3(c.Target.X, c.Target.Y+1, c.Target.Z).Transform(view)
	assert.InDelta(t, 1.0, above.Distance(target), tol)
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
