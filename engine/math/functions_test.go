package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const tol = 1e-5

func TestMat4MulIdentity(t *testing.T) {
	m := NewMat4Translation(NewVec3(1, 2, 3)).Mul(NewMat4Scale(NewVec3(2, 2, 2)))
	id := NewMat4Identity()

	assert.Equal(t, m, m.Mul(id))
	assert.Equal(t, m, id.Mul(m))
}

func TestMat4TransposeRoundTrip(t *testing.T) {
	m := NewMat4Scale(NewVec3(2, 3, 4)).
		Mul(NewMat4EulerX(0.7)).
		Mul(NewMat4Translation(NewVec3(-5, 6, 7)))

	assert.Equal(t, m, NewMat4Transposed(NewMat4Transposed(m)))

	tr := NewMat4Transposed(m)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			assert.Equal(t, m.Data[row*4+col], tr.Data[col*4+row])
		}
	}
}

func TestMat4ScaleThenTranslatePoint(t *testing.T) {
	// Row vector convention: scale applies before the translation.
	m := NewMat4Scale(NewVec3(2, 2, 2)).Mul(NewMat4Translation(NewVec3(10, 0, 0)))
	p := NewVec3(1, 1, 1).Transform(m)

	assert.InDelta(t, 12.0, p.X, tol)
	assert.InDelta(t, 2.0, p.Y, tol)
	assert.InDelta(t, 2.0, p.Z, tol)
}

func TestMat4InverseRecoversPoint(t *testing.T) {
	m := NewMat4EulerXYZ(0.3, -0.8, 1.2).Mul(NewMat4Translation(NewVec3(4, -2, 9)))
	p := NewVec3(1, 2, 3)

	q := p.Transform(m).Transform(m.Inverse())
	assert.InDelta(t, p.X, q.X, 1e-3)
	assert.InDelta(t, p.Y, q.Y, 1e-3)
	assert.InDelta(t, p.Z, q.Z, 1e-3)
}

func TestMat4LookAtMapsEyeToOrigin(t *testing.T) {
	eye := NewVec3(0, 0, -10)
	view := NewMat4LookAt(eye, NewVec3Zero(), NewVec3Up())

	o := eye.Transform(view)
	assert.InDelta(t, 0.0, o.X, tol)
	assert.InDelta(t, 0.0, o.Y, tol)
	assert.InDelta(t, 0.0, o.Z, tol)

	// Each basis axis must be unit length no matter how far the eye sits
	// from the target.
	for i, axis := range [][3]float32{
		{view.Data[0], view.Data[4], view.Data[8]},
		{view.Data[1], view.Data[5], view.Data[9]},
		{view.Data[2], view.Data[6], view.Data[10]},
	} {
		length := NewVec3(axis[0], axis[1], axis[2]).Length()
		assert.InDeltaf(t, 1.0, length, tol, "axis %d", i)
	}
}

func TestMat4LookAtPreservesDistances(t *testing.T) {
	eye := NewVec3(0, 0, -15)
	view := NewMat4LookAt(eye, NewVec3Zero(), NewVec3Up())

	// A point one unit above the target lands one unit off the view axis,
	// not scaled by the eye distance.
	p := NewVec3(0, 1, 0).Transform(view)
	assert.InDelta(t, 0.0, p.X, tol)
	assert.InDelta(t, 1.0, p.Y, tol)
	assert.InDelta(t, -15.0, p.Z, tol)
}

func TestSinCosWrappers(t *testing.T) {
	assert.InDelta(t, 0.0, Sin(0), tol)
	assert.InDelta(t, 1.0, Cos(0), tol)
	assert.InDelta(t, 1.0, Sin(K_HALF_PI), tol)
	assert.InDelta(t, -1.0, Cos(K_PI), tol)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(5), Clamp(float32(3), 5, 10))
	assert.Equal(t, float32(10), Clamp(float32(12), 5, 10))
	assert.Equal(t, float32(7), Clamp(float32(7), 5, 10))
	assert.Equal(t, 3, Clamp(3, 1, 8))
}

func TestAngleConversions(t *testing.T) {
	assert.InDelta(t, K_PI, DegToRad(180), tol)
	assert.InDelta(t, 180.0, RadToDeg(K_PI), tol)
	assert.InDelta(t, K_QUARTER_PI, DegToRad(45), tol)
}
