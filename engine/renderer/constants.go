package renderer

import (
	"github.com/kilnworks/vetro/engine/math"
)

// ObjectConstants is the per-object record each frame resource keeps one
// copy of per render item. The world matrix is stored transposed, in the
// layout the shaders consume.
type ObjectConstants struct {
	World math.Mat4
}

// PassConstants is the per-pass record rewritten unconditionally every tick.
// All matrices are stored transposed.
type PassConstants struct {
	View        math.Mat4
	InvView     math.Mat4
	Proj        math.Mat4
	InvProj     math.Mat4
	ViewProj    math.Mat4
	InvViewProj math.Mat4

	EyePos math.Vec3
	// Explicit pad so the vec2 pair below lands on an 8-byte boundary, the
	// same offsets std140 assigns.
	_                   [4]byte
	RenderTargetSize    math.Vec2
	InvRenderTargetSize math.Vec2
	NearZ               float32
	FarZ                float32
	TotalTime           float32
	DeltaTime           float32
}

// Uniform records are padded to the minimum offset alignment most desktop
// GPUs report, so slot offsets stay valid regardless of the actual device.
const constantAlignment = 256

// ObjectConstantsStride is the padded byte size of one ObjectConstants slot.
const ObjectConstantsStride = constantAlignment // one Mat4 fits well inside

// PassConstantsStride is the padded byte size of one PassConstants slot.
// Six matrices plus scalars: 6*64 + 48 = 432, padded up.
const PassConstantsStride = 2 * constantAlignment

// PassView is what the host's camera layer supplies once per tick. The
// renderer derives inverses and combined matrices itself.
type PassView struct {
	View   math.Mat4
	Proj   math.Mat4
	EyePos math.Vec3
	NearZ  float32
	FarZ   float32
}
