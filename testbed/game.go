package testbed

import (
	"fmt"

	"github.com/kilnworks/vetro/engine"
	"github.com/kilnworks/vetro/engine/core"
	"github.com/kilnworks/vetro/engine/geometry"
	"github.com/kilnworks/vetro/engine/math"
	"github.com/kilnworks/vetro/engine/renderer"
	"github.com/kilnworks/vetro/engine/renderer/components"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	WorldCamera *components.OrbitCamera

	width  uint32
	height uint32
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
		},
	}
	tg.State = &gameState{
		WorldCamera: components.NewOrbitCamera(),
		width:       config.StartWidth,
		height:      config.StartHeight,
	}
	tg.FnInitialize = tg.initialize
	tg.FnBuildScene = tg.buildScene
	tg.FnUpdate = tg.update
	tg.FnPrepare = tg.prepare
	tg.FnOnResize = tg.onResize
	tg.FnShutdown = tg.shutdown
	return tg
}

func (g *TestGame) initialize() error {
	core.LogInfo("shapes scene starting")
	return nil
}

// Named web colors used by the shapes, one flat color per mesh.
var (
	colorDarkSlateGray = math.NewVec4Create(0.184314, 0.309804, 0.309804, 1.0)
	colorForestGreen   = math.NewVec4Create(0.133333, 0.545098, 0.133333, 1.0)
	colorCrimson       = math.NewVec4Create(0.862745, 0.078431, 0.235294, 1.0)
	colorGreenYellow   = math.NewVec4Create(0.678431, 1.0, 0.184314, 1.0)
	colorRed           = math.NewVec4Create(1.0, 0.0, 0.0, 1.0)
	colorYellow        = math.NewVec4Create(1.0, 1.0, 0.0, 1.0)
	colorPeachPuff     = math.NewVec4Create(1.0, 0.854902, 0.725490, 1.0)
	colorPurple        = math.NewVec4Create(0.501961, 0.0, 0.501961, 1.0)
	colorOrange        = math.NewVec4Create(1.0, 0.647059, 0.0, 1.0)
)

// buildScene registers the nine shape meshes and lays out the walled
// courtyard: perimeter walls and gate boxes, a central platform with a
// pyramid, corner towers with cones, and decorative shapes around the gate.
func (g *TestGame) buildScene(meshes *renderer.MeshStore) ([]*renderer.RenderItem, error) {
	ringSize := g.ApplicationConfig.FramesInFlight

	register := func(name string, data geometry.MeshData, color math.Vec4) (renderer.MeshRange, error) {
		id, err := meshes.Register(name, data.Tint(color), data.Indices)
		if err != nil {
			return renderer.MeshRange{}, fmt.Errorf("registering %s: %w", name, err)
		}
		return meshes.Range(id)
	}

	box, err := register("box", geometry.NewBox(1.0, 1.0, 1.0), colorDarkSlateGray)
	if err != nil {
		return nil, err
	}
	grid, err := register("grid", geometry.NewGrid(75.0, 75.0, 60, 20), colorForestGreen)
	if err != nil {
		return nil, err
	}
	sphere, err := register("sphere", geometry.NewSphere(0.5, 20, 20), colorCrimson)
	if err != nil {
		return nil, err
	}
	cylinder, err := register("cylinder", geometry.NewCylinder(0.5, 0.4, 3.0, 20, 20), colorGreenYellow)
	if err != nil {
		return nil, err
	}
	cone, err := register("cone", geometry.NewCone(0.5, 1.0, 10), colorRed)
	if err != nil {
		return nil, err
	}
	wedge, err := register("wedge", geometry.NewWedge(2.0, 2.0, 2.0), colorYellow)
	if err != nil {
		return nil, err
	}
	pyramid, err := register("pyramid", geometry.NewPyramid(2.0, 2.0, 2.0), colorPeachPuff)
	if err != nil {
		return nil, err
	}
	diamond, err := register("diamond", geometry.NewDiamond(2.0, 2.0, 2.0), colorPurple)
	if err != nil {
		return nil, err
	}
	triPrism, err := register("triPrism", geometry.NewTriPrism(2.0, 2.0, 2.0), colorOrange)
	if err != nil {
		return nil, err
	}

	st := func(sx, sy, sz, tx, ty, tz float32) math.Mat4 {
		return math.NewMat4Scale(math.NewVec3(sx, sy, sz)).
			Mul(math.NewMat4Translation(math.NewVec3(tx, ty, tz)))
	}

	type placement struct {
		mesh  renderer.MeshRange
		world math.Mat4
	}

	placements := []placement{
		// Walls.
		{box, st(50, 10, 1, 0, 5, 25)},
		{box, st(1, 10, 50, 25, 5, 0)},
		{box, st(1, 10, 50, -25, 5, 0)},
		{box, st(15, 7, 1, 17.5, 3.5, -25)},
		{box, st(15, 7, 2, -17.5, 3.5, -25)},
		// Gate posts, lintel and step.
		{box, st(5, 7, 4, 4, 3.5, -26)},
		{box, st(5, 7, 4, -4, 3.5, -26)},
		{box, st(4, 1, 4, 0, 6.5, -26)},
		{box, st(4, 2, 4, 0, 1, -26)},
		// Central platform.
		{box, st(20, 2, 20, 0, 1, 0)},
		// Ground.
		{grid, math.NewMat4Identity()},
		// Gate decoration.
		{wedge, st(1, 1, 1, 0, 1, -11)},
		// Central pyramid.
		{pyramid, st(7.5, 7.5, 7.5, 0, 9.5, 0)},
		// Tower-top diamonds.
		{diamond, st(1, 1, 1, 25, 22, 25)},
		{diamond, st(1, 1, 1, -25, 22, -25)},
		{diamond, st(1, 1, 1, -25, 22, 25)},
		{diamond, st(1, 1, 1, 25, 22, -25)},
		// Prisms by the gate, the second tipped onto its side.
		{triPrism, st(1, 1, 1, 0, 1, -29)},
		{triPrism, math.NewMat4EulerX(1.51).
			Mul(math.NewMat4Translation(math.NewVec3(0, 1, -23)))},
		// Corner towers.
		{cylinder, st(7, 5, 7, 25, 7.5, 25)},
		{cylinder, st(7, 5, 7, 25, 7.5, -25)},
		{cylinder, st(7, 5, 7, -25, 7.5, -25)},
		{cylinder, st(7, 5, 7, -25, 7.5, 25)},
		// Gate towers.
		{cylinder, st(8, 3, 8, 7, 4.5, -25)},
		{cylinder, st(8, 3, 8, -7, 4.5, -25)},
		// Tower roofs.
		{cone, st(10, 5, 10, 25, 17.5, 25)},
		{cone, st(10, 5, 10, -25, 17.5, -25)},
		{cone, st(10, 5, 10, 25, 17.5, -25)},
		{cone, st(10, 5, 10, -25, 17.5, 25)},
		{cone, st(10, 5, 10, 7, 11.5, -25)},
		{cone, st(10, 5, 10, -7, 11.5, -25)},
		// Sphere floating above the pyramid.
		{sphere, st(2, 2, 2, 0, 17, 0)},
	}

	items := make([]*renderer.RenderItem, 0, len(placements))
	for slot, p := range placements {
		items = append(items, renderer.NewRenderItem(slot, p.mesh, p.world, ringSize))
	}
	return items, nil
}

// update polls the mouse and steers the orbit camera: left drag rotates,
// right drag zooms.
func (g *TestGame) update(deltaTime float64) error {
	state := g.State.(*gameState)

	x, y := core.InputGetMousePosition()
	px, py := core.InputGetPreviousMousePosition()
	dx := float32(x - px)
	dy := float32(y - py)

	if core.InputIsButtonDown(core.BUTTON_LEFT) {
		state.WorldCamera.Rotate(dx, dy)
	} else if core.InputIsButtonDown(core.BUTTON_RIGHT) {
		state.WorldCamera.Zoom(dx, dy)
	}
	return nil
}

// prepare snapshots the camera for the tick. Wireframe while "1" is held.
func (g *TestGame) prepare(width, height uint32) (renderer.PassView, renderer.FillMode) {
	state := g.State.(*gameState)

	mode := renderer.FillModeSolid
	if core.InputIsKeyDown(core.KEY_1) {
		mode = renderer.FillModeWireframe
	}

	const nearZ, farZ float32 = 1.0, 1000.0
	aspect := float32(width) / float32(height)

	return renderer.PassView{
		View:   state.WorldCamera.GetView(),
		Proj:   math.NewMat4Perspective(math.K_QUARTER_PI, aspect, nearZ, farZ),
		EyePos: state.WorldCamera.GetPosition(),
		NearZ:  nearZ,
		FarZ:   farZ,
	}, mode
}

func (g *TestGame) onResize(width, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) shutdown() error {
	core.LogInfo("shapes scene shutting down")
	return nil
}
