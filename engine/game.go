package engine

import (
	"github.com/kilnworks/vetro/engine/renderer"
)

// Game is the host application. The engine owns the window, the device and
// the frame loop; the game supplies the scene and per-tick simulation
// through these callbacks.
type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}

	FnInitialize Initialize
	FnBuildScene BuildScene
	FnUpdate     Update
	FnPrepare    PrepareFrame
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func() error

// BuildScene registers every mesh with the store and returns the full item
// set. Runs once, before the store is frozen; the scene cannot grow
// afterwards.
type BuildScene func(meshes *renderer.MeshStore) ([]*renderer.RenderItem, error)

type Update func(deltaTime float64) error

// PrepareFrame produces the camera view and fill mode for the tick about to
// be drawn.
type PrepareFrame func(width, height uint32) (renderer.PassView, renderer.FillMode)

type OnResize func(width uint32, height uint32) error
type Shutdown func() error
