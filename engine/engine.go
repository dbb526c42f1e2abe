package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kilnworks/vetro/engine/assets"
	"github.com/kilnworks/vetro/engine/core"
	"github.com/kilnworks/vetro/engine/platform"
	"github.com/kilnworks/vetro/engine/renderer"
	"github.com/kilnworks/vetro/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

const shutdownDrainTimeout = 5 * time.Second

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	clock        *core.Clock
	lastTime     float64

	width  uint32
	height uint32
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, fmt.Errorf("engine requires a game with a configuration")
	}
	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		platform:     platform.New(),
		assetManager: am,
		clock:        core.NewClock(),
		isRunning:    false,
		isSuspended:  false,
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageBooting

	config := e.gameInstance.ApplicationConfig
	core.SetLogLevel(ParseLogLevel(config.LogLevel))
	core.LogInfo("%s starting, session %s", config.Name, core.NewSessionID())

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventSystemInitialize() {
		return fmt.Errorf("event system failed to initialize")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_KEY_RELEASED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	if err := e.platform.Startup(config.Name, config.StartPosX, config.StartPosY, config.StartWidth, config.StartHeight); err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := e.assetManager.Initialize(wd + "/assets"); err != nil {
		return err
	}

	e.currentStage = EngineStageBootComplete

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitializing

	vert, err := e.assetManager.LoadShaderModule("color.vert")
	if err != nil {
		return fmt.Errorf("loading vertex shader: %w", err)
	}
	frag, err := e.assetManager.LoadShaderModule("color.frag")
	if err != nil {
		return fmt.Errorf("loading fragment shader: %w", err)
	}

	device := vulkan.New(e.platform, &vulkan.Config{
		Debug:              config.Debug,
		VertexShaderCode:   vert,
		FragmentShaderCode: frag,
	})
	if err := device.Initialize(config.Name, e.width, e.height); err != nil {
		return fmt.Errorf("initializing device: %w", err)
	}

	meshes := renderer.NewMeshStore()
	items, err := e.gameInstance.FnBuildScene(meshes)
	if err != nil {
		return fmt.Errorf("building scene: %w", err)
	}
	meshes.Freeze()

	r, err := renderer.New(device, meshes, items, config.FramesInFlight, e.width, e.height)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	e.renderer = r

	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning = true

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	const targetFrameSeconds float64 = 1.0 / 60.0

	go core.ProcessEvents()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
		}

		if e.isSuspended {
			e.platform.Sleep(100)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := platform.GetAbsoluteTime()

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("game update failed, shutting down")
			break
		}

		view, mode := e.gameInstance.FnPrepare(e.width, e.height)
		if err := e.renderer.DrawFrame(context.Background(), view, currentTime, delta, mode); err != nil {
			core.LogError("frame draw failed: %s", err)
			break
		}

		frameElapsedTime := platform.GetAbsoluteTime() - frameStartTime
		core.MetricsUpdate(frameElapsedTime)

		remaining := targetFrameSeconds - frameElapsedTime
		if remaining > 0 && e.gameInstance.ApplicationConfig.LimitFrameRate {
			e.platform.Sleep(remaining * 1000)
		}

		// Input state rolls over last; anything after this sees the next
		// frame's previous-state snapshot.
		core.InputUpdate(delta)

		e.lastTime = currentTime
	}
	e.isRunning = false

	return e.Shutdown()
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	core.LogInfo("shutting down")

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown failed: %s", err)
		}
	}

	if e.renderer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownDrainTimeout)
		defer cancel()
		if err := e.renderer.Shutdown(ctx); err != nil {
			core.LogError("renderer shutdown failed: %s", err)
		}
		e.renderer = nil
	}

	e.assetManager.Shutdown()

	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	return e.platform.Shutdown()
}

// GetFramebufferSize returns the current drawable size in pixels.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("quit event received, shutting down")
		e.isRunning = false
	}
}

func (e *Engine) onKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		return
	}
	if context.Type == core.EVENT_CODE_KEY_PRESSED && ke.KeyCode == core.KEY_ESCAPE {
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_APPLICATION_QUIT,
		})
	}
}

func (e *Engine) onResized(context core.EventContext) {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		return
	}
	if se.WindowWidth == e.width && se.WindowHeight == e.height {
		return
	}
	e.width = se.WindowWidth
	e.height = se.WindowHeight
	core.LogDebug("window resize: %d %d", e.width, e.height)

	// Minimized. Suspend until the window comes back.
	if e.width == 0 || e.height == 0 {
		core.LogInfo("window minimized, suspending application")
		e.isSuspended = true
		return
	}

	if e.isSuspended {
		core.LogInfo("window restored, resuming application")
		e.isSuspended = false
	}
	if e.renderer != nil {
		e.renderer.OnResized(e.width, e.height)
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			core.LogError("game resize handler failed: %s", err)
		}
	}
}
