package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete, content is loading in the background
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *ApplicationConfig
	renderer      *renderer.Renderer
	data          *systems.GameDataManager
	clock         *core.Clock
	lastTime      time.Duration
	isRunning     atomic.Bool
	contentLoaded atomic.Bool
}

func New(g *Game, config *ApplicationConfig) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := core.SetLogLevel(config.LogLevel); err != nil {
		core.LogWarn("unknown log level %q, keeping the default", config.LogLevel)
	}

	r := renderer.New(renderer.RendererTypeHeadless)

	data, err := systems.NewGameDataManager(config.dataManagerConfig(), r.Device(), g.hooks())
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       config,
		renderer:     r,
		data:         data,
		clock:        core.NewClock(),
	}, nil
}

// Data is the game data manager owning the asset registry and resource systems.
func (e *Engine) Data() *systems.GameDataManager {
	return e.data
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

// ContentLoaded reports whether the main thread finalize has run.
func (e *Engine) ContentLoaded() bool {
	return e.contentLoaded.Load()
}

// Initialize loads the game profile and starts loading content. The preload
// stage completes before it returns.
func (e *Engine) Initialize(ctx context.Context) error {
	e.currentStage = EngineStageInitializing

	if err := e.data.Initialize(); err != nil {
		return err
	}
	if e.config.HotReload {
		if err := e.data.EnableHotReload(); err != nil {
			core.LogWarn("hot reload disabled: %s", err)
		}
	}
	if err := e.data.LoadContent(ctx); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("%s initialized", e.config.Name)
	return nil
}

// Run drives the frame loop until ctx is done, Stop is called or a frame
// fails.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("%w: engine is not initialized", core.ErrInvalidState)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	frameRate := e.config.FrameRate
	if frameRate <= 0 {
		frameRate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		select {
		case <-ctx.Done():
			e.isRunning.Store(false)
			return nil
		case <-ticker.C:
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := (currentTime - e.lastTime).Seconds()

		if err := e.frame(delta); err != nil {
			e.isRunning.Store(false)
			return err
		}
		e.lastTime = currentTime
	}
	return nil
}

func (e *Engine) frame(delta float64) error {
	if err := e.renderer.BeginFrame(delta); err != nil {
		return err
	}

	e.data.ApplyPendingReloads()

	if !e.contentLoaded.Load() {
		ready, err := e.data.PollReady()
		if err != nil {
			core.LogError("content loading failed, shutting down.")
			return err
		}
		if ready {
			if err := e.data.AfterContentLoadedFromMainThread(); err != nil {
				return err
			}
			e.contentLoaded.Store(true)
			if e.gameInstance.FnOnContentLoaded != nil {
				if err := e.gameInstance.FnOnContentLoaded(e.data); err != nil {
					return err
				}
			}
		}
	}

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("Game update failed, shutting down.")
			return err
		}
	}

	return e.renderer.EndFrame(delta)
}

// Stop makes Run return after the current frame. Safe from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)
	e.clock.Stop()

	if err := e.data.Shutdown(); err != nil {
		return err
	}
	if err := e.renderer.Shutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageUninitialized
	return nil
}
