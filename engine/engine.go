package engine

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/profiler"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
	"go.uber.org/zap"
)

// ErrNoRenderer is returned by NewEngine when neither a window nor a renderer is configured.
var ErrNoRenderer = errors.New("engine: a window or a renderer is required")

// engine implements the Engine interface.
// Coordinates the tick goroutine, the render goroutine and the window message loop.
type engine struct {
	tickRateChannel chan time.Duration

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window window.Window

	// the engine destroys the device and renderer it created itself
	device          gfx.Device
	renderer        renderer.Renderer
	ownsRenderer    bool
	deviceOptions   []backend.DeviceBuilderOption
	rendererOptions []renderer.RendererBuilderOption

	profiler         *profiler.Profiler
	profilerOptions  []profiler.ProfilerBuilderOption
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenesMu *sync.RWMutex
	scenes   map[int]scene.RenderScene

	renderFrameLimit atomic.Int64
}

// Engine is the main entry point for the engine.
// It orchestrates the tick loop, the render loop and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, nil for a headless engine
	Window() window.Window

	// Renderer returns the renderer that draws the registered scenes. Models, cameras and lights
	// added to those scenes must be created from its pools.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// EnableProfiler enables per-interval profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, physics and input processing.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called at the start of each render frame, before
	// the scenes are rendered.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are rendered in ascending key order during the render loop.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the scene to register
	AddScene(key int, s scene.RenderScene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.RenderScene: the scene at the key, or nil if not found
	Scene(key int) scene.RenderScene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.RenderScene: a copy of the scenes map
	Scenes() map[int]scene.RenderScene

	// RenderFrame renders one frame: the render callback, then every active scene in ascending
	// z-order between BeginFrame and EndFrame.
	//
	// Parameters:
	//   - deltaTime: seconds since the previous frame
	//
	// Returns:
	//   - error: an error if the frame could not be started
	RenderFrame(deltaTime float32) error

	// Run starts the tick and render loops and blocks until the window closes or Quit is called.
	// The engine is destroyed when Run returns.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine with the provided options. Without WithRenderer a WebGPU device
// and a renderer are created for the window's surface.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the device or renderer could not be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenesMu:        &sync.RWMutex{},
		scenes:          make(map[int]scene.RenderScene),
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}
	e.profiler = profiler.NewProfiler(e.profilerOptions...)

	if e.renderer == nil {
		if e.window == nil {
			return nil, ErrNoRenderer
		}
		width, height := e.window.Size()
		device, err := backend.NewDevice(e.window.SurfaceDescriptor(), width, height, e.deviceOptions...)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		r, err := renderer.NewRenderer(device, e.rendererOptions...)
		if err != nil {
			device.Destroy()
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.device, e.renderer, e.ownsRenderer = device, r, true
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
	}
	return e, nil
}

// resize reconfigures the swapchain and the viewport of every camera of every registered scene.
func (e *engine) resize(width, height uint32) {
	e.renderer.Resize(width, height)
	e.scenesMu.RLock()
	defer e.scenesMu.RUnlock()
	for _, s := range e.scenes {
		for _, c := range s.Cameras() {
			c.SetViewport(width, height)
		}
	}
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() {
	e.running.Store(true)
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()

	if e.window != nil {
		e.window.ProcessMessages()
		e.Quit()
	} else {
		<-e.quitChannel
	}
	e.wg.Wait()
	e.destroy()
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

func (e *engine) destroy() {
	if e.ownsRenderer {
		e.renderer.Destroy()
		e.device.Destroy()
	}
	if e.window != nil && e.window.IsRunning() {
		if err := e.window.Close(); err != nil {
			logger.Logger().Warn("engine: failed to close window", zap.Error(err))
		}
	}
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Logger().Error("engine: render goroutine recovered from panic", zap.Any("panic", r))
			e.Quit()
		}
	}()

	lastRender := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		start := time.Now()
		dt := float32(start.Sub(lastRender).Seconds())
		lastRender = start

		if err := e.RenderFrame(dt); err != nil {
			logger.Logger().Warn("engine: frame skipped", zap.Error(err))
		}

		if limit := time.Duration(e.renderFrameLimit.Load()); limit > 0 {
			if remaining := limit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (e *engine) RenderFrame(deltaTime float32) error {
	if e.renderCallback != nil {
		e.renderCallback(deltaTime)
	}
	if err := e.renderer.BeginFrame(); err != nil {
		return err
	}
	for _, s := range e.activeScenes() {
		e.renderer.Render(s)
	}
	e.renderer.EndFrame()

	if e.profilingEnabled.Load() {
		e.profiler.Tick(e.renderer.Stats())
	}
	return nil
}

// activeScenes returns the active scenes in ascending z-index order.
func (e *engine) activeScenes() []scene.RenderScene {
	e.scenesMu.RLock()
	defer e.scenesMu.RUnlock()

	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	active := make([]scene.RenderScene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)
	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// replace a pending update that the tick loop has not consumed yet
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit.Store(int64(frameInterval(fps)))
}

func (e *engine) AddScene(key int, s scene.RenderScene) {
	if s == nil {
		return
	}
	e.scenesMu.Lock()
	defer e.scenesMu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.scenesMu.Lock()
	defer e.scenesMu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.RenderScene {
	e.scenesMu.RLock()
	defer e.scenesMu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.RenderScene {
	e.scenesMu.RLock()
	defer e.scenesMu.RUnlock()
	cp := make(map[int]scene.RenderScene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
