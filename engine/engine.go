// Package engine runs the clustered renderer: a fixed-rate tick loop for
// application logic, a render loop that animates the lights and renders one frame
// per iteration, and the window's message loop.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/profiler"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/window"
	"go.uber.org/zap"
)

// LightField describes a generated light set the engine can regrow at runtime.
type LightField struct {
	// Count is the initial light count, clamped to the store's capacity.
	Count     int
	Bounds    light.Bounds
	Radius    float32
	Intensity float32
	Seed      uint64

	// Speed is the animation speed in radians per second; 0 disables animation.
	Speed float32
}

// clusterSource is implemented by backends whose cluster grid is readable on the CPU.
type clusterSource interface {
	Grid() *cluster.Grid
	LastResult() cluster.Result
}

// engine implements the Engine interface.
// Coordinates the tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once
	errMu       sync.Mutex
	err         error

	window   window.Window
	renderer renderer.Renderer
	clock    func() time.Duration
	log      *zap.Logger

	// lightMu guards the field and animator, which key callbacks replace while the
	// render loop reads them.
	lightMu   sync.Mutex
	field     *LightField
	animator  *light.Animator
	animating atomic.Bool

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool
	profileInterval  time.Duration

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(timestamp time.Duration)

	renderFrameLimit time.Duration
}

// Engine is the main entry point. It orchestrates the tick loop, the render loop
// and window management around one Renderer.
type Engine interface {
	Window() window.Window
	Renderer() renderer.Renderer

	// EnableProfiler enables periodic frame statistics.
	EnableProfiler()

	// DisableProfiler disables periodic frame statistics.
	DisableProfiler()

	// SetTickRate sets the tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function receiving the frame timestamp
	SetRenderCallback(callback func(timestamp time.Duration))

	// SetRenderFrameLimit sets an optional render frame rate cap.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// SetLightCount regenerates the light field with n lights, clamped to the
	// store's capacity. It is a no-op without a light field.
	//
	// Parameters:
	//   - n: the requested light count
	SetLightCount(n int)

	// SetAnimating pauses or resumes light animation.
	SetAnimating(enabled bool)

	// RenderFrame animates the lights for timestamp and renders and presents one
	// frame on the calling goroutine.
	//
	// Parameters:
	//   - timestamp: the injected frame time
	//
	// Returns:
	//   - error: the renderer's error; renderer.ErrStaleTarget is fatal to Run
	RenderFrame(timestamp time.Duration) error

	// Run starts the tick and render loops and blocks until the window closes or
	// Quit is called. Without a window it blocks until Quit.
	//
	// Returns:
	//   - error: the error that stopped the render loop, or nil
	Run() error

	// Quit signals all engine goroutines to stop. Safe to call multiple times.
	Quit()
}

// NewEngine creates a new Engine with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the engine
//   - error: an error if no renderer was supplied
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		engineTickRate:  time.Second / 60,
		profileInterval: time.Second,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.renderer == nil {
		return nil, errors.New("engine: a renderer is required")
	}
	if e.log == nil {
		e.log = e.renderer.Context().Logger
	}
	e.log = e.log.Named("engine")
	if e.clock == nil {
		start := time.Now()
		e.clock = func() time.Duration { return time.Since(start) }
	}
	e.profiler = profiler.NewProfiler(e.log, e.profileInterval)
	e.animating.Store(e.field != nil && e.field.Speed != 0)
	if e.field != nil {
		e.SetLightCount(e.field.Count)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if err := e.renderer.Resize(uint32(width), uint32(height)); err != nil {
				e.log.Error("resize failed", zap.Error(err))
			}
		})
		e.window.SetKeyDownCallback(e.handleKey)
	}
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() error {
	e.running.Store(true)
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
	e.running.Store(false)

	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// fail records the first fatal error and signals quit.
func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.signalQuit()
}

// handle launches the tick and render goroutines.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate tick loop. Listens for rate changes via
// tickRateChannel and exits when the quit channel is closed.
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

// handleRender renders frames until quit. Any frame error stops the engine;
// panics are recovered, logged and reported through Run.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("render goroutine recovered from panic", zap.Any("panic", r))
			e.fail(fmt.Errorf("engine: render panic: %v", r))
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		start := time.Now()
		ts := e.clock()
		if err := e.RenderFrame(ts); err != nil {
			if errors.Is(err, renderer.ErrStaleTarget) {
				e.log.Error("render target is stale", zap.Error(err))
			} else {
				e.log.Error("frame failed", zap.Error(err))
			}
			e.fail(err)
			return
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (e *engine) RenderFrame(timestamp time.Duration) error {
	e.lightMu.Lock()
	if e.animator != nil && e.animating.Load() {
		e.animator.Apply(e.renderer.Context().Lights, timestamp)
	}
	e.lightMu.Unlock()

	if err := e.renderer.Frame(timestamp); err != nil {
		return err
	}
	if err := e.renderer.Present(); err != nil {
		return fmt.Errorf("engine: present: %w", err)
	}

	if e.profilingEnabled.Load() {
		if src, ok := e.renderer.Backend().(clusterSource); ok && e.renderer.Mode().Clustered() {
			e.profiler.ObserveClusters(src.LastResult(), src.Grid())
		}
		e.profiler.Tick(timestamp)
	}
	if e.renderCallback != nil {
		e.renderCallback(timestamp)
	}
	return nil
}

// handleKey maps key presses to mode, animation, light count and profiler toggles.
func (e *engine) handleKey(keyCode uint32) {
	switch keyCode {
	case common.Key1:
		e.renderer.SetMode(renderer.ModeNaive)
	case common.Key2:
		e.renderer.SetMode(renderer.ModeForwardPlus)
	case common.Key3:
		e.renderer.SetMode(renderer.ModeDeferred)
	case common.KeySpace:
		e.SetAnimating(!e.animating.Load())
	case common.KeyEqual:
		e.SetLightCount(max(1, e.renderer.Context().Lights.Count()*2))
	case common.KeyMinus:
		e.SetLightCount(e.renderer.Context().Lights.Count() / 2)
	case common.KeyP:
		if e.profilingEnabled.Load() {
			e.DisableProfiler()
		} else {
			e.EnableProfiler()
		}
	}
}

func (e *engine) SetLightCount(n int) {
	e.lightMu.Lock()
	defer e.lightMu.Unlock()
	if e.field == nil {
		return
	}
	store := e.renderer.Context().Lights
	f := e.field
	light.Scatter(store, n, f.Bounds, f.Radius, f.Intensity, f.Seed)
	if f.Speed != 0 {
		e.animator = light.NewAnimator(store, f.Bounds, f.Speed)
	}
	e.log.Info("light count set", zap.Int("lights", store.Count()), zap.Int("capacity", store.Capacity()))
}

func (e *engine) SetAnimating(enabled bool) {
	e.animating.Store(enabled)
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the tick rate. If the engine is running, the change takes effect
// immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// replace a pending update rather than block
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

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(timestamp time.Duration)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
