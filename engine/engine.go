package engine

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/profiler"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/processor"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
	"github.com/gogpu/gputypes"
)

// engine implements the Engine interface.
// Coordinates the producer, execution and window threads.
type engine struct {
	renderer  renderer.Renderer
	processor processor.CommandProcessor

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)

	listenersMu *sync.Mutex
	listeners   []snapshot.Listener

	clearColor gputypes.Color
	resolution [2]uint32 // used when there is no window

	renderFrameLimit atomic.Int64 // minimum frame duration in nanoseconds; 0 = uncapped
}

// Engine is the main entry point for the engine.
//
// Run drives three threads. The calling (main) thread pumps window messages. The producer
// goroutine ticks at the configured rate: it runs the tick callback, builds a snapshot for
// the main target, asks every listener to fill it in registration order and hands it to the
// Renderer. The execution goroutine owns the CommandProcessor: it initialises it, executes
// command buffers until the Renderer is closed and drained, then closes it.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, or nil for a headless engine
	Window() window.Window

	// Renderer returns the renderer snapshots are handed to.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// Each tick runs the tick callback and produces one snapshot.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick before the snapshot is built.
	// Use this for game logic, physics, input processing, and animation updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional cap on command buffers executed per second.
	// Pass 0 to uncap the execution loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddListener registers a snapshot listener. Listeners are called in registration order.
	//
	// Parameters:
	//   - l: the listener
	AddListener(l snapshot.Listener)

	// RemoveListener unregisters a snapshot listener.
	//
	// Parameters:
	//   - l: the listener
	//
	// Returns:
	//   - bool: false if the listener was not registered
	RemoveListener(l snapshot.Listener) bool

	// Run starts the producer and execution goroutines and pumps window messages until the
	// window closes or Quit is called. Without a window it blocks until Quit.
	//
	// Returns:
	//   - error: an error if the command processor could not be initialised
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine that feeds r and executes its buffers through proc.
// proc must be the processor r was created with.
//
// Parameters:
//   - r: the renderer snapshots are handed to
//   - proc: the command processor, initialised and closed on the execution goroutine
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(r renderer.Renderer, proc processor.CommandProcessor, options ...EngineBuilderOption) Engine {
	if r == nil || proc == nil {
		panic("engine: NewEngine requires a renderer and a command processor")
	}
	e := &engine{
		renderer:        r,
		processor:       proc,
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		engineTickRate:  time.Second / 60,
		listenersMu:     &sync.Mutex{},
		clearColor:      gputypes.NewColorRGB(0, 0, 0),
		resolution:      [2]uint32{1280, 720},
	}

	for _, opt := range options {
		opt(e)
	}
	e.profiler = profiler.NewProfiler(profiler.WithStats(r.Stats))
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() error {
	if !e.running.CompareAndSwap(false, true) {
		panic("engine: Run called twice")
	}

	initErr := make(chan error, 1)
	e.wg.Add(1)
	go e.handleExecution(initErr)
	if err := <-initErr; err != nil {
		e.signalQuit()
		e.wg.Wait()
		// the producer never started, so its deferred Close will not run
		e.renderer.Close()
		return err
	}

	e.wg.Add(1)
	go e.handleProducer()

	if e.window != nil {
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				e.window.RequestClose()
			default:
			}
		})
		e.window.ProcessMessages()
		e.signalQuit()
		e.wg.Wait()
		if err := e.window.Close(); err != nil {
			common.Logger().Warn("window close failed", "error", err)
		}
		return nil
	}

	<-e.quitChannel
	e.wg.Wait()
	return nil
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleProducer runs the fixed-rate tick loop in its own goroutine. Each tick runs the tick
// callback, then builds and submits a snapshot. Closes the renderer on exit so the execution
// goroutine drains and stops.
func (e *engine) handleProducer() {
	defer e.wg.Done()
	defer e.renderer.Close()

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
			e.tick(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// tick runs one producer iteration.
func (e *engine) tick(dt float32) {
	if e.tickCallback != nil {
		e.tickCallback(dt)
	}

	e.renderer.ProcessRenderSnapshot(e.buildSnapshot(snapshot.TargetMain))

	if e.profilingEnabled.Load() {
		e.profiler.Tick()
	}
}

// buildSnapshot creates a snapshot sized to the window and lets every listener fill it in.
func (e *engine) buildSnapshot(target snapshot.TargetType) *snapshot.RenderSnapshot {
	width, height := e.resolution[0], e.resolution[1]
	if e.window != nil {
		width, height = e.window.Size()
	}
	snap := snapshot.New(target, width, height, e.clearColor)

	e.listenersMu.Lock()
	listeners := slices.Clone(e.listeners)
	e.listenersMu.Unlock()

	for _, l := range listeners {
		l.OnRenderSnapshot(target, snap)
	}
	return snap
}

// handleExecution owns the command processor. It reports the Init result on initErr and, on
// success, executes command buffers until the renderer is closed and drained.
func (e *engine) handleExecution(initErr chan<- error) {
	defer e.wg.Done()
	// Thread-affine backends (OpenGL) require Init, Process and Close on one OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := e.processor.Init(); err != nil {
		common.Logger().Error("command processor init failed", "error", err)
		initErr <- fmt.Errorf("engine: %w", err)
		return
	}
	initErr <- nil

	defer func() {
		if err := e.processor.Close(); err != nil {
			common.Logger().Warn("command processor close failed", "error", err)
		}
	}()

	for {
		start := time.Now()
		if !e.renderer.ProcessRenderCommandBuffer() {
			return
		}

		// Frame rate limiting
		if limit := time.Duration(e.renderFrameLimit.Load()); limit > 0 {
			if remaining := limit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
// Must be called before Run.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderFrameLimit sets an optional execution frame rate cap.
// Pass 0 to uncap the execution loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit.Store(int64(frameLimit(fps)))
}

func (e *engine) AddListener(l snapshot.Listener) {
	if l == nil {
		return
	}
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, l)
}

func (e *engine) RemoveListener(l snapshot.Listener) bool {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	i := slices.Index(e.listeners, l)
	if i < 0 {
		return false
	}
	e.listeners = slices.Delete(e.listeners, i, i+1)
	return true
}

// tickInterval converts a rate to a ticker period, defaulting to 60Hz.
func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

// frameLimit converts a frame cap to a minimum frame duration; 0 means uncapped.
func frameLimit(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
