// Package engine runs a pipeline on its own render goroutine, alongside a fixed-rate tick
// goroutine for parameter automation, and optionally a window's message loop.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/window"
)

// engine coordinates the tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window   window.Window
	pipeline orchestrator.Pipeline

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        uint64        // stop after this many pipeline ticks; 0 = run until quit

	errMu sync.Mutex
	err   error
}

// Engine drives a pipeline until the window closes, a frame limit is reached, Quit is called,
// or the pipeline fails.
type Engine interface {
	// Window returns the window, or nil for headless runs.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Pipeline returns the pipeline the render goroutine ticks.
	//
	// Returns:
	//   - orchestrator.Pipeline: the pipeline
	Pipeline() orchestrator.Pipeline

	// EnableProfiler enables profiler reports through the logger.
	EnableProfiler()

	// DisableProfiler disables profiler reports.
	DisableProfiler()

	// SetTickRate sets the tick callback rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick, on the tick goroutine.
	// Parameter scripts run here.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each pipeline tick, on the render goroutine.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit caps the render loop in frames per second. 0 uncaps it.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run initializes the pipeline if needed and blocks until the engine stops. With a window
	// it must be called on the goroutine that opened the window. The pipeline is disposed on return.
	//
	// Returns:
	//   - error: the pipeline error that stopped the run, or nil
	Run() error

	// Quit signals every engine goroutine to stop. Safe to call multiple times.
	Quit()
}

// NewEngine creates an engine around a pipeline.
//
// Parameters:
//   - p: the pipeline to run, initialized or not
//   - options: functional options such as WithWindow and WithTickRate
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(p orchestrator.Pipeline, options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		pipeline:        p,
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Pipeline() orchestrator.Pipeline {
	return e.pipeline
}

func (e *engine) Run() error {
	defer e.pipeline.Dispose()

	if e.pipeline.State() == orchestrator.StateUninitialized {
		if err := e.pipeline.Init(); err != nil {
			return err
		}
	}

	e.running.Store(true)
	e.handle()

	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
	return e.Err()
}

// Err returns the error that stopped the run, if any.
func (e *engine) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel once and asks the window loop to stop.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
		if e.window != nil {
			e.window.RequestClose()
		}
	})
}

func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.signalQuit()
}

func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine fires the tick callback at the configured rate and applies rate changes.
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

// handleRender ticks the pipeline as fast as the frame limit allows. A panic is recovered and
// ends the run like a pipeline error.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.fail(fmt.Errorf("render goroutine panic: %v", r))
		}
	}()

	lastRender := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		// the pipeline logs and disposes itself on failure
		if err := e.pipeline.Tick(); err != nil {
			e.fail(err)
			return
		}

		if e.renderCallback != nil {
			e.renderCallback(dt)
		}
		if e.profilingEnabled && e.profiler != nil {
			e.profiler.Tick()
		}

		if e.maxFrames > 0 && e.pipeline.Ticks() >= e.maxFrames {
			common.Logger().Info("frame limit reached", "frames", e.maxFrames)
			e.signalQuit()
			return
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(lastRender); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate takes effect immediately on a running engine.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)
	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// keep only the newest pending rate
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

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
