// Package orchestrator wires the compute passes of a graph to the texture pool, the frame source
// and the parameter store, and advances one frame per Tick.
package orchestrator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/compute_pass"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/frame_source"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/graph"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/parameter_store"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/presenter"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/texture_pool"
	"github.com/cogentcore/webgpu/wgpu"
)

// State is the lifecycle state of a Pipeline.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateRunning
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SizeFunc reports the current output size. It is polled once at the start of every tick.
type SizeFunc func() (width, height int)

// ErrInvalidState is returned by Init and Tick when called in the wrong state.
var ErrInvalidState = errors.New("invalid pipeline state")

type pipelineImpl struct {
	mu *sync.Mutex

	r       renderer.Renderer
	frames  frame_source.FrameSource
	surface presenter.PresentationSurface

	graph           graph.Graph
	size            SizeFunc
	filter          wgpu.FilterMode
	initialParams   parameter_store.BlurParameters
	validateKernels bool

	state   State
	pool    texture_pool.TexturePool
	sampler resource.Sampler
	params  parameter_store.ParameterStore
	passes  []compute_pass.ComputePass
	byName  map[string]compute_pass.ComputePass

	cursor     int
	ticks      uint64
	rebindErr  error
	resizeWarn [2]int
}

// Pipeline runs a fixed graph of compute passes once per tick.
// Init, Tick and Dispose must be called from the same goroutine.
type Pipeline interface {
	// Init allocates the pool at the current output size, builds and binds every pass of the graph,
	// validates the graph and creates the parameter store. On failure it logs one diagnostic and
	// disposes everything created so far.
	//
	// Returns:
	//   - error: a *common.KernelCompileError, *common.UnboundSlotError, *common.ResourceAllocationError
	//     or graph validation error
	Init() error

	// Tick polls the output size, binds the current frame, records every pass in graph order,
	// advances the frame cursor and presents the screen texture. A rejected resize is logged and
	// the previous size kept; any other error disposes the pipeline.
	//
	// Returns:
	//   - error: the fatal error, or ErrInvalidState outside Ready and Running
	Tick() error

	// Dispose releases the passes, pool, parameter store, sampler, frames and surface, each once.
	// Calling it again is a no-op.
	Dispose()

	// State returns the lifecycle state.
	//
	// Returns:
	//   - State: the state
	State() State

	// Cursor returns the index of the frame the next tick binds.
	//
	// Returns:
	//   - int: the frame index
	Cursor() int

	// Ticks returns how many ticks completed.
	//
	// Returns:
	//   - uint64: the tick count
	Ticks() uint64

	// Graph returns the pass table the pipeline runs.
	//
	// Returns:
	//   - graph.Graph: the graph
	Graph() graph.Graph

	// Pass returns the pass with the given name.
	//
	// Parameters:
	//   - name: the pass name from the graph
	//
	// Returns:
	//   - compute_pass.ComputePass: the pass
	//   - bool: true if found
	Pass(name string) (compute_pass.ComputePass, bool)

	// Passes returns the passes in dispatch order.
	//
	// Returns:
	//   - []compute_pass.ComputePass: the passes
	Passes() []compute_pass.ComputePass

	// Pool returns the texture pool, or nil before Init.
	//
	// Returns:
	//   - texture_pool.TexturePool: the pool
	Pool() texture_pool.TexturePool

	// Parameters returns the parameter store, or nil before Init.
	//
	// Returns:
	//   - parameter_store.ParameterStore: the store
	Parameters() parameter_store.ParameterStore

	// Sampler returns the sampler shared by every pass, or nil before Init.
	//
	// Returns:
	//   - resource.Sampler: the sampler
	Sampler() resource.Sampler
}

var _ Pipeline = &pipelineImpl{}

// NewPipeline creates an uninitialized pipeline that takes ownership of frames and surface.
// Without WithSizeFunc the output size is the frame size.
//
// Parameters:
//   - r: the renderer every resource is created on
//   - frames: the decoded frame source
//   - surface: where the screen texture is presented
//   - opts: builder options such as WithGraph and WithSizeFunc
//
// Returns:
//   - Pipeline: the pipeline in StateUninitialized
func NewPipeline(r renderer.Renderer, frames frame_source.FrameSource, surface presenter.PresentationSurface, opts ...PipelineBuilderOption) Pipeline {
	p := &pipelineImpl{
		mu:              &sync.Mutex{},
		r:               r,
		frames:          frames,
		surface:         surface,
		graph:           graph.Montage(),
		filter:          wgpu.FilterModeNearest,
		initialParams:   parameter_store.DefaultParameters(),
		validateKernels: true,
		byName:          make(map[string]compute_pass.ComputePass),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.size == nil {
		p.size = frames.Size
	}
	return p
}

func (p *pipelineImpl) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateUninitialized {
		return fmt.Errorf("init: %w: %s", ErrInvalidState, p.state)
	}
	if err := p.init(); err != nil {
		common.Logger().Error("pipeline init failed", "graph", p.graph.Variant, "err", err)
		p.dispose()
		return err
	}
	p.state = StateReady
	w, h := p.pool.Size()
	common.Logger().Info("pipeline ready", "graph", p.graph.Variant, "passes", len(p.passes), "frames", p.frames.FrameCount(), "width", w, "height", h)
	return nil
}

func (p *pipelineImpl) init() error {
	w, h := p.size()
	p.pool = texture_pool.NewTexturePool(p.r, texture_pool.WithTempCount(p.graph.TempCount()))
	if err := p.pool.Allocate(w, h); err != nil {
		return err
	}

	var err error
	p.sampler, err = p.r.CreateSampler("pipeline sampler", common.ClampSampler(p.filter))
	if err != nil {
		return err
	}

	// the blur passes bind the parameter buffer, so the store exists before binding
	p.params, err = parameter_store.NewParameterStore(p.r, parameter_store.WithParameters(p.initialParams))
	if err != nil {
		return err
	}

	for _, n := range p.graph.Nodes {
		pass, err := compute_pass.NewComputePass(n.Pass, n.Kernel, p.r, compute_pass.WithKernelValidation(p.validateKernels))
		if err != nil {
			return err
		}
		p.passes = append(p.passes, pass)
		p.byName[n.Pass] = pass
	}

	if err := p.bindAll(); err != nil {
		return err
	}
	for _, pass := range p.passes {
		if err := pass.Finalize(); err != nil {
			return err
		}
	}
	if err := p.graph.Validate(); err != nil {
		return err
	}

	p.pool.OnRebind(func(texture_pool.TexturePool) {
		p.rebindErr = p.bindPool()
	})
	return nil
}

func (p *pipelineImpl) Tick() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateReady && p.state != StateRunning {
		return fmt.Errorf("tick: %w: %s", ErrInvalidState, p.state)
	}
	if err := p.tick(); err != nil {
		common.Logger().Error("pipeline stopped", "graph", p.graph.Variant, "tick", p.ticks, "err", err)
		p.dispose()
		return err
	}
	p.state = StateRunning
	p.ticks++
	return nil
}

func (p *pipelineImpl) tick() error {
	p.checkResize()
	if p.rebindErr != nil {
		return p.rebindErr
	}

	if err := p.bindFrame(); err != nil {
		return err
	}

	if err := p.r.BeginComputeFrame(); err != nil {
		return fmt.Errorf("begin compute frame: %w", err)
	}
	for _, pass := range p.passes {
		g := pass.Groups()
		if err := pass.Dispatch(g[0], g[1], g[2]); err != nil {
			// close the recording so the renderer is not left mid-frame
			_ = p.r.EndComputeFrame()
			return err
		}
	}
	if err := p.r.EndComputeFrame(); err != nil {
		return fmt.Errorf("end compute frame: %w", err)
	}

	p.cursor = (p.cursor + 1) % p.frames.FrameCount()

	screen, err := p.pool.Texture(graph.Screen)
	if err != nil {
		return err
	}
	if p.surface != nil {
		if err := p.surface.Present(screen); err != nil {
			return err
		}
	}
	return nil
}

// checkResize resizes the pool when the output size changed. A rejected size is logged once and
// the previous generation stays bound; the next tick tries again.
func (p *pipelineImpl) checkResize() {
	w, h := p.size()
	cw, ch := p.pool.Size()
	if w == cw && h == ch {
		return
	}
	if w <= 0 || h <= 0 {
		// minimised windows report 0x0
		return
	}
	if err := p.pool.Resize(w, h); err != nil {
		if p.resizeWarn != [2]int{w, h} {
			common.Logger().Warn("resize rejected, keeping previous size", "width", w, "height", h, "current_width", cw, "current_height", ch, "err", err)
			p.resizeWarn = [2]int{w, h}
		}
		return
	}
	p.resizeWarn = [2]int{}
}

// bindAll binds the pool textures, the sampler, the parameter buffer and the current frame.
func (p *pipelineImpl) bindAll() error {
	if err := p.bindPool(); err != nil {
		return err
	}
	for _, n := range p.graph.Nodes {
		pass := p.byName[n.Pass]
		if err := pass.BindSamplers(p.sampler); err != nil {
			return err
		}
		if n.Params {
			if err := pass.Bind("params", p.params.Buffer()); err != nil {
				return err
			}
		}
	}
	return p.bindFrame()
}

// bindPool binds every pool texture named in the graph to its slot.
func (p *pipelineImpl) bindPool() error {
	for _, n := range p.graph.Nodes {
		pass := p.byName[n.Pass]
		for _, b := range append(append([]graph.Binding(nil), n.Reads...), n.Writes...) {
			if b.Texture == graph.Frame {
				continue
			}
			t, err := p.pool.Texture(b.Texture)
			if err != nil {
				return fmt.Errorf("pass %q slot %q: %w", n.Pass, b.Slot, err)
			}
			if err := pass.Bind(b.Slot, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// bindFrame binds frame[cursor] to every slot reading the frame.
func (p *pipelineImpl) bindFrame() error {
	frame, err := p.frames.Frame(p.cursor)
	if err != nil {
		return err
	}
	for _, n := range p.graph.Nodes {
		for _, b := range n.Reads {
			if b.Texture != graph.Frame {
				continue
			}
			if err := p.byName[n.Pass].Bind(b.Slot, frame); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *pipelineImpl) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispose()
}

func (p *pipelineImpl) dispose() {
	if p.state == StateDisposed {
		return
	}
	p.state = StateDisposed

	for _, pass := range p.passes {
		pass.Release()
	}
	if p.pool != nil {
		p.pool.Dispose()
	}
	if p.params != nil {
		p.params.Release()
	}
	if p.sampler != nil {
		p.sampler.Release()
	}
	if p.frames != nil {
		p.frames.Release()
	}
	if p.surface != nil {
		p.surface.Release()
	}
	common.Logger().Info("pipeline disposed", "graph", p.graph.Variant, "ticks", p.ticks)
}

func (p *pipelineImpl) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *pipelineImpl) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

func (p *pipelineImpl) Ticks() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks
}

func (p *pipelineImpl) Graph() graph.Graph {
	return p.graph
}

func (p *pipelineImpl) Pass(name string) (compute_pass.ComputePass, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pass, ok := p.byName[name]
	return pass, ok
}

func (p *pipelineImpl) Passes() []compute_pass.ComputePass {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]compute_pass.ComputePass(nil), p.passes...)
}

func (p *pipelineImpl) Pool() texture_pool.TexturePool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool
}

func (p *pipelineImpl) Parameters() parameter_store.ParameterStore {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

func (p *pipelineImpl) Sampler() resource.Sampler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sampler
}
