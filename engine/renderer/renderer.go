package renderer

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/window"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend
	released    bool

	// Pre-creation config collected from builder options
	window               window.Window
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	maxTextureDimension  int
	workers              int
}

// Renderer defines the interface for the compute and presentation device.
//
// The Renderer owns a cache of pipelines keyed by PipelineKey and hands out backend-neutral
// resource handles. All dispatches between BeginComputeFrame and EndComputeFrame are submitted
// as one batch in recording order. The same calls run on the GPU through WGPU or on the host
// through the CPU reference backend.
type Renderer interface {
	// BackendType returns the backend the Renderer was created with.
	//
	// Returns:
	//   - RendererBackendType: BackendTypeWGPU or BackendTypeCPU
	BackendType() RendererBackendType

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines returns a copy of the pipeline cache.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines creates the device objects for each pipeline and caches it by PipelineKey.
	// Pipelines whose keys are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// ReleasePipeline releases the cached pipeline with the given key and removes it from the cache.
	//
	// Parameters:
	//   - key: the pipeline key
	ReleasePipeline(key string)

	// CreateTexture allocates an RGBA8 unorm texture.
	//
	// Parameters:
	//   - label: the debug label, also used to name the resource in errors
	//   - width: width in pixels, in (0, MaxTextureDimension()]
	//   - height: height in pixels, in (0, MaxTextureDimension()]
	//   - usage: how the texture will be bound
	//
	// Returns:
	//   - resource.Texture: the texture
	//   - error: a *common.ResourceAllocationError if the size is rejected or the device fails
	CreateTexture(label string, width, height int, usage resource.TextureUsage) (resource.Texture, error)

	// WriteTexture uploads staged pixels covering the whole texture.
	//
	// Parameters:
	//   - t: the destination texture
	//   - data: the staged pixels
	//
	// Returns:
	//   - error: an error if the texture is released or the sizes differ
	WriteTexture(t resource.Texture, data common.TextureStagingData) error

	// ReadTexture copies a texture back to host memory after all submitted work completes.
	//
	// Parameters:
	//   - t: the texture to read
	//
	// Returns:
	//   - *image.RGBA: the texels
	//   - error: an error if the texture is released or the readback failed
	ReadTexture(t resource.Texture) (*image.RGBA, error)

	// CreateSampler creates an immutable sampler. Zero fields default to clamp-to-edge and nearest.
	//
	// Parameters:
	//   - label: the debug label
	//   - data: the sampler configuration
	//
	// Returns:
	//   - resource.Sampler: the sampler
	//   - error: an error if creation failed
	CreateSampler(label string, data common.SamplerStagingData) (resource.Sampler, error)

	// CreateUniformBuffer allocates a zeroed uniform buffer of the given size.
	//
	// Parameters:
	//   - label: the debug label
	//   - size: size in bytes
	//
	// Returns:
	//   - resource.Buffer: the buffer
	//   - error: a *common.ResourceAllocationError if the allocation failed
	CreateUniformBuffer(label string, size uint64) (resource.Buffer, error)

	// WriteBuffers writes each BufferWrite to its buffer. Every dispatch recorded after this
	// returns observes the written bytes.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	//
	// Returns:
	//   - error: an error if a buffer is released or a write is out of range
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginComputeFrame opens the batch that every DispatchCompute of the tick joins.
	// Must be paired with EndComputeFrame.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// DispatchCompute looks up the cached compute Pipeline by key and records a dispatch with the
	// provider's resources bound to group 0. It never waits for the device.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached compute Pipeline to use
	//   - provider: the resources bound by binding index
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: an error if the pipeline is unknown or a bound resource was released
	DispatchCompute(pipelineKey string, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// EndComputeFrame submits the batch opened by BeginComputeFrame.
	//
	// Returns:
	//   - error: an error if submission failed
	EndComputeFrame() error

	// Resize configures the presentation surface for a new size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode. A call to Resize is required for it to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// BeginFrame acquires the swapchain texture and begins the main render pass.
	// Must be paired with EndFrame.
	//
	// Returns:
	//   - error: an error if there is no surface or it could not be acquired
	BeginFrame() error

	// DrawCall encodes a non-indexed draw of vertexCount vertices within the current render pass.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached render Pipeline to use
	//   - vertexCount: the number of vertices
	//   - bindGroups: providers for bind groups 0..n-1
	//
	// Returns:
	//   - error: an error if the pipeline is not found or a bound resource was released
	DrawCall(pipelineKey string, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// MaxTextureDimension returns the largest texture width or height the device accepts.
	//
	// Returns:
	//   - int: the limit in pixels
	MaxTextureDimension() int

	// Release releases every cached pipeline and the backend. Calling it again is a no-op.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer on the given backend.
// The WGPU backend presents to the window passed with WithWindow, or runs headless without one.
//
// Parameters:
//   - backendType: the backend to use
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured Renderer
//   - error: an error if the device could not be created
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeCPU:
		r.backend = newCPURendererBackend(r.maxTextureDimension, r.workers)
	case BackendTypeWGPU:
		b, err := newWGPURendererBackend(r.window, r.forceFallbackAdapter)
		if err != nil {
			return nil, fmt.Errorf("failed to create wgpu backend: %w", err)
		}
		r.backend = b
	default:
		return nil, fmt.Errorf("unknown renderer backend %d", backendType)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if r.window != nil {
		r.backend.ConfigureSurface(r.window.Size())
	}

	common.Logger().Info("renderer ready", "backend", backendType.String(), "max_texture_dimension", r.backend.MaxTextureDimension())
	return r, nil
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, p := range r.pipelineCache {
		out[k] = p
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			if err := r.backend.RegisterComputePipeline(p); err != nil {
				return fmt.Errorf("register compute pipeline %q: %w", key, err)
			}
		case pipeline.PipelineTypeRender:
			if err := r.backend.RegisterRenderPipeline(p); err != nil {
				return fmt.Errorf("register render pipeline %q: %w", key, err)
			}
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) ReleasePipeline(key string) {
	r.mu.Lock()
	p, exists := r.pipelineCache[key]
	delete(r.pipelineCache, key)
	r.mu.Unlock()

	if !exists {
		return
	}
	r.backend.ReleasePipeline(p)
	p.Release()
}

func (r *renderer) CreateTexture(label string, width, height int, usage resource.TextureUsage) (resource.Texture, error) {
	limit := r.backend.MaxTextureDimension()
	if width <= 0 || height <= 0 || width > limit || height > limit {
		return nil, &common.ResourceAllocationError{
			Resource: label,
			Width:    width,
			Height:   height,
			Err:      fmt.Errorf("size must be within 1..%d on each axis", limit),
		}
	}

	t, err := r.backend.CreateTexture(label, width, height, usage)
	if err != nil {
		return nil, &common.ResourceAllocationError{Resource: label, Width: width, Height: height, Err: err}
	}
	return t, nil
}

func (r *renderer) WriteTexture(t resource.Texture, data common.TextureStagingData) error {
	if t.Released() {
		return fmt.Errorf("write texture %q: %w", t.Label(), common.ErrReleased)
	}
	return r.backend.WriteTexture(t, data)
}

func (r *renderer) ReadTexture(t resource.Texture) (*image.RGBA, error) {
	if t.Released() {
		return nil, fmt.Errorf("read texture %q: %w", t.Label(), common.ErrReleased)
	}
	return r.backend.ReadTexture(t)
}

func (r *renderer) CreateSampler(label string, data common.SamplerStagingData) (resource.Sampler, error) {
	return r.backend.CreateSampler(label, samplerDefaults(data))
}

func (r *renderer) CreateUniformBuffer(label string, size uint64) (resource.Buffer, error) {
	if size == 0 {
		return nil, &common.ResourceAllocationError{Resource: label, Err: errors.New("uniform buffer size must be positive")}
	}
	b, err := r.backend.CreateUniformBuffer(label, size)
	if err != nil {
		return nil, &common.ResourceAllocationError{Resource: label, Err: err}
	}
	return b, nil
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range writes {
		if w.Buffer == nil {
			return errors.New("buffer write has no target buffer")
		}
		if w.Buffer.Released() {
			return fmt.Errorf("write buffer %q: %w", w.Buffer.Label(), common.ErrReleased)
		}
		if w.Offset+uint64(len(w.Data)) > w.Buffer.Size() {
			return fmt.Errorf("write buffer %q: %d bytes at offset %d exceed size %d", w.Buffer.Label(), len(w.Data), w.Offset, w.Buffer.Size())
		}
	}
	return r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) EndComputeFrame() error {
	return r.backend.EndComputeFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists || p.Type() != pipeline.PipelineTypeCompute {
		return fmt.Errorf("compute pipeline %q not found in cache", pipelineKey)
	}
	if err := checkLive(provider); err != nil {
		return fmt.Errorf("dispatch %q: %w", pipelineKey, err)
	}

	return r.backend.DispatchCompute(p, provider, workGroupCount)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) DrawCall(pipelineKey string, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists || p.Type() != pipeline.PipelineTypeRender {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}
	for _, bg := range bindGroups {
		if err := checkLive(bg); err != nil {
			return fmt.Errorf("draw %q: %w", pipelineKey, err)
		}
	}

	return r.backend.DrawCall(p, vertexCount, bindGroups)
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) MaxTextureDimension() int {
	return r.backend.MaxTextureDimension()
}

func (r *renderer) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	cache := r.pipelineCache
	r.pipelineCache = make(map[string]pipeline.Pipeline)
	r.mu.Unlock()

	for _, p := range cache {
		r.backend.ReleasePipeline(p)
		p.Release()
	}
	r.backend.Release()
}

// checkLive returns an error wrapping common.ErrReleased for the first released resource in provider.
func checkLive(provider bind_group_provider.BindGroupProvider) error {
	for binding, res := range provider.Resources() {
		if res == nil {
			return fmt.Errorf("binding %d of %q is empty", binding, provider.Label())
		}
		if res.Released() {
			return fmt.Errorf("%s %q at binding %d: %w", res.Kind(), res.Label(), binding, common.ErrReleased)
		}
	}
	return nil
}
