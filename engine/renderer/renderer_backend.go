package renderer

import (
	"image"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
)

// RendererBackendType identifies the device implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based backend which runs the WGSL kernels on the GPU.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeCPU selects the host reference backend which runs each pipeline's CPU kernel.
	BackendTypeCPU
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeCPU:
		return "cpu"
	default:
		return "unknown"
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// DefaultMaxTextureDimension is the WebGPU default limit for maxTextureDimension2D.
const DefaultMaxTextureDimension = 8192

// RendererBackend is the device-facing half of the Renderer. The Renderer validates arguments and
// resolves pipeline keys; the backend only talks to its device.
type RendererBackend interface {
	// RegisterComputePipeline creates the device objects for a compute pipeline.
	//
	// Parameters:
	//   - p: the pipeline holding the compute shader (and CPU kernel for the CPU backend)
	//
	// Returns:
	//   - error: an error if the pipeline could not be created
	RegisterComputePipeline(p pipeline.Pipeline) error

	// RegisterRenderPipeline creates the device objects for a render pipeline targeting the surface.
	//
	// Parameters:
	//   - p: the pipeline holding the vertex and fragment shaders
	//
	// Returns:
	//   - error: an error if the pipeline could not be created
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// ReleasePipeline drops any device state cached for the pipeline key, including bind groups.
	//
	// Parameters:
	//   - p: the pipeline being released
	ReleasePipeline(p pipeline.Pipeline)

	// CreateTexture allocates an RGBA8 unorm 2-D texture.
	//
	// Parameters:
	//   - label: the debug label
	//   - width: width in pixels
	//   - height: height in pixels
	//   - usage: how the texture will be bound
	//
	// Returns:
	//   - resource.Texture: the new texture
	//   - error: an error if the device rejected the allocation
	CreateTexture(label string, width, height int, usage resource.TextureUsage) (resource.Texture, error)

	// WriteTexture uploads tightly packed RGBA8 pixels covering the whole texture.
	//
	// Parameters:
	//   - t: the destination texture
	//   - data: the staged pixels, which must match the texture size
	//
	// Returns:
	//   - error: an error if the sizes differ or the texture belongs to another backend
	WriteTexture(t resource.Texture, data common.TextureStagingData) error

	// ReadTexture copies the texture contents back to host memory, waiting for submitted work.
	//
	// Parameters:
	//   - t: the texture to read, created with TextureUsageCopySrc
	//
	// Returns:
	//   - *image.RGBA: the texels
	//   - error: an error if the readback failed
	ReadTexture(t resource.Texture) (*image.RGBA, error)

	// CreateSampler creates an immutable sampler. Zero fields take the backend defaults.
	//
	// Parameters:
	//   - label: the debug label
	//   - data: the sampler configuration
	//
	// Returns:
	//   - resource.Sampler: the sampler
	//   - error: an error if creation failed
	CreateSampler(label string, data common.SamplerStagingData) (resource.Sampler, error)

	// CreateUniformBuffer allocates a zeroed uniform buffer.
	//
	// Parameters:
	//   - label: the debug label
	//   - size: size in bytes
	//
	// Returns:
	//   - resource.Buffer: the buffer
	//   - error: an error if allocation failed
	CreateUniformBuffer(label string, size uint64) (resource.Buffer, error)

	// WriteBuffers queues every write. Writes are visible to all work submitted after the call.
	//
	// Parameters:
	//   - writes: the buffer writes to apply in order
	//
	// Returns:
	//   - error: an error if a write targets a foreign buffer or falls outside it
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginComputeFrame opens the single recording that every dispatch of a tick joins.
	//
	// Returns:
	//   - error: an error if the recording could not be started
	BeginComputeFrame() error

	// DispatchCompute records one dispatch into the current compute frame.
	//
	// Parameters:
	//   - p: the compute pipeline
	//   - provider: the resources bound to bind group 0
	//   - workGroupCount: the number of workgroups in x, y and z
	//
	// Returns:
	//   - error: an error if no frame is open or the bindings could not be resolved
	DispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// EndComputeFrame submits the recorded dispatches in the order they were recorded.
	//
	// Returns:
	//   - error: an error if submission failed
	EndComputeFrame() error

	// ConfigureSurface (re)configures the presentation surface for a new size.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode used by the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// BeginFrame acquires the surface texture and begins the render pass.
	//
	// Returns:
	//   - error: an error if there is no surface or it could not be acquired
	BeginFrame() error

	// DrawCall encodes a non-indexed draw within the current render pass.
	//
	// Parameters:
	//   - p: the render pipeline
	//   - vertexCount: the number of vertices to draw
	//   - bindGroups: the providers for bind groups 0..n-1
	//
	// Returns:
	//   - error: an error if a bind group could not be resolved
	DrawCall(p pipeline.Pipeline, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame ends the render pass and submits it.
	EndFrame()

	// Present presents the surface and releases the acquired texture.
	Present()

	// MaxTextureDimension returns the largest width or height CreateTexture accepts.
	//
	// Returns:
	//   - int: the limit in pixels
	MaxTextureDimension() int

	// Release frees every device object the backend owns.
	Release()
}
