package orchestrator

import (
	"github.com/Carmen-Shannon/oxy-vidfx/engine/graph"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/parameter_store"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option applied to a pipeline during NewPipeline.
type PipelineBuilderOption func(*pipelineImpl)

// WithGraph selects the pass table. The montage graph is the default.
//
// Parameters:
//   - g: the graph
//
// Returns:
//   - PipelineBuilderOption: a function that applies the graph to a pipeline
func WithGraph(g graph.Graph) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.graph = g
	}
}

// WithSizeFunc sets the resize signal polled at the start of every tick.
//
// Parameters:
//   - fn: returns the current output size
//
// Returns:
//   - PipelineBuilderOption: a function that applies the size source to a pipeline
func WithSizeFunc(fn SizeFunc) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.size = fn
	}
}

// WithSamplerFilter sets the filter of the shared clamp-to-edge sampler. Nearest is the default.
//
// Parameters:
//   - filter: wgpu.FilterModeNearest or wgpu.FilterModeLinear
//
// Returns:
//   - PipelineBuilderOption: a function that applies the filter to a pipeline
func WithSamplerFilter(filter wgpu.FilterMode) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.filter = filter
	}
}

// WithParameters sets the blur parameters the store starts with.
//
// Parameters:
//   - params: the initial parameters
//
// Returns:
//   - PipelineBuilderOption: a function that applies the parameters to a pipeline
func WithParameters(params parameter_store.BlurParameters) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.initialParams = params
	}
}

// WithKernelValidation toggles naga validation of every kernel at Init.
//
// Parameters:
//   - enabled: false to skip validation
//
// Returns:
//   - PipelineBuilderOption: a function that applies the setting to a pipeline
func WithKernelValidation(enabled bool) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.validateKernels = enabled
	}
}
