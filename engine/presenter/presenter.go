// Package presenter delivers the final texture of each tick, either to a window surface or into
// host memory for headless runs.
package presenter

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/present.wgsl
var presentSource string

// PipelineKey is the render pipeline the surface presenter registers.
const PipelineKey = "present"

// PresentationSurface receives the final texture once per tick.
type PresentationSurface interface {
	// Present shows t. It does not wait for the frame to reach the display.
	//
	// Parameters:
	//   - t: the texture to show, usually the pool's screen texture
	//
	// Returns:
	//   - error: an error if the surface could not be drawn
	Present(t resource.Texture) error

	// Release frees what the surface created. Calling it again is a no-op.
	Release()
}

type surfacePresenter struct {
	mu *sync.Mutex
	r  renderer.Renderer

	filter   wgpu.FilterMode
	validate bool

	sampler  resource.Sampler
	provider bind_group_provider.BindGroupProvider
	released bool

	// surface size last configured; follows the presented texture
	width, height int
}

var _ PresentationSurface = &surfacePresenter{}

// NewSurfacePresenter registers the fullscreen blit pipeline on a renderer that owns a window
// surface. The surface is reconfigured on the render goroutine whenever the presented texture
// changes size, so it follows the pool through resizes.
//
// Parameters:
//   - r: a WGPU renderer created WithWindow
//   - opts: builder options such as WithFilter
//
// Returns:
//   - PresentationSurface: the presenter
//   - error: a *common.KernelCompileError if the blit shader or pipeline cannot be built
func NewSurfacePresenter(r renderer.Renderer, opts ...PresenterBuilderOption) (PresentationSurface, error) {
	p := &surfacePresenter{
		mu:       &sync.Mutex{},
		r:        r,
		filter:   wgpu.FilterModeNearest,
		validate: true,
	}
	for _, opt := range opts {
		opt(p)
	}

	vs, err := shader.NewShader(PipelineKey+" vertex", shader.ShaderTypeVertex, presentSource, shader.WithValidation(p.validate))
	if err != nil {
		return nil, &common.KernelCompileError{Pass: PipelineKey, Err: err}
	}
	fs, err := shader.NewShader(PipelineKey+" fragment", shader.ShaderTypeFragment, presentSource, shader.WithValidation(false))
	if err != nil {
		return nil, &common.KernelCompileError{Pass: PipelineKey, Err: err}
	}

	pl := pipeline.NewPipeline(PipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
	)
	if err := r.RegisterPipelines(pl); err != nil {
		return nil, &common.KernelCompileError{Pass: PipelineKey, Err: err}
	}

	p.sampler, err = r.CreateSampler(PipelineKey+" sampler", common.ClampSampler(p.filter))
	if err != nil {
		r.ReleasePipeline(PipelineKey)
		return nil, err
	}
	p.provider = bind_group_provider.NewBindGroupProvider(PipelineKey)
	p.provider.SetResource(1, p.sampler)
	return p, nil
}

func (p *surfacePresenter) Present(t resource.Texture) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return fmt.Errorf("presenter: %w", common.ErrReleased)
	}
	if t == nil || t.Released() {
		return fmt.Errorf("presenter: texture: %w", common.ErrReleased)
	}
	p.provider.SetResource(0, t)

	if t.Width() != p.width || t.Height() != p.height {
		p.r.Resize(t.Width(), t.Height())
		p.width, p.height = t.Width(), t.Height()
	}
	if err := p.r.BeginFrame(); err != nil {
		return fmt.Errorf("presenter: begin frame: %w", err)
	}
	err := p.r.DrawCall(PipelineKey, 3, []bind_group_provider.BindGroupProvider{p.provider})
	p.r.EndFrame()
	if err != nil {
		return fmt.Errorf("presenter: draw: %w", err)
	}
	p.r.Present()
	return nil
}

func (p *surfacePresenter) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return
	}
	p.released = true
	p.provider.Release()
	p.sampler.Release()
	p.r.ReleasePipeline(PipelineKey)
}
