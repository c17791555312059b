package engine

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-vidfx/engine/frame_source"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/presenter"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// newPipeline builds a CPU pipeline over two solid frames. A nil surface captures frames.
func newPipeline(t *testing.T, surface func(r renderer.Renderer) presenter.PresentationSurface) orchestrator.Pipeline {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeCPU, renderer.WithWorkers(2))
	require.NoError(t, err)
	t.Cleanup(r.Release)

	frames, err := frame_source.NewMemorySource(r, "engine", []image.Image{
		solid(color.RGBA{255, 0, 0, 255}),
		solid(color.RGBA{0, 0, 255, 255}),
	})
	require.NoError(t, err)

	if surface == nil {
		surface = func(r renderer.Renderer) presenter.PresentationSurface { return presenter.NewCapturePresenter(r) }
	}
	return orchestrator.NewPipeline(r, frames, surface(r), orchestrator.WithKernelValidation(false))
}

func TestRunStopsAfterMaxFrames(t *testing.T) {
	var capture presenter.CapturePresenter
	p := newPipeline(t, func(r renderer.Renderer) presenter.PresentationSurface {
		capture = presenter.NewCapturePresenter(r)
		return capture
	})

	rendered := 0
	e := NewEngine(p, WithMaxFrames(5), WithTickRate(1000))
	e.SetRenderCallback(func(float32) { rendered++ })

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(5), p.Ticks())
	assert.Equal(t, 5, rendered)
	assert.Equal(t, 5, capture.Frames())
	assert.Equal(t, orchestrator.StateDisposed, p.State(), "Run disposes the pipeline")
}

func TestTickCallbackCanQuit(t *testing.T) {
	p := newPipeline(t, nil)

	ticks := 0
	e := NewEngine(p, WithTickRate(500), WithRenderFrameLimit(200))
	e.SetTickCallback(func(dt float32) {
		ticks++
		if ticks == 3 {
			e.Quit()
		}
	})

	require.NoError(t, e.Run())
	assert.GreaterOrEqual(t, ticks, 3)
	e.Quit()
}

type failingSurface struct{}

func (failingSurface) Present(resource.Texture) error { return errors.New("surface lost") }
func (failingSurface) Release()                       {}

func TestRunReturnsPipelineError(t *testing.T) {
	p := newPipeline(t, func(renderer.Renderer) presenter.PresentationSurface { return failingSurface{} })
	e := NewEngine(p)

	assert.EqualError(t, e.Run(), "surface lost")
	assert.Equal(t, orchestrator.StateDisposed, p.State())
}

func TestRenderPanicIsRecovered(t *testing.T) {
	p := newPipeline(t, nil)
	e := NewEngine(p, WithProfiling(true))
	e.SetRenderCallback(func(float32) { panic("boom") })

	err := e.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, uint64(1), p.Ticks())
}

func TestRunFailsOnDisposedPipeline(t *testing.T) {
	p := newPipeline(t, nil)
	p.Dispose()

	e := NewEngine(p)
	assert.ErrorIs(t, e.Run(), orchestrator.ErrInvalidState)
}

func TestFrameDuration(t *testing.T) {
	assert.Zero(t, frameDuration(0))
	assert.Equal(t, tickInterval(60), tickInterval(-1))
	assert.InDelta(t, 1e9/30, float64(frameDuration(30)), 1)
}
