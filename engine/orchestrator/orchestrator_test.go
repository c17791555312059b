package orchestrator

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/frame_source"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/graph"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/parameter_store"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/presenter"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var palette = []color.RGBA{
	{255, 0, 0, 255},
	{0, 255, 0, 255},
	{0, 0, 255, 255},
}

type fixture struct {
	t       *testing.T
	r       renderer.Renderer
	frames  frame_source.FrameSource
	capture presenter.CapturePresenter
	width   int
	height  int
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func newFixture(t *testing.T, frames ...image.Image) *fixture {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeCPU, renderer.WithMaxTextureDimension(256), renderer.WithWorkers(4))
	require.NoError(t, err)
	t.Cleanup(r.Release)

	if len(frames) == 0 {
		for _, c := range palette {
			frames = append(frames, solid(32, 32, c))
		}
	}
	src, err := frame_source.NewMemorySource(r, "test", frames)
	require.NoError(t, err)

	return &fixture{t: t, r: r, frames: src, capture: presenter.NewCapturePresenter(r), width: 32, height: 32}
}

func (f *fixture) pipeline(opts ...PipelineBuilderOption) Pipeline {
	f.t.Helper()
	opts = append([]PipelineBuilderOption{
		WithKernelValidation(false),
		WithSizeFunc(func() (int, int) { return f.width, f.height }),
	}, opts...)
	p := NewPipeline(f.r, f.frames, f.capture, opts...)
	f.t.Cleanup(p.Dispose)
	return p
}

func (f *fixture) read(tex resource.Texture) *image.RGBA {
	f.t.Helper()
	img, err := f.r.ReadTexture(tex)
	require.NoError(f.t, err)
	return img
}

func assertNear(t *testing.T, want, got color.RGBA, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 1, msgAndArgs...)
	assert.InDelta(t, want.G, got.G, 1, msgAndArgs...)
	assert.InDelta(t, want.B, got.B, 1, msgAndArgs...)
	assert.InDelta(t, want.A, got.A, 1, msgAndArgs...)
}

func TestInitBindsEverySlot(t *testing.T) {
	for _, v := range graph.Variants() {
		t.Run(string(v), func(t *testing.T) {
			f := newFixture(t)
			g, err := graph.ForVariant(v)
			require.NoError(t, err)

			p := f.pipeline(WithGraph(g))
			assert.Equal(t, StateUninitialized, p.State())
			require.NoError(t, p.Init())
			assert.Equal(t, StateReady, p.State())

			require.Len(t, p.Passes(), len(g.Nodes))
			for _, pass := range p.Passes() {
				for _, slot := range pass.Slots() {
					assert.NotNil(t, pass.Bound(slot.Name), "%s.%s", pass.Name(), slot.Name)
				}
				assert.NoError(t, pass.Finalize())
				assert.Equal(t, [3]uint32{2, 2, 1}, pass.Groups())
			}
			assert.ErrorIs(t, p.Init(), ErrInvalidState)
		})
	}
}

func TestUnboundSlotFailsInit(t *testing.T) {
	f := newFixture(t)
	g := graph.Blur()
	g.Nodes[1].Reads = nil

	p := f.pipeline(WithGraph(g))
	err := p.Init()
	require.ErrorIs(t, err, common.ErrUnboundSlot)
	var unbound *common.UnboundSlotError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "copy", unbound.Pass)
	assert.Equal(t, "src", unbound.Slot)

	assert.Equal(t, StateDisposed, p.State())
	assert.Equal(t, 0, f.capture.Frames(), "nothing is presented")
	_, err = f.frames.Frame(0)
	assert.ErrorIs(t, err, common.ErrReleased)
	assert.ErrorIs(t, p.Tick(), ErrInvalidState)
}

func TestOversizeInitIsFatal(t *testing.T) {
	f := newFixture(t)
	f.width = 512

	p := f.pipeline()
	err := p.Init()
	require.ErrorIs(t, err, common.ErrResourceAllocation)
	var allocErr *common.ResourceAllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, 512, allocErr.Width)

	assert.Equal(t, StateDisposed, p.State())
	assert.Equal(t, 0, f.capture.Frames(), "nothing is presented")
	_, err = f.frames.Frame(0)
	assert.ErrorIs(t, err, common.ErrReleased)
	assert.ErrorIs(t, p.Tick(), ErrInvalidState)
}

func TestInvalidGraphFailsInit(t *testing.T) {
	f := newFixture(t)
	g := graph.Blur()
	g.Nodes[2], g.Nodes[3] = g.Nodes[3], g.Nodes[2]

	p := f.pipeline(WithGraph(g))
	assert.ErrorIs(t, p.Init(), graph.ErrReadBeforeWrite)
	assert.Equal(t, StateDisposed, p.State())
}

func TestFrameCycling(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline()
	require.NoError(t, p.Init())

	tmp1, err := p.Pool().Texture("tmp1")
	require.NoError(t, err)

	n := len(palette)
	for i := 0; i < 2*n; i++ {
		assert.Equal(t, i%n, p.Cursor())
		require.NoError(t, p.Tick())
		assert.Equal(t, palette[i%n], f.read(tmp1).RGBAAt(16, 16), "tick %d", i)
	}
	assert.Equal(t, StateRunning, p.State())
	assert.Equal(t, uint64(2*n), p.Ticks())
	assert.Equal(t, 2*n, f.capture.Frames())
}

func TestMontageQuadrants(t *testing.T) {
	c := color.RGBA{51, 102, 204, 255}
	f := newFixture(t, solid(32, 32, c))
	p := f.pipeline()
	require.NoError(t, p.Init())
	require.NoError(t, p.Tick())

	means := presenter.QuadrantMeans(f.capture.Last())
	assertNear(t, color.RGBA{0, 0, 0, 255}, means[0], "edges")
	assertNear(t, color.RGBA{51, 102, 204, 0}, means[1], "difference")
	assertNear(t, c, means[2], "frame")
	assertNear(t, c, means[3], "blur")
}

func TestResizeRebindsEveryPass(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline()
	require.NoError(t, p.Init())
	require.NoError(t, p.Tick())

	oldScreen, err := p.Pool().Texture(graph.Screen)
	require.NoError(t, err)

	f.width, f.height = 64, 48
	require.NoError(t, p.Tick())

	assert.True(t, oldScreen.Released())
	for _, name := range p.Pool().Names() {
		tex, err := p.Pool().Texture(name)
		require.NoError(t, err)
		assert.Equal(t, [2]int{64, 48}, [2]int{tex.Width(), tex.Height()}, name)
	}
	for _, pass := range p.Passes() {
		dest := pass.Dest()
		require.NotNil(t, dest)
		assert.Equal(t, [2]int{64, 48}, [2]int{dest.Width(), dest.Height()}, pass.Name())
		assert.Equal(t, [3]uint32{4, 3, 1}, pass.Groups(), pass.Name())
		for _, slot := range pass.Slots() {
			assert.False(t, pass.Bound(slot.Name).Released(), "%s.%s", pass.Name(), slot.Name)
		}
	}
	assert.Equal(t, [2]int{64, 48}, [2]int{f.capture.Last().Bounds().Dx(), f.capture.Last().Bounds().Dy()})
}

func TestRejectedResizeKeepsRunning(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline()
	require.NoError(t, p.Init())
	require.NoError(t, p.Tick())

	f.width = 512
	require.NoError(t, p.Tick(), "a rejected resize degrades instead of failing")
	require.NoError(t, p.Tick())

	w, h := p.Pool().Size()
	assert.Equal(t, [2]int{32, 32}, [2]int{w, h})
	assert.Equal(t, StateRunning, p.State())
	assert.Equal(t, 3, f.capture.Frames())

	f.width = 48
	require.NoError(t, p.Tick())
	w, _ = p.Pool().Size()
	assert.Equal(t, 48, w)
}

func TestParameterVisibility(t *testing.T) {
	// a single white column on black
	frame := solid(32, 32, color.RGBA{0, 0, 0, 255})
	for y := 0; y < 32; y++ {
		frame.SetRGBA(16, y, color.RGBA{255, 255, 255, 255})
	}
	f := newFixture(t, frame)

	g := graph.Blur()
	blurX := g.Nodes[2].Kernel.CPU
	var mu sync.Mutex
	var seen parameter_store.GPUBlurParams
	g.Nodes[2].Kernel.CPU = func(gid [3]uint32, b pipeline.KernelBindings) {
		params := parameter_store.UnmarshalGPUBlurParams(b.Uniform(3))
		mu.Lock()
		seen = params
		mu.Unlock()
		blurX(gid, b)
	}
	last := func() parameter_store.GPUBlurParams {
		mu.Lock()
		defer mu.Unlock()
		return seen
	}

	p := f.pipeline(WithGraph(g), WithParameters(parameter_store.BlurParameters{Sigma: 0.5, KernelSize: 9}))
	require.NoError(t, p.Init())

	require.NoError(t, p.Tick())
	sharp := f.capture.Last().RGBAAt(16, 16).R
	assert.Equal(t, float32(0.5), last().Sigma)

	require.NoError(t, p.Parameters().Set(parameter_store.KeySigma, 3))
	require.NoError(t, p.Tick())
	assert.Equal(t, parameter_store.GPUBlurParams{Sigma: 3, KSize: 9}, last(), "the edit is visible on the next tick")

	soft := f.capture.Last().RGBAAt(16, 16).R
	assert.Less(t, soft, sharp)
	assert.Greater(t, f.capture.Last().RGBAAt(18, 16).R, uint8(0), "sigma 3 spreads the column")
}

type failingSurface struct {
	released int
}

func (s *failingSurface) Present(resource.Texture) error { return errors.New("surface lost") }
func (s *failingSurface) Release()                       { s.released++ }

func TestFatalTickDisposes(t *testing.T) {
	f := newFixture(t)
	surface := &failingSurface{}
	p := NewPipeline(f.r, f.frames, surface, WithKernelValidation(false))
	require.NoError(t, p.Init())

	err := p.Tick()
	require.EqualError(t, err, "surface lost")
	assert.Equal(t, StateDisposed, p.State())
	assert.Equal(t, 1, surface.released)

	p.Dispose()
	assert.Equal(t, 1, surface.released, "dispose runs once")
	assert.ErrorIs(t, p.Tick(), ErrInvalidState)
}

func TestDisposeReleasesEverything(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline()
	require.NoError(t, p.Init())
	require.NoError(t, p.Tick())

	screen, err := p.Pool().Texture(graph.Screen)
	require.NoError(t, err)
	buffer := p.Parameters().Buffer()
	sampler := p.Sampler()

	p.Dispose()
	p.Dispose()

	assert.Equal(t, StateDisposed, p.State())
	assert.True(t, screen.Released())
	assert.True(t, buffer.Released())
	assert.True(t, sampler.Released())
	assert.Empty(t, f.r.Pipelines(), "every pass pipeline is unregistered")
	_, err = f.frames.Frame(0)
	assert.ErrorIs(t, err, common.ErrReleased)
}
