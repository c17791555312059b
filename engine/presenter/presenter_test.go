package presenter

import (
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeCPU, renderer.WithWorkers(1))
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func quadrants(w, h int, colors [4]color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := 0
			if x >= w/2 {
				i++
			}
			if y >= h/2 {
				i += 2
			}
			img.SetRGBA(x, y, colors[i])
		}
	}
	return img
}

var corners = [4]color.RGBA{
	{255, 0, 0, 255},
	{0, 255, 0, 255},
	{0, 0, 255, 255},
	{255, 255, 255, 255},
}

func TestCapturePresenterReadsBack(t *testing.T) {
	r := newRenderer(t)
	tex, err := r.CreateTexture("screen", 8, 8, resource.TextureUsageSampled|resource.TextureUsageCopySrc)
	require.NoError(t, err)
	require.NoError(t, r.WriteTexture(tex, common.NewTextureStagingData(quadrants(8, 8, corners))))

	var seen []int
	p := NewCapturePresenter(r, WithFrameCallback(func(index int, img *image.RGBA) {
		seen = append(seen, index)
	}))
	assert.Nil(t, p.Last())

	require.NoError(t, p.Present(tex))
	require.NoError(t, p.Present(tex))

	assert.Equal(t, 2, p.Frames())
	assert.Equal(t, []int{0, 1}, seen)
	require.NotNil(t, p.Last())
	assert.Equal(t, corners, QuadrantMeans(p.Last()))

	p.Release()
	assert.ErrorIs(t, p.Present(tex), common.ErrReleased)
}

func TestQuadrantMeansAverages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{100, 0, 0, 255})
	means := QuadrantMeans(img)
	assert.Equal(t, color.RGBA{100, 0, 0, 255}, means[0])
	assert.Equal(t, color.RGBA{}, means[3])

	assert.Equal(t, [4]color.RGBA{}, QuadrantMeans(nil))
}

func TestSurfacePresenterNeedsSurface(t *testing.T) {
	r := newRenderer(t)
	_, err := NewSurfacePresenter(r, WithShaderValidation(false))
	assert.ErrorIs(t, err, common.ErrKernelCompile)
}

func TestPresentShaderParses(t *testing.T) {
	vs, err := shader.NewShader("vs", shader.ShaderTypeVertex, presentSource, shader.WithValidation(false))
	require.NoError(t, err)
	assert.Equal(t, "vs_main", vs.EntryPoint())

	fs, err := shader.NewShader("fs", shader.ShaderTypeFragment, presentSource, shader.WithValidation(false))
	require.NoError(t, err)
	assert.Equal(t, "fs_main", fs.EntryPoint())

	slots := fs.Slots()
	require.Len(t, slots, 2)
	assert.Equal(t, shader.SlotKindSampledTexture, slots[0].Kind)
	assert.Equal(t, shader.SlotKindSampler, slots[1].Kind)
}
