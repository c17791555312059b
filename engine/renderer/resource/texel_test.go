package resource

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradientImage(w, h int) *HostImage {
	img := NewHostImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Store(x, y, Color{float32(x) / 255, float32(y) / 255, 0, 1})
		}
	}
	return img
}

func TestHostImageStoreOutOfBoundsIsDropped(t *testing.T) {
	img := NewHostImage(2, 2)
	img.Store(-1, 0, Color{1, 1, 1, 1})
	img.Store(2, 1, Color{1, 1, 1, 1})
	img.Store(0, 5, Color{1, 1, 1, 1})

	for _, b := range img.Snapshot().Pix {
		assert.Zero(t, b)
	}
}

func TestHostImageStoreClampsAndRounds(t *testing.T) {
	img := NewHostImage(1, 1)
	img.Store(0, 0, Color{-0.5, 1.5, 0.5, 1})

	px := img.Snapshot().RGBAAt(0, 0)
	assert.Equal(t, uint8(0), px.R)
	assert.Equal(t, uint8(255), px.G)
	assert.Equal(t, uint8(128), px.B)
	assert.Equal(t, uint8(255), px.A)
}

func TestSampleNearestAtTexelCornersIsIdentity(t *testing.T) {
	img := gradientImage(8, 4)
	s := common.ClampSampler(wgpu.FilterModeNearest)

	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			got := Sample(img, s, float32(x)/8, float32(y)/4)
			assert.Equal(t, img.Load(x, y), got, "texel %d,%d", x, y)
		}
	}
}

func TestSampleClampToEdge(t *testing.T) {
	img := gradientImage(4, 4)
	s := common.ClampSampler(wgpu.FilterModeNearest)

	assert.Equal(t, img.Load(0, 0), Sample(img, s, -0.75, -2))
	assert.Equal(t, img.Load(3, 3), Sample(img, s, 1.5, 7))
}

func TestSampleRepeat(t *testing.T) {
	img := gradientImage(4, 1)
	s := common.SamplerStagingData{AddressModeU: wgpu.AddressModeRepeat, AddressModeV: wgpu.AddressModeRepeat}

	assert.Equal(t, img.Load(3, 0), Sample(img, s, -0.25, 0))
	assert.Equal(t, img.Load(1, 0), Sample(img, s, 1.25, 0))
}

func TestSampleLinearBlendsNeighbours(t *testing.T) {
	img := NewHostImage(2, 1)
	img.Store(0, 0, Color{0, 0, 0, 1})
	img.Store(1, 0, Color{1, 1, 1, 1})
	s := common.ClampSampler(wgpu.FilterModeLinear)

	mid := Sample(img, s, 0.5, 0.5)
	require.InDelta(t, 0.5, mid[0], 1e-6)
	assert.InDelta(t, 1.0, mid[3], 1e-6)

	center := Sample(img, s, 0.25, 0.5)
	assert.InDelta(t, 0.0, center[0], 1e-6)
}

func TestTextureUsageHas(t *testing.T) {
	u := TextureUsageSampled | TextureUsageStorage
	assert.True(t, u.Has(TextureUsageSampled))
	assert.True(t, u.Has(TextureUsageStorage))
	assert.False(t, u.Has(TextureUsageCopySrc))
}
