package texture_pool

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T, opts ...TexturePoolBuilderOption) TexturePool {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeCPU, renderer.WithMaxTextureDimension(256))
	require.NoError(t, err)
	t.Cleanup(r.Release)

	p := NewTexturePool(r, opts...)
	t.Cleanup(p.Dispose)
	return p
}

func textures(t *testing.T, p TexturePool) []resource.Texture {
	t.Helper()
	var out []resource.Texture
	for _, name := range p.Names() {
		tex, err := p.Texture(name)
		require.NoError(t, err)
		out = append(out, tex)
	}
	return out
}

func TestAllocateCreatesEveryTexture(t *testing.T) {
	p := newPool(t)
	assert.Equal(t, []string{"screen", "tmp1", "tmp2", "tmp3", "tmp4", "tmp5"}, p.Names())

	require.NoError(t, p.Allocate(64, 48))
	w, h := p.Size()
	assert.Equal(t, [2]int{64, 48}, [2]int{w, h})
	assert.Equal(t, uint64(1), p.Generation())

	for _, tex := range textures(t, p) {
		assert.Equal(t, 64, tex.Width())
		assert.Equal(t, 48, tex.Height())
		assert.True(t, tex.Usage().Has(resource.TextureUsageSampled|resource.TextureUsageStorage))
	}

	assert.Error(t, p.Allocate(64, 48), "a second Allocate is rejected")
	_, err := p.Texture("tmp9")
	assert.ErrorIs(t, err, ErrUnknownTexture)
}

func TestWithTempCount(t *testing.T) {
	p := newPool(t, WithTempCount(2))
	assert.Equal(t, []string{"screen", "tmp1", "tmp2"}, p.Names())
}

func TestResizeSwapsWholeGeneration(t *testing.T) {
	p := newPool(t)
	require.NoError(t, p.Allocate(64, 48))
	old := textures(t, p)

	var rebinds int
	p.OnRebind(func(pool TexturePool) {
		rebinds++
		w, h := pool.Size()
		assert.Equal(t, [2]int{100, 30}, [2]int{w, h})
		for _, tex := range textures(t, pool) {
			assert.False(t, tex.Released())
		}
	})

	require.NoError(t, p.Resize(100, 30))
	assert.Equal(t, 1, rebinds)
	assert.Equal(t, uint64(2), p.Generation())

	for _, tex := range old {
		assert.True(t, tex.Released(), "%s of the previous generation is released", tex.Label())
	}
	for _, tex := range textures(t, p) {
		assert.Equal(t, 100, tex.Width())
		assert.Equal(t, 30, tex.Height())
	}

	require.NoError(t, p.Resize(100, 30))
	assert.Equal(t, 1, rebinds, "same size is a no-op")
	assert.Equal(t, uint64(2), p.Generation())
}

func TestRejectedResizeKeepsPreviousSet(t *testing.T) {
	p := newPool(t)
	require.NoError(t, p.Allocate(64, 48))
	before := textures(t, p)

	p.OnRebind(func(TexturePool) { t.Fatal("rebind must not run for a rejected resize") })

	err := p.Resize(512, 48)
	require.ErrorIs(t, err, common.ErrResourceAllocation)

	w, h := p.Size()
	assert.Equal(t, [2]int{64, 48}, [2]int{w, h})
	assert.Equal(t, uint64(1), p.Generation())
	after := textures(t, p)
	assert.Equal(t, before, after)
	for _, tex := range after {
		assert.False(t, tex.Released())
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	p := newPool(t)
	require.NoError(t, p.Allocate(16, 16))
	all := textures(t, p)

	p.Dispose()
	p.Dispose()

	for _, tex := range all {
		assert.True(t, tex.Released())
	}
	_, err := p.Texture(ScreenName)
	assert.ErrorIs(t, err, common.ErrReleased)
	assert.ErrorIs(t, p.Resize(32, 32), common.ErrReleased)
}
