package parameter_store

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...ParameterStoreBuilderOption) ParameterStore {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeCPU)
	require.NoError(t, err)
	t.Cleanup(r.Release)

	s, err := NewParameterStore(r, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func TestGPUBlurParamsLayout(t *testing.T) {
	g := GPUBlurParams{Sigma: 3, KSize: -2}
	buf := g.Marshal()
	require.Len(t, buf, 8)
	assert.Equal(t, g, UnmarshalGPUBlurParams(buf))
	assert.Contains(t, GPUBlurParamsSource, "struct "+GPUBlurParamsTypeName)
}

func TestDefaults(t *testing.T) {
	s := newStore(t)
	assert.Equal(t, BlurParameters{Sigma: 20, KernelSize: 24}, s.Parameters())
	assert.Equal(t, uint64(8), s.Buffer().Size())
}

func TestSetValidation(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Set(KeySigma, 3))
	require.NoError(t, s.Set(KeyKernelSize, 7.9))
	assert.Equal(t, BlurParameters{Sigma: 3, KernelSize: 7}, s.Parameters())

	assert.ErrorIs(t, s.Set(KeySigma, 0), ErrInvalidParameter)
	assert.ErrorIs(t, s.Set(KeySigma, -1), ErrInvalidParameter)
	assert.ErrorIs(t, s.Set(KeySigma, 1e-25), ErrInvalidParameter, "2σ² underflows in float32")
	assert.ErrorIs(t, s.Set(KeySigma, 1e20), ErrInvalidParameter, "2σ² overflows in float32")
	assert.ErrorIs(t, s.Set(KeySigma, math.Inf(1)), ErrInvalidParameter)
	assert.ErrorIs(t, s.Set(KeySigma, math.NaN()), ErrInvalidParameter)
	require.NoError(t, s.Set(KeySigma, MinSigma))
	require.NoError(t, s.Set(KeySigma, MaxSigma))
	require.NoError(t, s.Set(KeySigma, 3))
	assert.ErrorIs(t, s.Set(KeyKernelSize, 0.5), ErrInvalidParameter)
	assert.ErrorIs(t, s.Set(KeyKernelSize, MaxKernelSize+1), ErrInvalidParameter)
	assert.ErrorIs(t, s.Set("radius", 2), ErrUnknownParameter)

	assert.Equal(t, BlurParameters{Sigma: 3, KernelSize: 7}, s.Parameters(), "rejected edits leave the values untouched")
}

func TestSetParameters(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.SetParameters(BlurParameters{Sigma: 1.5, KernelSize: 5}))
	assert.Equal(t, BlurParameters{Sigma: 1.5, KernelSize: 5}, s.Parameters())

	assert.ErrorIs(t, s.SetParameters(BlurParameters{Sigma: 1, KernelSize: 0}), ErrInvalidParameter)
	assert.Equal(t, BlurParameters{Sigma: 1.5, KernelSize: 5}, s.Parameters())
}

func TestOnParameterChangedForwardsToSet(t *testing.T) {
	s := newStore(t)

	s.OnParameterChanged(KeySigma, 4)
	s.OnParameterChanged(KeyKernelSize, -3)
	s.OnParameterChanged("unknown", 1)

	assert.Equal(t, BlurParameters{Sigma: 4, KernelSize: 24}, s.Parameters())
}

func TestInitialParametersValidated(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeCPU)
	require.NoError(t, err)
	defer r.Release()

	_, err = NewParameterStore(r, WithParameters(BlurParameters{Sigma: -1, KernelSize: 3}))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestReleaseIsIdempotent(t *testing.T) {
	s := newStore(t)
	s.Release()
	s.Release()

	assert.True(t, s.Buffer().Released())
	assert.ErrorIs(t, s.Set(KeySigma, 2), common.ErrReleased)
}

func TestKeyHandler(t *testing.T) {
	s := newStore(t, WithParameters(BlurParameters{Sigma: 4, KernelSize: 2}))
	keys := KeyHandler(s)

	keys(common.KeyUp)
	assert.Equal(t, 5.0, s.Parameters().Sigma)
	keys(common.KeyDown)
	assert.Equal(t, 4.0, s.Parameters().Sigma)

	keys(common.KeyRight)
	assert.Equal(t, 3, s.Parameters().KernelSize)
	keys(common.KeyLeft)
	keys(common.KeyLeft)
	assert.Equal(t, 1, s.Parameters().KernelSize)
	keys(common.KeyLeft)
	assert.Equal(t, 1, s.Parameters().KernelSize, "kernelSize 0 is rejected")

	require.NoError(t, s.Set(KeySigma, MaxSigma))
	keys(common.KeyUp)
	assert.Equal(t, MaxSigma, s.Parameters().Sigma, "sigma stops at the upper bound")
	require.NoError(t, s.Set(KeySigma, MinSigma))
	keys(common.KeyDown)
	assert.Equal(t, MinSigma, s.Parameters().Sigma, "sigma stops at the lower bound")

	keys(common.KeySpace)
	keys(common.KeyR)
	assert.Equal(t, DefaultParameters(), s.Parameters())
}
