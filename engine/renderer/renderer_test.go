package renderer

import (
	"encoding/binary"
	"math"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fillKernel = `
@group(0) @binding(0) var dest: texture_storage_2d<rgba8unorm, write>;
@group(0) @binding(1) var<uniform> value: vec4<f32>;

@compute @workgroup_size(16, 16, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    textureStore(dest, vec2<i32>(gid.xy), value);
}
`

const copyKernel = `
@group(0) @binding(0) var dest: texture_storage_2d<rgba8unorm, write>;
@group(0) @binding(1) var srcSampler: sampler;
@group(0) @binding(2) var src: texture_2d<f32>;

@compute @workgroup_size(16, 16, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let res = textureDimensions(dest);
    let uv = vec2<f32>(gid.xy) / vec2<f32>(res);
    textureStore(dest, vec2<i32>(gid.xy), textureSampleLevel(src, srcSampler, uv, 0.0));
}
`

func fillCPU(gid [3]uint32, b pipeline.KernelBindings) {
	dest := b.Storage(0)
	u := b.Uniform(1)
	var c resource.Color
	for i := range c {
		c[i] = math.Float32frombits(binary.LittleEndian.Uint32(u[i*4:]))
	}
	dest.Store(int(gid[0]), int(gid[1]), c)
}

func copyCPU(gid [3]uint32, b pipeline.KernelBindings) {
	dest := b.Storage(0)
	u := float32(gid[0]) / float32(dest.Width())
	v := float32(gid[1]) / float32(dest.Height())
	dest.Store(int(gid[0]), int(gid[1]), resource.Sample(b.Sampled(2), b.Sampler(1), u, v))
}

func newCPURenderer(t *testing.T, opts ...RendererBuilderOption) Renderer {
	t.Helper()
	r, err := NewRenderer(BackendTypeCPU, opts...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func registerKernel(t *testing.T, r Renderer, key, source string, k pipeline.CPUKernel) {
	t.Helper()
	s, err := shader.NewShader(key, shader.ShaderTypeCompute, source, shader.WithValidation(false))
	require.NoError(t, err)
	require.NoError(t, r.RegisterPipelines(pipeline.NewPipeline(key, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(s),
		pipeline.WithCPUKernel(k),
	)))
}

func colorBytes(c resource.Color) []byte {
	out := make([]byte, 16)
	for i, f := range c {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

const allUsage = resource.TextureUsageSampled | resource.TextureUsageStorage | resource.TextureUsageCopySrc

func TestCreateTextureRejectsSizeBeyondLimit(t *testing.T) {
	r := newCPURenderer(t, WithMaxTextureDimension(64))

	_, err := r.CreateTexture("big", 65, 10, allUsage)
	require.ErrorIs(t, err, common.ErrResourceAllocation)

	var allocErr *common.ResourceAllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, "big", allocErr.Resource)
	assert.Equal(t, 65, allocErr.Width)

	_, err = r.CreateTexture("empty", 0, 10, allUsage)
	assert.ErrorIs(t, err, common.ErrResourceAllocation)

	tex, err := r.CreateTexture("ok", 64, 64, allUsage)
	require.NoError(t, err)
	assert.Equal(t, 64, tex.Width())
}

func TestDispatchesRunInRecordingOrder(t *testing.T) {
	r := newCPURenderer(t, WithWorkers(4))
	registerKernel(t, r, "fill", fillKernel, fillCPU)
	registerKernel(t, r, "copy", copyKernel, copyCPU)

	a, err := r.CreateTexture("a", 40, 24, allUsage)
	require.NoError(t, err)
	b, err := r.CreateTexture("b", 40, 24, allUsage)
	require.NoError(t, err)
	value, err := r.CreateUniformBuffer("value", 16)
	require.NoError(t, err)
	samp, err := r.CreateSampler("sampler", common.SamplerStagingData{})
	require.NoError(t, err)

	require.NoError(t, r.WriteBuffers([]bind_group_provider.BufferWrite{{Buffer: value, Data: colorBytes(resource.Color{1, 0, 0, 1})}}))

	fill := bind_group_provider.NewBindGroupProvider("fill",
		bind_group_provider.WithResource(0, a),
		bind_group_provider.WithResource(1, value),
	)
	cp := bind_group_provider.NewBindGroupProvider("copy",
		bind_group_provider.WithResource(0, b),
		bind_group_provider.WithResource(1, samp),
		bind_group_provider.WithResource(2, a),
	)

	groups := common.WorkGroupCount(40, 24)
	require.NoError(t, r.BeginComputeFrame())
	require.NoError(t, r.DispatchCompute("fill", fill, groups))
	require.NoError(t, r.DispatchCompute("copy", cp, groups))

	img, err := r.ReadTexture(b)
	require.NoError(t, err)
	assert.Zero(t, img.RGBAAt(5, 5).A, "nothing runs before the frame is submitted")

	require.NoError(t, r.EndComputeFrame())

	img, err = r.ReadTexture(b)
	require.NoError(t, err)
	for _, p := range [][2]int{{0, 0}, {39, 23}, {17, 9}} {
		px := img.RGBAAt(p[0], p[1])
		assert.Equal(t, [4]uint8{255, 0, 0, 255}, [4]uint8{px.R, px.G, px.B, px.A})
	}
}

func TestBufferWriteBeforeSubmitIsVisible(t *testing.T) {
	r := newCPURenderer(t)

	var mu sync.Mutex
	var seen [][]byte
	registerKernel(t, r, "fill", fillKernel, func(gid [3]uint32, b pipeline.KernelBindings) {
		if gid == [3]uint32{0, 0, 0} {
			mu.Lock()
			seen = append(seen, append([]byte(nil), b.Uniform(1)...))
			mu.Unlock()
		}
		fillCPU(gid, b)
	})

	tex, err := r.CreateTexture("t", 8, 8, allUsage)
	require.NoError(t, err)
	value, err := r.CreateUniformBuffer("value", 16)
	require.NoError(t, err)
	provider := bind_group_provider.NewBindGroupProvider("fill",
		bind_group_provider.WithResource(0, tex),
		bind_group_provider.WithResource(1, value),
	)

	want := colorBytes(resource.Color{0, 1, 0, 1})
	require.NoError(t, r.WriteBuffers([]bind_group_provider.BufferWrite{{Buffer: value, Data: want}}))
	require.NoError(t, r.BeginComputeFrame())
	require.NoError(t, r.DispatchCompute("fill", provider, common.WorkGroupCount(8, 8)))
	require.NoError(t, r.EndComputeFrame())

	require.Len(t, seen, 1)
	assert.Equal(t, want, seen[0])

	img, err := r.ReadTexture(tex)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), img.RGBAAt(7, 7).G)
}

func TestDispatchRejectsReleasedResource(t *testing.T) {
	r := newCPURenderer(t)
	registerKernel(t, r, "fill", fillKernel, fillCPU)

	tex, err := r.CreateTexture("t", 8, 8, allUsage)
	require.NoError(t, err)
	value, err := r.CreateUniformBuffer("value", 16)
	require.NoError(t, err)
	provider := bind_group_provider.NewBindGroupProvider("fill",
		bind_group_provider.WithResource(0, tex),
		bind_group_provider.WithResource(1, value),
	)

	tex.Release()
	tex.Release()
	assert.True(t, tex.Released())

	require.NoError(t, r.BeginComputeFrame())
	err = r.DispatchCompute("fill", provider, common.WorkGroupCount(8, 8))
	assert.ErrorIs(t, err, common.ErrReleased)
	require.NoError(t, r.EndComputeFrame())

	_, err = r.ReadTexture(tex)
	assert.ErrorIs(t, err, common.ErrReleased)
}

func TestDispatchOutsideFrameFails(t *testing.T) {
	r := newCPURenderer(t)
	registerKernel(t, r, "fill", fillKernel, fillCPU)

	tex, err := r.CreateTexture("t", 8, 8, allUsage)
	require.NoError(t, err)
	value, err := r.CreateUniformBuffer("value", 16)
	require.NoError(t, err)
	provider := bind_group_provider.NewBindGroupProvider("fill",
		bind_group_provider.WithResource(0, tex),
		bind_group_provider.WithResource(1, value),
	)

	assert.Error(t, r.DispatchCompute("fill", provider, common.WorkGroupCount(8, 8)))
	assert.Error(t, r.DispatchCompute("missing", provider, common.WorkGroupCount(8, 8)))
}

func TestWriteBuffersBoundsChecked(t *testing.T) {
	r := newCPURenderer(t)
	value, err := r.CreateUniformBuffer("value", 8)
	require.NoError(t, err)

	err = r.WriteBuffers([]bind_group_provider.BufferWrite{{Buffer: value, Offset: 4, Data: make([]byte, 8)}})
	assert.Error(t, err)
}

func TestWriteTextureSizeMismatch(t *testing.T) {
	r := newCPURenderer(t)
	tex, err := r.CreateTexture("t", 4, 4, allUsage)
	require.NoError(t, err)

	err = r.WriteTexture(tex, common.TextureStagingData{Pixels: make([]byte, 4*2*4), Width: 4, Height: 2})
	assert.Error(t, err)

	pixels := make([]byte, 4*4*4)
	for i := range pixels {
		pixels[i] = 200
	}
	require.NoError(t, r.WriteTexture(tex, common.TextureStagingData{Pixels: pixels, Width: 4, Height: 4}))
	img, err := r.ReadTexture(tex)
	require.NoError(t, err)
	assert.Equal(t, pixels, img.Pix)
}

func TestCPUBackendHasNoSurface(t *testing.T) {
	r := newCPURenderer(t)
	assert.Error(t, r.BeginFrame())
	assert.Equal(t, BackendTypeCPU, r.BackendType())
	assert.Equal(t, DefaultMaxTextureDimension, r.MaxTextureDimension())
}

func TestSamplerDefaults(t *testing.T) {
	r := newCPURenderer(t)
	s, err := r.CreateSampler("s", common.SamplerStagingData{})
	require.NoError(t, err)
	assert.Equal(t, wgpu.AddressModeClampToEdge, s.Staging().AddressModeU)
	assert.Equal(t, wgpu.FilterModeNearest, s.Staging().MagFilter)
	assert.Equal(t, float32(32), s.Staging().LodMaxClamp)
}

func TestRegisterWithoutCPUKernelFails(t *testing.T) {
	r := newCPURenderer(t)
	s, err := shader.NewShader("fill", shader.ShaderTypeCompute, fillKernel, shader.WithValidation(false))
	require.NoError(t, err)

	err = r.RegisterPipelines(pipeline.NewPipeline("fill", pipeline.PipelineTypeCompute, pipeline.WithComputeShader(s)))
	assert.Error(t, err)
	assert.Nil(t, r.Pipeline("fill"))
}

func TestReleasePipeline(t *testing.T) {
	r := newCPURenderer(t)
	registerKernel(t, r, "fill", fillKernel, fillCPU)
	require.NotNil(t, r.Pipeline("fill"))

	r.ReleasePipeline("fill")
	assert.Nil(t, r.Pipeline("fill"))
	assert.Empty(t, r.Pipelines())
}
