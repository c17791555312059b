package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testParamsSource = `struct TestParams {
    sigma: f32,
    kSize: i32,
};`

const testKernel = `
//@oxy:include test_params
@group(0) @binding(0) var dest: texture_storage_2d<rgba8unorm, write>;
@group(0) @binding(2) var src: texture_2d<f32>;
@group(0) @binding(1) var srcSampler: sampler;
//@oxy:group 0 3 storage_uniform params test_params

/* a block /* nested */ comment with @group(0) @binding(9) var ghost: sampler; */
@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    // @group(0) @binding(8) var commented: sampler;
    let res = textureDimensions(dest);
}
`

func newTestKernel(t *testing.T) Shader {
	t.Helper()
	s, err := NewShader("test", ShaderTypeCompute, testKernel,
		WithStruct("test_params", testParamsSource, "TestParams"),
		WithValidation(false),
	)
	require.NoError(t, err)
	return s
}

func TestSlotsSortedByBinding(t *testing.T) {
	s := newTestKernel(t)

	slots := s.Slots()
	require.Len(t, slots, 4)
	assert.Equal(t, []Slot{
		{Name: "dest", Binding: 0, Kind: SlotKindStorageTexture},
		{Name: "srcSampler", Binding: 1, Kind: SlotKindSampler},
		{Name: "src", Binding: 2, Kind: SlotKindSampledTexture},
		{Name: "params", Binding: 3, Kind: SlotKindUniform, MinSize: 8},
	}, slots)
}

func TestSlotLookup(t *testing.T) {
	s := newTestKernel(t)

	slot, ok := s.Slot("params")
	require.True(t, ok)
	assert.Equal(t, 3, slot.Binding)

	_, ok = s.Slot("ghost")
	assert.False(t, ok)
}

func TestLayoutDescriptor(t *testing.T) {
	s := newTestKernel(t)

	desc := s.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 4)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, desc.Entries[0].StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, desc.Entries[0].StorageTexture.Access)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, desc.Entries[1].Sampler.Type)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, desc.Entries[2].Texture.SampleType)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, desc.Entries[3].Buffer.Type)
	assert.Equal(t, uint64(8), desc.Entries[3].Buffer.MinBindingSize)
	for _, e := range desc.Entries {
		assert.Equal(t, wgpu.ShaderStageCompute, e.Visibility)
	}
}

func TestWorkgroupSizeAndEntryPoint(t *testing.T) {
	s := newTestKernel(t)

	assert.Equal(t, [3]uint32{16, 16, 1}, s.WorkgroupSize())
	assert.Equal(t, "main", s.EntryPoint())
	assert.Equal(t, "test", s.Module().Label)
}

func TestIncludeAndGroupExpansion(t *testing.T) {
	s := newTestKernel(t)

	assert.Contains(t, s.Source(), "struct TestParams {")
	assert.Contains(t, s.Source(), "@group(0) @binding(3) var<uniform> params: TestParams;")
	assert.NotContains(t, s.Source(), "@oxy:")

	decls := s.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, AnnotationTypeBindingGroup, decls[0].Type)
	assert.Equal(t, 3, *decls[0].Binding)
}

func TestUnregisteredStructIsRejected(t *testing.T) {
	_, err := NewShader("test", ShaderTypeCompute, testKernel, WithValidation(false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test_params")
}

func TestMalformedAnnotation(t *testing.T) {
	_, err := NewShader("bad", ShaderTypeCompute, "//@oxy:group 0 x storage_uniform p q\n@compute @workgroup_size(1) fn main() {}", WithValidation(false))
	assert.Error(t, err)

	_, err = NewShader("bad", ShaderTypeCompute, "//@oxy:frobnicate\n@compute @workgroup_size(1) fn main() {}", WithValidation(false))
	assert.Error(t, err)
}

func TestUnsupportedBindingType(t *testing.T) {
	src := `@group(0) @binding(0) var<storage, read_write> data: array<f32>;
@compute @workgroup_size(1) fn main() {}`
	_, err := NewShader("storage", ShaderTypeCompute, src, WithValidation(false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data")
}

func TestMissingEntryPointAndEmptySource(t *testing.T) {
	_, err := NewShader("empty", ShaderTypeCompute, "   ")
	assert.Error(t, err)

	_, err = NewShader("frag", ShaderTypeCompute, "@fragment fn fs() -> @location(0) vec4f { return vec4f(1.0); }", WithValidation(false))
	assert.Error(t, err)
}

func TestWorkgroupSizeDefaults(t *testing.T) {
	assert.Equal(t, [3]uint32{1, 1, 1}, parseWorkgroupSize("fn main() {}"))
	assert.Equal(t, [3]uint32{64, 1, 1}, parseWorkgroupSize("@compute @workgroup_size(64) fn main() {}"))
	assert.Equal(t, [3]uint32{4, 4, 2}, parseWorkgroupSize("@compute @workgroup_size(4, 4, 2) fn main() {}"))
}

func TestStructLayoutWithNestedArray(t *testing.T) {
	structs := parseStructBlocks(`struct Inner { a: vec3f, b: f32 }
struct Outer { head: f32, items: array<Inner, 2> }`)
	sizes := computeStructSizes(structs)

	assert.Equal(t, wgslTypeLayout{16, 16}, sizes["Inner"])
	assert.Equal(t, wgslTypeLayout{48, 16}, sizes["Outer"])
}
