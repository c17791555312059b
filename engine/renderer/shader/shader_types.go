package shader

import "github.com/cogentcore/webgpu/wgpu"

// SlotKind classifies a group 0 binding by the resource it expects.
type SlotKind int

const (
	// SlotKindStorageTexture is a write-only texture_storage_2d destination.
	SlotKindStorageTexture SlotKind = iota

	// SlotKindSampledTexture is a texture_2d source read through a sampler.
	SlotKindSampledTexture

	// SlotKindSampler is a filtering sampler.
	SlotKindSampler

	// SlotKindUniform is a var<uniform> buffer.
	SlotKindUniform
)

func (k SlotKind) String() string {
	switch k {
	case SlotKindStorageTexture:
		return "storage_texture"
	case SlotKindSampledTexture:
		return "sampled_texture"
	case SlotKindSampler:
		return "sampler"
	case SlotKindUniform:
		return "uniform"
	default:
		return "unknown"
	}
}

// Slot is one binding declared by a kernel in bind group 0.
type Slot struct {
	// Name is the WGSL variable name, used as the bind slot name.
	Name string

	// Binding is the @binding index.
	Binding int

	// Kind is the resource category the slot accepts.
	Kind SlotKind

	// MinSize is the uniform buffer size resolved from the bound struct type, 0 for non-buffers.
	MinSize uint64
}

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type.
// Used to compute MinBindingSize for buffer bindings.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}
