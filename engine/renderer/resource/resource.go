// Package resource defines the backend-neutral handles the renderer hands out for textures,
// samplers and uniform buffers. Passes, pools and frame sources hold these handles and never
// touch a backend type directly, which keeps the same orchestration code running on the WGPU
// device and on the CPU reference backend.
package resource

import (
	"github.com/Carmen-Shannon/oxy-vidfx/common"
)

// TextureUsage is a bit set describing how a texture may be bound.
type TextureUsage uint32

const (
	// TextureUsageSampled allows binding the texture as a sampled (read) source.
	TextureUsageSampled TextureUsage = 1 << iota

	// TextureUsageStorage allows binding the texture as a write-only storage destination.
	TextureUsageStorage

	// TextureUsageCopySrc allows reading the texture back to the host.
	TextureUsageCopySrc
)

// Has reports whether every bit of flag is set on u.
func (u TextureUsage) Has(flag TextureUsage) bool {
	return u&flag == flag
}

// Kind classifies a resource handle for slot type checking.
type Kind int

const (
	KindTexture Kind = iota
	KindSampler
	KindBuffer
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindSampler:
		return "sampler"
	case KindBuffer:
		return "buffer"
	default:
		return "unknown"
	}
}

// Resource is the common surface of every handle the renderer creates.
type Resource interface {
	// Label returns the debug label the resource was created with.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Kind returns the resource category.
	//
	// Returns:
	//   - Kind: KindTexture, KindSampler or KindBuffer
	Kind() Kind

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true once the handle is released
	Released() bool

	// Release frees the backing device memory. Calling it more than once is a no-op.
	Release()
}

// Texture is a 2-D RGBA8 unorm image.
type Texture interface {
	Resource

	// Width returns the texture width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the texture height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int

	// Usage returns the usage flags the texture was created with.
	//
	// Returns:
	//   - TextureUsage: the usage bit set
	Usage() TextureUsage
}

// Sampler is an immutable filtering and addressing configuration.
type Sampler interface {
	Resource

	// Staging returns the configuration the sampler was created from.
	//
	// Returns:
	//   - common.SamplerStagingData: the sampler configuration
	Staging() common.SamplerStagingData
}

// Buffer is a uniform buffer of fixed size.
type Buffer interface {
	Resource

	// Size returns the buffer size in bytes.
	//
	// Returns:
	//   - uint64: the size in bytes
	Size() uint64
}
