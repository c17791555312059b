// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"image"
	"image/draw"

	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds RGBA pixel data for a texture pending upload.
// Frame sources stage decoded frames in this form before the renderer creates the device texture.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Width uint32
	// Height is the height of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler pending creation.
// Zero values fall back to the renderer's defaults (clamp-to-edge, nearest).
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// ClampSampler returns the staging data for the shared clamp-to-edge sampler with the given filter.
//
// Parameters:
//   - filter: wgpu.FilterModeNearest or wgpu.FilterModeLinear
//
// Returns:
//   - SamplerStagingData: clamp-to-edge on all axes with the filter applied to mag and min
func ClampSampler(filter wgpu.FilterMode) SamplerStagingData {
	return SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: wgpu.MipmapFilterModeNearest,
	}
}

// NewTextureStagingData converts any image into tightly packed RGBA staging data.
// *image.RGBA inputs whose stride already equals width*4 are copied without a redraw.
//
// Parameters:
//   - img: the source image
//
// Returns:
//   - TextureStagingData: the staged pixels and dimensions
func NewTextureStagingData(img image.Image) TextureStagingData {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pixels := make([]byte, w*h*4)

	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == w*4 && b.Min == (image.Point{}) {
		copy(pixels, rgba.Pix)
	} else {
		dst := &image.RGBA{Pix: pixels, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
		draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	}

	return TextureStagingData{
		Pixels: pixels,
		Width:  uint32(w),
		Height: uint32(h),
	}
}
