package resource

import (
	"image"
	"image/color"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

// Color is a normalized RGBA value as seen by a kernel.
type Color [4]float32

// RGBA8 converts the normalized value to an 8-bit color using unorm rounding.
func (c Color) RGBA8() color.RGBA {
	return color.RGBA{R: unorm8(c[0]), G: unorm8(c[1]), B: unorm8(c[2]), A: unorm8(c[3])}
}

// ColorFromRGBA8 converts an 8-bit color to its normalized value.
func ColorFromRGBA8(c color.RGBA) Color {
	return Color{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
}

// TexelReader is host-visible read access to a texture's texels.
type TexelReader interface {
	Width() int
	Height() int
	Load(x, y int) Color
}

// TexelWriter is host-visible write access to a texture's texels.
type TexelWriter interface {
	Width() int
	Height() int
	Store(x, y int, c Color)
}

// HostImage is an RGBA8 unorm texel store in host memory.
// Stores outside the image bounds are dropped, matching textureStore semantics.
type HostImage struct {
	pix    []byte
	width  int
	height int
}

var (
	_ TexelReader = &HostImage{}
	_ TexelWriter = &HostImage{}
)

// NewHostImage allocates a zeroed width x height image.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//
// Returns:
//   - *HostImage: the allocated image
func NewHostImage(width, height int) *HostImage {
	return &HostImage{
		pix:    make([]byte, width*height*4),
		width:  width,
		height: height,
	}
}

func (h *HostImage) Width() int {
	return h.width
}

func (h *HostImage) Height() int {
	return h.height
}

func (h *HostImage) Load(x, y int) Color {
	if x < 0 || y < 0 || x >= h.width || y >= h.height {
		return Color{}
	}
	i := (y*h.width + x) * 4
	p := h.pix[i : i+4 : i+4]
	return Color{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
}

func (h *HostImage) Store(x, y int, c Color) {
	if x < 0 || y < 0 || x >= h.width || y >= h.height {
		return
	}
	i := (y*h.width + x) * 4
	h.pix[i] = unorm8(c[0])
	h.pix[i+1] = unorm8(c[1])
	h.pix[i+2] = unorm8(c[2])
	h.pix[i+3] = unorm8(c[3])
}

// Write replaces the texels with tightly packed RGBA8 data. Short input leaves the tail untouched.
func (h *HostImage) Write(pixels []byte) {
	copy(h.pix, pixels)
}

// Snapshot copies the texels into a new *image.RGBA.
//
// Returns:
//   - *image.RGBA: an independent copy of the current texels
func (h *HostImage) Snapshot() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, h.width, h.height))
	copy(img.Pix, h.pix)
	return img
}

// Sample reads a texture at normalized coordinates (u, v) with level-0 sampling,
// following WebGPU's texel-center convention. Clamp-to-edge and repeat addressing are
// supported; any other mode is treated as clamp-to-edge.
//
// Parameters:
//   - t: the texture to read
//   - s: the sampler configuration
//   - u: the horizontal normalized coordinate
//   - v: the vertical normalized coordinate
//
// Returns:
//   - Color: the filtered texel value
func Sample(t TexelReader, s common.SamplerStagingData, u, v float32) Color {
	w, h := t.Width(), t.Height()
	if w == 0 || h == 0 {
		return Color{}
	}

	if s.MagFilter != wgpu.FilterModeLinear {
		x := address(int(math32.Floor(u*float32(w))), w, s.AddressModeU)
		y := address(int(math32.Floor(v*float32(h))), h, s.AddressModeV)
		return t.Load(x, y)
	}

	fx := u*float32(w) - 0.5
	fy := v*float32(h) - 0.5
	x0f, y0f := math32.Floor(fx), math32.Floor(fy)
	ax, ay := fx-x0f, fy-y0f
	x0, y0 := int(x0f), int(y0f)

	xa := address(x0, w, s.AddressModeU)
	xb := address(x0+1, w, s.AddressModeU)
	ya := address(y0, h, s.AddressModeV)
	yb := address(y0+1, h, s.AddressModeV)

	c00, c10 := t.Load(xa, ya), t.Load(xb, ya)
	c01, c11 := t.Load(xa, yb), t.Load(xb, yb)

	var out Color
	for i := range out {
		top := c00[i] + (c10[i]-c00[i])*ax
		bottom := c01[i] + (c11[i]-c01[i])*ax
		out[i] = top + (bottom-top)*ay
	}
	return out
}

func address(i, n int, mode wgpu.AddressMode) int {
	if mode == wgpu.AddressModeRepeat {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func unorm8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math32.Round(v * 255))
}
