package parameter_store

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/shader"
)

// GPUBlurParamsSource is the canonical WGSL definition of the BlurParams struct.
// Matches GPUBlurParams layout exactly (8 bytes).
//
//go:embed assets/blur_params.wgsl
var GPUBlurParamsSource string

// GPUBlurParamsTypeName is the WGSL type name declared by GPUBlurParamsSource.
const GPUBlurParamsTypeName = "BlurParams"

// StructArg is the annotation key kernels use to include or bind BlurParams,
// e.g. //@oxy:group 0 3 storage_uniform params blur_params
const StructArg shader.AnnotationArg = "blur_params"

// GPUBlurParams is the GPU-aligned representation of the blur parameter uniform.
// Size: 8 bytes.
type GPUBlurParams struct {
	Sigma float32 // offset 0: Gaussian standard deviation in pixels (f32)
	KSize int32   // offset 4: number of taps per axis (i32)
}

// Size returns the size of the GPUBlurParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (8)
func (g *GPUBlurParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUBlurParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUBlurParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(g.Sigma))
	binary.LittleEndian.PutUint32(buf[4:], uint32(g.KSize))
	return buf
}

// UnmarshalGPUBlurParams decodes the uniform bytes a kernel received. Short input decodes as zero.
//
// Parameters:
//   - buf: the uniform buffer contents
//
// Returns:
//   - GPUBlurParams: the decoded parameters
func UnmarshalGPUBlurParams(buf []byte) GPUBlurParams {
	if len(buf) < 8 {
		return GPUBlurParams{}
	}
	return GPUBlurParams{
		Sigma: math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])),
		KSize: int32(binary.LittleEndian.Uint32(buf[4:])),
	}
}
