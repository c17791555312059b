package compute_pass

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/pipeline"
)

//go:embed assets/clear.wgsl
var clearSource string

//go:embed assets/copy.wgsl
var copySource string

//go:embed assets/gaussian_blur_x.wgsl
var gaussianBlurXSource string

//go:embed assets/gaussian_blur_y.wgsl
var gaussianBlurYSource string

//go:embed assets/sobel.wgsl
var sobelSource string

//go:embed assets/subtract.wgsl
var subtractSource string

//go:embed assets/tile.wgsl
var tileSource string

// Kernel pairs a WGSL compute kernel with the host function the CPU backend runs in its place.
type Kernel struct {
	// Name identifies the kernel in logs and errors.
	Name string

	// Source is the WGSL source, which may contain @oxy: annotations.
	Source string

	// CPU is the host implementation of Source.
	CPU pipeline.CPUKernel
}

var (
	// ClearKernel writes opaque black to every texel of texture.
	ClearKernel = Kernel{Name: "clear", Source: clearSource, CPU: clearCPU}

	// CopyKernel samples src into dest.
	CopyKernel = Kernel{Name: "copy", Source: copySource, CPU: copyCPU}

	// GaussianBlurXKernel is the horizontal half of the separable blur. It reads sigma and
	// kSize from params.
	GaussianBlurXKernel = Kernel{Name: "gaussian_blur_x", Source: gaussianBlurXSource, CPU: gaussianBlurCPU(1, 0)}

	// GaussianBlurYKernel is the vertical half of the separable blur. It reads the same params as X.
	GaussianBlurYKernel = Kernel{Name: "gaussian_blur_y", Source: gaussianBlurYSource, CPU: gaussianBlurCPU(0, 1)}

	// SobelKernel writes a binary edge mask of src.
	SobelKernel = Kernel{Name: "sobel", Source: sobelSource, CPU: sobelCPU}

	// SubtractKernel writes abs(src2 - src1) per channel.
	SubtractKernel = Kernel{Name: "subtract", Source: subtractSource, CPU: subtractCPU}

	// TileKernel composites src1..src4 into a 2x2 montage.
	TileKernel = Kernel{Name: "tile", Source: tileSource, CPU: tileCPU}
)

// Kernels returns every built-in kernel.
//
// Returns:
//   - []Kernel: the kernels in graph order
func Kernels() []Kernel {
	return []Kernel{
		ClearKernel,
		CopyKernel,
		GaussianBlurXKernel,
		GaussianBlurYKernel,
		SobelKernel,
		SubtractKernel,
		TileKernel,
	}
}
