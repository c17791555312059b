package compute_pass

import (
	"github.com/Carmen-Shannon/oxy-vidfx/engine/parameter_store"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/chewxy/math32"
)

// Host versions of the WGSL kernels in assets/. Each mirrors its shader line for line:
// same uv convention, same accumulation order, same threshold.

const sobelThreshold = 0.2

var (
	opaqueBlack = resource.Color{0, 0, 0, 1}
	opaqueWhite = resource.Color{1, 1, 1, 1}
)

// invocation returns the texel a global id addresses and whether it lies inside dest.
func invocation(gid [3]uint32, dest resource.TexelWriter) (int, int, bool) {
	x, y := int(gid[0]), int(gid[1])
	return x, y, x < dest.Width() && y < dest.Height()
}

func uvOf(x, y int, dest resource.TexelWriter) (float32, float32) {
	return float32(x) / float32(dest.Width()), float32(y) / float32(dest.Height())
}

func clearCPU(gid [3]uint32, b pipeline.KernelBindings) {
	dest := b.Storage(0)
	x, y, ok := invocation(gid, dest)
	if !ok {
		return
	}
	dest.Store(x, y, opaqueBlack)
}

func copyCPU(gid [3]uint32, b pipeline.KernelBindings) {
	dest := b.Storage(0)
	x, y, ok := invocation(gid, dest)
	if !ok {
		return
	}
	u, v := uvOf(x, y, dest)
	dest.Store(x, y, resource.Sample(b.Sampled(2), b.Sampler(1), u, v))
}

// gaussian is the unnormalized normal weight at distance offset. The density's 1/(2πσ²) factor
// cancels when the blur divides by the weight sum. The centre tap is always 1, so the sum is
// never 0, and a 2σ² that underflows to 0 gives the other taps weight 0 instead of NaN.
func gaussian(offset, sigma float32) float32 {
	if offset == 0 {
		return 1
	}
	twoSigmaSq := 2 * sigma * sigma
	if !(twoSigmaSq > 0) {
		return 0
	}
	return math32.Exp(-(offset * offset) / twoSigmaSq)
}

func gaussianBlurCPU(dx, dy int) pipeline.CPUKernel {
	return func(gid [3]uint32, b pipeline.KernelBindings) {
		dest := b.Storage(0)
		x, y, ok := invocation(gid, dest)
		if !ok {
			return
		}
		params := parameter_store.UnmarshalGPUBlurParams(b.Uniform(3))
		src, samp := b.Sampled(2), b.Sampler(1)
		w, h := float32(dest.Width()), float32(dest.Height())

		k := int(params.KSize)
		base := -k / 2

		var acc resource.Color
		var total float32
		for i := 0; i < k; i++ {
			offset := base + i
			weight := gaussian(float32(offset), params.Sigma)
			c := resource.Sample(src, samp, float32(x+offset*dx)/w, float32(y+offset*dy)/h)
			for j := range acc {
				acc[j] += weight * c[j]
			}
			total += weight
		}
		if total > 0 {
			for j := range acc {
				acc[j] /= total
			}
		}
		dest.Store(x, y, acc)
	}
}

func sobelCPU(gid [3]uint32, b pipeline.KernelBindings) {
	dest := b.Storage(0)
	x, y, ok := invocation(gid, dest)
	if !ok {
		return
	}
	src, samp := b.Sampled(2), b.Sampler(1)
	w, h := float32(dest.Width()), float32(dest.Height())
	tap := func(ox, oy int) resource.Color {
		return resource.Sample(src, samp, float32(x+ox)/w, float32(y+oy)/h)
	}

	up, upLeft, upRight := tap(0, -1), tap(-1, -1), tap(1, -1)
	left, right := tap(-1, 0), tap(1, 0)
	down, downLeft, downRight := tap(0, 1), tap(-1, 1), tap(1, 1)

	var lengthSq float32
	for i := range 4 {
		gx := ((upLeft[i] - upRight[i]) + 2*(left[i]-right[i]) + (downLeft[i] - downRight[i])) / 4
		gy := ((upLeft[i] - downLeft[i]) + 2*(up[i]-down[i]) + (upRight[i] - downRight[i])) / 4
		g := math32.Sqrt(gx*gx+gy*gy) / math32.Sqrt(2)
		lengthSq += g * g
	}

	if math32.Sqrt(lengthSq) > sobelThreshold {
		dest.Store(x, y, opaqueWhite)
	} else {
		dest.Store(x, y, opaqueBlack)
	}
}

func subtractCPU(gid [3]uint32, b pipeline.KernelBindings) {
	dest := b.Storage(0)
	x, y, ok := invocation(gid, dest)
	if !ok {
		return
	}
	u, v := uvOf(x, y, dest)
	a := resource.Sample(b.Sampled(2), b.Sampler(1), u, v)
	c := resource.Sample(b.Sampled(4), b.Sampler(3), u, v)

	var out resource.Color
	for i := range out {
		out[i] = math32.Abs(c[i] - a[i])
	}
	dest.Store(x, y, out)
}

func tileCPU(gid [3]uint32, b pipeline.KernelBindings) {
	dest := b.Storage(0)
	x, y, ok := invocation(gid, dest)
	if !ok {
		return
	}
	u, v := uvOf(x, y, dest)

	// srcN is bound at 2N with its sampler at 2N-1.
	var n int
	switch {
	case v >= 0.5 && u < 0.5:
		n = 1
	case v >= 0.5:
		n = 2
	case u < 0.5:
		n = 3
	default:
		n = 4
	}
	dest.Store(x, y, resource.Sample(b.Sampled(2*n), b.Sampler(2*n-1), u, v))
}
