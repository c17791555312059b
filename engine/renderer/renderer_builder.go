package renderer

import (
	"github.com/Carmen-Shannon/oxy-vidfx/engine/window"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithWindow attaches the window whose surface the WGPU backend presents to. Without a window the
// WGPU backend runs headless. The CPU backend ignores it.
//
// Parameters:
//   - w: the window providing the surface descriptor and initial size
//
// Returns:
//   - RendererBuilderOption: a function that applies the window option to a renderer
func WithWindow(w window.Window) RendererBuilderOption {
	return func(r *renderer) {
		r.window = w
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithMaxTextureDimension sets the texture size limit of the CPU backend, which otherwise uses
// DefaultMaxTextureDimension. The WGPU backend reports the device limit instead.
//
// Parameters:
//   - n: the limit in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the limit to a renderer
func WithMaxTextureDimension(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.maxTextureDimension = n
	}
}

// WithWorkers sets how many goroutines the CPU backend spreads a dispatch over.
// Zero selects one per CPU.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker count to a renderer
func WithWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.workers = n
	}
}
