package presenter

import (
	"image"

	"github.com/cogentcore/webgpu/wgpu"
)

// PresenterBuilderOption is a functional option applied to the surface presenter during NewSurfacePresenter.
type PresenterBuilderOption func(*surfacePresenter)

// WithFilter sets the filter the blit samples the final texture with. Nearest is the default.
//
// Parameters:
//   - filter: wgpu.FilterModeNearest or wgpu.FilterModeLinear
//
// Returns:
//   - PresenterBuilderOption: a function that applies the filter to a presenter
func WithFilter(filter wgpu.FilterMode) PresenterBuilderOption {
	return func(p *surfacePresenter) {
		p.filter = filter
	}
}

// WithShaderValidation toggles naga validation of the blit shader.
//
// Parameters:
//   - enabled: false to skip validation
//
// Returns:
//   - PresenterBuilderOption: a function that applies the setting to a presenter
func WithShaderValidation(enabled bool) PresenterBuilderOption {
	return func(p *surfacePresenter) {
		p.validate = enabled
	}
}

// CaptureBuilderOption is a functional option applied to the capture presenter during NewCapturePresenter.
type CaptureBuilderOption func(*capturePresenter)

// WithFrameCallback runs fn after every captured frame, outside the presenter lock.
//
// Parameters:
//   - fn: the callback, given the 0-based frame index and the frame
//
// Returns:
//   - CaptureBuilderOption: a function that applies the callback to a presenter
func WithFrameCallback(fn func(index int, img *image.RGBA)) CaptureBuilderOption {
	return func(p *capturePresenter) {
		p.onFrame = fn
	}
}
