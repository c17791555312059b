package frame_source

import "github.com/anthonynsimon/bild/transform"

// FrameSourceBuilderOption is a functional option applied to a source during NewFrameSource.
type FrameSourceBuilderOption func(*frameSource)

// WithMaxFrames caps how many frames are decoded and kept. 0 keeps every frame.
//
// Parameters:
//   - n: the frame cap
//
// Returns:
//   - FrameSourceBuilderOption: a function that applies the cap to a source
func WithMaxFrames(n int) FrameSourceBuilderOption {
	return func(s *frameSource) {
		if n >= 0 {
			s.maxFrames = n
		}
	}
}

// WithSize scales every frame to width x height instead of the size of the first frame.
//
// Parameters:
//   - width: the frame width in pixels
//   - height: the frame height in pixels
//
// Returns:
//   - FrameSourceBuilderOption: a function that applies the size to a source
func WithSize(width, height int) FrameSourceBuilderOption {
	return func(s *frameSource) {
		s.width, s.height = width, height
	}
}

// WithResampleFilter sets the filter used when a frame is scaled. Linear is the default.
//
// Parameters:
//   - filter: a bild resample filter such as transform.NearestNeighbor
//
// Returns:
//   - FrameSourceBuilderOption: a function that applies the filter to a source
func WithResampleFilter(filter transform.ResampleFilter) FrameSourceBuilderOption {
	return func(s *frameSource) {
		s.filter = filter
	}
}
