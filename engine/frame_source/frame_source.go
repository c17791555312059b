// Package frame_source bulk-decodes a clip into an indexable sequence of device textures.
// Decoding happens once, before the render loop starts; afterwards Frame(i) is a lookup.
package frame_source

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/anthonynsimon/bild/transform"
)

// ErrNoFrames is wrapped by the DecodeFailure returned for a source that produced no frames.
var ErrNoFrames = errors.New("source produced no frames")

// Decoder produces the frames of a clip in presentation order.
type Decoder interface {
	// Name identifies the source in errors and logs, typically its path.
	//
	// Returns:
	//   - string: the source name
	Name() string

	// Decode reads up to maxFrames frames. A maxFrames of 0 reads the whole clip.
	//
	// Parameters:
	//   - maxFrames: the frame cap, or 0 for no cap
	//
	// Returns:
	//   - []image.Image: the frames
	//   - error: a *common.DecodeFailure if the clip cannot be read
	Decode(maxFrames int) ([]image.Image, error)
}

type frameSource struct {
	mu *sync.Mutex

	name      string
	maxFrames int
	width     int
	height    int
	filter    transform.ResampleFilter

	frames   []resource.Texture
	released bool
}

// FrameSource is a finite, restartable sequence of equally sized frames.
type FrameSource interface {
	// FrameCount returns the number of frames.
	//
	// Returns:
	//   - int: the frame count, always >= 1
	FrameCount() int

	// Frame returns the texture of frame i.
	//
	// Parameters:
	//   - i: the frame index, in [0, FrameCount())
	//
	// Returns:
	//   - resource.Texture: the frame texture
	//   - error: a *common.RangeError for an index out of range, or an error wrapping common.ErrReleased
	Frame(i int) (resource.Texture, error)

	// Size returns the frame size shared by every frame.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Size() (int, int)

	// Release frees every frame texture. Calling it again is a no-op.
	Release()
}

var _ FrameSource = &frameSource{}

// NewFrameSource decodes every frame with d and uploads them to r. Frames are scaled to the size
// set with WithSize, or else to the size of the first frame.
//
// Parameters:
//   - r: the renderer the textures are created on
//   - d: the decoder
//   - opts: builder options such as WithMaxFrames
//
// Returns:
//   - FrameSource: the uploaded frames
//   - error: a *common.DecodeFailure, or a *common.ResourceAllocationError if a frame texture could not be created
func NewFrameSource(r renderer.Renderer, d Decoder, opts ...FrameSourceBuilderOption) (FrameSource, error) {
	s := &frameSource{
		mu:     &sync.Mutex{},
		name:   d.Name(),
		filter: transform.Linear,
	}
	for _, opt := range opts {
		opt(s)
	}

	images, err := d.Decode(s.maxFrames)
	if err != nil {
		return nil, err
	}
	if s.maxFrames > 0 && len(images) > s.maxFrames {
		images = images[:s.maxFrames]
	}
	if len(images) == 0 {
		return nil, &common.DecodeFailure{Source: s.name, Frame: -1, Err: ErrNoFrames}
	}
	if s.width == 0 || s.height == 0 {
		b := images[0].Bounds()
		s.width, s.height = b.Dx(), b.Dy()
	}

	for i, img := range images {
		t, err := s.upload(r, i, img)
		if err != nil {
			s.Release()
			return nil, err
		}
		s.frames = append(s.frames, t)
	}

	common.Logger().Info("frame source ready", "source", s.name, "frames", len(s.frames), "width", s.width, "height", s.height)
	return s, nil
}

// NewMemorySource uploads already decoded frames.
//
// Parameters:
//   - r: the renderer the textures are created on
//   - name: the source name used in errors
//   - frames: the frames in presentation order
//   - opts: builder options
//
// Returns:
//   - FrameSource: the uploaded frames
//   - error: a *common.DecodeFailure if frames is empty, or an allocation error
func NewMemorySource(r renderer.Renderer, name string, frames []image.Image, opts ...FrameSourceBuilderOption) (FrameSource, error) {
	return NewFrameSource(r, memoryDecoder{name: name, frames: frames}, opts...)
}

func (s *frameSource) FrameCount() int {
	return len(s.frames)
}

func (s *frameSource) Frame(i int) (resource.Texture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, fmt.Errorf("frame source %q: %w", s.name, common.ErrReleased)
	}
	if i < 0 || i >= len(s.frames) {
		return nil, &common.RangeError{Index: i, Count: len(s.frames)}
	}
	return s.frames[i], nil
}

func (s *frameSource) Size() (int, int) {
	return s.width, s.height
}

func (s *frameSource) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}
	s.released = true
	for _, t := range s.frames {
		t.Release()
	}
}

// upload scales img to the source size when needed and writes it to a new sampled texture.
func (s *frameSource) upload(r renderer.Renderer, i int, img image.Image) (resource.Texture, error) {
	b := img.Bounds()
	if b.Dx() != s.width || b.Dy() != s.height {
		img = transform.Resize(img, s.width, s.height, s.filter)
	}

	t, err := r.CreateTexture(fmt.Sprintf("%s#%d", s.name, i), s.width, s.height, resource.TextureUsageSampled|resource.TextureUsageCopySrc)
	if err != nil {
		return nil, err
	}
	if err := r.WriteTexture(t, common.NewTextureStagingData(img)); err != nil {
		t.Release()
		return nil, &common.DecodeFailure{Source: s.name, Frame: i, Err: err}
	}
	return t, nil
}

type memoryDecoder struct {
	name   string
	frames []image.Image
}

func (m memoryDecoder) Name() string {
	return m.name
}

func (m memoryDecoder) Decode(maxFrames int) ([]image.Image, error) {
	return m.frames, nil
}
