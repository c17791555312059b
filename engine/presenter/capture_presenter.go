package presenter

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
)

type capturePresenter struct {
	mu *sync.Mutex
	r  renderer.Renderer

	last     *image.RGBA
	frames   int
	onFrame  func(index int, img *image.RGBA)
	released bool
}

// CapturePresenter reads every presented texture back into host memory.
type CapturePresenter interface {
	PresentationSurface

	// Last returns the most recently presented frame, or nil before the first Present.
	//
	// Returns:
	//   - *image.RGBA: the frame
	Last() *image.RGBA

	// Frames returns how many frames were presented.
	//
	// Returns:
	//   - int: the count
	Frames() int
}

var _ CapturePresenter = &capturePresenter{}

// NewCapturePresenter returns a presenter that keeps the last frame as an *image.RGBA.
//
// Parameters:
//   - r: the renderer the presented textures belong to
//   - opts: builder options such as WithFrameCallback
//
// Returns:
//   - CapturePresenter: the presenter
func NewCapturePresenter(r renderer.Renderer, opts ...CaptureBuilderOption) CapturePresenter {
	p := &capturePresenter{
		mu: &sync.Mutex{},
		r:  r,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *capturePresenter) Present(t resource.Texture) error {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return fmt.Errorf("presenter: %w", common.ErrReleased)
	}
	p.mu.Unlock()

	img, err := p.r.ReadTexture(t)
	if err != nil {
		return fmt.Errorf("presenter: read back %q: %w", t.Label(), err)
	}

	p.mu.Lock()
	p.last = img
	index := p.frames
	p.frames++
	cb := p.onFrame
	p.mu.Unlock()

	if cb != nil {
		cb(index, img)
	}
	return nil
}

func (p *capturePresenter) Last() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *capturePresenter) Frames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

func (p *capturePresenter) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
	p.last = nil
}

// QuadrantMeans averages each quadrant of img, in the order top-left, top-right, bottom-left,
// bottom-right. On the montage graph these are the edges, the difference, the frame and its blur.
//
// Parameters:
//   - img: the captured frame
//
// Returns:
//   - [4]color.RGBA: the mean colour of each quadrant
func QuadrantMeans(img *image.RGBA) [4]color.RGBA {
	var out [4]color.RGBA
	if img == nil {
		return out
	}
	b := img.Bounds()
	midX, midY := b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2
	rects := [4]image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, midX, midY),
		image.Rect(midX, b.Min.Y, b.Max.X, midY),
		image.Rect(b.Min.X, midY, midX, b.Max.Y),
		image.Rect(midX, midY, b.Max.X, b.Max.Y),
	}

	for i, r := range rects {
		var sum [4]uint64
		n := uint64(r.Dx() * r.Dy())
		if n == 0 {
			continue
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				c := img.RGBAAt(x, y)
				sum[0] += uint64(c.R)
				sum[1] += uint64(c.G)
				sum[2] += uint64(c.B)
				sum[3] += uint64(c.A)
			}
		}
		out[i] = color.RGBA{uint8(sum[0] / n), uint8(sum[1] / n), uint8(sum[2] / n), uint8(sum[3] / n)}
	}
	return out
}
