// Package texture_pool owns the full-resolution intermediate textures every pass reads and writes.
// All textures of a generation share one size; Resize swaps in a complete new generation or
// leaves the current one untouched.
package texture_pool

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
)

// ScreenName is the pool texture presented each tick.
const ScreenName = "screen"

// DefaultTempCount is the number of tmpN textures the montage graph needs.
const DefaultTempCount = 5

// ErrUnknownTexture is returned by Texture for a name the pool does not own.
var ErrUnknownTexture = errors.New("unknown pool texture")

// TempName returns the name of the i-th scratch texture, starting at 1.
//
// Parameters:
//   - i: the 1-based index
//
// Returns:
//   - string: "tmp" followed by i
func TempName(i int) string {
	return "tmp" + strconv.Itoa(i)
}

type texturePool struct {
	mu *sync.Mutex
	r  renderer.Renderer

	tempCount int
	names     []string
	usage     resource.TextureUsage

	textures   map[string]resource.Texture
	width      int
	height     int
	generation uint64
	disposed   bool

	rebind []func(TexturePool)
}

// TexturePool is the set of named textures sized to the output resolution.
type TexturePool interface {
	// Allocate creates the first set of pool textures at the given size. It may only be called
	// once; later size changes go through Resize.
	//
	// Parameters:
	//   - width: the width in pixels
	//   - height: the height in pixels
	//
	// Returns:
	//   - error: a *common.ResourceAllocationError if the device rejects the size
	Allocate(width, height int) error

	// Resize replaces every texture with one of the new size. Nothing happens if the size is
	// unchanged. The new set is allocated before the old set is released, and the rebind
	// callbacks run once the swap is complete.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: a *common.ResourceAllocationError if the new set could not be allocated, in
	//     which case the previous size and textures are kept
	Resize(width, height int) error

	// Dispose releases every texture. Calling it again is a no-op.
	Dispose()

	// Texture returns the current texture with the given name.
	//
	// Parameters:
	//   - name: ScreenName or a TempName
	//
	// Returns:
	//   - resource.Texture: the texture
	//   - error: ErrUnknownTexture, or an error wrapping common.ErrReleased after Dispose
	Texture(name string) (resource.Texture, error)

	// Names returns the texture names with ScreenName first.
	//
	// Returns:
	//   - []string: the names
	Names() []string

	// Size returns the current texture size, or 0, 0 before Allocate.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Size() (int, int)

	// Generation returns a counter that increases on every successful Allocate or Resize.
	//
	// Returns:
	//   - uint64: the generation
	Generation() uint64

	// OnRebind registers a callback run after each successful Resize.
	//
	// Parameters:
	//   - fn: the callback, given the pool
	OnRebind(fn func(TexturePool))
}

var _ TexturePool = &texturePool{}

// NewTexturePool creates an empty pool. Call Allocate before use.
//
// Parameters:
//   - r: the renderer the textures are created on
//   - opts: builder options such as WithTempCount
//
// Returns:
//   - TexturePool: the pool
func NewTexturePool(r renderer.Renderer, opts ...TexturePoolBuilderOption) TexturePool {
	p := &texturePool{
		mu:        &sync.Mutex{},
		r:         r,
		tempCount: DefaultTempCount,
		usage:     resource.TextureUsageSampled | resource.TextureUsageStorage | resource.TextureUsageCopySrc,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.names = append(p.names, ScreenName)
	for i := 1; i <= p.tempCount; i++ {
		p.names = append(p.names, TempName(i))
	}
	return p
}

func (p *texturePool) Allocate(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return fmt.Errorf("texture pool: %w", common.ErrReleased)
	}
	if p.textures != nil {
		return errors.New("texture pool: already allocated, use Resize")
	}

	set, err := p.allocateSet(width, height)
	if err != nil {
		return err
	}
	p.textures, p.width, p.height = set, width, height
	p.generation++
	common.Logger().Info("texture pool allocated", "width", width, "height", height, "textures", len(set))
	return nil
}

func (p *texturePool) Resize(width, height int) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return fmt.Errorf("texture pool: %w", common.ErrReleased)
	}
	if p.textures == nil {
		p.mu.Unlock()
		return errors.New("texture pool: not allocated")
	}
	if width == p.width && height == p.height {
		p.mu.Unlock()
		return nil
	}

	next, err := p.allocateSet(width, height)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	prev := p.textures
	p.textures, p.width, p.height = next, width, height
	p.generation++
	callbacks := append([]func(TexturePool){}, p.rebind...)
	p.mu.Unlock()

	for _, t := range prev {
		t.Release()
	}
	common.Logger().Info("texture pool resized", "width", width, "height", height, "generation", p.Generation())

	for _, fn := range callbacks {
		fn(p)
	}
	return nil
}

func (p *texturePool) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return
	}
	p.disposed = true
	for _, t := range p.textures {
		t.Release()
	}
	p.textures = nil
	p.rebind = nil
}

func (p *texturePool) Texture(name string) (resource.Texture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return nil, fmt.Errorf("texture pool: %w", common.ErrReleased)
	}
	t, ok := p.textures[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTexture, name)
	}
	return t, nil
}

func (p *texturePool) Names() []string {
	return append([]string(nil), p.names...)
}

func (p *texturePool) Size() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

func (p *texturePool) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

func (p *texturePool) OnRebind(fn func(TexturePool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rebind = append(p.rebind, fn)
}

// allocateSet creates one texture per name. On failure every texture created so far is released.
func (p *texturePool) allocateSet(width, height int) (map[string]resource.Texture, error) {
	set := make(map[string]resource.Texture, len(p.names))
	for _, name := range p.names {
		t, err := p.r.CreateTexture(name, width, height, p.usage)
		if err != nil {
			for _, created := range set {
				created.Release()
			}
			return nil, err
		}
		set[name] = t
	}
	return set, nil
}
