package texture_pool

// TexturePoolBuilderOption is a functional option applied to a pool during NewTexturePool.
type TexturePoolBuilderOption func(*texturePool)

// WithTempCount sets how many tmpN scratch textures the pool owns besides the screen.
//
// Parameters:
//   - n: the number of scratch textures
//
// Returns:
//   - TexturePoolBuilderOption: a function that applies the count to a pool
func WithTempCount(n int) TexturePoolBuilderOption {
	return func(p *texturePool) {
		if n >= 0 {
			p.tempCount = n
		}
	}
}
