package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/stretchr/testify/assert"
)

type fakeResource struct{ label string }

func (f *fakeResource) Label() string       { return f.label }
func (f *fakeResource) Kind() resource.Kind { return resource.KindTexture }
func (f *fakeResource) Released() bool      { return false }
func (f *fakeResource) Release()            {}

func TestLabelIsSet(t *testing.T) {
	p := NewBindGroupProvider("copy")
	assert.Equal(t, "copy", p.Label())
}

func TestGenerationTracksChanges(t *testing.T) {
	a, b := &fakeResource{"a"}, &fakeResource{"b"}
	p := NewBindGroupProvider("pass", WithResource(0, a))
	assert.Equal(t, uint64(0), p.Generation())
	assert.Same(t, a, p.Resource(0))

	p.SetResource(0, a)
	assert.Equal(t, uint64(0), p.Generation(), "rebinding the same handle keeps the generation")

	p.SetResource(0, b)
	assert.Equal(t, uint64(1), p.Generation())
	assert.Same(t, b, p.Resource(0))

	p.SetResource(1, a)
	assert.Equal(t, uint64(2), p.Generation())
	assert.Len(t, p.Resources(), 2)
}

func TestReleaseDropsHandles(t *testing.T) {
	p := NewBindGroupProvider("pass", WithResource(0, &fakeResource{"a"}))
	p.Release()
	assert.Nil(t, p.Resource(0))
	assert.Equal(t, uint64(1), p.Generation())

	p.Release()
	assert.Equal(t, uint64(1), p.Generation())
}
