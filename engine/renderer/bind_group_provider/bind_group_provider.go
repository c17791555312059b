package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
)

type bindGroupProvider struct {
	// label identifies the provider in backend bind group caches and must be unique per pipeline.
	label string

	// resources holds the bound handles keyed by binding index. The provider does not own them.
	resources map[int]resource.Resource

	// generation increases every time the set of bound handles changes.
	generation uint64
}

// BindGroupProvider is the set of resources bound to one pipeline's bind group 0, keyed by
// binding index. Backends build their device bind group from it and cache the result per
// Generation, so rebinding a slot invalidates exactly the bind groups that referenced it.
type BindGroupProvider interface {
	// Label returns the label the provider was created with.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Resource returns the handle bound at binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - resource.Resource: the bound handle or nil
	Resource(binding int) resource.Resource

	// Resources returns every bound handle keyed by binding index.
	//
	// Returns:
	//   - map[int]resource.Resource: the bound handles
	Resources() map[int]resource.Resource

	// SetResource binds a handle at binding. Binding a different handle than the current one
	// advances the generation; rebinding the same handle does not.
	//
	// Parameters:
	//   - binding: the binding index
	//   - r: the handle to bind
	SetResource(binding int, r resource.Resource)

	// Generation returns a counter that changes whenever the bound handles change.
	//
	// Returns:
	//   - uint64: the current generation
	Generation() uint64

	// Release drops every bound handle without releasing the handles themselves, since they
	// are owned by the pool, the parameter store or the frame source.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: a label unique among the providers bound to the same pipeline
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:     label,
		resources: make(map[int]resource.Resource),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Resource(binding int) resource.Resource {
	return p.resources[binding]
}

func (p *bindGroupProvider) Resources() map[int]resource.Resource {
	return p.resources
}

func (p *bindGroupProvider) SetResource(binding int, r resource.Resource) {
	if cur, ok := p.resources[binding]; ok && cur == r {
		return
	}
	p.resources[binding] = r
	p.generation++
}

func (p *bindGroupProvider) Generation() uint64 {
	return p.generation
}

func (p *bindGroupProvider) Release() {
	if len(p.resources) == 0 {
		return
	}
	clear(p.resources)
	p.generation++
}
