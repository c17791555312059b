package bind_group_provider

import "github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithResource binds a handle at a binding index at construction time.
//
// Parameters:
//   - binding: the binding index
//   - r: the handle to bind
//
// Returns:
//   - BindGroupProviderOption: a function that binds the handle
func WithResource(binding int, r resource.Resource) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.resources[binding] = r
	}
}
