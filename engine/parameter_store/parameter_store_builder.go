package parameter_store

// ParameterStoreBuilderOption is a functional option applied to a store during NewParameterStore.
type ParameterStoreBuilderOption func(*parameterStore)

// WithParameters sets the initial parameters instead of DefaultParameters.
//
// Parameters:
//   - p: the initial parameters
//
// Returns:
//   - ParameterStoreBuilderOption: a function that applies the parameters to a store
func WithParameters(p BlurParameters) ParameterStoreBuilderOption {
	return func(s *parameterStore) {
		s.params = p
	}
}

// WithLabel sets the debug label of the uniform buffer.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - ParameterStoreBuilderOption: a function that applies the label to a store
func WithLabel(label string) ParameterStoreBuilderOption {
	return func(s *parameterStore) {
		s.label = label
	}
}
