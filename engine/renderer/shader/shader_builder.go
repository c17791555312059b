package shader

// ShaderBuilderOption is a functional option for configuring a Shader before its source is processed.
type ShaderBuilderOption func(*shader)

// WithStruct registers a WGSL struct that the shader's @oxy: annotations may reference.
//
// Parameters:
//   - arg: the struct type key used in annotations
//   - source: the WGSL struct definition
//   - typeName: the WGSL type name the source declares
//
// Returns:
//   - ShaderBuilderOption: a function that registers the struct on the pre-processor
func WithStruct(arg AnnotationArg, source, typeName string) ShaderBuilderOption {
	return func(s *shader) {
		s.pp.Register(arg, source, typeName)
	}
}

// WithValidation toggles naga validation of the processed source. Validation is on by default.
//
// Parameters:
//   - enabled: whether to run naga validation
//
// Returns:
//   - ShaderBuilderOption: a function that applies the setting
func WithValidation(enabled bool) ShaderBuilderOption {
	return func(s *shader) {
		s.validate = enabled
	}
}
