package compute_pass

// ComputePassBuilderOption is a functional option applied to a pass during NewComputePass.
type ComputePassBuilderOption func(*computePass)

// WithKernelValidation toggles naga validation of the kernel. Validation is on by default.
//
// Parameters:
//   - enabled: whether to validate the kernel with naga
//
// Returns:
//   - ComputePassBuilderOption: a function that applies the setting to a pass
func WithKernelValidation(enabled bool) ComputePassBuilderOption {
	return func(p *computePass) {
		p.validate = enabled
	}
}
