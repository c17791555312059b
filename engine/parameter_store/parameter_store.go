// Package parameter_store holds the live blur parameters and the single uniform buffer both blur
// passes read them from. Every accepted edit is uploaded before the call returns, so the next
// recorded dispatch observes it.
package parameter_store

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
)

const (
	// KeySigma names the Gaussian standard deviation. Values must be > 0.
	KeySigma = "sigma"

	// KeyKernelSize names the number of blur taps per axis. Values are floored and must be >= 1.
	KeyKernelSize = "kernelSize"

	// MaxKernelSize bounds kernelSize so a single edit cannot stall a tick.
	MaxKernelSize = 1024

	// MinSigma and MaxSigma bound sigma so 2σ² stays a finite, normal float32 in the kernels.
	MinSigma = 1e-3
	MaxSigma = 1e4
)

var (
	// ErrUnknownParameter is returned by Set for a key other than KeySigma or KeyKernelSize.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrInvalidParameter is returned when a value is out of range.
	ErrInvalidParameter = errors.New("invalid parameter value")
)

// BlurParameters are the host-side blur settings.
type BlurParameters struct {
	Sigma      float64
	KernelSize int
}

// DefaultParameters returns sigma 20 and a 24-tap kernel.
//
// Returns:
//   - BlurParameters: the defaults
func DefaultParameters() BlurParameters {
	return BlurParameters{Sigma: 20.0, KernelSize: 24}
}

// Validate checks both fields.
//
// Returns:
//   - error: an error wrapping ErrInvalidParameter naming the first bad field
func (p BlurParameters) Validate() error {
	if err := validateSigma(p.Sigma); err != nil {
		return err
	}
	return validateKernelSize(float64(p.KernelSize))
}

// GPU converts the parameters to their uniform layout.
//
// Returns:
//   - GPUBlurParams: the GPU representation
func (p BlurParameters) GPU() GPUBlurParams {
	return GPUBlurParams{Sigma: float32(p.Sigma), KSize: int32(p.KernelSize)}
}

type parameterStore struct {
	mu       sync.Mutex
	r        renderer.Renderer
	label    string
	params   BlurParameters
	buffer   resource.Buffer
	released bool
}

// ParameterStore owns the blur parameter uniform buffer. It is safe for concurrent use.
type ParameterStore interface {
	// Set validates and uploads a single parameter.
	//
	// Parameters:
	//   - key: KeySigma or KeyKernelSize
	//   - value: the new value; kernelSize is floored
	//
	// Returns:
	//   - error: ErrUnknownParameter, ErrInvalidParameter, or an upload failure
	Set(key string, value float64) error

	// SetParameters validates both fields and uploads them in one write.
	//
	// Parameters:
	//   - p: the new parameters
	//
	// Returns:
	//   - error: ErrInvalidParameter or an upload failure
	SetParameters(p BlurParameters) error

	// Parameters returns the values last accepted.
	//
	// Returns:
	//   - BlurParameters: the current parameters
	Parameters() BlurParameters

	// Buffer returns the uniform buffer shared by the blur passes.
	//
	// Returns:
	//   - resource.Buffer: the buffer
	Buffer() resource.Buffer

	// OnParameterChanged is the entry point for parameter widgets, config reloads and scripts.
	// It forwards to Set and logs the outcome instead of returning it.
	//
	// Parameters:
	//   - key: the parameter key
	//   - value: the new value
	OnParameterChanged(key string, value float64)

	// Release frees the uniform buffer. Calling it again is a no-op.
	Release()
}

var _ ParameterStore = &parameterStore{}

// NewParameterStore allocates the uniform buffer and uploads the initial parameters.
//
// Parameters:
//   - r: the renderer that owns the buffer
//   - opts: builder options such as WithParameters
//
// Returns:
//   - ParameterStore: the store
//   - error: an error if the initial parameters are invalid or the buffer could not be created
func NewParameterStore(r renderer.Renderer, opts ...ParameterStoreBuilderOption) (ParameterStore, error) {
	s := &parameterStore{
		r:      r,
		label:  "blur params",
		params: DefaultParameters(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.params.Validate(); err != nil {
		return nil, err
	}

	g := s.params.GPU()
	buf, err := r.CreateUniformBuffer(s.label, uint64(g.Size()))
	if err != nil {
		return nil, err
	}
	s.buffer = buf

	if err := s.upload(s.params); err != nil {
		buf.Release()
		return nil, err
	}
	return s, nil
}

func (s *parameterStore) Set(key string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.params
	switch key {
	case KeySigma:
		if err := validateSigma(value); err != nil {
			return err
		}
		next.Sigma = value
	case KeyKernelSize:
		if err := validateKernelSize(value); err != nil {
			return err
		}
		next.KernelSize = int(math.Floor(value))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}

	if err := s.upload(next); err != nil {
		return err
	}
	s.params = next
	return nil
}

func (s *parameterStore) SetParameters(p BlurParameters) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.upload(p); err != nil {
		return err
	}
	s.params = p
	return nil
}

func (s *parameterStore) Parameters() BlurParameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *parameterStore) Buffer() resource.Buffer {
	return s.buffer
}

func (s *parameterStore) OnParameterChanged(key string, value float64) {
	if err := s.Set(key, value); err != nil {
		common.Logger().Warn("parameter edit rejected", "key", key, "value", value, "error", err)
		return
	}
	common.Logger().Info("parameter updated", "key", key, "value", value)
}

func (s *parameterStore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	s.buffer.Release()
}

// upload writes p to the uniform buffer. Must be called with s.mu held.
func (s *parameterStore) upload(p BlurParameters) error {
	if s.released {
		return fmt.Errorf("parameter store: %w", common.ErrReleased)
	}
	g := p.GPU()
	return s.r.WriteBuffers([]bind_group_provider.BufferWrite{{Buffer: s.buffer, Data: g.Marshal()}})
}

func validateSigma(v float64) error {
	if math.IsNaN(v) || v < MinSigma || v > MaxSigma {
		return fmt.Errorf("%w: %s must be within %g..%g, got %v", ErrInvalidParameter, KeySigma, MinSigma, MaxSigma, v)
	}
	return nil
}

func validateKernelSize(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidParameter, KeyKernelSize, v)
	}
	k := math.Floor(v)
	if k < 1 || k > MaxKernelSize {
		return fmt.Errorf("%w: %s must be within 1..%d, got %v", ErrInvalidParameter, KeyKernelSize, MaxKernelSize, v)
	}
	return nil
}
