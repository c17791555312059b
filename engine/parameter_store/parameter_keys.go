package parameter_store

import (
	"math"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
)

// SigmaStep is the factor the arrow keys scale sigma by.
const SigmaStep = 1.25

// KeyHandler returns a window key callback that edits the store through OnParameterChanged:
// Up and Down scale sigma by SigmaStep within MinSigma..MaxSigma, Right and Left step kernelSize by one, R restores the
// defaults. Other keys are ignored.
//
// Parameters:
//   - s: the store to edit
//
// Returns:
//   - func(keyCode uint32): the callback
func KeyHandler(s ParameterStore) func(keyCode uint32) {
	return func(keyCode uint32) {
		p := s.Parameters()
		switch keyCode {
		case common.KeyUp:
			s.OnParameterChanged(KeySigma, math.Min(p.Sigma*SigmaStep, MaxSigma))
		case common.KeyDown:
			s.OnParameterChanged(KeySigma, math.Max(p.Sigma/SigmaStep, MinSigma))
		case common.KeyRight:
			s.OnParameterChanged(KeyKernelSize, float64(p.KernelSize+1))
		case common.KeyLeft:
			s.OnParameterChanged(KeyKernelSize, float64(p.KernelSize-1))
		case common.KeyR:
			d := DefaultParameters()
			if err := s.SetParameters(d); err != nil {
				common.Logger().Warn("parameter reset rejected", "err", err)
				return
			}
			common.Logger().Info("parameters reset", KeySigma, d.Sigma, KeyKernelSize, d.KernelSize)
		}
	}
}
