package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/gogpu/naga"
)

// unsupportedMarkers are naga error fragments reporting a missing compiler feature rather
// than an invalid kernel.
var unsupportedMarkers = []string{"not yet implemented", "not supported", "lowering error"}

// Validate compiles WGSL source with naga to catch syntax and type errors before any device
// pipeline is created. Errors caused by features naga does not implement yet are logged and
// the source is accepted, so the device compiler remains the final authority for them.
//
// Parameters:
//   - label: a name used in log output
//   - source: the processed WGSL source
//
// Returns:
//   - error: the naga diagnostic if the source is invalid
func Validate(label, source string) error {
	spirv, err := naga.Compile(source)
	if err != nil {
		msg := err.Error()
		for _, m := range unsupportedMarkers {
			if strings.Contains(msg, m) {
				common.Logger().Warn("shader validation skipped", "shader", label, "reason", msg)
				return nil
			}
		}
		return fmt.Errorf("naga: %w", err)
	}
	if len(spirv) == 0 {
		return fmt.Errorf("naga: empty SPIR-V output for %q", label)
	}
	return nil
}
