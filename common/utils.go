package common

// WorkGroupSize is the fixed compute workgroup edge length shared by every kernel.
const WorkGroupSize = 16

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// WorkGroupCount returns the dispatch group counts covering a width x height target
// with WorkGroupSize x WorkGroupSize x 1 workgroups, i.e. ceil(w/16), ceil(h/16), 1.
// Non-positive sizes yield zero groups on that axis.
//
// Parameters:
//   - width: the destination width in pixels
//   - height: the destination height in pixels
//
// Returns:
//   - [3]uint32: the group counts as [x, y, z]
func WorkGroupCount(width, height int) [3]uint32 {
	return [3]uint32{ceilDiv(width, WorkGroupSize), ceilDiv(height, WorkGroupSize), 1}
}

func ceilDiv(n, d int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((n + d - 1) / d)
}
