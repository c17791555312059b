package profiler

import "time"

// ProfilerBuilderOption is a functional option applied to a profiler during NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithUpdateInterval sets how often a report is logged.
//
// Parameters:
//   - d: the interval; 0 reports on every tick
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval to a profiler
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}
