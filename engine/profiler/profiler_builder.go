package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithUpdateInterval sets how often Tick reports.
//
// Parameters:
//   - d: the report interval, must be positive
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	if d <= 0 {
		panic("profiler: WithUpdateInterval requires a positive duration")
	}
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithStats sets the source of pipeline counters, usually a Renderer's Stats method.
//
// Parameters:
//   - stats: returns the current counters
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithStats(stats func() renderer.Stats) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.stats = stats
	}
}
