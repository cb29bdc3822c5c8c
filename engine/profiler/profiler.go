package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

// Profiler tracks tick rate, rendered frame rate, pipeline counters and memory statistics.
// Outputs a report to the engine logger at a configurable interval.
type Profiler struct {
	tickCount      int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	stats     func() renderer.Stats
	lastStats renderer.Stats
	now       func() time.Time
}

// Report is one interval's worth of measurements.
type Report struct {
	TPS         float64 // producer ticks per second
	FPS         float64 // command buffers executed per second
	Dropped     uint64  // snapshots submitted but never prepared during the interval
	QueueDepth  int
	PrepTime    time.Duration
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
	SysMB       float64
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, option := range options {
		option(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per producer tick.
// Logs a Report at Info level when the update interval has elapsed.
//
// Returns:
//   - Report: the report, valid only when the bool is true
//   - bool: true if stats were reported this tick, false otherwise
func (p *Profiler) Tick() (Report, bool) {
	p.tickCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Report{}, false
	}

	seconds := elapsed.Seconds()
	report := Report{TPS: float64(p.tickCount) / seconds}

	if p.stats != nil {
		s := p.stats()
		processed := s.BuffersProcessed - p.lastStats.BuffersProcessed
		submitted := s.SnapshotsSubmitted - p.lastStats.SnapshotsSubmitted
		prepared := s.BuffersPrepared - p.lastStats.BuffersPrepared
		report.FPS = float64(processed) / seconds
		if submitted > prepared {
			report.Dropped = submitted - prepared
		}
		report.QueueDepth = s.QueueDepth
		report.PrepTime = s.LastPrepDuration
		p.lastStats = s
	}

	runtime.ReadMemStats(&p.memStats)
	report.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	report.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	report.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / seconds

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	report.GCCount = gcCount
	if gcCount > 0 {
		report.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			report.MaxPauseUs = max(report.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	common.Logger().WithGroup("profiler").Info("stats",
		slog.Float64("tps", report.TPS),
		slog.Float64("fps", report.FPS),
		slog.Uint64("dropped", report.Dropped),
		slog.Int("queue_depth", report.QueueDepth),
		slog.Duration("prep", report.PrepTime),
		slog.Float64("heap_mb", report.HeapMB),
		slog.Float64("alloc_rate_mb", report.AllocRateMB),
		slog.Any("gc", report.GCCount),
		slog.Uint64("gc_last_us", report.LastPauseUs),
		slog.Uint64("gc_max_us", report.MaxPauseUs),
		slog.Float64("sys_mb", report.SysMB),
	)

	p.tickCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return report, true
}
