package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func TestTickReportsAtInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	stats := renderer.Stats{}
	p := NewProfiler(WithStats(func() renderer.Stats { return stats }))
	p.now = clock.now
	p.lastTime = clock.t

	for range 29 {
		clock.t = clock.t.Add(10 * time.Millisecond)
		if _, ok := p.Tick(); ok {
			t.Fatal("Tick reported before the interval elapsed")
		}
	}

	stats = renderer.Stats{SnapshotsSubmitted: 60, BuffersPrepared: 55, BuffersProcessed: 50, QueueDepth: 2}
	clock.t = time.Unix(2, 0)
	report, ok := p.Tick()
	if !ok {
		t.Fatal("Tick did not report after the interval elapsed")
	}
	if report.TPS != 15 {
		t.Errorf("TPS = %v, want 15", report.TPS)
	}
	if report.FPS != 25 {
		t.Errorf("FPS = %v, want 25", report.FPS)
	}
	if report.Dropped != 5 {
		t.Errorf("Dropped = %d, want 5", report.Dropped)
	}
	if report.QueueDepth != 2 {
		t.Errorf("QueueDepth = %d, want 2", report.QueueDepth)
	}

	// Counters are reported as deltas from the previous report.
	stats.BuffersProcessed = 60
	stats.BuffersPrepared = 65
	stats.SnapshotsSubmitted = 65
	clock.t = time.Unix(3, 0)
	report, ok = p.Tick()
	if !ok || report.FPS != 10 || report.Dropped != 0 {
		t.Errorf("second report = %+v, %v, want FPS 10 and no drops", report, ok)
	}
}

func TestWithUpdateIntervalPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("WithUpdateInterval(0) did not panic")
		}
	}()
	WithUpdateInterval(0)
}
