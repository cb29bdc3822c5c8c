package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/processor"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
)

type recordingListener struct {
	name  string
	calls *[]string
	sizes [][2]uint32
}

func (l *recordingListener) OnRenderSnapshot(target snapshot.TargetType, snap *snapshot.RenderSnapshot) {
	*l.calls = append(*l.calls, l.name+":"+target.String())
	l.sizes = append(l.sizes, snap.Resolution)
}

type failingProcessor struct{}

func (failingProcessor) Init() error             { return errors.New("no device") }
func (failingProcessor) Process(*command.Buffer) {}
func (failingProcessor) Close() error            { return nil }

func TestRunHeadless(t *testing.T) {
	var (
		eng  Engine
		once sync.Once
	)
	rec := processor.NewRecorder(processor.WithOnProcess(func(buf *command.Buffer) {
		if buf.Frame() >= 3 {
			once.Do(func() { eng.Quit() })
		}
	}))
	r := renderer.NewRenderer(rec)

	var calls []string
	first := &recordingListener{name: "first", calls: &calls}
	second := &recordingListener{name: "second", calls: &calls}
	ticks := 0
	eng = NewEngine(r, rec,
		WithTickRate(200),
		WithResolution(320, 240),
		WithListeners(first, second),
		WithTickCallback(func(float32) { ticks++ }),
	)

	done := make(chan error, 1)
	go func() { done <- eng.Run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}

	frames := rec.Frames()
	if len(frames) < 3 {
		t.Fatalf("processed %d frames, want at least 3", len(frames))
	}
	for i, f := range frames {
		if f != uint64(i+1) {
			t.Fatalf("frames = %v, want consecutive from 1", frames)
		}
	}
	if ticks < len(frames) {
		t.Errorf("ticks = %d, want at least %d", ticks, len(frames))
	}
	if len(calls) < 2 || calls[0] != "first:main" || calls[1] != "second:main" {
		t.Errorf("listener calls = %v, want first then second for the main target", calls)
	}
	if first.sizes[0] != [2]uint32{320, 240} {
		t.Errorf("snapshot resolution = %v, want [320 240]", first.sizes[0])
	}
	if v := rec.Violations(); len(v) != 0 {
		t.Errorf("violations: %v", v)
	}
}

func TestRunReportsInitFailure(t *testing.T) {
	proc := failingProcessor{}
	r := renderer.NewRenderer(proc)

	if err := NewEngine(r, proc).Run(); err == nil {
		t.Error("Run() = nil, want the processor's Init error")
	}

	done := make(chan bool, 1)
	go func() { done <- r.ProcessRenderCommandBuffer() }()
	select {
	case ok := <-done:
		if ok {
			t.Error("ProcessRenderCommandBuffer() = true, want false from a closed renderer")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("renderer was left open after Init failed")
	}
}

func TestListeners(t *testing.T) {
	rec := processor.NewRecorder()
	r := renderer.NewRenderer(rec)
	defer r.Close()

	var calls []string
	l := &recordingListener{name: "l", calls: &calls}
	eng := NewEngine(r, rec)
	eng.AddListener(l)
	if !eng.RemoveListener(l) {
		t.Error("RemoveListener = false, want true")
	}
	if eng.RemoveListener(l) {
		t.Error("second RemoveListener = true, want false")
	}
}

func TestIntervals(t *testing.T) {
	tests := []struct {
		fps   float64
		tick  time.Duration
		limit time.Duration
	}{
		{0, time.Second / 60, 0},
		{-5, time.Second / 60, 0},
		{120, time.Second / 120, time.Second / 120},
		{2.5, 400 * time.Millisecond, 400 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := tickInterval(tt.fps); got != tt.tick {
			t.Errorf("tickInterval(%v) = %v, want %v", tt.fps, got, tt.tick)
		}
		if got := frameLimit(tt.fps); got != tt.limit {
			t.Errorf("frameLimit(%v) = %v, want %v", tt.fps, got, tt.limit)
		}
	}
}

func TestNewEngineRequiresRenderer(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewEngine(nil, nil) did not panic")
		}
	}()
	NewEngine(nil, nil)
}
