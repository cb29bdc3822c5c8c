package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

func TestControllerPosition(t *testing.T) {
	tests := []struct {
		name      string
		azimuth   float32
		elevation float32
		want      mgl32.Vec3
	}{
		{"front", 0, 0, mgl32.Vec3{0, 0, 10}},
		{"side", math.Pi / 2, 0, mgl32.Vec3{10, 0, 0}},
		{"above", 0, math.Pi / 4, mgl32.Vec3{0, 10 * math.Sqrt2 / 2, 10 * math.Sqrt2 / 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := NewCameraController(WithOrbit(10, tt.azimuth, tt.elevation))
			if got := cc.Position(); !near(got, tt.want, 1e-4) {
				t.Errorf("Position() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestControllerClamps(t *testing.T) {
	cc := NewCameraController(WithRadiusBounds(2, 20), WithElevationBounds(0, 1))

	cc.SetRadius(100)
	if got := cc.Radius(); got != 20 {
		t.Errorf("Radius() after SetRadius(100) = %v, want 20", got)
	}
	cc.Zoom(1000)
	if got := cc.Radius(); got != 2 {
		t.Errorf("Radius() after zooming in = %v, want 2", got)
	}
	cc.SetElevation(-1)
	if got := cc.Elevation(); got != 0 {
		t.Errorf("Elevation() = %v, want 0", got)
	}
	for range 100 {
		cc.OrbitUp()
	}
	if got := cc.Elevation(); got != 1 {
		t.Errorf("Elevation() after orbiting up = %v, want 1", got)
	}
}

func TestPanKeepsOrbit(t *testing.T) {
	cc := NewCameraController(WithOrbit(10, 0, 0), WithSpeeds(0.03, 0.005, 1, 1))
	before := cc.Position().Sub(cc.Target())

	cc.PanRight(3)
	cc.PanUp(2)
	if got := cc.Position().Sub(cc.Target()); !near(got, before, 1e-4) {
		t.Errorf("offset after panning = %v, want %v", got, before)
	}
	if got := cc.Target(); !near(got, mgl32.Vec3{3, 2, 0}, 1e-4) {
		t.Errorf("Target() = %v, want [3 2 0]", got)
	}

	cc.PanForward(4)
	if got := cc.Target(); !near(got, mgl32.Vec3{3, 2, -4}, 1e-4) {
		t.Errorf("Target() after dolly = %v, want [3 2 -4]", got)
	}
}

func TestCameraSnapshot(t *testing.T) {
	c := NewCamera(WithFov(1), WithClip(0.5, 50), WithLookAt(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{0, 1, 0}))
	got := c.Snapshot()
	want := snapshot.Camera{
		Position: mgl32.Vec3{1, 2, 3},
		Target:   mgl32.Vec3{0, 1, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     1,
		Near:     0.5,
		Far:      50,
	}
	if got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}

	cc := NewCameraController(WithTarget(0, 0, 0), WithOrbit(5, 0, 0))
	c.SetController(cc)
	if got := c.Snapshot().Position; !near(got, mgl32.Vec3{0, 0, 5}, 1e-4) {
		t.Errorf("controlled Position = %v, want [0 0 5]", got)
	}
}

func TestCameraOnRenderSnapshot(t *testing.T) {
	c := NewCamera(WithLookAt(mgl32.Vec3{9, 9, 9}, mgl32.Vec3{}))

	main := snapshot.New(snapshot.TargetMain, 64, 64, gputypes.Color{})
	c.OnRenderSnapshot(snapshot.TargetMain, main)
	if main.Camera.Position != (mgl32.Vec3{9, 9, 9}) {
		t.Errorf("main camera position = %v, want [9 9 9]", main.Camera.Position)
	}

	off := snapshot.New(snapshot.TargetOffscreen, 64, 64, gputypes.Color{})
	c.OnRenderSnapshot(snapshot.TargetOffscreen, off)
	if off.Camera != snapshot.DefaultCamera() {
		t.Errorf("offscreen camera = %+v, want the default", off.Camera)
	}
}

func TestSetClipPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("SetClip(1, 0.5) did not panic")
		}
	}()
	NewCamera().SetClip(1, 0.5)
}

// near reports whether every component of got is within tol of want.
func near(got, want mgl32.Vec3, tol float32) bool {
	for i := range got {
		if d := got[i] - want[i]; d > tol || d < -tol {
			return false
		}
	}
	return true
}
