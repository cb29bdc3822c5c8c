package snapshot

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

func TestNew(t *testing.T) {
	s := New(TargetMain, 800, 600, gputypes.ColorBlack)

	if s.Resolution != [2]uint32{800, 600} {
		t.Errorf("Resolution = %v, want [800 600]", s.Resolution)
	}
	if s.ClearColor != gputypes.ColorBlack {
		t.Errorf("ClearColor = %v, want %v", s.ClearColor, gputypes.ColorBlack)
	}
	if s.PreRender == nil || s.PostRender == nil {
		t.Fatal("command lists must be allocated")
	}
	if s.Camera != DefaultCamera() {
		t.Errorf("Camera = %v, want default", s.Camera)
	}
}

func TestAddPreservesOrder(t *testing.T) {
	s := New(TargetMain, 1, 1, gputypes.ColorBlack)
	for i := range 3 {
		s.AddObject(RenderObject{Transform: mgl32.Translate3D(float32(i), 0, 0)})
	}
	s.AddLight(light.Data{Type: light.LightTypePoint})
	s.AddUI(UIDrawItem{DrawOrder: 2})

	for i, o := range s.Objects {
		if got := o.Transform[12]; got != float32(i) {
			t.Errorf("Objects[%d].x = %v, want %v", i, got, i)
		}
	}
	if len(s.Lights) != 1 || len(s.UI) != 1 {
		t.Errorf("Lights = %d, UI = %d, want 1, 1", len(s.Lights), len(s.UI))
	}
}

func TestClaim(t *testing.T) {
	s := New(TargetMain, 1, 1, gputypes.ColorBlack)
	if !s.Claim() {
		t.Fatal("first Claim() = false, want true")
	}
	if s.Claim() {
		t.Error("second Claim() = true, want false")
	}
}

func TestBatchKey(t *testing.T) {
	m := material.NewMaterial()
	tex := resource.Handle{Index: 2, Generation: 1}

	a := UIDrawItem{Material: m, Texture: tex}.BatchKey()
	b := UIDrawItem{Material: m, Texture: tex, DrawOrder: 9}.BatchKey()
	if a != b {
		t.Errorf("BatchKey differs for same material and texture: %v vs %v", a, b)
	}

	tests := []struct {
		name string
		a, b BatchKey
		want bool
	}{
		{"material first", BatchKey{Material: 1, Texture: resource.Handle{Index: 9}}, BatchKey{Material: 2}, true},
		{"texture index", BatchKey{Material: 1, Texture: resource.Handle{Index: 1}}, BatchKey{Material: 1, Texture: resource.Handle{Index: 2}}, true},
		{"equal", BatchKey{Material: 1}, BatchKey{Material: 1}, false},
		{"greater", BatchKey{Material: 3}, BatchKey{Material: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Less(tt.b); got != tt.want {
				t.Errorf("Less() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := (UIDrawItem{}).BatchKey(); got.Material != 0 {
		t.Errorf("nil material BatchKey().Material = %d, want 0", got.Material)
	}
}

func TestTargetTypeString(t *testing.T) {
	if TargetMain.String() != "main" || TargetOffscreen.String() != "offscreen" {
		t.Errorf("String() = %q, %q", TargetMain.String(), TargetOffscreen.String())
	}
}
