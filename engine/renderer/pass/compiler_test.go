package pass

import (
	"slices"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

var (
	opaque      = material.NewMaterial(material.WithName("opaque"))
	cutout      = material.NewMaterial(material.WithType(material.MaterialTypeCutout))
	noShadow    = material.NewMaterial(material.WithCastsShadows(false))
	transparent = material.NewMaterial(material.WithType(material.MaterialTypeTransparent))
	additive    = material.NewMaterial(material.WithType(material.MaterialTypeAdditive))
)

func object(index int, m material.Material, depth float32) frame.Object {
	return frame.Object{Index: index, Material: m, Depth: depth}
}

func indices(objects []frame.Object) []int {
	out := make([]int, len(objects))
	for i, o := range objects {
		out[i] = o.Index
	}
	return out
}

func types(passes []RenderPass) []PassType {
	out := make([]PassType, len(passes))
	for i, p := range passes {
		out[i] = p.Type
	}
	return out
}

func TestPassSequence(t *testing.T) {
	tests := []struct {
		name    string
		mode    PipelineMode
		shadows bool
		want    []PassType
	}{
		{"forward", PipelineForward, false, []PassType{PassOpaque, PassTransparent, PassUI}},
		{"forward shadows", PipelineForward, true, []PassType{PassShadow, PassOpaque, PassTransparent, PassUI}},
		{"deferred", PipelineDeferred, false, []PassType{PassGBuffer, PassLighting, PassTransparent, PassUI}},
		{"deferred shadows", PipelineDeferred, true, []PassType{PassShadow, PassGBuffer, PassLighting, PassTransparent, PassUI}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompiler(tt.mode, WithShadows(tt.shadows))
			// An empty frame still yields every pass.
			got := types(c.Compile(&frame.RenderFrame{}))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Compile() passes = %v, want %v", got, tt.want)
			}
			if c.Mode() != tt.mode {
				t.Errorf("Mode() = %v, want %v", c.Mode(), tt.mode)
			}
		})
	}
}

func TestFilterByMaterial(t *testing.T) {
	f := &frame.RenderFrame{
		Objects: []frame.Object{
			object(0, opaque, 1),
			object(1, transparent, 1),
			object(2, cutout, 1),
			object(3, additive, 1),
			object(4, nil, 1),
		},
		UI: []snapshot.UIDrawItem{{DrawOrder: 1}},
	}
	passes := NewCompiler(PipelineForward).Compile(f)

	if got := indices(passes[0].Objects); !slices.Equal(got, []int{0, 2}) {
		t.Errorf("opaque objects = %v, want [0 2]", got)
	}
	if got := indices(passes[1].Objects); !slices.Equal(got, []int{1, 3}) {
		t.Errorf("transparent objects = %v, want [1 3]", got)
	}
	if len(passes[2].UI) != 1 || len(passes[2].Objects) != 0 {
		t.Errorf("ui pass = %d items, %d objects, want 1, 0", len(passes[2].UI), len(passes[2].Objects))
	}
}

func TestOpaqueFrontToBackStable(t *testing.T) {
	f := &frame.RenderFrame{
		Objects: []frame.Object{
			object(0, opaque, 5),
			object(1, opaque, 2),
			object(2, opaque, 5),
			object(3, opaque, 1),
			object(4, opaque, 2),
		},
	}
	for _, mode := range []PipelineMode{PipelineForward, PipelineDeferred} {
		t.Run(mode.String(), func(t *testing.T) {
			passes := NewCompiler(mode).Compile(f)
			got := indices(passes[0].Objects)
			want := []int{3, 1, 4, 0, 2}
			if !slices.Equal(got, want) {
				t.Errorf("order = %v, want %v", got, want)
			}
		})
	}
}

func TestTransparentBackToFrontStable(t *testing.T) {
	f := &frame.RenderFrame{
		Objects: []frame.Object{
			object(0, transparent, 2),
			object(1, additive, 7),
			object(2, transparent, 2),
			object(3, transparent, 9),
		},
	}
	passes := NewCompiler(PipelineForward).Compile(f)
	got := indices(passes[1].Objects)
	want := []int{3, 1, 0, 2}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestUISortedByDrawOrderThenBatch(t *testing.T) {
	texA := resource.Handle{Index: 0, Generation: 1}
	texB := resource.Handle{Index: 1, Generation: 1}
	f := &frame.RenderFrame{
		UI: []snapshot.UIDrawItem{
			{DrawOrder: 2, Material: opaque, Texture: texB, Color: gputypes.ColorRed},
			{DrawOrder: 1, Material: opaque, Texture: texB, Color: gputypes.ColorGreen},
			{DrawOrder: 2, Material: opaque, Texture: texA, Color: gputypes.ColorBlue},
			{DrawOrder: 1, Material: opaque, Texture: texB, Color: gputypes.ColorWhite},
		},
	}
	passes := NewCompiler(PipelineForward).Compile(f)
	got := passes[2].UI

	want := []gputypes.Color{gputypes.ColorGreen, gputypes.ColorWhite, gputypes.ColorBlue, gputypes.ColorRed}
	for i := range want {
		if got[i].Color != want[i] {
			t.Errorf("UI[%d].Color = %v, want %v", i, got[i].Color, want[i])
		}
	}
	// The frame's UI list is not reordered in place.
	if f.UI[0].Color != gputypes.ColorRed {
		t.Error("Compile() mutated the frame UI list")
	}
}

func TestVisibilityCulling(t *testing.T) {
	snap := snapshot.New(snapshot.TargetMain, 100, 100, gputypes.ColorBlack)
	snap.AddObject(snapshot.RenderObject{Transform: mgl32.Ident4(), Material: opaque, Mesh: snapshot.MeshRef{BoundingRadius: 1}})
	snap.AddObject(snapshot.RenderObject{Transform: mgl32.Translate3D(0, 0, 20), Material: opaque, Mesh: snapshot.MeshRef{BoundingRadius: 1}})
	snap.AddObject(snapshot.RenderObject{Transform: mgl32.Translate3D(0, 0, 20), Material: opaque})
	snap.AddObject(snapshot.RenderObject{Transform: mgl32.Translate3D(500, 0, 0), Material: transparent, Mesh: snapshot.MeshRef{BoundingRadius: 1}})

	f := frame.NewCompiler().Compile(snap)
	passes := NewCompiler(PipelineForward).Compile(f)

	// Object 2 has no bounds and is never culled. It sits behind the camera, so it sorts first.
	if got := indices(passes[0].Objects); !slices.Equal(got, []int{2, 0}) {
		t.Errorf("opaque objects = %v, want [2 0]", got)
	}
	if len(passes[1].Objects) != 0 {
		t.Errorf("transparent objects = %v, want none", indices(passes[1].Objects))
	}
}

func TestShadowPass(t *testing.T) {
	snap := snapshot.New(snapshot.TargetMain, 100, 100, gputypes.ColorBlack)
	snap.AddLight(light.Data{Type: light.LightTypeDirectional, Direction: mgl32.Vec3{0, -1, 0}, CastsShadows: true})
	snap.AddObject(snapshot.RenderObject{Transform: mgl32.Ident4(), Material: opaque, Mesh: snapshot.MeshRef{BoundingRadius: 1}})
	snap.AddObject(snapshot.RenderObject{Transform: mgl32.Ident4(), Material: noShadow, Mesh: snapshot.MeshRef{BoundingRadius: 1}})
	snap.AddObject(snapshot.RenderObject{Transform: mgl32.Ident4(), Material: transparent, Mesh: snapshot.MeshRef{BoundingRadius: 1}})
	// Behind the main camera but inside the light's frustum.
	snap.AddObject(snapshot.RenderObject{Transform: mgl32.Translate3D(0, 0, 10), Material: cutout, Mesh: snapshot.MeshRef{BoundingRadius: 1}})

	f := frame.NewCompiler().Compile(snap)
	passes := NewCompiler(PipelineForward, WithShadows(true)).Compile(f)

	if passes[0].Type != PassShadow {
		t.Fatalf("passes[0] = %v, want shadow", passes[0].Type)
	}
	got := indices(passes[0].Objects)
	slices.Sort(got)
	if !slices.Equal(got, []int{0, 3}) {
		t.Errorf("shadow objects = %v, want [0 3]", got)
	}
	if passes[0].Camera.ViewProjection != f.Shadow.ViewProjection {
		t.Error("shadow pass does not use the light camera")
	}
	if got := indices(passes[1].Objects); !slices.Equal(got, []int{0, 1}) {
		t.Errorf("opaque objects = %v, want [0 1]", got)
	}
}

func TestShadowPassWithoutCaster(t *testing.T) {
	f := &frame.RenderFrame{Objects: []frame.Object{object(0, opaque, 1)}}
	passes := NewCompiler(PipelineDeferred, WithShadows(true)).Compile(f)
	if !passes[0].Empty() {
		t.Errorf("shadow pass without a caster has %d objects, want 0", len(passes[0].Objects))
	}
	if passes[2].Type != PassLighting {
		t.Errorf("passes[2] = %v, want lighting", passes[2].Type)
	}
}

func TestParallelCompileMatchesSerial(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(4, 16, time.Second)
	defer pool.Stop()

	f := &frame.RenderFrame{}
	for i := range 200 {
		m := opaque
		if i%3 == 0 {
			m = transparent
		}
		f.Objects = append(f.Objects, object(i, m, float32(i%17)))
	}

	serial := NewCompiler(PipelineDeferred, WithShadows(true)).Compile(f)
	parallel := NewCompiler(PipelineDeferred, WithShadows(true), WithWorkerPool(pool)).Compile(f)

	for i := range serial {
		if serial[i].Type != parallel[i].Type {
			t.Fatalf("pass %d type = %v, want %v", i, parallel[i].Type, serial[i].Type)
		}
		if !slices.Equal(indices(serial[i].Objects), indices(parallel[i].Objects)) {
			t.Errorf("pass %v order differs between serial and parallel", serial[i].Type)
		}
	}
}

func TestStrings(t *testing.T) {
	if PassGBuffer.String() != "gbuffer" || PassType(99).String() != "unknown" {
		t.Errorf("PassType.String() = %q, %q", PassGBuffer.String(), PassType(99).String())
	}
	if PipelineDeferred.String() != "deferred" {
		t.Errorf("PipelineMode.String() = %q", PipelineDeferred.String())
	}
}
