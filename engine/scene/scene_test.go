package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

func testMesh(index uint32) snapshot.MeshRef {
	return snapshot.MeshRef{Handle: resource.Handle{Index: index, Generation: 1}, IndexCount: 6, BoundingRadius: 1}
}

func TestRegistry(t *testing.T) {
	a := game_object.NewGameObject(game_object.WithID(1))
	b := game_object.NewGameObject(game_object.WithID(2))
	c := game_object.NewGameObject(game_object.WithID(3))

	s := NewScene(WithObjects(a, b))
	defer s.Close()
	s.Add(c)

	if got := s.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}
	if got, ok := s.Get(2); !ok || got != b {
		t.Errorf("Get(2) = %v, %v, want b, true", got, ok)
	}
	if !s.Remove(2) {
		t.Fatal("Remove(2) = false, want true")
	}
	if s.Remove(2) {
		t.Error("second Remove(2) = true, want false")
	}
	if got, ok := s.Get(3); !ok || got != c {
		t.Errorf("Get(3) after removing 2 = %v, %v, want c, true", got, ok)
	}

	replacement := game_object.NewGameObject(game_object.WithID(1))
	s.Add(replacement)
	objs := s.Objects()
	if len(objs) != 2 || objs[0] != replacement || objs[1] != c {
		t.Errorf("Objects() = %v, want [replacement c]", objs)
	}

	s.Clear()
	if got := s.Count(); got != 0 {
		t.Errorf("Count() after Clear = %d, want 0", got)
	}
}

func TestLights(t *testing.T) {
	sun := light.NewLight(light.LightTypeDirectional)
	s := NewScene()
	defer s.Close()

	s.AddLight(sun)
	s.AddLight(sun)
	if got := len(s.Lights()); got != 1 {
		t.Errorf("len(Lights()) = %d, want 1", got)
	}
	if !s.RemoveLight(sun) {
		t.Error("RemoveLight = false, want true")
	}
	if s.RemoveLight(sun) {
		t.Error("second RemoveLight = true, want false")
	}
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		objects int
		workers int
	}{
		{1, 3},
		{10, 3},
		{50, 3},
		{13, 4},
		{97, 7},
	}
	for _, tt := range tests {
		objs := make([]game_object.GameObject, tt.objects)
		for i := range objs {
			objs[i] = game_object.NewGameObject(game_object.WithRotationSpeed(0, 2, 0))
		}
		s := NewScene(WithObjects(objs...), WithComputeWorkers(tt.workers))

		s.Update(0.5)
		for i, obj := range objs {
			if got := obj.Rotation(); !near(got, mgl32.Vec3{0, 1, 0}, 1e-6) {
				t.Errorf("%d objects, %d workers: object %d rotation = %v, want [0 1 0]", tt.objects, tt.workers, i, got)
				break
			}
		}
		s.Close()
	}
}

func TestOnRenderSnapshot(t *testing.T) {
	lamp := light.NewLight(light.LightTypePoint)
	sun := light.NewLight(light.LightTypeDirectional)
	off := light.NewLight(light.LightTypeSpot, light.WithEnabled(false))

	first := game_object.NewGameObject(game_object.WithMesh(testMesh(1)), game_object.WithLight(lamp), game_object.WithPosition(1, 0, 0))
	hidden := game_object.NewGameObject(game_object.WithMesh(testMesh(2)), game_object.WithEnabled(false))
	meshless := game_object.NewGameObject()
	last := game_object.NewGameObject(game_object.WithMesh(testMesh(3)))

	cam := camera.NewCamera(camera.WithLookAt(mgl32.Vec3{0, 3, 3}, mgl32.Vec3{}))
	ambient := gputypes.NewColorRGB(0.2, 0.3, 0.4)
	s := NewScene(
		WithObjects(first, hidden, meshless, last),
		WithLights(sun, off, lamp),
		WithCamera(cam),
		WithAmbient(ambient),
	)
	defer s.Close()
	s.AddUI(snapshot.UIDrawItem{})

	snap := snapshot.New(snapshot.TargetMain, 32, 32, gputypes.Color{})
	s.OnRenderSnapshot(snapshot.TargetMain, snap)

	if len(snap.Objects) != 2 {
		t.Fatalf("len(Objects) = %d, want 2", len(snap.Objects))
	}
	if snap.Objects[0].Mesh.Handle.Index != 1 || snap.Objects[1].Mesh.Handle.Index != 3 {
		t.Errorf("object order = %d, %d, want 1, 3", snap.Objects[0].Mesh.Handle.Index, snap.Objects[1].Mesh.Handle.Index)
	}
	// lamp is both free-standing and attached, so it appears once.
	if len(snap.Lights) != 2 {
		t.Fatalf("len(Lights) = %d, want 2", len(snap.Lights))
	}
	if snap.Lights[0].Type != light.LightTypeDirectional || snap.Lights[1].Position != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("lights = %+v", snap.Lights)
	}
	if snap.Ambient != ambient {
		t.Errorf("Ambient = %v, want %v", snap.Ambient, ambient)
	}
	if snap.Camera.Position != (mgl32.Vec3{0, 3, 3}) {
		t.Errorf("camera position = %v, want [0 3 3]", snap.Camera.Position)
	}
	if len(snap.UI) != 1 {
		t.Errorf("len(UI) = %d, want 1", len(snap.UI))
	}
}

func TestInactiveSceneContributesNothing(t *testing.T) {
	s := NewScene(
		WithActive(false),
		WithObjects(game_object.NewGameObject(game_object.WithMesh(testMesh(1)))),
		WithLights(light.NewLight(light.LightTypePoint)),
	)
	defer s.Close()

	snap := snapshot.New(snapshot.TargetMain, 32, 32, gputypes.Color{})
	s.OnRenderSnapshot(snapshot.TargetMain, snap)
	if len(snap.Objects) != 0 || len(snap.Lights) != 0 {
		t.Errorf("inactive scene added %d objects and %d lights", len(snap.Objects), len(snap.Lights))
	}
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
