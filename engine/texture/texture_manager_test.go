package texture

import (
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/processor"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/gogpu/gputypes"
)

func rgba(w, h uint32) Descriptor {
	return Descriptor{Width: w, Height: h, Format: gputypes.TextureFormatRGBA8Unorm}
}

func mainSnapshot() *snapshot.RenderSnapshot {
	return snapshot.New(snapshot.TargetMain, 32, 32, gputypes.ColorBlack)
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

func TestCreateThenDestroyBeforeDrain(t *testing.T) {
	m := NewManager()
	tex := m.CreateTexture2D(rgba(2, 2), make([]byte, 16))
	m.DestroyRenderTexture(tex)

	snap := mainSnapshot()
	m.OnRenderSnapshot(snapshot.TargetMain, snap)

	pre, post := snap.PreRender.Commands(), snap.PostRender.Commands()
	if len(pre) != 1 || len(post) != 1 {
		t.Fatalf("pre/post = %d/%d commands, want 1/1", len(pre), len(post))
	}
	load, ok := pre[0].(command.LoadTextureCommand)
	if !ok || load.Texture != tex.Handle() {
		t.Errorf("pre[0] = %#v, want load of %s", pre[0], tex.Handle())
	}
	unload, ok := post[0].(command.UnloadTextureCommand)
	if !ok || unload.Texture != tex.Handle() {
		t.Errorf("post[0] = %#v, want unload of %s", post[0], tex.Handle())
	}
	if got := m.State(tex); got != resource.StateDestroyed {
		t.Errorf("State() = %v, want %v", got, resource.StateDestroyed)
	}
	m.Close()
}

func TestLifecycleStates(t *testing.T) {
	m := NewManager()
	tex := m.CreateTexture2D(rgba(1, 1), nil)
	if got := m.State(tex); got != resource.StatePendingLoad {
		t.Errorf("after create State() = %v, want %v", got, resource.StatePendingLoad)
	}

	m.OnRenderSnapshot(snapshot.TargetMain, mainSnapshot())
	if got := m.State(tex); got != resource.StateResident {
		t.Errorf("after drain State() = %v, want %v", got, resource.StateResident)
	}

	m.DestroyRenderTexture(tex)
	if got := m.State(tex); got != resource.StatePendingUnload {
		t.Errorf("after destroy State() = %v, want %v", got, resource.StatePendingUnload)
	}

	snap := mainSnapshot()
	m.OnRenderSnapshot(snapshot.TargetMain, snap)
	if got := m.State(tex); got != resource.StateDestroyed {
		t.Errorf("after second drain State() = %v, want %v", got, resource.StateDestroyed)
	}
	if snap.PreRender.Len() != 0 || snap.PostRender.Len() != 1 {
		t.Errorf("pre/post = %d/%d, want 0/1", snap.PreRender.Len(), snap.PostRender.Len())
	}
}

func TestOffscreenTargetDoesNotDrain(t *testing.T) {
	m := NewManager()
	tex := m.CreateTexture2D(rgba(1, 1), nil)

	snap := snapshot.New(snapshot.TargetOffscreen, 32, 32, gputypes.ColorBlack)
	m.OnRenderSnapshot(snapshot.TargetOffscreen, snap)
	if snap.PreRender.Len() != 0 {
		t.Errorf("offscreen PreRender.Len() = %d, want 0", snap.PreRender.Len())
	}
	if loads, _ := m.PendingCount(); loads != 1 {
		t.Errorf("pending loads = %d, want 1", loads)
	}

	main := mainSnapshot()
	m.OnRenderSnapshot(snapshot.TargetMain, main)
	if main.PreRender.Len() != 1 {
		t.Errorf("main PreRender.Len() = %d, want 1", main.PreRender.Len())
	}
	if got := m.State(tex); got != resource.StateResident {
		t.Errorf("State() = %v, want %v", got, resource.StateResident)
	}
}

func TestDrainOrdersTexturesBeforeCubemaps(t *testing.T) {
	m := NewManager()
	cube := m.CreateCubemap(rgba(4, 4), [command.CubemapFaces][]byte{})
	flat := m.CreateTexture2D(rgba(4, 4), nil)

	snap := mainSnapshot()
	m.OnRenderSnapshot(snapshot.TargetMain, snap)
	m.DestroyRenderTexture(cube)
	m.DestroyRenderTexture(flat)
	m.OnRenderSnapshot(snapshot.TargetMain, snap)

	if got, want := snap.PreRender.Commands(), []command.CommandType{command.CmdLoadTexture, command.CmdLoadCubemap}; !slices.Equal(types(got), want) {
		t.Errorf("pre types = %v, want %v", types(got), want)
	}
	post := snap.PostRender.Commands()
	if len(post) != 2 {
		t.Fatalf("len(post) = %d, want 2", len(post))
	}
	if u := post[0].(command.UnloadTextureCommand); u.Cubemap || u.Texture != flat.Handle() {
		t.Errorf("post[0] = %#v, want 2D unload first", u)
	}
	if u := post[1].(command.UnloadTextureCommand); !u.Cubemap || u.Texture != cube.Handle() {
		t.Errorf("post[1] = %#v, want cubemap unload second", u)
	}
}

func TestContractViolationsPanic(t *testing.T) {
	m := NewManager()
	other := NewManager().CreateTexture2D(rgba(1, 1), nil)
	tex := m.CreateTexture2D(rgba(1, 1), nil)
	m.DestroyRenderTexture(tex)

	tests := []struct {
		name string
		fn   func()
	}{
		{"short data", func() { m.CreateTexture2D(rgba(4, 4), make([]byte, 63)) }},
		{"zero size", func() { m.CreateTexture2D(rgba(0, 4), nil) }},
		{"unsupported format", func() {
			depth := Descriptor{Width: 1, Height: 1, Format: gputypes.TextureFormatDepth24Plus}
			m.CreateTexture2D(depth, nil)
		}},
		{"non-square cubemap", func() { m.CreateCubemap(rgba(4, 2), [command.CubemapFaces][]byte{}) }},
		{"short cubemap face", func() { m.CreateCubemap(rgba(2, 2), [command.CubemapFaces][]byte{3: make([]byte, 4)}) }},
		{"destroy twice", func() { m.DestroyRenderTexture(tex) }},
		{"destroy foreign", func() { m.DestroyRenderTexture(other) }},
		{"destroy nil", func() { m.DestroyRenderTexture(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectPanic(t, tt.name, tt.fn)
		})
	}
}

func TestCloseWithLiveTexturesPanics(t *testing.T) {
	m := NewManager()
	m.CreateTexture2D(rgba(1, 1), nil)
	if got := m.LiveCount(); got != 1 {
		t.Errorf("LiveCount() = %d, want 1", got)
	}
	expectPanic(t, "Close", m.Close)
}

func TestHandlesAreNotReusedWhileLive(t *testing.T) {
	m := NewManager(WithInitialCapacity(1))
	a := m.CreateTexture2D(rgba(1, 1), nil)
	m.DestroyRenderTexture(a)
	m.OnRenderSnapshot(snapshot.TargetMain, mainSnapshot())

	b := m.CreateTexture2D(rgba(1, 1), nil)
	if a.Handle() == b.Handle() {
		t.Errorf("recycled slot kept handle %s", a.Handle())
	}
	if b.Handle().Index != a.Handle().Index {
		t.Errorf("Index = %d, want recycled %d", b.Handle().Index, a.Handle().Index)
	}
}

func TestLoadBeforeDrawThroughRenderer(t *testing.T) {
	rec := processor.NewRecorder()
	r := renderer.NewRenderer(rec)
	defer r.Close()

	m := NewManager()
	tex := m.CreateTexture2D(rgba(2, 2), make([]byte, 16))
	m.DestroyRenderTexture(tex)

	snap := mainSnapshot()
	m.OnRenderSnapshot(snapshot.TargetMain, snap)
	r.ProcessRenderSnapshot(snap)
	r.ProcessRenderCommandBuffer()

	cmds := rec.Commands()
	if len(cmds) < 2 {
		t.Fatalf("len(Commands()) = %d, want at least 2", len(cmds))
	}
	if cmds[0].Type() != command.CmdLoadTexture {
		t.Errorf("first command = %v, want %v", cmds[0].Type(), command.CmdLoadTexture)
	}
	if last := cmds[len(cmds)-1]; last.Type() != command.CmdUnloadTexture {
		t.Errorf("last command = %v, want %v", last.Type(), command.CmdUnloadTexture)
	}
	if v := rec.Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v", v)
	}
	if textures, _, _ := rec.Resident(); textures != 0 {
		t.Errorf("resident textures = %d, want 0", textures)
	}
}

func types(cmds []command.Command) []command.CommandType {
	out := make([]command.CommandType, len(cmds))
	for i, c := range cmds {
		out[i] = c.Type()
	}
	return out
}
