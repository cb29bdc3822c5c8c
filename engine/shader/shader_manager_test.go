package shader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/gogpu/gputypes"
)

func mainSnapshot() *snapshot.RenderSnapshot {
	return snapshot.New(snapshot.TargetMain, 32, 32, gputypes.ColorBlack)
}

func TestShaderLifecycle(t *testing.T) {
	m := NewManager()
	s := m.CreateShader("unlit", "void main() {}", "void main() {}")
	if got, ok := m.Lookup("unlit"); !ok || got != s {
		t.Errorf("Lookup(unlit) = %v, %v", got, ok)
	}

	snap := mainSnapshot()
	m.OnRenderSnapshot(snapshot.TargetMain, snap)
	pre := snap.PreRender.Commands()
	if len(pre) != 1 {
		t.Fatalf("len(pre) = %d, want 1", len(pre))
	}
	if load := pre[0].(command.LoadShaderCommand); load.Shader != s.Handle() || load.Name != "unlit" {
		t.Errorf("pre[0] = %+v", load)
	}
	if got := m.State(s); got != resource.StateResident {
		t.Errorf("State() = %v, want %v", got, resource.StateResident)
	}

	m.DestroyShader(s)
	if got := m.LiveCount(); got != 0 {
		t.Errorf("LiveCount() = %d, want 0", got)
	}
	if _, ok := m.Lookup("unlit"); ok {
		t.Errorf("Lookup found a destroyed shader")
	}

	snap = mainSnapshot()
	m.OnRenderSnapshot(snapshot.TargetMain, snap)
	post := snap.PostRender.Commands()
	if len(post) != 1 || post[0].(command.UnloadShaderCommand).Shader != s.Handle() {
		t.Errorf("post = %v, want one unload", post)
	}
	m.Close()
}

func TestOffscreenDoesNotDrain(t *testing.T) {
	m := NewManager()
	m.CreateShader("a", "src", "")

	snap := snapshot.New(snapshot.TargetOffscreen, 8, 8, gputypes.ColorBlack)
	m.OnRenderSnapshot(snapshot.TargetOffscreen, snap)
	if snap.PreRender.Len() != 0 {
		t.Errorf("PreRender.Len() = %d, want 0", snap.PreRender.Len())
	}
}

func TestShaderContractViolationsPanic(t *testing.T) {
	tests := []struct {
		name string
		fn   func(m Manager)
	}{
		{"empty vertex", func(m Manager) { m.CreateShader("x", "", "") }},
		{"destroy nil", func(m Manager) { m.DestroyShader(nil) }},
		{"destroy twice", func(m Manager) {
			s := m.CreateShader("x", "src", "")
			m.DestroyShader(s)
			m.DestroyShader(s)
		}},
		{"destroy foreign", func(m Manager) {
			m.CreateShader("mine", "src", "")
			m.DestroyShader(NewManager().CreateShader("theirs", "src", ""))
		}},
		{"close with live shaders", func(m Manager) {
			m.CreateShader("x", "src", "")
			m.Close()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("%s did not panic", tt.name)
				}
			}()
			tt.fn(NewManager())
		})
	}
}
