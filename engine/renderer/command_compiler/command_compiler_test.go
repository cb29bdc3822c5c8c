package command_compiler

import (
	"bytes"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pass"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

var (
	meshA = resource.Handle{Index: 0, Generation: 1}
	meshB = resource.Handle{Index: 1, Generation: 1}
	tex   = resource.Handle{Index: 0, Generation: 1}
)

// compile runs a snapshot through the frame, pass and command compilers.
func compile(snap *snapshot.RenderSnapshot, mode pass.PipelineMode, opts ...pass.CompilerBuilderOption) *command.Buffer {
	f := frame.NewCompiler().Compile(snap)
	passes := pass.NewCompiler(mode, opts...).Compile(f)
	return NewCompiler().Compile(1, f, passes)
}

func TestEndToEndOpaqueDepthOrder(t *testing.T) {
	opaque := material.NewMaterial()
	snap := snapshot.New(snapshot.TargetMain, 640, 480, gputypes.NewColor(0, 0, 0, 1))
	// Camera at z=5 looking at the origin: z=0 is depth 5, z=3 is depth 2.
	snap.AddObject(snapshot.RenderObject{Transform: mgl32.Translate3D(0, 0, 0), Mesh: snapshot.MeshRef{Handle: meshA, IndexCount: 36, BoundingRadius: 1}, Material: opaque})
	snap.AddObject(snapshot.RenderObject{Transform: mgl32.Translate3D(0, 0, 3), Mesh: snapshot.MeshRef{Handle: meshB, IndexCount: 36, BoundingRadius: 1}, Material: opaque})

	buf := compile(snap, pass.PipelineForward)

	begin, ok := buf.At(0).(command.BeginPassCommand)
	if !ok {
		t.Fatalf("At(0) = %v, want BeginPass", buf.At(0).Type())
	}
	if !begin.Clear || begin.ClearColor != gputypes.NewColor(0, 0, 0, 1) {
		t.Errorf("opaque BeginPass = %+v, want clear to (0,0,0,1)", begin)
	}

	var draws []float32
	for _, c := range buf.All() {
		if d, ok := c.(command.DrawIndexedCommand); ok {
			draws = append(draws, d.World[14])
		}
	}
	if !slices.Equal(draws, []float32{3, 0}) {
		t.Errorf("draw order by z = %v, want [3 0] (depth 2 before depth 5)", draws)
	}
}

func TestBufferLayout(t *testing.T) {
	opaque := material.NewMaterial()
	snap := snapshot.New(snapshot.TargetMain, 64, 64, gputypes.ColorBlack)
	snap.PreRender.Add(command.LoadTextureCommand{Texture: tex}, command.LoadMeshCommand{Mesh: meshA})
	snap.PostRender.Add(command.UnloadTextureCommand{Texture: tex})
	snap.AddObject(snapshot.RenderObject{Transform: mgl32.Ident4(), Mesh: snapshot.MeshRef{Handle: meshA, IndexCount: 3}, Material: opaque})
	snap.AddUI(snapshot.UIDrawItem{Material: opaque, Texture: tex})

	got := compile(snap, pass.PipelineForward).Types()
	want := []command.CommandType{
		command.CmdLoadTexture, command.CmdLoadMesh,
		command.CmdBeginPass, command.CmdApplyCamera, command.CmdApplyLights,
		command.CmdBindMaterial, command.CmdBindMesh, command.CmdDrawIndexed,
		command.CmdEndPass,
		command.CmdBeginPass, command.CmdApplyCamera, command.CmdApplyLights, command.CmdEndPass,
		command.CmdBeginPass, command.CmdBindMaterial, command.CmdBindTexture, command.CmdDrawQuad, command.CmdEndPass,
		command.CmdUnloadTexture,
	}
	if !slices.Equal(got, want) {
		t.Errorf("Types() =\n%v\nwant\n%v", got, want)
	}
}

func TestLoadsPrecedeDrawsAndUnloadsFollow(t *testing.T) {
	opaque := material.NewMaterial(material.WithTexture(tex))
	snap := snapshot.New(snapshot.TargetMain, 64, 64, gputypes.ColorBlack)
	snap.PreRender.Add(command.LoadTextureCommand{Texture: tex})
	snap.PostRender.Add(command.UnloadTextureCommand{Texture: tex})
	for i := range 5 {
		snap.AddObject(snapshot.RenderObject{Transform: mgl32.Translate3D(0, 0, float32(-i)), Mesh: snapshot.MeshRef{Handle: meshA, IndexCount: 3}, Material: opaque})
	}

	for _, mode := range []pass.PipelineMode{pass.PipelineForward, pass.PipelineDeferred} {
		t.Run(mode.String(), func(t *testing.T) {
			buf := compile(snap, mode, pass.WithShadows(true))
			load, unload := -1, -1
			firstDraw, lastDraw := -1, -1
			for i, c := range buf.All() {
				switch c.Type() {
				case command.CmdLoadTexture:
					load = i
				case command.CmdUnloadTexture:
					unload = i
				case command.CmdDrawIndexed, command.CmdDrawQuad, command.CmdDrawFullscreen:
					if firstDraw < 0 {
						firstDraw = i
					}
					lastDraw = i
				}
			}
			if load < 0 || unload < 0 || firstDraw < 0 {
				t.Fatalf("load = %d, unload = %d, first draw = %d", load, unload, firstDraw)
			}
			if load > firstDraw {
				t.Errorf("load at %d after first draw at %d", load, firstDraw)
			}
			if unload < lastDraw {
				t.Errorf("unload at %d before last draw at %d", unload, lastDraw)
			}
		})
	}
}

func TestRedundantBindsSkipped(t *testing.T) {
	a := material.NewMaterial()
	b := material.NewMaterial()
	f := &frame.RenderFrame{Resolution: [2]uint32{1, 1}}
	passes := []pass.RenderPass{{
		Type: pass.PassOpaque,
		Objects: []frame.Object{
			{Material: a, Mesh: snapshot.MeshRef{Handle: meshA}},
			{Material: a, Mesh: snapshot.MeshRef{Handle: meshA}},
			{Material: a, Mesh: snapshot.MeshRef{Handle: meshB}},
			{Material: b, Mesh: snapshot.MeshRef{Handle: meshB}},
		},
	}}

	buf := NewCompiler().Compile(9, f, passes)

	if buf.Frame() != 9 {
		t.Errorf("Frame() = %d, want 9", buf.Frame())
	}
	tests := []struct {
		typ  command.CommandType
		want int
	}{
		{command.CmdBindMaterial, 2},
		{command.CmdBindMesh, 2},
		{command.CmdDrawIndexed, 4},
	}
	for _, tt := range tests {
		if got := buf.Count(tt.typ); got != tt.want {
			t.Errorf("Count(%v) = %d, want %d", tt.typ, got, tt.want)
		}
	}
}

func TestPassClearAndState(t *testing.T) {
	f := &frame.RenderFrame{Resolution: [2]uint32{320, 200}, ClearColor: gputypes.ColorBlue}
	passes := []pass.RenderPass{
		{Type: pass.PassShadow},
		{Type: pass.PassGBuffer},
		{Type: pass.PassLighting},
		{Type: pass.PassTransparent},
		{Type: pass.PassUI},
	}
	buf := NewCompiler().Compile(1, f, passes)

	var begins []command.BeginPassCommand
	for _, c := range buf.All() {
		if b, ok := c.(command.BeginPassCommand); ok {
			begins = append(begins, b)
		}
	}
	if len(begins) != len(passes) {
		t.Fatalf("BeginPass count = %d, want %d", len(begins), len(passes))
	}

	shadow := begins[0]
	if !shadow.DepthOnly || shadow.Target != command.TargetShadowMap || shadow.Clear || !shadow.ClearDepth || shadow.Width != light.ShadowMapResolution {
		t.Errorf("shadow BeginPass = %+v", shadow)
	}
	gbuffer := begins[1]
	if !gbuffer.Clear || gbuffer.Target != command.TargetGBuffer || gbuffer.ClearColor != gputypes.ColorBlue || gbuffer.Width != 320 || !gbuffer.DepthWrite {
		t.Errorf("gbuffer BeginPass = %+v", gbuffer)
	}
	for _, b := range begins[2:] {
		if b.Clear {
			t.Errorf("%s BeginPass clears, only the first main pass may", b.Name)
		}
	}
	if begins[3].DepthWrite || begins[3].Blend != command.BlendAlpha {
		t.Errorf("transparent BeginPass = %+v", begins[3])
	}
	// Empty lighting pass still shades ambient once.
	if got := buf.Count(command.CmdDrawFullscreen); got != 1 {
		t.Errorf("Count(DrawFullscreen) = %d, want 1", got)
	}
}

func TestLightingBatches(t *testing.T) {
	lights := make([]light.Data, light.MaxLightsPerBatch+3)
	f := &frame.RenderFrame{Resolution: [2]uint32{1, 1}, Ambient: gputypes.NewColorRGB(0.2, 0.2, 0.2)}
	passes := []pass.RenderPass{{Type: pass.PassLighting, Lights: lights}}

	buf := NewCompiler().Compile(1, f, passes)

	if got := buf.Count(command.CmdDrawFullscreen); got != 2 {
		t.Errorf("Count(DrawFullscreen) = %d, want 2", got)
	}
	var sizes []int
	var ambient []gputypes.Color
	for _, c := range buf.All() {
		if a, ok := c.(command.ApplyLightsCommand); ok {
			sizes = append(sizes, len(a.Lights))
			ambient = append(ambient, a.Ambient)
		}
	}
	if !slices.Equal(sizes, []int{light.MaxLightsPerBatch, 3}) {
		t.Errorf("light batch sizes = %v", sizes)
	}
	if want := []gputypes.Color{f.Ambient, {}}; !slices.Equal(ambient, want) {
		t.Errorf("batch ambient = %v, want %v", ambient, want)
	}
}

func TestForwardPassLightLimit(t *testing.T) {
	var logs bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer common.SetLogger(nil)

	lights := make([]light.Data, light.MaxLightsPerBatch+5)
	f := &frame.RenderFrame{Resolution: [2]uint32{1, 1}}
	passes := []pass.RenderPass{{Type: pass.PassOpaque, Lights: lights}}

	buf := NewCompiler().Compile(1, f, passes)

	var sizes []int
	for _, c := range buf.All() {
		if a, ok := c.(command.ApplyLightsCommand); ok {
			sizes = append(sizes, len(a.Lights))
		}
	}
	if !slices.Equal(sizes, []int{light.MaxLightsPerBatch}) {
		t.Errorf("ApplyLights sizes = %v, want [%d]", sizes, light.MaxLightsPerBatch)
	}
	if out := logs.String(); !strings.Contains(out, "light limit") || !strings.Contains(out, "dropped=5") {
		t.Errorf("log = %q, want a light limit entry with dropped=5", out)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(3, 16, time.Second)
	defer pool.Stop()

	opaque := material.NewMaterial()
	transparent := material.NewMaterial(material.WithType(material.MaterialTypeTransparent))
	snap := snapshot.New(snapshot.TargetMain, 64, 64, gputypes.ColorBlack)
	for i := range 100 {
		m := opaque
		if i%2 == 0 {
			m = transparent
		}
		snap.AddObject(snapshot.RenderObject{Transform: mgl32.Translate3D(0, 0, -float32(i%13)), Mesh: snapshot.MeshRef{Handle: resource.Handle{Index: uint32(i % 4), Generation: 1}, IndexCount: 6}, Material: m})
	}
	f := frame.NewCompiler().Compile(snap)
	passes := pass.NewCompiler(pass.PipelineForward).Compile(f)

	serial := NewCompiler().Compile(1, f, passes)
	parallel := NewCompiler(WithWorkerPool(pool)).Compile(1, f, passes)

	if !slices.Equal(serial.Types(), parallel.Types()) {
		t.Fatal("parallel command types differ from serial")
	}
	for i := range serial.Len() {
		s, sok := serial.At(i).(command.DrawIndexedCommand)
		p, pok := parallel.At(i).(command.DrawIndexedCommand)
		if sok != pok || s != p {
			t.Fatalf("command %d differs: %+v vs %+v", i, serial.At(i), parallel.At(i))
		}
	}
}
