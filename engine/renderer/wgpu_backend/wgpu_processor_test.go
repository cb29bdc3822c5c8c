package wgpu_backend

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

func floats(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func TestUniformRingOffsets(t *testing.T) {
	r := newUniformRing("test", 96)
	if r.stride != 256 {
		t.Fatalf("stride = %d, want 256", r.stride)
	}
	if !r.reset(0) || r.capacity != 1 {
		t.Fatalf("first reset capacity = %d, want 1 and a grow", r.capacity)
	}
	if !r.reset(3) || r.capacity != 3 {
		t.Fatalf("capacity = %d, want 3", r.capacity)
	}
	if r.reset(2) {
		t.Error("reset within capacity reported a grow")
	}

	for i, want := range []uint32{0, 256, 512, 512} {
		if got := r.push([]byte{byte(i + 1)}); got != want {
			t.Errorf("push %d offset = %d, want %d", i, got, want)
		}
	}
	if r.staging[256] != 2 || r.staging[257] != 0 {
		t.Errorf("slot 1 = %v, want data then zero padding", r.staging[256:258])
	}
	if r.staging[512] != 4 {
		t.Errorf("overflowing push did not reuse the last slot: %d", r.staging[512])
	}

	r.reset(4)
	if r.capacity != 6 {
		t.Errorf("grown capacity = %d, want 6", r.capacity)
	}
	if r.next != 0 {
		t.Errorf("reset left next at %d", r.next)
	}
}

func TestCameraSlot(t *testing.T) {
	c := command.ApplyCameraCommand{
		View:           mgl32.Translate3D(1, 2, 3),
		Projection:     mgl32.Ident4(),
		ViewProjection: mgl32.Ident4(),
		Position:       mgl32.Vec3{4, 5, 6},
	}
	shadow := mgl32.Scale3D(2, 2, 2)

	got := floats(cameraSlot(c, shadow, true))
	if len(got) != 68 {
		t.Fatalf("camera slot = %d floats, want 68", len(got))
	}
	if got[12] != 1 || got[13] != 2 || got[14] != 3 {
		t.Errorf("view translation = %v", got[12:15])
	}
	if got[48] != 2 {
		t.Errorf("shadow matrix = %v", got[48:64])
	}
	if p := got[64:68]; p[0] != 4 || p[1] != 5 || p[2] != 6 || p[3] != 1 {
		t.Errorf("position = %v, want [4 5 6 1]", p)
	}
	if w := floats(cameraSlot(c, shadow, false))[67]; w != 0 {
		t.Errorf("shadow flag without a shadow pass = %v", w)
	}
}

func TestDrawSlot(t *testing.T) {
	world := mgl32.Translate3D(7, 0, 0)

	plain := floats(drawSlot(world, nil))
	if len(plain) != 24 {
		t.Fatalf("draw slot = %d floats, want 24", len(plain))
	}
	if plain[12] != 7 {
		t.Errorf("world translation = %v", plain[12])
	}
	if c := plain[16:20]; c[0] != 1 || c[1] != 1 || c[2] != 1 || c[3] != 1 {
		t.Errorf("nil material colour = %v, want white", c)
	}

	m := material.NewMaterial(
		material.WithType(material.MaterialTypeCutout),
		material.WithBaseColor(gputypes.Color{R: 0.5, G: 0.25, B: 0, A: 1}),
		material.WithMetallic(0.75),
		material.WithRoughness(0.5),
	)
	got := floats(drawSlot(world, m))
	if got[16] != 0.5 || got[17] != 0.25 {
		t.Errorf("base colour = %v", got[16:20])
	}
	if got[20] != 0.75 || got[21] != 0.5 || got[22] != 0.5 {
		t.Errorf("params = %v, want metallic 0.75, roughness 0.5, cutoff 0.5", got[20:24])
	}
}

func TestQuadSlot(t *testing.T) {
	q := command.DrawQuadCommand{
		Position: mgl32.Vec2{10, 20},
		Size:     mgl32.Vec2{30, 40},
		Color:    gputypes.Color{R: 1, G: 0, B: 0, A: 1},
		UV:       mgl32.Vec4{0, 0, 1, 1},
	}
	got := floats(quadSlot(q, 800, 600))
	if len(got) != 16 {
		t.Fatalf("quad slot = %d floats, want 16", len(got))
	}
	want := []float32{10, 20, 30, 40, 0, 0, 1, 1, 1, 0, 0, 1, 800, 600, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("quad slot = %v, want %v", got, want)
			break
		}
	}
}

func TestTextureFormatOf(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		want   wgpu.TextureFormat
		bpp    uint32
		ok     bool
	}{
		{gputypes.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8Unorm, 4, true},
		{gputypes.TextureFormatR8Unorm, wgpu.TextureFormatR8Unorm, 1, true},
		{gputypes.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA16Float, 8, true},
		{gputypes.TextureFormatDepth24Plus, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			got, bpp, err := textureFormatOf(tt.format)
			if (err == nil) != tt.ok || got != tt.want || bpp != tt.bpp {
				t.Errorf("textureFormatOf(%s) = %v, %d, %v", tt.format, got, bpp, err)
			}
		})
	}
}

func TestBlendState(t *testing.T) {
	if blendState(command.BlendNone) != nil {
		t.Error("BlendNone produced a blend state")
	}
	alpha := blendState(command.BlendAlpha)
	if alpha == nil || alpha.Color.DstFactor != wgpu.BlendFactorOneMinusSrcAlpha {
		t.Errorf("alpha blend = %+v", alpha)
	}
	add := blendState(command.BlendAdditive)
	if add == nil || add.Color.SrcFactor != wgpu.BlendFactorOne || add.Color.DstFactor != wgpu.BlendFactorOne {
		t.Errorf("additive blend = %+v", add)
	}
}

func TestDepthStencilState(t *testing.T) {
	tests := []struct {
		name    string
		key     pipelineKey
		format  wgpu.TextureFormat
		compare wgpu.CompareFunction
		write   bool
	}{
		{"opaque", pipelineKey{kind: pipelineForward, depthTest: true, depthWrite: true}, depthFormat, wgpu.CompareFunctionLessEqual, true},
		{"transparent", pipelineKey{kind: pipelineForward, depthTest: true}, depthFormat, wgpu.CompareFunctionLessEqual, false},
		{"lighting", pipelineKey{kind: pipelineLighting}, depthFormat, wgpu.CompareFunctionAlways, false},
		{"shadow", pipelineKey{kind: pipelineDepth, depthTest: true, depthWrite: true}, shadowFormat, wgpu.CompareFunctionLessEqual, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := depthStencilState(tt.key)
			if got.Format != tt.format || got.DepthCompare != tt.compare || got.DepthWriteEnabled != tt.write {
				t.Errorf("depthStencilState = %+v", got)
			}
		})
	}
}

func TestPlanBuffer(t *testing.T) {
	buf := command.NewBuffer(1, []command.Command{
		command.BeginPassCommand{Name: "shadow", Target: command.TargetShadowMap, Width: 2048, Height: 2048},
		command.ApplyCameraCommand{},
		command.DrawIndexedCommand{},
		command.EndPassCommand{},
		command.BeginPassCommand{Name: "opaque", Width: 800, Height: 600},
		command.ApplyCameraCommand{},
		command.ApplyLightsCommand{},
		command.DrawIndexedCommand{},
		command.DrawIndexedCommand{},
		command.EndPassCommand{},
		command.BeginPassCommand{Name: "ui", Width: 1024, Height: 768},
		command.DrawQuadCommand{},
		command.EndPassCommand{},
	})

	got := planBuffer(buf)
	want := bufferPlan{width: 800, height: 600, shadowSize: 2048, cameras: 3, lights: 1, draws: 4}
	if got != want {
		t.Errorf("planBuffer = %+v, want %+v", got, want)
	}
}

func TestMeshKey(t *testing.T) {
	shader := resource.Handle{Index: 1, Generation: 1}
	p := NewProcessor(&wgpu.SurfaceDescriptor{}).(*wgpuProcessor)
	p.shaders[shader] = &wgpuShader{name: "custom"}
	custom := material.NewMaterial(material.WithShader(shader))

	p.pass = command.BeginPassCommand{DepthTest: true, DepthWrite: true, Blend: command.BlendNone}
	p.material = custom
	if key := p.meshKey(); key.kind != pipelineForward || key.shader != shader {
		t.Errorf("forward key = %s, want the custom shader", key)
	}

	p.pass = command.BeginPassCommand{Target: command.TargetShadowMap, DepthOnly: true, DepthTest: true, DepthWrite: true}
	if key := p.meshKey(); key.kind != pipelineDepth || !key.shader.IsZero() {
		t.Errorf("shadow key = %s, want the built-in depth program", key)
	}

	p.pass = command.BeginPassCommand{Target: command.TargetGBuffer, DepthTest: true, DepthWrite: true}
	if key := p.meshKey(); key.kind != pipelineGBuffer || !key.shader.IsZero() {
		t.Errorf("gbuffer key = %s, want the built-in gbuffer program", key)
	}

	delete(p.shaders, shader)
	p.pass = command.BeginPassCommand{DepthTest: true, Blend: command.BlendAlpha}
	if key := p.meshKey(); !key.shader.IsZero() || key.blend != command.BlendAlpha {
		t.Errorf("unloaded shader key = %s, want the built-in forward program with alpha blending", key)
	}
}

func TestNewProcessorNilDescriptorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewProcessor(nil) did not panic")
		}
	}()
	NewProcessor(nil)
}

func TestProcessBeforeInitPanics(t *testing.T) {
	p := NewProcessor(&wgpu.SurfaceDescriptor{})
	defer func() {
		if recover() == nil {
			t.Error("Process before Init did not panic")
		}
	}()
	p.Process(command.NewBuffer(1, nil))
}

func TestCloseWithoutInit(t *testing.T) {
	p := NewProcessor(&wgpu.SurfaceDescriptor{}, WithPresent(false), WithForceFallbackAdapter(true))
	if err := p.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
	wp := p.(*wgpuProcessor)
	if wp.present || !wp.forceFallback || wp.presentMode != wgpu.PresentModeFifo {
		t.Errorf("options not applied: present=%t fallback=%t mode=%v", wp.present, wp.forceFallback, wp.presentMode)
	}
}
