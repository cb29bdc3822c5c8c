package wgpu_backend

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestStandardGroupSizes(t *testing.T) {
	groups := standardGroups()

	tests := []struct {
		group   int
		binding uint32
		kind    string
		size    uint64
	}{
		{groupFrame, 0, "uniform buffer", 272},
		{groupFrame, 1, "uniform buffer", 1040},
		{groupFrame, 2, "depth texture", 0},
		{groupFrame, 3, "comparison sampler", 0},
		{groupObject, 0, "uniform buffer", 96},
		{groupMaterial, 0, "texture", 0},
		{groupMaterial, 1, "sampler", 0},
	}
	for _, tt := range tests {
		desc, ok := groups[tt.group]
		if !ok {
			t.Fatalf("group %d missing", tt.group)
		}
		idx := entryIndex(desc.Entries, tt.binding)
		if idx < 0 {
			t.Fatalf("group %d binding %d missing", tt.group, tt.binding)
		}
		e := desc.Entries[idx]
		if got := bindingKind(e); got != tt.kind {
			t.Errorf("group %d binding %d kind = %q, want %q", tt.group, tt.binding, got, tt.kind)
		}
		if tt.kind == "uniform buffer" {
			if e.Buffer.MinBindingSize != tt.size {
				t.Errorf("group %d binding %d size = %d, want %d", tt.group, tt.binding, e.Buffer.MinBindingSize, tt.size)
			}
			if !e.Buffer.HasDynamicOffset {
				t.Errorf("group %d binding %d has no dynamic offset", tt.group, tt.binding)
			}
		}
	}
	if desc := groups[groupFrame]; desc.Label != "frame" {
		t.Errorf("frame label = %q", desc.Label)
	}
}

func TestGBufferGroupLayout(t *testing.T) {
	desc := gbufferGroupLayout()
	if len(desc.Entries) != gbufferAttachments {
		t.Fatalf("entries = %d, want %d", len(desc.Entries), gbufferAttachments)
	}
	for i, e := range desc.Entries {
		if e.Binding != uint32(i) {
			t.Errorf("entry %d binding = %d", i, e.Binding)
		}
		if e.Texture.SampleType != wgpu.TextureSampleTypeFloat || e.Texture.ViewDimension != wgpu.TextureViewDimension2D {
			t.Errorf("entry %d = %+v, want a float 2D texture", i, e.Texture)
		}
		if e.Visibility != wgpu.ShaderStageFragment {
			t.Errorf("entry %d visibility = %v", i, e.Visibility)
		}
	}
}

func TestReflectBuiltinPrograms(t *testing.T) {
	for kind, source := range builtinSources {
		t.Run(kind.String(), func(t *testing.T) {
			r, err := reflectWGSL(source, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)
			if err != nil {
				t.Fatalf("reflectWGSL: %v", err)
			}
			if r.vertexEntry != "vs_main" {
				t.Errorf("vertex entry = %q", r.vertexEntry)
			}
			wantFragment := "fs_main"
			if kind == pipelineDepth {
				wantFragment = ""
			}
			if r.fragmentEntry != wantFragment {
				t.Errorf("fragment entry = %q, want %q", r.fragmentEntry, wantFragment)
			}

			takesVertices := kind == pipelineForward || kind == pipelineGBuffer || kind == pipelineDepth
			if takesVertices != (r.vertexLayout != nil) {
				t.Fatalf("vertex layout = %v, want present=%t", r.vertexLayout, takesVertices)
			}
			if r.vertexLayout != nil {
				if r.vertexLayout.ArrayStride != 32 {
					t.Errorf("stride = %d, want 32", r.vertexLayout.ArrayStride)
				}
				wantOffsets := []uint64{0, 12, 24}
				for i, a := range r.vertexLayout.Attributes {
					if a.Offset != wantOffsets[i] {
						t.Errorf("attribute %d offset = %d, want %d", i, a.Offset, wantOffsets[i])
					}
				}
			}
		})
	}
}

func TestBuiltinMeshProgramsFitStandardGroups(t *testing.T) {
	standard := standardGroups()
	for _, kind := range []pipelineKind{pipelineForward, pipelineGBuffer, pipelineDepth} {
		r, err := reflectWGSL(builtinSources[kind], wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if err := checkBindings(r.groups, standard); err != nil {
			t.Errorf("%s: %v", kind, err)
		}
	}
}

const customShader = `
struct Camera {
    view: mat4x4<f32>,
    projection: mat4x4<f32>,
    view_projection: mat4x4<f32>,
    shadow_view_projection: mat4x4<f32>,
    position: vec4<f32>,
}

struct DrawData {
    model: mat4x4<f32>,
    base_color: vec4<f32>,
    params: vec4<f32>,
}

struct In {
    @location(0) position: vec3<f32>,
    @location(2) uv: vec2<f32>,
}

@group(0) @binding(0) var<uniform> camera: Camera;
@group(1) @binding(0) var<uniform> draw_data: DrawData;

@vertex
fn vs_main(input: In) -> @builtin(position) vec4<f32> {
    return camera.view_projection * draw_data.model * vec4<f32>(input.position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return draw_data.base_color; // flat
}
`

func TestValidateShader(t *testing.T) {
	standard := standardGroups()

	r, err := validateShader(customShader, standard)
	if err != nil {
		t.Fatalf("validateShader: %v", err)
	}
	if r.vertexLayout.ArrayStride != 32 {
		t.Errorf("stride = %d, want 32", r.vertexLayout.ArrayStride)
	}
	if got := r.vertexLayout.Attributes[1]; got.ShaderLocation != 2 || got.Offset != 24 {
		t.Errorf("uv attribute = %+v, want location 2 at offset 24", got)
	}

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"no vertex entry", "@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }", "no @vertex"},
		{"no fragment entry", strings.Replace(customShader, "@fragment", "", 1), "no @fragment"},
		{
			"builtin vertex input",
			strings.Replace(customShader, "vs_main(input: In)", "vs_main(@builtin(vertex_index) i: u32)", 1),
			"no vertex input",
		},
		{
			"unknown group",
			strings.Replace(customShader, "@group(1) @binding(0)", "@group(3) @binding(0)", 1),
			"bind group 3",
		},
		{
			"wrong binding kind",
			strings.Replace(customShader, "@group(1) @binding(0) var<uniform> draw_data: DrawData;",
				"@group(1) @binding(0) var<storage, read> draw_data: DrawData;", 1),
			"storage buffer, expected uniform buffer",
		},
		{
			"oversized vertex",
			strings.Replace(customShader, "@location(2) uv: vec2<f32>,", "@location(2) uv: vec2<f32>,\n    @location(3) tangent: vec4<f32>,", 1),
			"meshes provide 32",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateShader(tt.source, standard)
			if err == nil {
				t.Fatal("validateShader accepted the module")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestStripComments(t *testing.T) {
	src := "a // line\nb /* block\n still */ c"
	got := stripComments(src)
	if strings.Contains(got, "line") || strings.Contains(got, "block") || strings.Contains(got, "still") {
		t.Errorf("stripComments left comment text: %q", got)
	}
	for _, want := range []string{"a", "b", "c"} {
		if !strings.Contains(got, want) {
			t.Errorf("stripComments dropped %q: %q", want, got)
		}
	}
}

func TestResolveTypeLayout(t *testing.T) {
	known := map[string]wgslTypeLayout{"Light": {64, 16}}
	tests := []struct {
		typeName string
		want     wgslTypeLayout
		ok       bool
	}{
		{"vec3<f32>", wgslTypeLayout{12, 16}, true},
		{"mat4x4<f32>", wgslTypeLayout{64, 16}, true},
		{"array<Light, 16>", wgslTypeLayout{1024, 16}, true},
		{"array<vec3<f32>, 2>", wgslTypeLayout{32, 16}, true},
		{"array<f32>", wgslTypeLayout{}, false},
		{"Unknown", wgslTypeLayout{}, false},
	}
	for _, tt := range tests {
		got, ok := resolveTypeLayout(tt.typeName, known)
		if ok != tt.ok || got != tt.want {
			t.Errorf("resolveTypeLayout(%q) = %+v, %v, want %+v, %v", tt.typeName, got, ok, tt.want, tt.ok)
		}
	}
}
