package wgpu_backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/cogentcore/webgpu/wgpu"
)

type pipelineKind uint8

const (
	pipelineForward pipelineKind = iota
	pipelineGBuffer
	pipelineDepth
	pipelineLighting
	pipelineQuad
)

var pipelineKindNames = [...]string{
	pipelineForward:  "forward",
	pipelineGBuffer:  "gbuffer",
	pipelineDepth:    "depth",
	pipelineLighting: "lighting",
	pipelineQuad:     "quad",
}

func (k pipelineKind) String() string {
	if int(k) < len(pipelineKindNames) {
		return pipelineKindNames[k]
	}
	return "unknown"
}

// pipelineKey identifies one render pipeline variant. Blend and depth state are baked into
// wgpu pipelines, so every pass state a program is drawn with needs its own pipeline.
type pipelineKey struct {
	kind       pipelineKind
	shader     resource.Handle // zero for the built-in program of kind
	blend      command.BlendMode
	depthTest  bool
	depthWrite bool
}

func (k pipelineKey) String() string {
	return fmt.Sprintf("%s/%s/blend%d/test=%t/write=%t", k.kind, k.shader, k.blend, k.depthTest, k.depthWrite)
}

// wgpuShader is a compiled WGSL module with the interface reflected from its source.
type wgpuShader struct {
	name       string
	module     *wgpu.ShaderModule
	reflection wgslReflection
}

var builtinSources = map[pipelineKind]string{
	pipelineForward:  forwardWGSL,
	pipelineGBuffer:  gbufferWGSL,
	pipelineDepth:    depthWGSL,
	pipelineLighting: lightingWGSL,
	pipelineQuad:     quadWGSL,
}

const (
	groupFrame = iota
	groupObject
	groupMaterial
)

var groupLabels = map[int]string{
	groupFrame:    "frame",
	groupObject:   "object",
	groupMaterial: "material",
}

// standardGroups reflects the bind group layouts every mesh program is drawn with. Uniform
// buffers use dynamic offsets into the per-buffer uniform rings.
func standardGroups() map[int]wgpu.BindGroupLayoutDescriptor {
	cleaned := stripComments(layoutsWGSL)
	groups := parseBindGroupLayouts(cleaned, parseStructBlocks(cleaned), wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)
	for g, desc := range groups {
		for i := range desc.Entries {
			if desc.Entries[i].Buffer.Type == wgpu.BufferBindingTypeUniform {
				desc.Entries[i].Buffer.HasDynamicOffset = true
			}
		}
		desc.Label = groupLabels[g]
		groups[g] = desc
	}
	return groups
}

// gbufferGroupLayout reflects the layout of the geometry buffer textures read by the lighting program.
func gbufferGroupLayout() wgpu.BindGroupLayoutDescriptor {
	cleaned := stripComments(gbufferDeclsWGSL)
	desc := parseBindGroupLayouts(cleaned, nil, wgpu.ShaderStageFragment)[groupObject]
	desc.Label = "gbuffer"
	return desc
}

// validateShader reflects a WGSL module loaded at runtime and checks it can be drawn with the
// standard vertex layout and bind groups.
//
// Parameters:
//   - source: the WGSL module holding both entry points
//   - standard: the standard bind group layouts
//
// Returns:
//   - wgslReflection: the reflected module interface
//   - error: an error describing why the module cannot be used
func validateShader(source string, standard map[int]wgpu.BindGroupLayoutDescriptor) (wgslReflection, error) {
	r, err := reflectWGSL(source, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)
	if err != nil {
		return r, err
	}
	if r.fragmentEntry == "" {
		return r, errors.New("no @fragment entry point")
	}
	if r.vertexLayout == nil {
		return r, errors.New("vertex entry point takes no vertex input")
	}
	if r.vertexLayout.ArrayStride > command.VertexStride {
		return r, fmt.Errorf("vertex input is %d bytes, meshes provide %d", r.vertexLayout.ArrayStride, command.VertexStride)
	}
	// Meshes always interleave position, normal and uv.
	r.vertexLayout.ArrayStride = command.VertexStride
	for i, attr := range r.vertexLayout.Attributes {
		r.vertexLayout.Attributes[i].Offset = standardAttributeOffset(attr.ShaderLocation)
	}
	if err := checkBindings(r.groups, standard); err != nil {
		return r, err
	}
	return r, nil
}

func standardAttributeOffset(location uint32) uint64 {
	switch location {
	case 1:
		return 12
	case 2:
		return 24
	}
	return 0
}

func blendState(mode command.BlendMode) *wgpu.BlendState {
	switch mode {
	case command.BlendAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case command.BlendAdditive:
		add := wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOne,
			Operation: wgpu.BlendOperationAdd,
		}
		return &wgpu.BlendState{Color: add, Alpha: add}
	}
	return nil
}

func depthStencilState(key pipelineKey) *wgpu.DepthStencilState {
	state := &wgpu.DepthStencilState{
		Format:            depthFormat,
		DepthWriteEnabled: key.depthWrite,
		DepthCompare:      wgpu.CompareFunctionAlways,
		StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
	if key.depthTest {
		state.DepthCompare = wgpu.CompareFunctionLessEqual
	}
	if key.kind == pipelineDepth {
		state.Format = shadowFormat
		state.DepthBias = 2
		state.DepthBiasSlopeScale = 4
	}
	return state
}

func (p *wgpuProcessor) colorTargets(key pipelineKey) []wgpu.ColorTargetState {
	if key.kind == pipelineGBuffer {
		targets := make([]wgpu.ColorTargetState, gbufferAttachments)
		for i := range targets {
			targets[i] = wgpu.ColorTargetState{Format: gbufferFormat, WriteMask: wgpu.ColorWriteMaskAll}
		}
		return targets
	}
	return []wgpu.ColorTargetState{{
		Format:    p.surfaceFormat,
		WriteMask: wgpu.ColorWriteMaskAll,
		Blend:     blendState(key.blend),
	}}
}

func (p *wgpuProcessor) pipelineLayout(kind pipelineKind) *wgpu.PipelineLayout {
	switch kind {
	case pipelineDepth:
		return p.depthLayout
	case pipelineLighting:
		return p.lightingLayout
	case pipelineQuad:
		return p.quadLayout
	}
	return p.meshLayout
}

// pipeline returns the cached pipeline for key, creating it on first use.
func (p *wgpuProcessor) pipeline(key pipelineKey) (*wgpu.RenderPipeline, error) {
	if rp, ok := p.pipelines[key]; ok {
		return rp, nil
	}

	s := p.builtins[key.kind]
	if !key.shader.IsZero() {
		custom, ok := p.shaders[key.shader]
		if !ok {
			return nil, fmt.Errorf("shader %s not loaded", key.shader)
		}
		s = custom
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  key.String(),
		Layout: p.pipelineLayout(key.kind),
		Vertex: wgpu.VertexState{
			Module:     s.module,
			EntryPoint: s.reflection.vertexEntry,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencilState(key),
	}
	if s.reflection.vertexLayout != nil {
		desc.Vertex.Buffers = []wgpu.VertexBufferLayout{*s.reflection.vertexLayout}
	}
	if key.kind != pipelineDepth {
		desc.Fragment = &wgpu.FragmentState{
			Module:     s.module,
			EntryPoint: s.reflection.fragmentEntry,
			Targets:    p.colorTargets(key),
		}
	}

	rp, err := p.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("create pipeline %s: %w", key, err)
	}
	p.pipelines[key] = rp
	return rp, nil
}

// dropPipelines releases every cached pipeline built from shader, or all of them when shader is zero.
func (p *wgpuProcessor) dropPipelines(shader resource.Handle) {
	for key, rp := range p.pipelines {
		if shader.IsZero() || key.shader == shader {
			p.deferRelease(rp.Release)
			delete(p.pipelines, key)
		}
	}
}

func (p *wgpuProcessor) compileShader(name, source string, r wgslReflection) (*wgpuShader, error) {
	module, err := p.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compile shader %q: %w", name, err)
	}
	return &wgpuShader{name: name, module: module, reflection: r}, nil
}
