// Package wgpu_backend executes command buffers with WebGPU through wgpu-native.
//
// Each command buffer is encoded into one wgpu command encoder and submitted once. Camera,
// light and per-draw uniforms are staged into dynamic-offset uniform rings while encoding and
// written to the GPU just before submission, so passes that upload different cameras (the
// shadow pass and the main passes) each see their own values. Resource loads go straight to
// the queue; releases are deferred until the buffer has been submitted.
//
// Built-in programs cover forward shading, the geometry buffer, deferred lighting, shadow
// depth and screen-space quads. WGSL shaders loaded through LoadShaderCommand are reflected and
// must fit the standard vertex layout and bind groups; they replace the forward program for
// materials that reference them.
package wgpu_backend

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/processor"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

const gbufferAttachments = 3

var (
	errNoPass    = errors.New("command outside a render pass")
	errNoSurface = errors.New("no surface texture for this frame")
)

type wgpuProcessor struct {
	surfaceDescriptor *wgpu.SurfaceDescriptor
	presentMode       wgpu.PresentMode
	forceFallback     bool
	present           bool

	instance      *wgpu.Instance
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surface       *wgpu.Surface
	surfaceFormat wgpu.TextureFormat
	width, height uint32

	standard                                 map[int]wgpu.BindGroupLayoutDescriptor
	frameLayout, depthFrameLayout            *wgpu.BindGroupLayout
	objectLayout, materialLayout, gbufLayout *wgpu.BindGroupLayout
	meshLayout, depthLayout                  *wgpu.PipelineLayout
	lightingLayout, quadLayout               *wgpu.PipelineLayout
	builtins                                 map[pipelineKind]*wgpuShader
	pipelines                                map[pipelineKey]*wgpu.RenderPipeline
	cameras, lights, draws                   *uniformRing
	frameGroup, depthFrameGroup, objectGroup *wgpu.BindGroup
	gbufferGroup                             *wgpu.BindGroup
	materialGroups                           map[resource.Handle]*wgpu.BindGroup
	albedoSampler, shadowSampler             *wgpu.Sampler
	white                                    wgpuTexture
	depth, shadow                            renderTarget
	gbuffer                                  [gbufferAttachments]renderTarget
	shadowSize                               uint32

	textures map[resource.Handle]wgpuTexture
	meshes   map[resource.Handle]wgpuMesh
	shaders  map[resource.Handle]*wgpuShader

	// per-buffer state
	encoder      *wgpu.CommandEncoder
	rpass        *wgpu.RenderPassEncoder
	frameTexture *wgpu.Texture
	frameView    *wgpu.TextureView
	pass         command.BeginPassCommand
	camera       command.ApplyCameraCommand
	shadowVP     mgl32.Mat4
	shadowReady  bool
	cameraOffset uint32
	lightsOffset uint32
	lightBatches int
	material     material.Material
	albedo       resource.Handle
	mesh         *wgpuMesh
	releases     []func()

	initialized bool
}

var _ processor.CommandProcessor = &wgpuProcessor{}

// NewProcessor creates a WebGPU command processor presenting to the surface described by desc.
//
// Parameters:
//   - desc: the platform surface descriptor of the window to present to
//   - options: variadic list of ProcessorBuilderOption functions to configure the processor
//
// Returns:
//   - processor.CommandProcessor: the new processor, uninitialised until Init
func NewProcessor(desc *wgpu.SurfaceDescriptor, options ...ProcessorBuilderOption) processor.CommandProcessor {
	if desc == nil {
		panic("wgpu_backend: NewProcessor called with nil surface descriptor")
	}
	p := &wgpuProcessor{
		surfaceDescriptor: desc,
		presentMode:       wgpu.PresentModeFifo,
		present:           true,
		builtins:          make(map[pipelineKind]*wgpuShader),
		pipelines:         make(map[pipelineKey]*wgpu.RenderPipeline),
		materialGroups:    make(map[resource.Handle]*wgpu.BindGroup),
		textures:          make(map[resource.Handle]wgpuTexture),
		meshes:            make(map[resource.Handle]wgpuMesh),
		shaders:           make(map[resource.Handle]*wgpuShader),
		shadowVP:          mgl32.Ident4(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *wgpuProcessor) Init() error {
	runtime.LockOSThread()

	p.instance = wgpu.CreateInstance(nil)
	p.surface = p.instance.CreateSurface(p.surfaceDescriptor)

	adapter, err := p.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: p.forceFallback,
		CompatibleSurface:    p.surface,
	})
	if err != nil {
		return fmt.Errorf("wgpu_backend: request adapter: %w", err)
	}
	p.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Render Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu_backend: request device: %w", err)
	}
	p.device = device
	p.queue = device.GetQueue()

	capabilities := p.surface.GetCapabilities(p.adapter)
	p.surfaceFormat = capabilities.Formats[0]

	if err := p.createLayouts(); err != nil {
		return fmt.Errorf("wgpu_backend: %w", err)
	}
	if err := p.createDefaults(); err != nil {
		return fmt.Errorf("wgpu_backend: %w", err)
	}
	for kind, source := range builtinSources {
		r, err := reflectWGSL(source, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)
		if err != nil {
			return fmt.Errorf("wgpu_backend: reflect %s: %w", kind, err)
		}
		s, err := p.compileShader(kind.String(), source, r)
		if err != nil {
			return fmt.Errorf("wgpu_backend: %w", err)
		}
		p.builtins[kind] = s
	}

	p.initialized = true
	common.Logger().Info("wgpu_backend: initialised", "format", p.surfaceFormat, "present_mode", p.presentMode)
	return nil
}

func (p *wgpuProcessor) createLayouts() error {
	p.standard = standardGroups()
	frame := p.standard[groupFrame]

	var err error
	layout := func(desc wgpu.BindGroupLayoutDescriptor) *wgpu.BindGroupLayout {
		if err != nil {
			return nil
		}
		var l *wgpu.BindGroupLayout
		l, err = p.device.CreateBindGroupLayout(&desc)
		return l
	}
	p.frameLayout = layout(frame)
	p.depthFrameLayout = layout(wgpu.BindGroupLayoutDescriptor{Label: "depth frame", Entries: frame.Entries[:1]})
	p.objectLayout = layout(p.standard[groupObject])
	p.materialLayout = layout(p.standard[groupMaterial])
	p.gbufLayout = layout(gbufferGroupLayout())
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}

	pipelineLayout := func(label string, groups ...*wgpu.BindGroupLayout) *wgpu.PipelineLayout {
		if err != nil {
			return nil
		}
		var l *wgpu.PipelineLayout
		l, err = p.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
			Label:            label,
			BindGroupLayouts: groups,
		})
		return l
	}
	p.meshLayout = pipelineLayout("mesh", p.frameLayout, p.objectLayout, p.materialLayout)
	p.depthLayout = pipelineLayout("depth", p.depthFrameLayout, p.objectLayout)
	p.lightingLayout = pipelineLayout("lighting", p.frameLayout, p.gbufLayout)
	p.quadLayout = pipelineLayout("quad", p.objectLayout, p.materialLayout)
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	return nil
}

// createDefaults builds the samplers, the white fallback texture, a placeholder shadow map and
// one-slot uniform rings so bind groups exist before the first buffer.
func (p *wgpuProcessor) createDefaults() error {
	var err error
	p.albedoSampler, err = p.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Albedo Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("create albedo sampler: %w", err)
	}
	p.shadowSampler, err = p.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow Comparison Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLess,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("create shadow sampler: %w", err)
	}

	white, err := p.createTexture("White Texture", 1, 1, 1, wgpu.TextureFormatRGBA8Unorm,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	if err != nil {
		return fmt.Errorf("create white texture: %w", err)
	}
	p.writeLayer(white, 0, 1, 1, 4, []byte{255, 255, 255, 255})
	view, err := white.CreateView(nil)
	if err != nil {
		white.Release()
		return fmt.Errorf("create white texture view: %w", err)
	}
	p.white = wgpuTexture{texture: white, view: view}

	if err := p.resizeShadow(1); err != nil {
		return err
	}

	p.cameras = newUniformRing("Camera Uniforms", p.bindingSize(groupFrame, 0))
	p.lights = newUniformRing("Light Uniforms", p.bindingSize(groupFrame, 1))
	p.draws = newUniformRing("Draw Uniforms", p.bindingSize(groupObject, 0))
	if _, err := p.reserve(bufferPlan{}); err != nil {
		return err
	}
	return p.createFrameGroups()
}

// bindingSize returns the reflected size of a uniform binding in the standard layouts.
func (p *wgpuProcessor) bindingSize(group int, binding uint32) uint64 {
	for _, e := range p.standard[group].Entries {
		if e.Binding == binding {
			return e.Buffer.MinBindingSize
		}
	}
	return 0
}

func (p *wgpuProcessor) Process(buf *command.Buffer) {
	if !p.initialized {
		panic("wgpu_backend: Process called before Init")
	}

	p.shadowReady = false
	p.shadowVP = mgl32.Ident4()
	p.cameraOffset, p.lightsOffset = 0, 0

	plan := planBuffer(buf)
	if err := p.prepare(plan); err != nil {
		common.Logger().Warn("wgpu_backend: frame not drawn, running resource commands only",
			"frame", buf.Frame(), "error", err)
		for i, cmd := range buf.All() {
			if cmd.Type() >= command.CmdBeginPass {
				continue
			}
			if err := p.execute(cmd); err != nil {
				common.Logger().Warn("wgpu_backend: command skipped",
					"frame", buf.Frame(), "index", i, "command", cmd.Type(), "error", err)
			}
		}
		p.finishFrame(false)
		return
	}

	encoder, err := p.device.CreateCommandEncoder(nil)
	if err != nil {
		common.Logger().Error("wgpu_backend: create command encoder", "frame", buf.Frame(), "error", err)
		p.finishFrame(false)
		return
	}
	p.encoder = encoder

	for i, cmd := range buf.All() {
		if err := p.execute(cmd); err != nil {
			common.Logger().Warn("wgpu_backend: command skipped",
				"frame", buf.Frame(), "index", i, "command", cmd.Type(), "error", err)
		}
	}
	p.endPass()

	submitted := p.submit()
	if !submitted {
		common.Logger().Error("wgpu_backend: command buffer not submitted", "frame", buf.Frame())
	}
	p.finishFrame(submitted)
}

// bufferPlan is what Process needs to know about a command buffer before encoding it.
type bufferPlan struct {
	width, height uint32 // size of the first pass rendering to the window, zero if none
	shadowSize    uint32
	cameras       int
	lights        int
	draws         int
}

func planBuffer(buf *command.Buffer) bufferPlan {
	var plan bufferPlan
	for _, cmd := range buf.All() {
		switch c := cmd.(type) {
		case command.BeginPassCommand:
			if c.Target == command.TargetShadowMap {
				plan.shadowSize = c.Width
			} else if plan.width == 0 {
				plan.width, plan.height = c.Width, c.Height
			}
		case command.ApplyCameraCommand:
			plan.cameras++
		case command.ApplyLightsCommand:
			plan.lights++
			plan.cameras++
		case command.DrawIndexedCommand, command.DrawQuadCommand:
			plan.draws++
		}
	}
	return plan
}

// prepare sizes the surface, shadow map and uniform rings for plan and acquires the surface
// texture when the buffer draws to the window.
func (p *wgpuProcessor) prepare(plan bufferPlan) error {
	regroup := false
	if plan.width > 0 && plan.height > 0 && (plan.width != p.width || plan.height != p.height) {
		if err := p.configure(plan.width, plan.height); err != nil {
			return err
		}
	}
	if plan.shadowSize > 0 && plan.shadowSize != p.shadowSize {
		if err := p.resizeShadow(plan.shadowSize); err != nil {
			return err
		}
		regroup = true
	}
	grown, err := p.reserve(plan)
	if err != nil {
		return err
	}
	if regroup || grown {
		if err := p.createFrameGroups(); err != nil {
			return err
		}
	}

	if plan.width == 0 {
		return nil
	}
	surfaceTexture, err := p.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("create surface view: %w", err)
	}
	p.frameTexture, p.frameView = surfaceTexture, view
	return nil
}

// configure sizes the surface and every window-sized target.
func (p *wgpuProcessor) configure(width, height uint32) error {
	capabilities := p.surface.GetCapabilities(p.adapter)
	if format := capabilities.Formats[0]; format != p.surfaceFormat {
		p.surfaceFormat = format
		p.dropPipelines(resource.Handle{})
	}
	p.surface.Configure(p.adapter, p.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      p.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: p.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	p.depth.release()
	depth, err := p.newRenderTarget("Depth Texture", width, height, depthFormat, false)
	if err != nil {
		return err
	}
	p.depth = depth

	for i := range p.gbuffer {
		p.gbuffer[i].release()
		t, err := p.newRenderTarget(fmt.Sprintf("GBuffer %d", i), width, height, gbufferFormat, true)
		if err != nil {
			return err
		}
		p.gbuffer[i] = t
	}
	if p.gbufferGroup != nil {
		p.gbufferGroup.Release()
	}
	p.gbufferGroup, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "GBuffer",
		Layout: p.gbufLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: p.gbuffer[0].view},
			{Binding: 1, TextureView: p.gbuffer[1].view},
			{Binding: 2, TextureView: p.gbuffer[2].view},
		},
	})
	if err != nil {
		return fmt.Errorf("create gbuffer bind group: %w", err)
	}

	p.width, p.height = width, height
	common.Logger().Debug("wgpu_backend: surface configured", "width", width, "height", height)
	return nil
}

func (p *wgpuProcessor) resizeShadow(size uint32) error {
	p.shadow.release()
	t, err := p.newRenderTarget("Shadow Depth Texture", size, size, shadowFormat, true)
	if err != nil {
		p.shadow, p.shadowSize = renderTarget{}, 0
		return err
	}
	p.shadow, p.shadowSize = t, size
	return nil
}

// reserve grows the uniform rings to hold plan and reports whether any buffer was recreated.
func (p *wgpuProcessor) reserve(plan bufferPlan) (bool, error) {
	grown := false
	for _, r := range []struct {
		ring  *uniformRing
		slots int
	}{{p.cameras, plan.cameras}, {p.lights, plan.lights}, {p.draws, plan.draws}} {
		if !r.ring.reset(r.slots) {
			continue
		}
		if err := r.ring.allocate(p.device); err != nil {
			return grown, err
		}
		grown = true
	}
	return grown, nil
}

func (p *wgpuProcessor) createFrameGroups() error {
	for _, g := range []*wgpu.BindGroup{p.frameGroup, p.depthFrameGroup, p.objectGroup} {
		if g != nil {
			g.Release()
		}
	}

	var err error
	p.frameGroup, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Frame",
		Layout: p.frameLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.cameras.buffer, Offset: 0, Size: p.cameras.size},
			{Binding: 1, Buffer: p.lights.buffer, Offset: 0, Size: p.lights.size},
			{Binding: 2, TextureView: p.shadow.view},
			{Binding: 3, Sampler: p.shadowSampler},
		},
	})
	if err != nil {
		return fmt.Errorf("create frame bind group: %w", err)
	}
	p.depthFrameGroup, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Depth Frame",
		Layout: p.depthFrameLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.cameras.buffer, Offset: 0, Size: p.cameras.size},
		},
	})
	if err != nil {
		return fmt.Errorf("create depth frame bind group: %w", err)
	}
	p.objectGroup, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Object",
		Layout: p.objectLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.draws.buffer, Offset: 0, Size: p.draws.size},
		},
	})
	if err != nil {
		return fmt.Errorf("create object bind group: %w", err)
	}
	return nil
}

func (p *wgpuProcessor) execute(cmd command.Command) error {
	switch c := cmd.(type) {
	case command.LoadTextureCommand:
		if _, ok := p.textures[c.Texture]; ok {
			return fmt.Errorf("texture %s already loaded", c.Texture)
		}
		tex, err := p.uploadTexture(c)
		if err != nil {
			return err
		}
		p.textures[c.Texture] = tex

	case command.LoadCubemapCommand:
		if _, ok := p.textures[c.Texture]; ok {
			return fmt.Errorf("cubemap %s already loaded", c.Texture)
		}
		tex, err := p.uploadCubemap(c)
		if err != nil {
			return err
		}
		p.textures[c.Texture] = tex

	case command.UnloadTextureCommand:
		tex, ok := p.textures[c.Texture]
		if !ok {
			return fmt.Errorf("texture %s not loaded", c.Texture)
		}
		if g, ok := p.materialGroups[c.Texture]; ok {
			p.deferRelease(g.Release)
			delete(p.materialGroups, c.Texture)
		}
		p.deferRelease(tex.release)
		delete(p.textures, c.Texture)

	case command.LoadMeshCommand:
		if _, ok := p.meshes[c.Mesh]; ok {
			return fmt.Errorf("mesh %s already loaded", c.Mesh)
		}
		m, err := p.uploadMesh(c)
		if err != nil {
			return err
		}
		p.meshes[c.Mesh] = m

	case command.UnloadMeshCommand:
		m, ok := p.meshes[c.Mesh]
		if !ok {
			return fmt.Errorf("mesh %s not loaded", c.Mesh)
		}
		if p.mesh != nil && p.mesh.vertices == m.vertices {
			p.mesh = nil
		}
		p.deferRelease(m.release)
		delete(p.meshes, c.Mesh)

	case command.LoadShaderCommand:
		if _, ok := p.shaders[c.Shader]; ok {
			return fmt.Errorf("shader %s already loaded", c.Shader)
		}
		source := c.Vertex
		if c.Fragment != "" && c.Fragment != c.Vertex {
			source += "\n" + c.Fragment
		}
		r, err := validateShader(source, p.standard)
		if err != nil {
			return fmt.Errorf("shader %q: %w", c.Name, err)
		}
		s, err := p.compileShader(c.Name, source, r)
		if err != nil {
			return err
		}
		p.shaders[c.Shader] = s

	case command.UnloadShaderCommand:
		s, ok := p.shaders[c.Shader]
		if !ok {
			return fmt.Errorf("shader %s not loaded", c.Shader)
		}
		p.dropPipelines(c.Shader)
		p.deferRelease(s.module.Release)
		delete(p.shaders, c.Shader)

	case command.BeginPassCommand:
		return p.beginPass(c)

	case command.EndPassCommand:
		p.endPass()

	case command.ApplyCameraCommand:
		p.camera = c
		p.cameraOffset = p.cameras.push(cameraSlot(c, p.shadowVP, p.shadowReady))

	case command.ApplyLightsCommand:
		p.shadowVP = c.ShadowVP
		p.cameraOffset = p.cameras.push(cameraSlot(p.camera, p.shadowVP, p.shadowReady))
		ambient := [3]float32{float32(c.Ambient.R), float32(c.Ambient.G), float32(c.Ambient.B)}
		p.lightsOffset = p.lights.push(light.MarshalLightBuffer(c.Lights, ambient))

	case command.BindMaterialCommand:
		p.material = c.Material
		p.albedo = resource.Handle{}
		if textures := c.Material.Textures(); len(textures) > 0 {
			return p.bindAlbedo(textures[0])
		}

	case command.BindMeshCommand:
		m, ok := p.meshes[c.Mesh]
		if !ok {
			p.mesh = nil
			return fmt.Errorf("mesh %s not loaded", c.Mesh)
		}
		p.mesh = &m

	case command.BindTextureCommand:
		if c.Slot != 0 {
			return fmt.Errorf("texture slot %d not supported", c.Slot)
		}
		return p.bindAlbedo(c.Texture)

	case command.DrawIndexedCommand:
		return p.drawIndexed(c)

	case command.DrawQuadCommand:
		return p.drawQuad(c)

	case command.DrawFullscreenCommand:
		return p.drawFullscreen()

	default:
		return fmt.Errorf("unsupported command %s", cmd.Type())
	}
	return nil
}

func loadOp(clear bool) wgpu.LoadOp {
	if clear {
		return wgpu.LoadOpClear
	}
	return wgpu.LoadOpLoad
}

func clearValue(c gputypes.Color) wgpu.Color {
	return wgpu.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)}
}

func (p *wgpuProcessor) beginPass(c command.BeginPassCommand) error {
	p.endPass()
	p.pass = c
	p.material = nil
	p.albedo = resource.Handle{}
	p.mesh = nil
	p.lightBatches = 0

	desc := &wgpu.RenderPassDescriptor{}
	switch c.Target {
	case command.TargetShadowMap:
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            p.shadow.view,
			DepthLoadOp:     loadOp(c.ClearDepth),
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}

	case command.TargetGBuffer:
		if p.frameView == nil {
			return errNoSurface
		}
		// The window still shows the clear colour wherever no geometry lands.
		if c.Clear {
			p.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
				ColorAttachments: []wgpu.RenderPassColorAttachment{{
					View:       p.frameView,
					LoadOp:     wgpu.LoadOpClear,
					StoreOp:    wgpu.StoreOpStore,
					ClearValue: clearValue(c.ClearColor),
				}},
			}).End()
		}
		desc.ColorAttachments = make([]wgpu.RenderPassColorAttachment, gbufferAttachments)
		for i := range desc.ColorAttachments {
			desc.ColorAttachments[i] = wgpu.RenderPassColorAttachment{
				View:    p.gbuffer[i].view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
			}
		}
		desc.DepthStencilAttachment = p.depthAttachment(c.ClearDepth)

	default:
		if p.frameView == nil {
			return errNoSurface
		}
		desc.ColorAttachments = []wgpu.RenderPassColorAttachment{{
			View:       p.frameView,
			LoadOp:     loadOp(c.Clear),
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clearValue(c.ClearColor),
		}}
		desc.DepthStencilAttachment = p.depthAttachment(c.ClearDepth)
	}

	p.rpass = p.encoder.BeginRenderPass(desc)
	return nil
}

func (p *wgpuProcessor) depthAttachment(clear bool) *wgpu.RenderPassDepthStencilAttachment {
	return &wgpu.RenderPassDepthStencilAttachment{
		View:            p.depth.view,
		DepthLoadOp:     loadOp(clear),
		DepthStoreOp:    wgpu.StoreOpStore,
		DepthClearValue: 1.0,
	}
}

func (p *wgpuProcessor) endPass() {
	if p.rpass == nil {
		return
	}
	p.rpass.End()
	p.rpass = nil
	if p.pass.Target == command.TargetShadowMap {
		p.shadowReady = true
	}
	p.pass = command.BeginPassCommand{}
}

func (p *wgpuProcessor) bindAlbedo(h resource.Handle) error {
	p.albedo = resource.Handle{}
	if h.IsZero() {
		return nil
	}
	if _, ok := p.textures[h]; !ok {
		return fmt.Errorf("texture %s not loaded", h)
	}
	p.albedo = h
	return nil
}

// materialGroup returns the bind group sampling texture h, or the white texture for a zero
// handle. Cubemaps cannot be sampled as albedo and fall back to white.
func (p *wgpuProcessor) materialGroup(h resource.Handle) (*wgpu.BindGroup, error) {
	if g, ok := p.materialGroups[h]; ok {
		return g, nil
	}
	view := p.white.view
	if tex, ok := p.textures[h]; ok && !tex.cubemap {
		view = tex.view
	}
	g, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Material " + h.String(),
		Layout: p.materialLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: p.albedoSampler},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create material bind group: %w", err)
	}
	p.materialGroups[h] = g
	return g, nil
}

// meshKey picks the pipeline for a mesh draw: depth in depth-only passes, the geometry buffer
// program in the geometry pass, otherwise the material's shader when it has loaded.
func (p *wgpuProcessor) meshKey() pipelineKey {
	key := pipelineKey{
		kind:       pipelineForward,
		blend:      p.pass.Blend,
		depthTest:  p.pass.DepthTest,
		depthWrite: p.pass.DepthWrite,
	}
	switch {
	case p.pass.DepthOnly:
		key.kind, key.blend = pipelineDepth, command.BlendNone
	case p.pass.Target == command.TargetGBuffer:
		key.kind, key.blend = pipelineGBuffer, command.BlendNone
	case p.material != nil:
		if _, ok := p.shaders[p.material.Shader()]; ok {
			key.shader = p.material.Shader()
		}
	}
	return key
}

func (p *wgpuProcessor) drawIndexed(c command.DrawIndexedCommand) error {
	if p.rpass == nil {
		return errNoPass
	}
	if p.mesh == nil {
		return errors.New("draw without a loaded mesh")
	}

	key := p.meshKey()
	rp, err := p.pipeline(key)
	if err != nil && !key.shader.IsZero() {
		common.Logger().Warn("wgpu_backend: falling back to the forward program", "error", err)
		key.shader = resource.Handle{}
		rp, err = p.pipeline(key)
	}
	if err != nil {
		return err
	}

	if c.FirstIndex >= p.mesh.indexCount {
		return fmt.Errorf("first index %d past the mesh's %d indices", c.FirstIndex, p.mesh.indexCount)
	}
	count := c.IndexCount
	if count == 0 || c.FirstIndex+count > p.mesh.indexCount {
		count = p.mesh.indexCount - c.FirstIndex
	}

	p.rpass.SetPipeline(rp)
	if key.kind == pipelineDepth {
		p.rpass.SetBindGroup(groupFrame, p.depthFrameGroup, []uint32{p.cameraOffset})
	} else {
		mg, err := p.materialGroup(p.albedo)
		if err != nil {
			return err
		}
		p.rpass.SetBindGroup(groupFrame, p.frameGroup, []uint32{p.cameraOffset, p.lightsOffset})
		p.rpass.SetBindGroup(groupMaterial, mg, nil)
	}
	p.rpass.SetBindGroup(groupObject, p.objectGroup, []uint32{p.draws.push(drawSlot(c.World, p.material))})
	p.rpass.SetVertexBuffer(0, p.mesh.vertices, 0, wgpu.WholeSize)
	p.rpass.SetIndexBuffer(p.mesh.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	p.rpass.DrawIndexed(count, 1, c.FirstIndex, 0, 0)
	return nil
}

func (p *wgpuProcessor) drawQuad(c command.DrawQuadCommand) error {
	if p.rpass == nil {
		return errNoPass
	}
	rp, err := p.pipeline(pipelineKey{kind: pipelineQuad, blend: p.pass.Blend, depthTest: p.pass.DepthTest})
	if err != nil {
		return err
	}
	mg, err := p.materialGroup(p.albedo)
	if err != nil {
		return err
	}
	p.rpass.SetPipeline(rp)
	p.rpass.SetBindGroup(0, p.objectGroup, []uint32{p.draws.push(quadSlot(c, p.pass.Width, p.pass.Height))})
	p.rpass.SetBindGroup(1, mg, nil)
	p.rpass.Draw(6, 1, 0, 0)
	return nil
}

// drawFullscreen shades the geometry buffer with the current light batch. The first batch of
// a pass replaces the window colour where geometry was written; later batches add to it.
func (p *wgpuProcessor) drawFullscreen() error {
	if p.rpass == nil {
		return errNoPass
	}
	if p.gbufferGroup == nil {
		return errors.New("lighting without a geometry buffer")
	}
	blend := command.BlendNone
	if p.lightBatches > 0 {
		blend = command.BlendAdditive
	}
	p.lightBatches++

	rp, err := p.pipeline(pipelineKey{kind: pipelineLighting, blend: blend})
	if err != nil {
		return err
	}
	p.rpass.SetPipeline(rp)
	p.rpass.SetBindGroup(0, p.frameGroup, []uint32{p.cameraOffset, p.lightsOffset})
	p.rpass.SetBindGroup(1, p.gbufferGroup, nil)
	p.rpass.Draw(3, 1, 0, 0)
	return nil
}

// submit uploads the staged uniforms and submits the encoded commands.
func (p *wgpuProcessor) submit() bool {
	p.cameras.flush(p.queue)
	p.lights.flush(p.queue)
	p.draws.flush(p.queue)

	cb, err := p.encoder.Finish(nil)
	p.encoder.Release()
	p.encoder = nil
	if err != nil {
		return false
	}
	p.queue.Submit(cb)
	cb.Release()
	return true
}

// finishFrame presents the acquired surface texture and runs the deferred releases.
func (p *wgpuProcessor) finishFrame(submitted bool) {
	if p.frameTexture != nil {
		if submitted && p.present {
			p.surface.Present()
		}
		p.frameView.Release()
		p.frameTexture.Release()
		p.frameView, p.frameTexture = nil, nil
	}
	for _, release := range p.releases {
		release()
	}
	p.releases = p.releases[:0]
}

func (p *wgpuProcessor) deferRelease(release func()) {
	p.releases = append(p.releases, release)
}

func (p *wgpuProcessor) Close() error {
	if !p.initialized {
		return nil
	}
	p.finishFrame(false)

	for h, tex := range p.textures {
		tex.release()
		delete(p.textures, h)
	}
	for h, m := range p.meshes {
		m.release()
		delete(p.meshes, h)
	}
	for h, g := range p.materialGroups {
		g.Release()
		delete(p.materialGroups, h)
	}
	p.dropPipelines(resource.Handle{})
	p.finishFrame(false)
	for h, s := range p.shaders {
		s.module.Release()
		delete(p.shaders, h)
	}
	for kind, s := range p.builtins {
		s.module.Release()
		delete(p.builtins, kind)
	}

	for _, g := range []*wgpu.BindGroup{p.frameGroup, p.depthFrameGroup, p.objectGroup, p.gbufferGroup} {
		if g != nil {
			g.Release()
		}
	}
	for _, r := range []*uniformRing{p.cameras, p.lights, p.draws} {
		r.release()
	}
	for _, l := range []*wgpu.PipelineLayout{p.meshLayout, p.depthLayout, p.lightingLayout, p.quadLayout} {
		l.Release()
	}
	for _, l := range []*wgpu.BindGroupLayout{p.frameLayout, p.depthFrameLayout, p.objectLayout, p.materialLayout, p.gbufLayout} {
		l.Release()
	}
	p.depth.release()
	p.shadow.release()
	for i := range p.gbuffer {
		p.gbuffer[i].release()
	}
	p.white.release()
	p.albedoSampler.Release()
	p.shadowSampler.Release()

	p.queue.Release()
	p.device.Release()
	p.adapter.Release()
	p.surface.Release()
	p.instance.Release()

	p.initialized = false
	runtime.UnlockOSThread()
	common.Logger().Info("wgpu_backend: closed")
	return nil
}
