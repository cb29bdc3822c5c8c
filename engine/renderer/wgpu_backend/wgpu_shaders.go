package wgpu_backend

// Bind group contract shared by the built-in pipelines and any WGSL shader loaded through
// LoadShaderCommand (entry points vs_main and fs_main, vertex input at locations 0..2):
//
//	@group(0) frame:    camera (dynamic), lights (dynamic), shadow_map, shadow_sampler
//	@group(1) object:   draw_data (dynamic): model matrix, base colour, material parameters
//	@group(2) material: albedo_texture, albedo_sampler
//
// Projection matrices follow the OpenGL depth convention; to_clip remaps z into [0, 1].

const structsWGSL = `
struct Camera {
    view: mat4x4<f32>,
    projection: mat4x4<f32>,
    view_projection: mat4x4<f32>,
    shadow_view_projection: mat4x4<f32>,
    position: vec4<f32>,
}

struct Light {
    position: vec3<f32>,
    kind: u32,
    color: vec3<f32>,
    intensity: f32,
    direction: vec3<f32>,
    light_range: f32,
    inner_cone: f32,
    outer_cone: f32,
    casts_shadows: u32,
    pad: u32,
}

struct Lights {
    ambient: vec3<f32>,
    count: u32,
    lights: array<Light, 16>,
}

struct DrawData {
    model: mat4x4<f32>,
    base_color: vec4<f32>,
    params: vec4<f32>,
}

struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) world_pos: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
}

fn to_clip(p: vec4<f32>) -> vec4<f32> {
    return vec4<f32>(p.x, p.y, (p.z + p.w) * 0.5, p.w);
}
`

const cameraDeclWGSL = `
@group(0) @binding(0) var<uniform> camera: Camera;
`

const frameDeclsWGSL = cameraDeclWGSL + `
@group(0) @binding(1) var<uniform> lights: Lights;
@group(0) @binding(2) var shadow_map: texture_depth_2d;
@group(0) @binding(3) var shadow_sampler: sampler_comparison;
`

const objectDeclWGSL = `
@group(1) @binding(0) var<uniform> draw_data: DrawData;
`

const materialDeclsWGSL = `
@group(2) @binding(0) var albedo_texture: texture_2d<f32>;
@group(2) @binding(1) var albedo_sampler: sampler;
`

const gbufferDeclsWGSL = `
@group(1) @binding(0) var gbuffer_albedo: texture_2d<f32>;
@group(1) @binding(1) var gbuffer_normal: texture_2d<f32>;
@group(1) @binding(2) var gbuffer_position: texture_2d<f32>;
`

// camera.position.w is 1 when the shadow map holds this frame's depth.
const shadeWGSL = `
fn shadow_factor(world_pos: vec3<f32>) -> f32 {
    if (camera.position.w < 0.5) {
        return 1.0;
    }
    let lp = camera.shadow_view_projection * vec4<f32>(world_pos, 1.0);
    let p = lp.xyz / lp.w;
    let uv = vec2<f32>(p.x * 0.5 + 0.5, 0.5 - p.y * 0.5);
    let depth = p.z * 0.5 + 0.5;
    if (depth > 1.0 || uv.x < 0.0 || uv.x > 1.0 || uv.y < 0.0 || uv.y > 1.0) {
        return 1.0;
    }
    return textureSampleCompareLevel(shadow_map, shadow_sampler, uv, depth - 0.002);
}

fn shade(albedo: vec3<f32>, n: vec3<f32>, world_pos: vec3<f32>, metallic: f32, roughness: f32) -> vec3<f32> {
    let v = normalize(camera.position.xyz - world_pos);
    let spec_color = mix(vec3<f32>(0.04), albedo, metallic);
    let shininess = mix(128.0, 4.0, roughness);
    var color = lights.ambient * albedo;
    for (var i = 0u; i < lights.count; i = i + 1u) {
        let l = lights.lights[i];
        var dir: vec3<f32>;
        var atten = 1.0;
        if (l.kind == 0u) {
            dir = normalize(-l.direction);
            if (l.casts_shadows == 1u) {
                atten = atten * shadow_factor(world_pos);
            }
        } else {
            let d = l.position - world_pos;
            let dist = length(d);
            dir = d / max(dist, 1e-4);
            atten = clamp(1.0 - dist / max(l.light_range, 1e-4), 0.0, 1.0);
            atten = atten * atten;
            if (l.kind == 2u) {
                atten = atten * smoothstep(l.outer_cone, l.inner_cone, dot(-dir, normalize(l.direction)));
            }
        }
        let ndl = max(dot(n, dir), 0.0);
        let h = normalize(dir + v);
        let spec = pow(max(dot(n, h), 0.0), shininess) * (1.0 - roughness);
        color = color + (albedo * (1.0 - metallic) + spec_color * spec) * ndl * l.color * l.intensity * atten;
    }
    return color;
}
`

// surface_color applies the albedo texture (white when none is bound) and the alpha cutoff.
const surfaceWGSL = `
fn surface_color(uv: vec2<f32>) -> vec4<f32> {
    let c = draw_data.base_color * textureSample(albedo_texture, albedo_sampler, uv);
    if (c.a < draw_data.params.z) {
        discard;
    }
    return c;
}
`

const meshVertexWGSL = `
@vertex
fn vs_main(input: VertexInput) -> VertexOutput {
    var result: VertexOutput;
    let world = draw_data.model * vec4<f32>(input.position, 1.0);
    result.world_pos = world.xyz;
    result.normal = (draw_data.model * vec4<f32>(input.normal, 0.0)).xyz;
    result.uv = input.uv;
    result.clip = to_clip(camera.view_projection * world);
    return result;
}
`

const forwardWGSL = structsWGSL + frameDeclsWGSL + objectDeclWGSL + materialDeclsWGSL + shadeWGSL + surfaceWGSL + meshVertexWGSL + `
@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    let albedo = surface_color(input.uv);
    let color = shade(albedo.rgb, normalize(input.normal), input.world_pos, draw_data.params.x, draw_data.params.y);
    return vec4<f32>(color, albedo.a);
}
`

const gbufferWGSL = structsWGSL + cameraDeclWGSL + objectDeclWGSL + materialDeclsWGSL + surfaceWGSL + meshVertexWGSL + `
struct GBufferOutput {
    @location(0) albedo: vec4<f32>,
    @location(1) normal: vec4<f32>,
    @location(2) position: vec4<f32>,
}

@fragment
fn fs_main(input: VertexOutput) -> GBufferOutput {
    var result: GBufferOutput;
    result.albedo = vec4<f32>(surface_color(input.uv).rgb, 1.0);
    result.normal = vec4<f32>(normalize(input.normal), draw_data.params.y);
    result.position = vec4<f32>(input.world_pos, draw_data.params.x);
    return result;
}
`

const depthWGSL = structsWGSL + cameraDeclWGSL + objectDeclWGSL + `
@vertex
fn vs_main(input: VertexInput) -> @builtin(position) vec4<f32> {
    return to_clip(camera.view_projection * draw_data.model * vec4<f32>(input.position, 1.0));
}
`

const lightingWGSL = structsWGSL + frameDeclsWGSL + gbufferDeclsWGSL + shadeWGSL + `
@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> @builtin(position) vec4<f32> {
    let p = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
    return vec4<f32>(p * 2.0 - 1.0, 0.0, 1.0);
}

@fragment
fn fs_main(@builtin(position) frag: vec4<f32>) -> @location(0) vec4<f32> {
    let coord = vec2<i32>(frag.xy);
    let albedo = textureLoad(gbuffer_albedo, coord, 0);
    if (albedo.a == 0.0) {
        discard;
    }
    let n = textureLoad(gbuffer_normal, coord, 0);
    let p = textureLoad(gbuffer_position, coord, 0);
    return vec4<f32>(shade(albedo.rgb, normalize(n.xyz), p.xyz, p.w, n.w), 1.0);
}
`

// The quad pipeline binds the object layout at group 0 and the material layout at group 1.
const quadWGSL = `
struct Quad {
    rect: vec4<f32>,
    uv: vec4<f32>,
    color: vec4<f32>,
    screen: vec4<f32>,
}

struct QuadOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@group(0) @binding(0) var<uniform> quad: Quad;
@group(1) @binding(0) var albedo_texture: texture_2d<f32>;
@group(1) @binding(1) var albedo_sampler: sampler;

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> QuadOutput {
    var corners = array<vec2<f32>, 6>(
        vec2<f32>(0.0, 0.0), vec2<f32>(1.0, 0.0), vec2<f32>(1.0, 1.0),
        vec2<f32>(0.0, 0.0), vec2<f32>(1.0, 1.0), vec2<f32>(0.0, 1.0));
    let c = corners[index];
    let px = quad.rect.xy + c * quad.rect.zw;
    var result: QuadOutput;
    result.uv = mix(quad.uv.xy, quad.uv.zw, c);
    result.clip = vec4<f32>(px.x / quad.screen.x * 2.0 - 1.0, 1.0 - px.y / quad.screen.y * 2.0, 0.0, 1.0);
    return result;
}

@fragment
fn fs_main(input: QuadOutput) -> @location(0) vec4<f32> {
    return quad.color * textureSample(albedo_texture, albedo_sampler, input.uv);
}
`

// layoutsWGSL declares every standard binding so the bind group layouts can be reflected once.
const layoutsWGSL = structsWGSL + frameDeclsWGSL + objectDeclWGSL + materialDeclsWGSL
