package gl_backend

// Attribute locations and uniform conventions shared by the built-in programs and any GLSL
// shader loaded through LoadShaderCommand:
//
//	layout(location = 0) in vec3 aPosition;
//	layout(location = 1) in vec3 aNormal;
//	layout(location = 2) in vec2 aUV;
//	uniform block Camera (binding 0), uniform block Lights (binding 1)
//	uniform mat4 uModel; uniform vec4 uBaseColor; uniform float uMetallic, uRoughness, uCutoff;
//	uniform sampler2D uAlbedo (unit 0); uniform int uHasAlbedo;
//	uniform sampler2D uShadowMap (unit 7); uniform int uHasShadow;

const cameraBlockGLSL = `
layout(std140) uniform Camera {
    mat4 uView;
    mat4 uProjection;
    mat4 uViewProjection;
    mat4 uShadowViewProjection;
    vec4 uCameraPosition;
};
`

// lightsBlockGLSL matches the layout written by light.MarshalLightBuffer.
const lightsBlockGLSL = `
struct Light {
    vec3 position;
    uint type;
    vec3 color;
    float intensity;
    vec3 direction;
    float range;
    float innerCone;
    float outerCone;
    uint castsShadows;
    float pad;
};
layout(std140) uniform Lights {
    vec3 uAmbient;
    uint uLightCount;
    Light uLights[16];
};
`

const shadeGLSL = `
uniform sampler2D uShadowMap;
uniform int uHasShadow;

float shadowFactor(vec3 worldPos) {
    if (uHasShadow == 0) {
        return 1.0;
    }
    vec4 lp = uShadowViewProjection * vec4(worldPos, 1.0);
    vec3 p = lp.xyz / lp.w * 0.5 + 0.5;
    if (p.z > 1.0 || p.x < 0.0 || p.x > 1.0 || p.y < 0.0 || p.y > 1.0) {
        return 1.0;
    }
    return p.z - 0.002 > texture(uShadowMap, p.xy).r ? 0.0 : 1.0;
}

vec3 shade(vec3 albedo, vec3 N, vec3 worldPos, float metallic, float roughness) {
    vec3 V = normalize(uCameraPosition.xyz - worldPos);
    vec3 specColor = mix(vec3(0.04), albedo, metallic);
    float shininess = mix(128.0, 4.0, roughness);
    vec3 color = uAmbient * albedo;
    for (uint i = 0u; i < uLightCount; i++) {
        Light l = uLights[i];
        vec3 L;
        float atten = 1.0;
        if (l.type == 0u) {
            L = normalize(-l.direction);
            if (l.castsShadows == 1u) {
                atten *= shadowFactor(worldPos);
            }
        } else {
            vec3 d = l.position - worldPos;
            float dist = length(d);
            L = d / max(dist, 1e-4);
            atten = clamp(1.0 - dist / max(l.range, 1e-4), 0.0, 1.0);
            atten *= atten;
            if (l.type == 2u) {
                atten *= smoothstep(l.outerCone, l.innerCone, dot(-L, normalize(l.direction)));
            }
        }
        float ndl = max(dot(N, L), 0.0);
        vec3 H = normalize(L + V);
        float spec = pow(max(dot(N, H), 0.0), shininess) * (1.0 - roughness);
        color += (albedo * (1.0 - metallic) + specColor * spec) * ndl * l.color * l.intensity * atten;
    }
    return color;
}
`

const surfaceGLSL = `
uniform vec4 uBaseColor;
uniform float uMetallic;
uniform float uRoughness;
uniform float uCutoff;
uniform sampler2D uAlbedo;
uniform int uHasAlbedo;

vec4 surfaceColor(vec2 uv) {
    vec4 c = uBaseColor;
    if (uHasAlbedo == 1) {
        c *= texture(uAlbedo, uv);
    }
    if (c.a < uCutoff) {
        discard;
    }
    return c;
}
`

const meshVertexGLSL = `#version 330 core
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec2 aUV;
` + cameraBlockGLSL + `
uniform mat4 uModel;
out vec3 vWorldPos;
out vec3 vNormal;
out vec2 vUV;
void main() {
    vec4 world = uModel * vec4(aPosition, 1.0);
    vWorldPos = world.xyz;
    vNormal = mat3(uModel) * aNormal;
    vUV = aUV;
    gl_Position = uViewProjection * world;
}
`

const forwardFragmentGLSL = `#version 330 core
` + cameraBlockGLSL + lightsBlockGLSL + shadeGLSL + surfaceGLSL + `
in vec3 vWorldPos;
in vec3 vNormal;
in vec2 vUV;
out vec4 fragColor;
void main() {
    vec4 albedo = surfaceColor(vUV);
    vec3 color = shade(albedo.rgb, normalize(vNormal), vWorldPos, uMetallic, uRoughness);
    fragColor = vec4(color, albedo.a);
}
`

const gbufferFragmentGLSL = `#version 330 core
` + surfaceGLSL + `
in vec3 vWorldPos;
in vec3 vNormal;
in vec2 vUV;
layout(location = 0) out vec4 gAlbedo;
layout(location = 1) out vec4 gNormal;
layout(location = 2) out vec4 gPosition;
void main() {
    gAlbedo = vec4(surfaceColor(vUV).rgb, 1.0);
    gNormal = vec4(normalize(vNormal), uRoughness);
    gPosition = vec4(vWorldPos, uMetallic);
}
`

const depthVertexGLSL = `#version 330 core
layout(location = 0) in vec3 aPosition;
` + cameraBlockGLSL + `
uniform mat4 uModel;
void main() {
    gl_Position = uViewProjection * uModel * vec4(aPosition, 1.0);
}
`

const depthFragmentGLSL = `#version 330 core
void main() {
}
`

const fullscreenVertexGLSL = `#version 330 core
out vec2 vUV;
void main() {
    vec2 p = vec2((gl_VertexID << 1) & 2, gl_VertexID & 2);
    vUV = p;
    gl_Position = vec4(p * 2.0 - 1.0, 0.0, 1.0);
}
`

const lightingFragmentGLSL = `#version 330 core
` + cameraBlockGLSL + lightsBlockGLSL + shadeGLSL + `
uniform sampler2D gAlbedo;
uniform sampler2D gNormal;
uniform sampler2D gPosition;
in vec2 vUV;
out vec4 fragColor;
void main() {
    vec4 albedo = texture(gAlbedo, vUV);
    if (albedo.a == 0.0) {
        discard;
    }
    vec4 n = texture(gNormal, vUV);
    vec4 p = texture(gPosition, vUV);
    fragColor = vec4(shade(albedo.rgb, normalize(n.xyz), p.xyz, p.w, n.w), 1.0);
}
`

const quadVertexGLSL = `#version 330 core
uniform vec4 uRect;
uniform vec2 uScreen;
uniform vec4 uUV;
out vec2 vUV;
const vec2 corners[6] = vec2[6](
    vec2(0.0, 0.0), vec2(1.0, 0.0), vec2(1.0, 1.0),
    vec2(0.0, 0.0), vec2(1.0, 1.0), vec2(0.0, 1.0));
void main() {
    vec2 c = corners[gl_VertexID];
    vec2 px = uRect.xy + c * uRect.zw;
    vUV = mix(uUV.xy, uUV.zw, c);
    gl_Position = vec4(px.x / uScreen.x * 2.0 - 1.0, 1.0 - px.y / uScreen.y * 2.0, 0.0, 1.0);
}
`

const quadFragmentGLSL = `#version 330 core
uniform vec4 uColor;
uniform sampler2D uAlbedo;
uniform int uHasAlbedo;
in vec2 vUV;
out vec4 fragColor;
void main() {
    vec4 c = uColor;
    if (uHasAlbedo == 1) {
        c *= texture(uAlbedo, vUV);
    }
    fragColor = c;
}
`
