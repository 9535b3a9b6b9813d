package material

import "github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"

// Variant defines understood by StandardSource.
const (
	DefineInstancing = "USE_INSTANCING"
	DefineBatching   = "USE_BATCHING"
	DefineForwardAdd = "CC_FORWARD_ADD"
	DefineSpotLight  = "SPOTLIGHT"
)

// StandardSource is the built-in lit program. One source covers the main forward pass, the
// additive per-light pass (CC_FORWARD_ADD, SPOTLIGHT) and the shadow caster pass, with world
// matrices read from the local set, the instanced stream (USE_INSTANCING) or the batched
// matrix array (USE_BATCHING).
const StandardSource = `struct Global {
    matViewProj: mat4x4<f32>,
    cameraPos: vec4<f32>,
    mainLitDir: vec4<f32>,
    mainLitColor: vec4<f32>,
    ambient: vec4<f32>,
};

` + GPUPassParamsSource + `
struct Local {
    matWorld: mat4x4<f32>,
    matWorldIT: mat4x4<f32>,
};

struct ForwardLight {
    position: vec4<f32>,
    color: vec4<f32>,
    sizeRangeAngle: vec4<f32>,
    direction: vec4<f32>,
};

struct LocalBatched {
    matWorlds: array<mat4x4<f32>, 10>,
};

@group(0) @binding(0) var<uniform> global: Global;
@group(1) @binding(0) var<uniform> params: PassParams;
@group(2) @binding(0) var<uniform> local: Local;
@group(2) @binding(1) var<uniform> light: ForwardLight;
@group(2) @binding(2) var<uniform> batched: LocalBatched;

struct VertexInput {
    @location(0) a_position: vec3<f32>,
    @location(1) a_normal: vec3<f32>,
#if USE_INSTANCING
    @location(2) a_matWorld0: vec4<f32>,
    @location(3) a_matWorld1: vec4<f32>,
    @location(4) a_matWorld2: vec4<f32>,
#endif
#if USE_BATCHING
    @location(2) a_dyn_batch_id: f32,
#endif
};

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) worldPos: vec3<f32>,
    @location(1) normal: vec3<f32>,
};

fn worldMatrix(in: VertexInput) -> mat4x4<f32> {
#if USE_INSTANCING
    return transpose(mat4x4<f32>(in.a_matWorld0, in.a_matWorld1, in.a_matWorld2, vec4<f32>(0.0, 0.0, 0.0, 1.0)));
#else
#if USE_BATCHING
    return batched.matWorlds[u32(in.a_dyn_batch_id)];
#else
    return local.matWorld;
#endif
#endif
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    let world = worldMatrix(in);
    let worldPos = world * vec4<f32>(in.a_position, 1.0);
    var out: VertexOutput;
    out.position = global.matViewProj * worldPos;
    out.worldPos = worldPos.xyz;
    out.normal = (world * vec4<f32>(in.a_normal, 0.0)).xyz;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let n = normalize(in.normal);
#if CC_FORWARD_ADD
    let toLight = light.position.xyz - in.worldPos;
    let dist = length(toLight);
    let l = toLight / max(dist, 0.0001);
    var atten = clamp(1.0 - dist / max(light.sizeRangeAngle.y, 0.0001), 0.0, 1.0);
#if SPOTLIGHT
    atten = atten * smoothstep(light.sizeRangeAngle.z, 1.0, dot(-l, light.direction.xyz));
#endif
    let lit = max(dot(n, l), 0.0) * atten;
    return vec4<f32>(params.tintColor.rgb * light.color.rgb * light.color.w * lit, 1.0);
#else
    let lit = max(dot(n, -global.mainLitDir.xyz), 0.0);
    let color = params.tintColor.rgb * (global.ambient.rgb + global.mainLitColor.rgb * global.mainLitColor.w * lit);
    return vec4<f32>(color, params.tintColor.a);
#endif
}
`

// NewStandardProgram returns a program over StandardSource.
func NewStandardProgram() *shader.Program {
	return shader.NewProgram("standard", StandardSource)
}
