package renderer

// =============================================================
//
//	GLSL sources
//
// =============================================================

// Forward PBR pass. Attribute locations follow the interleaved vertex
// layout created by glDevice.CreateMesh.
var pbrVertexShaderSource = `#version 410 core

layout(location = 0) in vec3 a_position;
layout(location = 1) in vec3 a_normal;
layout(location = 2) in vec4 a_tangent;
layout(location = 3) in vec2 a_uv;

uniform mat4 M;
uniform mat4 VP;
uniform mat4 light_space_matrix;

out vec3 v_world_position;
out vec2 v_uv;
out vec4 v_light_space_position;
out mat3 v_tbn;

void main() {
    vec4 world = M * vec4(a_position, 1.0);
    mat3 normal_matrix = transpose(inverse(mat3(M)));

    vec3 N = normalize(normal_matrix * a_normal);
    vec3 T = normalize(mat3(M) * a_tangent.xyz);
    T = normalize(T - dot(T, N) * N);
    vec3 B = cross(N, T) * a_tangent.w;
    v_tbn = mat3(T, B, N);

    v_world_position = world.xyz;
    v_uv = a_uv;
    v_light_space_position = light_space_matrix * world;
    gl_Position = VP * world;
}
` + "\x00"

var pbrFragmentShaderSource = `#version 410 core

const float PI = 3.14159265359;

in vec3 v_world_position;
in vec2 v_uv;
in vec4 v_light_space_position;
in mat3 v_tbn;

out vec4 frag_color;

uniform vec3 camera_position;
uniform vec3 sun_light_direction;
uniform vec3 sun_light_color;

uniform bool has_albedo_map;
uniform bool has_normal_map;
uniform bool has_metalness_map;
uniform bool has_roughness_map;
uniform bool has_ao_map;
uniform sampler2D albedo_map;
uniform sampler2D normal_map;
uniform sampler2D metalness_map;
uniform sampler2D roughness_map;
uniform sampler2D ao_map;
uniform vec4 albedo_factor;
uniform float metalness_factor;
uniform float roughness_factor;

uniform bool has_shadow_map;
uniform sampler2D shadow_map;

uniform bool has_ibl;
uniform samplerCube irradiance_map;
uniform samplerCube prefilter_map;
uniform sampler2D brdf_lut;
uniform float max_reflection_lod;
uniform vec3 ambient_color;

float distribution_ggx(float n_dot_h, float roughness) {
    float a = roughness * roughness;
    float a2 = a * a;
    float d = n_dot_h * n_dot_h * (a2 - 1.0) + 1.0;
    return a2 / (PI * d * d);
}

float geometry_schlick_ggx(float n_dot_v, float roughness) {
    float r = roughness + 1.0;
    float k = (r * r) / 8.0;
    return n_dot_v / (n_dot_v * (1.0 - k) + k);
}

float geometry_smith(float n_dot_v, float n_dot_l, float roughness) {
    return geometry_schlick_ggx(n_dot_v, roughness) * geometry_schlick_ggx(n_dot_l, roughness);
}

vec3 fresnel_schlick(float cos_theta, vec3 f0) {
    return f0 + (1.0 - f0) * pow(clamp(1.0 - cos_theta, 0.0, 1.0), 5.0);
}

vec3 fresnel_schlick_roughness(float cos_theta, vec3 f0, float roughness) {
    return f0 + (max(vec3(1.0 - roughness), f0) - f0) * pow(clamp(1.0 - cos_theta, 0.0, 1.0), 5.0);
}

float shadow_factor(vec3 N, vec3 L) {
    vec3 p = v_light_space_position.xyz / v_light_space_position.w;
    p = p * 0.5 + 0.5;
    if (p.z > 1.0) {
        return 0.0;
    }
    float bias = max(0.005 * (1.0 - dot(N, L)), 0.0005);
    vec2 texel = 1.0 / vec2(textureSize(shadow_map, 0));
    float shadow = 0.0;
    for (int x = -1; x <= 1; ++x) {
        for (int y = -1; y <= 1; ++y) {
            float closest = texture(shadow_map, p.xy + vec2(x, y) * texel).r;
            shadow += p.z - bias > closest ? 1.0 : 0.0;
        }
    }
    return shadow / 9.0;
}

void main() {
    vec4 base = albedo_factor;
    if (has_albedo_map) {
        vec4 texel = texture(albedo_map, v_uv);
        base *= vec4(pow(texel.rgb, vec3(2.2)), texel.a);
    }
    vec3 albedo = base.rgb;

    float metalness = metalness_factor;
    if (has_metalness_map) {
        metalness *= texture(metalness_map, v_uv).b;
    }
    float roughness = roughness_factor;
    if (has_roughness_map) {
        roughness *= texture(roughness_map, v_uv).g;
    }
    roughness = clamp(roughness, 0.04, 1.0);
    float ao = 1.0;
    if (has_ao_map) {
        ao = texture(ao_map, v_uv).r;
    }

    vec3 N = normalize(v_tbn[2]);
    if (has_normal_map) {
        vec3 tangent_normal = texture(normal_map, v_uv).xyz * 2.0 - 1.0;
        N = normalize(v_tbn * tangent_normal);
    }
    vec3 V = normalize(camera_position - v_world_position);
    vec3 R = reflect(-V, N);
    float n_dot_v = max(dot(N, V), 0.0);

    vec3 f0 = mix(vec3(0.04), albedo, metalness);

    // Sun. sun_light_direction points from the light into the scene.
    vec3 L = normalize(-sun_light_direction);
    vec3 H = normalize(V + L);
    float n_dot_l = max(dot(N, L), 0.0);

    float D = distribution_ggx(max(dot(N, H), 0.0), roughness);
    float G = geometry_smith(n_dot_v, n_dot_l, roughness);
    vec3 F = fresnel_schlick(max(dot(H, V), 0.0), f0);
    vec3 specular = D * G * F / (4.0 * n_dot_v * n_dot_l + 0.0001);
    vec3 kd = (vec3(1.0) - F) * (1.0 - metalness);

    float visibility = 1.0;
    if (has_shadow_map) {
        visibility = 1.0 - shadow_factor(N, L);
    }
    vec3 direct = (kd * albedo / PI + specular) * sun_light_color * n_dot_l * visibility;

    vec3 ambient;
    if (has_ibl) {
        vec3 f = fresnel_schlick_roughness(n_dot_v, f0, roughness);
        vec3 kd_ibl = (vec3(1.0) - f) * (1.0 - metalness);
        vec3 diffuse = texture(irradiance_map, N).rgb * albedo;
        vec3 prefiltered = textureLod(prefilter_map, R, roughness * max_reflection_lod).rgb;
        vec2 brdf = texture(brdf_lut, vec2(n_dot_v, roughness)).rg;
        ambient = (kd_ibl * diffuse + prefiltered * (f * brdf.x + brdf.y)) * ao;
    } else {
        ambient = ambient_color * albedo * ao;
    }

    frag_color = vec4(direct + ambient, base.a);
}
` + "\x00"

// Shadow pass. Writes depth only.
var shadowVertexShaderSource = `#version 410 core

layout(location = 0) in vec3 a_position;

uniform mat4 M;
uniform mat4 light_space_matrix;

void main() {
    gl_Position = light_space_matrix * M * vec4(a_position, 1.0);
}
` + "\x00"

var shadowFragmentShaderSource = `#version 410 core

void main() {
}
` + "\x00"

// Full screen quad shared by post, depth debug and BRDF integration.
var quadVertexShaderSource = `#version 410 core

layout(location = 0) in vec2 a_position;
layout(location = 1) in vec2 a_uv;

out vec2 v_uv;

void main() {
    v_uv = a_uv;
    gl_Position = vec4(a_position, 0.0, 1.0);
}
` + "\x00"

var postFragmentShaderSource = `#version 410 core

in vec2 v_uv;
out vec4 frag_color;

uniform sampler2D color_map;
uniform float exposure;
uniform bool tonemapping;
uniform bool gamma_correction;

void main() {
    vec3 color = texture(color_map, v_uv).rgb;
    if (tonemapping) {
        color = vec3(1.0) - exp(-color * exposure);
    }
    if (gamma_correction) {
        color = pow(color, vec3(1.0 / 2.2));
    }
    frag_color = vec4(color, 1.0);
}
` + "\x00"

// Raw light-space depth, no shading.
var depthDebugFragmentShaderSource = `#version 410 core

in vec2 v_uv;
out vec4 frag_color;

uniform sampler2D depth_map;

void main() {
    float depth = texture(depth_map, v_uv).r;
    frag_color = vec4(vec3(depth), 1.0);
}
` + "\x00"

// Skybox. The view has no translation and xyww pins the cube to the far
// plane, so it needs depth func LEQUAL.
var skyboxVertexShaderSource = `#version 410 core

layout(location = 0) in vec3 a_position;

uniform mat4 projection;
uniform mat4 view;

out vec3 v_direction;

void main() {
    v_direction = a_position;
    vec4 position = projection * view * vec4(a_position, 1.0);
    gl_Position = position.xyww;
}
` + "\x00"

var skyboxFragmentShaderSource = `#version 410 core

in vec3 v_direction;
out vec4 frag_color;

uniform samplerCube environment_map;

void main() {
    frag_color = vec4(textureLod(environment_map, v_direction, 0.0).rgb, 1.0);
}
` + "\x00"

// Unlit cube marking where the sun comes from.
var indicatorVertexShaderSource = `#version 410 core

layout(location = 0) in vec3 a_position;

uniform mat4 M;
uniform mat4 VP;

void main() {
    gl_Position = VP * M * vec4(a_position, 1.0);
}
` + "\x00"

var indicatorFragmentShaderSource = `#version 410 core

out vec4 frag_color;

uniform vec3 color;

void main() {
    frag_color = vec4(color, 1.0);
}
` + "\x00"

// Environment capture. Every cube capture draws the unit cube with one of
// the six capture views.
var captureVertexShaderSource = `#version 410 core

layout(location = 0) in vec3 a_position;

uniform mat4 projection;
uniform mat4 view;

out vec3 v_direction;

void main() {
    v_direction = a_position;
    gl_Position = projection * view * vec4(a_position, 1.0);
}
` + "\x00"

var equirectFragmentShaderSource = `#version 410 core

in vec3 v_direction;
out vec4 frag_color;

uniform sampler2D equirect_map;

const vec2 INV_ATAN = vec2(0.1591549, 0.3183099);

vec2 equirect_uv(vec3 d) {
    vec2 uv = vec2(atan(d.z, d.x), asin(clamp(d.y, -1.0, 1.0)));
    return uv * INV_ATAN + 0.5;
}

void main() {
    vec3 color = texture(equirect_map, equirect_uv(normalize(v_direction))).rgb;
    frag_color = vec4(color, 1.0);
}
` + "\x00"

var irradianceFragmentShaderSource = `#version 410 core

const float PI = 3.14159265359;

in vec3 v_direction;
out vec4 frag_color;

uniform samplerCube environment_map;
uniform float sample_delta;

void main() {
    vec3 N = normalize(v_direction);
    vec3 ref = abs(N.y) > 0.999 ? vec3(0.0, 0.0, 1.0) : vec3(0.0, 1.0, 0.0);
    vec3 right = normalize(cross(ref, N));
    vec3 up = normalize(cross(N, right));

    vec3 irradiance = vec3(0.0);
    float total = 0.0;
    for (float phi = 0.0; phi < 2.0 * PI; phi += sample_delta) {
        for (float theta = 0.0; theta < 0.5 * PI; theta += sample_delta) {
            vec3 t = vec3(sin(theta) * cos(phi), sin(theta) * sin(phi), cos(theta));
            vec3 dir = t.x * right + t.y * up + t.z * N;
            float w = cos(theta) * sin(theta);
            irradiance += texture(environment_map, dir).rgb * w;
            total += w;
        }
    }
    frag_color = vec4(irradiance / max(total, 0.0001), 1.0);
}
` + "\x00"

var prefilterFragmentShaderSource = `#version 410 core

const float PI = 3.14159265359;

in vec3 v_direction;
out vec4 frag_color;

uniform samplerCube environment_map;
uniform float roughness;
uniform float resolution;
uniform int sample_count;

float distribution_ggx(float n_dot_h, float r) {
    float a = r * r;
    float a2 = a * a;
    float d = n_dot_h * n_dot_h * (a2 - 1.0) + 1.0;
    return a2 / (PI * d * d);
}

vec2 hammersley(uint i, uint n) {
    return vec2(float(i) / float(n), float(bitfieldReverse(i)) * 2.3283064365386963e-10);
}

vec3 importance_sample_ggx(vec2 xi, vec3 N, float r) {
    float a = r * r;
    float phi = 2.0 * PI * xi.x;
    float cos_theta = sqrt((1.0 - xi.y) / (1.0 + (a * a - 1.0) * xi.y));
    float sin_theta = sqrt(1.0 - cos_theta * cos_theta);
    vec3 H = vec3(cos(phi) * sin_theta, sin(phi) * sin_theta, cos_theta);

    vec3 up = abs(N.z) < 0.999 ? vec3(0.0, 0.0, 1.0) : vec3(1.0, 0.0, 0.0);
    vec3 tangent = normalize(cross(up, N));
    vec3 bitangent = cross(N, tangent);
    return normalize(tangent * H.x + bitangent * H.y + N * H.z);
}

void main() {
    vec3 N = normalize(v_direction);
    float sa_texel = 4.0 * PI / (6.0 * resolution * resolution);

    vec3 color = vec3(0.0);
    float total = 0.0;
    uint n = uint(sample_count);
    for (uint i = 0u; i < n; ++i) {
        vec3 H = importance_sample_ggx(hammersley(i, n), N, roughness);
        vec3 L = normalize(2.0 * dot(N, H) * H - N);
        float n_dot_l = dot(N, L);
        if (n_dot_l <= 0.0) {
            continue;
        }
        float lod = 0.0;
        if (roughness > 0.0) {
            float n_dot_h = max(dot(N, H), 0.0);
            float pdf = distribution_ggx(n_dot_h, roughness) * n_dot_h / (4.0 * n_dot_h) + 0.0001;
            float sa_sample = 1.0 / (float(sample_count) * pdf + 0.0001);
            lod = 0.5 * log2(sa_sample / sa_texel);
        }
        color += textureLod(environment_map, L, max(lod, 0.0)).rgb * n_dot_l;
        total += n_dot_l;
    }
    frag_color = vec4(color / max(total, 0.0001), 1.0);
}
` + "\x00"

var brdfFragmentShaderSource = `#version 410 core

const float PI = 3.14159265359;

in vec2 v_uv;
out vec2 frag_color;

uniform int sample_count;

vec2 hammersley(uint i, uint n) {
    return vec2(float(i) / float(n), float(bitfieldReverse(i)) * 2.3283064365386963e-10);
}

vec3 importance_sample_ggx(vec2 xi, vec3 N, float r) {
    float a = r * r;
    float phi = 2.0 * PI * xi.x;
    float cos_theta = sqrt((1.0 - xi.y) / (1.0 + (a * a - 1.0) * xi.y));
    float sin_theta = sqrt(1.0 - cos_theta * cos_theta);
    return vec3(cos(phi) * sin_theta, sin(phi) * sin_theta, cos_theta);
}

float geometry_schlick_ggx(float n_dot_v, float r) {
    float k = (r * r) / 2.0;
    return n_dot_v / (n_dot_v * (1.0 - k) + k);
}

vec2 integrate_brdf(float n_dot_v, float r) {
    n_dot_v = clamp(n_dot_v, 0.0001, 1.0);
    vec3 V = vec3(sqrt(1.0 - n_dot_v * n_dot_v), 0.0, n_dot_v);
    float a = 0.0;
    float b = 0.0;
    uint n = uint(sample_count);
    for (uint i = 0u; i < n; ++i) {
        vec3 H = importance_sample_ggx(hammersley(i, n), vec3(0.0, 0.0, 1.0), r);
        vec3 L = normalize(2.0 * dot(V, H) * H - V);
        float n_dot_l = max(L.z, 0.0);
        float n_dot_h = max(H.z, 0.0);
        float v_dot_h = max(dot(V, H), 0.0);
        if (n_dot_l > 0.0) {
            float g = geometry_schlick_ggx(n_dot_v, r) * geometry_schlick_ggx(n_dot_l, r);
            float g_vis = g * v_dot_h / (n_dot_h * n_dot_v);
            float fc = pow(1.0 - v_dot_h, 5.0);
            a += (1.0 - fc) * g_vis;
            b += fc * g_vis;
        }
    }
    return vec2(a, b) / float(sample_count);
}

void main() {
    frag_color = integrate_brdf(v_uv.x, v_uv.y);
}
` + "\x00"
