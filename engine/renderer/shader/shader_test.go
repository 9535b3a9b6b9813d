package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/gogpu/gputypes"
)

const testSource = `
struct Local {
    matWorld: mat4x4<f32>,
    matWorldIT: mat4x4<f32>,
};

struct VertexInput {
    @location(0) a_position: vec3<f32>,
    @location(1) a_normal: vec3<f32>,
#if USE_BATCHING
    @location(2) a_dyn_batch_id: f32,
#endif
};

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) normal: vec3<f32>,
};

@group(1) @binding(0) var<uniform> tint: vec4<f32>;
@group(2) @binding(0) var<uniform> local: Local;

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.position = local.matWorld * vec4<f32>(in.a_position, 1.0);
    out.normal = in.a_normal;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
#ifdef SPOTLIGHT
    return tint * 0.5;
#else
    return tint;
#endif
}
`

func TestPreprocess(t *testing.T) {
	src := "a\n#if X\nb\n#ifndef Y\nc\n#else\nd\n#endif\n#else\ne\n#endif\nf"
	tests := []struct {
		name    string
		defines []Define
		want    string
	}{
		{"undefined", nil, "a\ne\nf"},
		{"false value", []Define{{Name: "X", Value: "false"}}, "a\ne\nf"},
		{"zero value", []Define{{Name: "X", Value: "0"}}, "a\ne\nf"},
		{"true", []Define{{Name: "X", Value: "1"}}, "a\nb\nc\nf"},
		{"nested else", []Define{{Name: "X", Value: "1"}, {Name: "Y"}}, "a\nb\nd\nf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Preprocess(src, tt.defines)
			if err != nil {
				t.Fatalf("Preprocess() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Preprocess() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreprocessErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"stray endif", "a\n#endif", ErrUnbalancedDirective},
		{"stray else", "#else", ErrUnbalancedDirective},
		{"double else", "#if A\n#else\n#else\n#endif", ErrUnbalancedDirective},
		{"unclosed", "#ifdef A\nb", ErrUnbalancedDirective},
		{"missing operand", "#if\n#endif", ErrMalformedDirective},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Preprocess(tt.src, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Preprocess() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDefinesKey(t *testing.T) {
	a := DefinesKey([]Define{{Name: "B", Value: "1"}, {Name: "A", Value: "2"}})
	b := DefinesKey([]Define{{Name: "A", Value: "2"}, {Name: "B", Value: "1"}})
	if a != b || a != "A=2;B=1" {
		t.Errorf("DefinesKey() = %q / %q, want A=2;B=1", a, b)
	}
	if DefinesKey(nil) != "" {
		t.Error("empty define set should produce an empty key")
	}
}

func TestCompile(t *testing.T) {
	info, err := Compile("lit", testSource, []Define{{Name: "USE_BATCHING", Value: "1"}})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(info.Stages) != 2 || info.Stages[0].EntryPoint != "vs_main" || info.Stages[1].EntryPoint != "fs_main" {
		t.Fatalf("stages = %+v", info.Stages)
	}
	wantAttrs := []gfx.Attribute{
		{Name: "a_position", Format: gputypes.VertexFormatFloat32x3, Location: 0},
		{Name: "a_normal", Format: gputypes.VertexFormatFloat32x3, Location: 1},
		{Name: gfx.AttrBatchID, Format: gputypes.VertexFormatFloat32, Location: 2},
	}
	if len(info.Attributes) != len(wantAttrs) {
		t.Fatalf("attributes = %+v", info.Attributes)
	}
	for i, want := range wantAttrs {
		if info.Attributes[i] != want {
			t.Errorf("attribute %d = %+v, want %+v", i, info.Attributes[i], want)
		}
	}

	local, ok := info.SetLayouts[gfx.SetIndexLocal]
	if !ok || len(local.Bindings) != 1 {
		t.Fatalf("local set layout = %+v", info.SetLayouts)
	}
	if got := local.Bindings[0].Buffer.MinBindingSize; got != 128 {
		t.Errorf("local min binding size = %d, want 128", got)
	}
	material := info.SetLayouts[gfx.SetIndexMaterial]
	if len(material.Bindings) != 1 || material.Bindings[0].Buffer.Type != gputypes.BufferBindingTypeUniform {
		t.Errorf("material set layout = %+v", material)
	}
}

func TestCompileWithoutBatching(t *testing.T) {
	info, err := Compile("lit", testSource, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(info.Attributes) != 2 {
		t.Errorf("attributes = %+v, want position and normal only", info.Attributes)
	}
	if strings.Contains(info.Stages[1].Source, "tint * 0.5") {
		t.Error("SPOTLIGHT branch should be stripped")
	}
}

func TestCompileMissingEntryPoint(t *testing.T) {
	_, err := Compile("broken", "@vertex fn vs() {}", nil)
	if !errors.Is(err, ErrMissingEntryPoint) {
		t.Errorf("Compile() error = %v, want ErrMissingEntryPoint", err)
	}
}

func TestProgramVariantCache(t *testing.T) {
	p := NewProgram("lit", testSource)
	a, err := p.Variant([]Define{{Name: "SPOTLIGHT", Value: "1"}, {Name: "USE_BATCHING", Value: "1"}})
	if err != nil {
		t.Fatalf("Variant() error = %v", err)
	}
	b, err := p.Variant([]Define{{Name: "USE_BATCHING", Value: "1"}, {Name: "SPOTLIGHT", Value: "1"}})
	if err != nil {
		t.Fatalf("Variant() error = %v", err)
	}
	if p.Variants() != 1 {
		t.Errorf("Variants() = %d, want 1", p.Variants())
	}
	if a.Stages[1].Source != b.Stages[1].Source || !strings.Contains(a.Stages[1].Source, "tint * 0.5") {
		t.Error("variant lookup should be order independent and keep the SPOTLIGHT branch")
	}
	if _, err := p.Variant(nil); err != nil {
		t.Fatalf("Variant() error = %v", err)
	}
	if p.Variants() != 2 {
		t.Errorf("Variants() = %d, want 2", p.Variants())
	}
}

const layoutSource = `
struct Light {
    position: vec3<f32>,
    range: f32,
    color: vec4<f32>,
};

struct Global {
    view: mat4x4<f32>,
    eye: vec3<f32>,
};

// @group(3) @binding(0) var<uniform> disabled: Global;
@group(0) @binding(2) var<storage, read> counts: array<u32>;
@group(0) @binding(0) var<uniform> global: Global;
@group(0) @binding(1) var<uniform> fixedLights: array<Light, 4>;
@group(1) @binding(0) var<storage, read_write> colors: array<vec4<f32>>;
@group(1) @binding(1) var albedo: texture_2d<f32>;
`

func TestParseDescriptorSetLayouts(t *testing.T) {
	layouts := ParseDescriptorSetLayouts(layoutSource, gputypes.ShaderStageFragment)
	if len(layouts) != 2 {
		t.Fatalf("expected 2 sets, got %d", len(layouts))
	}

	tests := []struct {
		name    string
		set     gfx.SetIndex
		index   int
		binding uint32
		kind    gputypes.BufferBindingType
		size    uint64
	}{
		{"struct padded to its alignment", 0, 0, 0, gputypes.BufferBindingTypeUniform, 80},
		{"fixed array of structs", 0, 1, 1, gputypes.BufferBindingTypeUniform, 128},
		{"runtime array binds one element", 0, 2, 2, gputypes.BufferBindingTypeReadOnlyStorage, 4},
		{"read-write storage", 1, 0, 0, gputypes.BufferBindingTypeStorage, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bindings := layouts[tt.set].Bindings
			if tt.index >= len(bindings) {
				t.Fatalf("set %d has %d bindings", tt.set, len(bindings))
			}
			e := bindings[tt.index]
			if e.Binding != tt.binding {
				t.Errorf("expected binding %d, got %d", tt.binding, e.Binding)
			}
			if e.Buffer == nil || e.Buffer.Type != tt.kind {
				t.Fatalf("expected buffer type %v, got %+v", tt.kind, e.Buffer)
			}
			if e.Buffer.MinBindingSize != tt.size {
				t.Errorf("expected min binding size %d, got %d", tt.size, e.Buffer.MinBindingSize)
			}
			if e.Visibility != gputypes.ShaderStageFragment {
				t.Errorf("expected fragment visibility, got %v", e.Visibility)
			}
		})
	}
	if n := len(layouts[1].Bindings); n != 1 {
		t.Errorf("textures should be skipped, set 1 has %d bindings", n)
	}
}
