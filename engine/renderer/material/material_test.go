package material

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx/gfxtest"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
)

func newTestPass(t *testing.T, pools *pool.Pools, options ...PassBuilderOption) Pass {
	t.Helper()
	p, err := NewPass(pools, SharedLayouts{}, NewStandardProgram(), options...)
	if err != nil {
		t.Fatalf("NewPass() error = %v", err)
	}
	return p
}

func TestPhases(t *testing.T) {
	tests := []struct {
		name string
		want Phase
	}{
		{"default", PhaseDefault},
		{"forward-add", PhaseForwardAdd},
		{"shadow-caster", PhaseShadowCaster},
		{"planarShadow", PhasePlanarShadow},
		{"deferred", PhaseDeferred},
		{"ui", PhaseUI},
	}
	seen := Phase(0)
	for _, tt := range tests {
		got, ok := PhaseByName(tt.name)
		if !ok || got != tt.want {
			t.Errorf("PhaseByName(%q) = %v, %v", tt.name, got, ok)
		}
		if seen&got != 0 {
			t.Errorf("phase %q overlaps another phase", tt.name)
		}
		seen |= got
		if got.String() != tt.name {
			t.Errorf("String() = %q, want %q", got.String(), tt.name)
		}
	}
	if _, ok := PhaseByName("missing"); ok {
		t.Error("unknown phase should not resolve")
	}
	if m := PhaseMask("default", "forward-add", "missing"); m != PhaseDefault|PhaseForwardAdd {
		t.Errorf("PhaseMask() = %b", m)
	}
}

func TestPassStateLivesInPool(t *testing.T) {
	pools := pool.NewPools(gfxtest.NewDevice())
	p := newTestPass(t, pools,
		WithPriority(3),
		WithPhase(PhaseForwardAdd),
		WithBatchingScheme(BatchingInstancing),
		WithAdditiveBlend(),
	)

	h := p.Handle()
	if h.Type() != pool.TypePass {
		t.Fatalf("handle type = %v", h.Type())
	}
	if got := pools.Pass.GetUint32(h, pool.PassPriority); got != 3 || p.Priority() != 3 {
		t.Errorf("priority = %d", got)
	}
	if p.Phase() != PhaseForwardAdd || p.BatchingScheme() != BatchingInstancing {
		t.Errorf("phase = %v, batching = %v", p.Phase(), p.BatchingScheme())
	}
	if !p.IsTransparent() || p.DepthStencil().DepthWrite {
		t.Error("additive pass should blend without depth writes")
	}
	if pools.Pass.GetHandle(h, pool.PassDescriptorSet).Type() != pool.TypeDescriptorSet {
		t.Error("descriptor set handle not stored")
	}
	if p.Hash() == 0 {
		t.Error("hash should be computed")
	}
}

func TestPassHash(t *testing.T) {
	pools := pool.NewPools(gfxtest.NewDevice())
	a := newTestPass(t, pools)
	b := newTestPass(t, pools, WithPriority(9))
	c := newTestPass(t, pools, WithAlphaBlend())
	d := newTestPass(t, pools, WithDefines(shader.Define{Name: DefineInstancing, Value: "1"}))

	if a.Hash() != b.Hash() {
		t.Error("priority must not change the pipeline hash")
	}
	if a.Hash() == c.Hash() {
		t.Error("blend state must change the pipeline hash")
	}
	if a.Hash() == d.Hash() {
		t.Error("defines must change the pipeline hash")
	}
}

func TestPassParams(t *testing.T) {
	device := gfxtest.NewDevice()
	pools := pool.NewPools(device)
	p := newTestPass(t, pools, WithTint([4]float32{1, 0, 0, 1}))

	ds := p.DescriptorSet().(*gfxtest.DescriptorSet)
	buf, ok := ds.Committed(0).(*gfxtest.Buffer)
	if !ok || buf.Size() != 16 {
		t.Fatalf("params buffer not bound at binding 0: %v", ds.Committed(0))
	}

	cmd := device.Recorder()
	p.Upload(cmd)
	p.Upload(cmd)
	if len(cmd.Uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(cmd.Uploads))
	}
	params := p.Params()
	if string(buf.Data) != string(params.Marshal()) {
		t.Error("uploaded bytes differ from params")
	}

	p.SetTint([4]float32{0, 1, 0, 1})
	p.Upload(cmd)
	if len(cmd.Uploads) != 2 {
		t.Errorf("uploads = %d, want 2 after SetTint", len(cmd.Uploads))
	}
}

func TestGetShaderVariant(t *testing.T) {
	device := gfxtest.NewDevice()
	pools := pool.NewPools(device)
	p := newTestPass(t, pools)
	if device.ShadersCreated != 1 {
		t.Fatalf("shaders created = %d, want 1", device.ShadersCreated)
	}
	if p.GetShaderVariant(nil) != p.Shader() {
		t.Error("empty patch list should return the default variant")
	}

	spot := []MacroPatch{{Name: DefineForwardAdd, Value: "1"}, {Name: DefineSpotLight, Value: "1"}}
	a := p.GetShaderVariant(spot)
	b := p.GetShaderVariant([]MacroPatch{spot[1], spot[0]})
	if a == nil || a != b {
		t.Fatal("variant should be created once and cached")
	}
	if a == p.Shader() || device.ShadersCreated != 2 {
		t.Errorf("shaders created = %d, want 2", device.ShadersCreated)
	}

	info := a.(*gfxtest.Shader).Info()
	if len(info.Stages) != 2 || info.Stages[1].EntryPoint != "fs_main" {
		t.Errorf("variant stages = %+v", info.Stages)
	}
}

func TestMergeDefines(t *testing.T) {
	base := []shader.Define{{Name: "A", Value: "1"}, {Name: "B", Value: "1"}}
	got := mergeDefines(base, []MacroPatch{{Name: "B", Value: "0"}, {Name: "C", Value: "1"}})
	want := []shader.Define{{Name: "A", Value: "1"}, {Name: "B", Value: "0"}, {Name: "C", Value: "1"}}
	if len(got) != len(want) {
		t.Fatalf("mergeDefines() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mergeDefines()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if base[1].Value != "1" {
		t.Error("base defines must not be modified")
	}
}

func TestPassDestroy(t *testing.T) {
	pools := pool.NewPools(gfxtest.NewDevice())
	p := newTestPass(t, pools)
	p.GetShaderVariant([]MacroPatch{{Name: DefineBatching, Value: "1"}})
	ds := p.DescriptorSet().(*gfxtest.DescriptorSet)

	p.Destroy()
	if pools.Pass.Len() != 0 || pools.Shader.Len() != 0 || pools.DescriptorSet.Len() != 0 ||
		pools.PipelineLayout.Len() != 0 || pools.Buffer.Len() != 0 || pools.DescriptorSetLayout.Len() != 0 {
		t.Error("destroy should release every pool entry")
	}
	if !ds.Destroyed {
		t.Error("descriptor set should be destroyed")
	}
}

func TestNewPassErrors(t *testing.T) {
	pools := pool.NewPools(gfxtest.NewDevice())
	if _, err := NewPass(pools, SharedLayouts{}, nil); !errors.Is(err, ErrNoProgram) {
		t.Errorf("NewPass(nil) error = %v", err)
	}

	broken := shader.NewProgram("broken", "@vertex fn vs() {}")
	if _, err := NewPass(pools, SharedLayouts{}, broken); !errors.Is(err, shader.ErrMissingEntryPoint) {
		t.Errorf("NewPass(broken) error = %v", err)
	}

	device := gfxtest.NewDevice()
	device.FailBuffers = true
	failing := pool.NewPools(device)
	if _, err := NewPass(failing, SharedLayouts{}, NewStandardProgram()); !errors.Is(err, gfxtest.ErrInjected) {
		t.Errorf("NewPass() with failing buffers error = %v", err)
	}
	if failing.DescriptorSet.Len() != 0 || failing.DescriptorSetLayout.Len() != 0 {
		t.Error("failed construction should release partial allocations")
	}
}
