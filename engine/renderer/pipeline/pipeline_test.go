package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx/gfxtest"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/gogpu/gputypes"
)

// fixedRenderPass and fixedInputAssembler override the hashes the cache keys on.
type fixedRenderPass struct {
	gfx.RenderPass
	hash uint32
}

func (r fixedRenderPass) Hash() uint32 { return r.hash }

type fixedInputAssembler struct {
	gfx.InputAssembler
	hash uint32
}

func (ia fixedInputAssembler) AttributesHash() uint32 { return ia.hash }

type fixture struct {
	dev  *gfxtest.Device
	pass material.Pass
	rp   gfx.RenderPass
	ia   gfx.InputAssembler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dev: gfxtest.NewDevice()}
	pools := pool.NewPools(f.dev)
	var err error
	if f.pass, err = material.NewPass(pools, material.SharedLayouts{}, material.NewStandardProgram()); err != nil {
		t.Fatal(err)
	}
	if f.rp, err = f.dev.CreateRenderPass(gfx.RenderPassInfo{
		ColorFormats:       []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm},
		DepthStencilFormat: gputypes.TextureFormatDepth24Plus,
	}); err != nil {
		t.Fatal(err)
	}
	vb, _ := f.dev.CreateBuffer(gfx.BufferInfo{Size: 72, Stride: 24})
	f.ia, _ = f.dev.CreateInputAssembler(gfx.InputAssemblerInfo{
		Attributes:    model.VertexAttributes(0),
		VertexBuffers: []gfx.Buffer{vb},
	})
	return f
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	c := NewCache()
	a := c.GetOrCreate(f.dev, f.pass, f.pass.Shader(), f.rp, f.ia)
	b := c.GetOrCreate(f.dev, f.pass, f.pass.Shader(), f.rp, f.ia)
	if a == nil || a != b {
		t.Fatal("second lookup should return the cached object")
	}
	if f.dev.PipelineStatesCreated != 1 {
		t.Errorf("pipeline states created = %d, want 1", f.dev.PipelineStatesCreated)
	}
	if c.Len() != 1 || c.Hits() != 1 || c.Misses() != 1 {
		t.Errorf("len %d hits %d misses %d", c.Len(), c.Hits(), c.Misses())
	}

	info := a.Info()
	if info.PipelineLayout != f.pass.PipelineLayout() || info.Blend.IsTransparent() {
		t.Error("pipeline state should carry the pass state")
	}
	for _, attr := range info.InputState.Attributes {
		if attr.Location == gfx.UnresolvedLocation {
			t.Errorf("attribute %s should resolve against the shader", attr.Name)
		}
	}

	variant := f.pass.GetShaderVariant([]material.MacroPatch{{Name: material.DefineInstancing, Value: "1"}})
	if c.GetOrCreate(f.dev, f.pass, variant, f.rp, f.ia) == a {
		t.Error("a different shader variant needs its own pipeline state")
	}
}

func TestGetOrCreateDisambiguatesBuckets(t *testing.T) {
	f := newFixture(t)
	c := NewCache()
	rp1 := fixedRenderPass{RenderPass: f.rp, hash: 0x0f}
	rp2 := fixedRenderPass{RenderPass: f.rp, hash: 0xf0}
	ia1 := fixedInputAssembler{InputAssembler: f.ia, hash: 0xf0}
	ia2 := fixedInputAssembler{InputAssembler: f.ia, hash: 0x0f}

	a := c.GetOrCreate(f.dev, f.pass, f.pass.Shader(), rp1, ia1)
	b := c.GetOrCreate(f.dev, f.pass, f.pass.Shader(), rp2, ia2)
	if a == nil || b == nil || a == b {
		t.Fatal("keys sharing an XOR hash must map to distinct pipeline states")
	}
	if c.Len() != 2 || f.dev.PipelineStatesCreated != 2 {
		t.Errorf("len = %d, created = %d", c.Len(), f.dev.PipelineStatesCreated)
	}
	if c.GetOrCreate(f.dev, f.pass, f.pass.Shader(), rp2, ia2) != b {
		t.Error("second key should hit its own entry")
	}
}

func TestGetOrCreateNilArguments(t *testing.T) {
	f := newFixture(t)
	c := NewCache()
	if c.GetOrCreate(f.dev, f.pass, nil, f.rp, f.ia) != nil || c.GetOrCreate(nil, f.pass, f.pass.Shader(), f.rp, f.ia) != nil {
		t.Error("missing arguments should return nil")
	}
	if c.Len() != 0 || c.Misses() != 0 {
		t.Error("nothing should be cached")
	}
}

func TestResolveAttributes(t *testing.T) {
	shaderAttrs := []gfx.Attribute{
		{Name: gfx.AttrPosition, Location: 0},
		{Name: gfx.AttrNormal, Location: 1},
		{Name: gfx.AttrNormal, Location: 7},
	}
	iaAttrs := []gfx.Attribute{
		{Name: gfx.AttrNormal, Location: 9},
		{Name: gfx.AttrColor},
		{Name: gfx.AttrPosition, Stream: 1},
	}
	got := ResolveAttributes(shaderAttrs, iaAttrs)
	want := []uint32{1, gfx.UnresolvedLocation, 0}
	for i, a := range got {
		if a.Location != want[i] {
			t.Errorf("%s location = %d, want %d", a.Name, a.Location, want[i])
		}
	}
	if got[2].Stream != 1 || iaAttrs[0].Location != 9 {
		t.Error("resolution should copy the input attributes")
	}
}

func TestCacheDestroy(t *testing.T) {
	f := newFixture(t)
	c := NewCache(WithInitialCapacity(4))
	pso := c.GetOrCreate(f.dev, f.pass, f.pass.Shader(), f.rp, f.ia).(*gfxtest.PipelineState)
	c.Destroy()
	if !pso.Destroyed || c.Len() != 0 {
		t.Error("Destroy should release every pipeline state")
	}
}
