package queue

import (
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/culling"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx/gfxtest"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

type fixture struct {
	dev         *gfxtest.Device
	rp          gfx.RenderPass
	opaque      material.Pass
	transparent material.Pass
	additive    material.Pass
	objects     []culling.RenderObject
}

// newFixture builds three models at depths 50, 5 and 10, each with an opaque, a transparent and
// a forward-add pass.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dev: gfxtest.NewDevice()}
	pools := pool.NewPools(f.dev, pool.WithMirror(true))
	layout, err := f.dev.CreateDescriptorSetLayout(model.LocalSetLayoutInfo())
	if err != nil {
		t.Fatal(err)
	}
	shared := material.SharedLayouts{Local: layout}
	newPass := func(options ...material.PassBuilderOption) material.Pass {
		p, err := material.NewPass(pools, shared, material.NewStandardProgram(), options...)
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	f.opaque = newPass()
	f.transparent = newPass(material.WithAlphaBlend())
	f.additive = newPass(material.WithPhase(material.PhaseForwardAdd), material.WithAdditiveBlend())

	vertices, indices := model.BoxVertices(mgl32.Vec3{1, 1, 1})
	mesh, err := model.NewMesh(pools, model.WithVertices(vertices), model.WithIndices(indices))
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []float32{50, 5, 10} {
		m, err := model.NewModel(pools, layout, model.WithSubMesh(mesh, f.opaque, f.transparent, f.additive))
		if err != nil {
			t.Fatal(err)
		}
		f.objects = append(f.objects, culling.RenderObject{Model: m, Depth: d})
	}
	if f.rp, err = f.dev.CreateRenderPass(gfx.RenderPassInfo{
		ColorFormats:       []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm},
		DepthStencilFormat: gputypes.TextureFormatDepth24Plus,
	}); err != nil {
		t.Fatal(err)
	}
	return f
}

// fill offers every pass of every object to the queue, the way the renderer does.
func (f *fixture) fill(q RenderQueue) int {
	var n int
	for _, ro := range f.objects {
		for smIdx, sm := range ro.Model.SubModels() {
			for passIdx := range sm.Passes() {
				if q.InsertRenderPass(ro, smIdx, passIdx) {
					n++
				}
			}
		}
	}
	return n
}

func entryDepths(q RenderQueue) []float32 {
	var out []float32
	for _, e := range q.Entries() {
		out = append(out, e.Depth)
	}
	return out
}

func TestQueueOrdering(t *testing.T) {
	f := newFixture(t)
	cache := pipeline.NewCache()

	tests := []struct {
		name string
		desc Desc
		want []float32
	}{
		{"opaque front to back", Desc{Phases: material.PhaseDefault}, []float32{5, 10, 50}},
		{"transparent back to front", Desc{IsTransparent: true, Phases: material.PhaseDefault}, []float32{50, 10, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewRenderQueue(cache, tt.desc)
			if n := f.fill(q); n != 3 {
				t.Fatalf("inserted %d passes, want 3", n)
			}
			q.Sort()
			if got := entryDepths(q); !slices.Equal(got, tt.want) {
				t.Errorf("depths = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueueFilters(t *testing.T) {
	f := newFixture(t)
	cache := pipeline.NewCache()
	ro := f.objects[0]

	tests := []struct {
		name    string
		desc    Desc
		passIdx int
		want    bool
	}{
		{"opaque pass in opaque queue", Desc{Phases: material.PhaseDefault}, 0, true},
		{"transparent pass in opaque queue", Desc{Phases: material.PhaseDefault}, 1, false},
		{"transparent pass in transparent queue", Desc{IsTransparent: true, Phases: material.PhaseDefault}, 1, true},
		{"forward-add pass outside phase mask", Desc{IsTransparent: true, Phases: material.PhaseDefault}, 2, false},
		{"forward-add pass inside phase mask", Desc{IsTransparent: true, Phases: material.PhaseForwardAdd}, 2, true},
		{"pass index out of range", Desc{Phases: material.PhaseDefault}, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewRenderQueue(cache, tt.desc)
			if got := q.InsertRenderPass(ro, 0, tt.passIdx); got != tt.want {
				t.Errorf("InsertRenderPass() = %v, want %v", got, tt.want)
			}
		})
	}
	q := NewRenderQueue(cache, Desc{Phases: material.PhaseDefault})
	if q.InsertRenderPass(ro, 3, 0) {
		t.Error("sub-model index out of range should be rejected")
	}
}

func TestSortHashAndTies(t *testing.T) {
	if got := SortHash(2, 3, 1); got != 2<<16|3<<8|1 {
		t.Errorf("SortHash() = %#x", got)
	}

	a := &RenderPass{Hash: 1, Depth: 5, ShaderID: 2}
	b := &RenderPass{Hash: 1, Depth: 5, ShaderID: 1}
	if OpaqueCompare(a, b) <= 0 || TransparentCompare(a, b) <= 0 {
		t.Error("equal hash and depth should order by shader id")
	}
	c := &RenderPass{Hash: 0, Depth: 100}
	if OpaqueCompare(c, a) >= 0 || TransparentCompare(c, a) >= 0 {
		t.Error("hash should dominate depth")
	}

	entries := []RenderPass{{Hash: 1, PassIdx: 0}, {Hash: 1, PassIdx: 1}, {Hash: 0, PassIdx: 2}}
	q := &renderQueue{desc: Desc{SortFunc: OpaqueCompare}, entries: entries}
	q.Sort()
	var order []int
	for _, e := range q.Entries() {
		order = append(order, e.PassIdx)
	}
	if !slices.Equal(order, []int{2, 0, 1}) {
		t.Errorf("stable order = %v, want [2 0 1]", order)
	}
}

func TestRecordCommandBuffer(t *testing.T) {
	f := newFixture(t)
	cache := pipeline.NewCache()
	q := NewRenderQueue(cache, Desc{Phases: material.PhaseDefault})
	f.fill(q)
	q.Sort()

	cmd := f.dev.Recorder()
	_ = cmd.Begin()
	q.RecordCommandBuffer(f.dev, f.rp, cmd)

	if cmd.NumDrawCalls() != 3 {
		t.Fatalf("draw calls = %d, want 3", cmd.NumDrawCalls())
	}
	if cache.Len() != 1 || f.dev.PipelineStatesCreated != 1 {
		t.Errorf("pipeline states = %d, cache len %d; identical passes should share one", f.dev.PipelineStatesCreated, cache.Len())
	}
	for i, d := range cmd.Draws {
		e := q.Entries()[i]
		if d.IA != e.SubModel.InputAssembler() || d.IndexCount != 36 {
			t.Errorf("draw %d bound the wrong input assembler", i)
		}
		if d.Sets[gfx.SetIndexMaterial].Set != f.opaque.DescriptorSet() {
			t.Errorf("draw %d material set not bound", i)
		}
		if d.Sets[gfx.SetIndexLocal].Set != e.SubModel.DescriptorSet() {
			t.Errorf("draw %d local set not bound", i)
		}
	}

	q.Clear()
	if q.Len() != 0 {
		t.Errorf("Len() after Clear = %d", q.Len())
	}
}
