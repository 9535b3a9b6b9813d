package batching

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx/gfxtest"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

type fixture struct {
	dev       *gfxtest.Device
	pools     *pool.Pools
	layout    gfx.DescriptorSetLayout
	instanced material.Pass
	batched   material.Pass
	box       model.Mesh
	rp        gfx.RenderPass
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dev: gfxtest.NewDevice()}
	f.pools = pool.NewPools(f.dev, pool.WithMirror(true))
	var err error
	if f.layout, err = f.dev.CreateDescriptorSetLayout(model.LocalSetLayoutInfo()); err != nil {
		t.Fatal(err)
	}
	shared := material.SharedLayouts{Local: f.layout}
	if f.instanced, err = material.NewPass(f.pools, shared, material.NewStandardProgram(),
		material.WithBatchingScheme(material.BatchingInstancing),
		material.WithDefines(material.MacroPatch{Name: material.DefineInstancing, Value: "1"}),
	); err != nil {
		t.Fatal(err)
	}
	if f.batched, err = material.NewPass(f.pools, shared, material.NewStandardProgram(),
		material.WithBatchingScheme(material.BatchingVBMerging),
		material.WithDefines(material.MacroPatch{Name: material.DefineBatching, Value: "1"}),
	); err != nil {
		t.Fatal(err)
	}
	vertices, indices := model.BoxVertices(mgl32.Vec3{1, 1, 1})
	if f.box, err = model.NewMesh(f.pools, model.WithVertices(vertices), model.WithIndices(indices)); err != nil {
		t.Fatal(err)
	}
	if f.rp, err = f.dev.CreateRenderPass(gfx.RenderPassInfo{
		ColorFormats:       []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm},
		DepthStencilFormat: gputypes.TextureFormatDepth24Plus,
	}); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) model(t *testing.T, mesh model.Mesh, pass material.Pass, pos mgl32.Vec3, options ...model.ModelBuilderOption) model.Model {
	t.Helper()
	n := node.NewNode(f.pools, node.WithPosition(pos))
	opts := append([]model.ModelBuilderOption{model.WithNode(n), model.WithSubMesh(mesh, pass)}, options...)
	m, err := model.NewModel(f.pools, f.layout, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func floatAt(b []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
}

func TestInstancedSaturation(t *testing.T) {
	f := newFixture(t)
	m := f.model(t, f.box, f.instanced, mgl32.Vec3{1, 2, 3})
	sm := m.SubModels()[0]
	buf := NewInstancedBuffer(f.pools, f.instanced)

	for i := range 1500 {
		if !buf.Merge(sm, m.InstancedAttributes(), 0, nil) {
			t.Fatalf("merge %d failed", i)
		}
	}
	insts := buf.Instances()
	if len(insts) != 2 {
		t.Fatalf("instances = %d, want 2", len(insts))
	}
	if insts[0].Count != MaxInstances || insts[1].Count != 476 {
		t.Errorf("counts = %d, %d, want 1024, 476", insts[0].Count, insts[1].Count)
	}
	if insts[0].Capacity != MaxInstances || insts[1].Capacity != 512 {
		t.Errorf("capacities = %d, %d", insts[0].Capacity, insts[1].Capacity)
	}
	if got := insts[0].Buffer().(*gfxtest.Buffer).Resizes; got != 5 {
		t.Errorf("first instance resizes = %d, want 5", got)
	}

	cmd := f.dev.Recorder()
	_ = cmd.Begin()
	buf.UploadBuffers(cmd)
	if insts[0].InputAssembler().InstanceCount() != 1024 || insts[1].InputAssembler().InstanceCount() != 476 {
		t.Error("upload should set the instance counts")
	}
	stride := int(m.InstancedAttributes().Stride())
	data := insts[1].Buffer().(*gfxtest.Buffer).Data
	if !bytes.Equal(data[475*stride:476*stride], m.InstancedAttributes().Data) {
		t.Error("last instance bytes should match the model's attribute block")
	}
	if floatAt(data, 3) != 1 || floatAt(data, 7) != 2 || floatAt(data, 11) != 3 {
		t.Error("instance stream should carry the world translation in the row w components")
	}

	buf.Clear()
	if buf.HasPendingModels() || insts[0].Count != 0 || insts[0].InputAssembler().InstanceCount() != 0 {
		t.Error("clear should reset counts")
	}
	if len(buf.Instances()) != 2 || insts[0].Capacity != MaxInstances {
		t.Error("clear should keep buffers")
	}
}

func TestInstancedInputAssembler(t *testing.T) {
	f := newFixture(t)
	m := f.model(t, f.box, f.instanced, mgl32.Vec3{})
	buf := NewInstancedBuffer(f.pools, f.instanced)
	if !buf.Merge(m.SubModels()[0], m.InstancedAttributes(), 0, nil) {
		t.Fatal("merge failed")
	}
	ia := buf.Instances()[0].InputAssembler()
	src := m.SubModels()[0].InputAssembler()
	if len(ia.VertexBuffers()) != 2 || ia.IndexBuffer() != src.IndexBuffer() {
		t.Fatal("instanced input assembler should add one stream to the source geometry")
	}
	if ia.VertexCount() != 24 || ia.IndexCount() != 36 {
		t.Errorf("counts = %d, %d", ia.VertexCount(), ia.IndexCount())
	}
	attrs := ia.Attributes()
	if len(attrs) != 5 {
		t.Fatalf("attributes = %d, want 5", len(attrs))
	}
	for _, a := range attrs[2:] {
		if !a.IsInstanced || a.Stream != 1 {
			t.Errorf("attribute %s should be instanced on stream 1", a.Name)
		}
	}
}

func TestInstancedFallbacks(t *testing.T) {
	f := newFixture(t)
	a := f.model(t, f.box, f.instanced, mgl32.Vec3{})
	tinted := f.model(t, f.box, f.instanced, mgl32.Vec3{},
		model.WithInstancedAttribute(gfx.Attribute{Name: "a_tint", Format: gputypes.VertexFormatFloat32x4}, 1, 0, 0, 1))

	vertices, indices := model.BoxVertices(mgl32.Vec3{2, 2, 2})
	other, err := model.NewMesh(f.pools, model.WithVertices(vertices), model.WithIndices(indices))
	if err != nil {
		t.Fatal(err)
	}
	b := f.model(t, other, f.instanced, mgl32.Vec3{})

	buf := NewInstancedBuffer(f.pools, f.instanced)
	if !buf.Merge(a.SubModels()[0], a.InstancedAttributes(), 0, nil) {
		t.Fatal("first merge failed")
	}
	if buf.Merge(tinted.SubModels()[0], tinted.InstancedAttributes(), 0, nil) {
		t.Error("a stride mismatch on shared geometry should fall back")
	}
	if !buf.Merge(b.SubModels()[0], b.InstancedAttributes(), 0, nil) || len(buf.Instances()) != 2 {
		t.Error("different geometry should get its own instance")
	}
	if buf.Merge(a.SubModels()[0], nil, 0, nil) {
		t.Error("missing attributes should fall back")
	}

	f.dev.FailBuffers = true
	fresh := NewInstancedBuffer(f.pools, f.instanced)
	if fresh.Merge(a.SubModels()[0], a.InstancedAttributes(), 0, nil) {
		t.Error("buffer creation failure should fall back")
	}
}

func TestBatchedGrowth(t *testing.T) {
	f := newFixture(t)
	a := f.model(t, f.box, f.batched, mgl32.Vec3{1, 0, 0})
	b := f.model(t, f.box, f.batched, mgl32.Vec3{0, 5, 0})
	buf := NewBatchedBuffer(f.pools, f.batched)

	if !buf.Merge(a.SubModels()[0], 0, a, nil) {
		t.Fatal("first merge failed")
	}
	batch := buf.Batches()[0]
	vb := batch.VertexBuffer(0).(*gfxtest.Buffer)
	ds := batch.DescriptorSet().(*gfxtest.DescriptorSet)
	if ds.Committed(model.LocalBatchedBinding) != batch.UBO() {
		t.Error("first merge should bind the batch uniform")
	}
	first := append([]byte(nil), batch.VertexData[0]...)

	if !buf.Merge(b.SubModels()[0], 0, b, nil) {
		t.Fatal("second merge failed")
	}
	if len(buf.Batches()) != 1 || batch.MergeCount != 2 || batch.VertexCount != 72 {
		t.Fatalf("batches %d, merges %d, vertices %d", len(buf.Batches()), batch.MergeCount, batch.VertexCount)
	}
	if vb.Resizes != 1 || vb.Size() != 72*24 {
		t.Errorf("resizes %d, size %d; want one resize to 1728 bytes", vb.Resizes, vb.Size())
	}
	if !bytes.Equal(batch.VertexData[0][:len(first)], first) {
		t.Error("growth should preserve merged bytes")
	}
	if floatAt(batch.IDData, 35) != 0 || floatAt(batch.IDData, 36) != 1 || floatAt(batch.IDData, 71) != 1 {
		t.Error("batch ids should index the merged draw")
	}
	if floatAt(batch.UBOData, 16+13) != 5 {
		t.Errorf("second world matrix translation y = %v, want 5", floatAt(batch.UBOData, 16+13))
	}
	if batch.InputAssembler().VertexCount() != 72 {
		t.Errorf("ia vertex count = %d", batch.InputAssembler().VertexCount())
	}
	attrs := batch.InputAssembler().Attributes()
	last := attrs[len(attrs)-1]
	if last.Name != gfx.AttrBatchID || last.Format != gputypes.VertexFormatFloat32 || last.Stream != 1 {
		t.Errorf("batch id attribute = %+v", last)
	}

	cmd := f.dev.Recorder()
	_ = cmd.Begin()
	buf.UploadBuffers(cmd)
	if !bytes.Equal(vb.Data, batch.VertexData[0]) {
		t.Error("upload should write the merged streams")
	}

	buf.Clear()
	if batch.MergeCount != 0 || batch.VertexCount != 0 || batch.InputAssembler().VertexCount() != 0 {
		t.Error("clear should reset the batch")
	}
}

func TestBatchedCap(t *testing.T) {
	f := newFixture(t)
	m := f.model(t, f.box, f.batched, mgl32.Vec3{})
	buf := NewBatchedBuffer(f.pools, f.batched)
	for range model.BatchingCount + 1 {
		if !buf.Merge(m.SubModels()[0], 0, m, nil) {
			t.Fatal("merge failed")
		}
	}
	batches := buf.Batches()
	if len(batches) != 2 || batches[0].MergeCount != model.BatchingCount || batches[1].MergeCount != 1 {
		t.Errorf("batches = %d", len(batches))
	}
	if buf.Merge(nil, 0, m, nil) {
		t.Error("nil sub-model should fall back")
	}
}

func TestQueuesRecord(t *testing.T) {
	f := newFixture(t)
	cache := pipeline.NewCache()
	bc := NewCache(f.pools)
	iq := NewInstancedQueue(cache)
	bq := NewBatchedQueue(cache)

	for i := range 3 {
		m := f.model(t, f.box, f.instanced, mgl32.Vec3{float32(i), 0, 0})
		buf := bc.Instanced(f.instanced, 0)
		buf.SetDynamicOffsets(256)
		if !buf.Merge(m.SubModels()[0], m.InstancedAttributes(), 0, nil) {
			t.Fatal("instanced merge failed")
		}
		iq.Add(buf)

		mb := f.model(t, f.box, f.batched, mgl32.Vec3{float32(i), 0, 0})
		bb := bc.Batched(f.batched, 0)
		if !bb.Merge(mb.SubModels()[0], 0, mb, nil) {
			t.Fatal("batched merge failed")
		}
		bq.Add(bb)
	}
	if len(iq.Buffers()) != 1 || len(bq.Buffers()) != 1 {
		t.Fatal("queues should hold each buffer once")
	}

	cmd := f.dev.Recorder()
	_ = cmd.Begin()
	iq.UploadBuffers(cmd)
	bq.UploadBuffers(cmd)
	iq.RecordCommandBuffer(f.dev, f.rp, cmd)
	bq.RecordCommandBuffer(f.dev, f.rp, cmd)

	if cmd.NumDrawCalls() != 2 {
		t.Fatalf("draw calls = %d, want 2", cmd.NumDrawCalls())
	}
	inst := cmd.Draws[0]
	if inst.InstanceCount != 3 || inst.IndexCount != 36 {
		t.Errorf("instanced draw = %d instances, %d indices", inst.InstanceCount, inst.IndexCount)
	}
	if offs := inst.Sets[gfx.SetIndexLocal].Offsets; len(offs) != 1 || offs[0] != 256 {
		t.Errorf("dynamic offsets = %v", offs)
	}
	if merged := cmd.Draws[1]; merged.VertexCount != 108 || merged.IndexCount != 0 {
		t.Errorf("merged draw = %d vertices, %d indices", merged.VertexCount, merged.IndexCount)
	}
	for i, d := range cmd.Draws {
		for _, a := range d.Pipeline.Info().InputState.Attributes {
			if a.Location == gfx.UnresolvedLocation {
				t.Errorf("draw %d: attribute %s unresolved", i, a.Name)
			}
		}
	}

	iq.Clear()
	bq.Clear()
	if len(iq.Buffers()) != 0 || bc.Instanced(f.instanced, 0).HasPendingModels() {
		t.Error("queue clear should clear and drop its buffers")
	}
}

func TestCacheKeys(t *testing.T) {
	f := newFixture(t)
	c := NewCache(f.pools)
	a := c.Instanced(f.instanced, 0)
	if c.Instanced(f.instanced, 0) != a || c.Instanced(f.instanced, 1) == a {
		t.Error("buffers should be keyed by pass and extra key")
	}
	c.Batched(f.batched, 0)
	if i, b := c.Len(); i != 2 || b != 1 {
		t.Errorf("len = %d, %d", i, b)
	}

	m := f.model(t, f.box, f.instanced, mgl32.Vec3{})
	if !a.Merge(m.SubModels()[0], m.InstancedAttributes(), 0, nil) {
		t.Fatal("merge failed")
	}
	vb := a.Instances()[0].Buffer().(*gfxtest.Buffer)
	c.Release(f.instanced)
	if i, b := c.Len(); i != 0 || b != 1 {
		t.Errorf("len after release = %d, %d", i, b)
	}
	if !vb.Destroyed {
		t.Error("release should destroy the pass's buffers")
	}
	c.Destroy()
	if i, b := c.Len(); i != 0 || b != 0 {
		t.Error("destroy should empty the cache")
	}
}
