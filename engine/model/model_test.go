package model

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx/gfxtest"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

type fixture struct {
	dev    *gfxtest.Device
	pools  *pool.Pools
	layout gfx.DescriptorSetLayout
	pass   material.Pass
	mesh   Mesh
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dev: gfxtest.NewDevice()}
	f.pools = pool.NewPools(f.dev, pool.WithMirror(true))
	var err error
	if f.layout, err = f.dev.CreateDescriptorSetLayout(LocalSetLayoutInfo()); err != nil {
		t.Fatal(err)
	}
	f.pass, err = material.NewPass(f.pools, material.SharedLayouts{Local: f.layout}, material.NewStandardProgram())
	if err != nil {
		t.Fatalf("NewPass() error = %v", err)
	}
	vertices, indices := BoxVertices(mgl32.Vec3{1, 1, 1})
	if f.mesh, err = NewMesh(f.pools, WithMeshName("box"), WithVertices(vertices), WithIndices(indices)); err != nil {
		t.Fatalf("NewMesh() error = %v", err)
	}
	return f
}

func (f *fixture) model(t *testing.T, options ...ModelBuilderOption) Model {
	t.Helper()
	m, err := NewModel(f.pools, f.layout, append([]ModelBuilderOption{WithSubMesh(f.mesh, f.pass)}, options...)...)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	return m
}

func TestNewModel(t *testing.T) {
	f := newFixture(t)
	m := f.model(t, WithName("cube"), WithShadows(true, false), WithVisFlags(4), WithPriority(2))
	if m.Name() != "cube" || len(m.SubModels()) != 1 {
		t.Fatalf("name %q, %d sub-models", m.Name(), len(m.SubModels()))
	}
	if !m.Enabled() || !m.CastShadow() || m.ReceiveShadow() || m.VisFlags() != 4 || m.Priority() != 2 {
		t.Error("model flags not stored")
	}

	mp := f.pools.Model
	if mp.GetHandle(m.Handle(), pool.ModelNode) != m.Node().Handle() {
		t.Error("node handle should be stored in the pool")
	}
	arr := mp.GetHandle(m.Handle(), pool.ModelSubModelArray)
	if f.pools.SubModelArray.Length(arr) != 1 {
		t.Errorf("sub-model array length = %d", f.pools.SubModelArray.Length(arr))
	}

	sm := m.SubModels()[0]
	sp := f.pools.SubModel
	if sp.GetUint32(sm.Handle(), pool.SubModelPassCount) != 1 {
		t.Error("pass count should be stored")
	}
	if sp.GetHandle(sm.Handle(), pool.SubModelPass0) != f.pass.Handle() {
		t.Error("pass handle should be stored")
	}
	if sm.Shader(0) != f.pass.Shader() || sm.Shader(1) != nil {
		t.Error("sub-model shader should be the pass default variant")
	}
	ds := sm.DescriptorSet().(*gfxtest.DescriptorSet)
	if ds.Committed(LocalBinding) != m.LocalBuffer() {
		t.Error("local buffer should be bound at the local binding")
	}
	if sm.InputAssembler().VertexCount() != 24 || sm.InputAssembler().IndexCount() != 36 {
		t.Errorf("ia counts = %d, %d", sm.InputAssembler().VertexCount(), sm.InputAssembler().IndexCount())
	}

	sm.SetPatches([]material.MacroPatch{{Name: material.DefineBatching, Value: "1"}})
	if sm.Shader(0) == f.pass.Shader() || sm.Shader(0) == nil {
		t.Error("patched sub-model should use a different variant")
	}
	sm.SetPriority(0x1ff)
	if sm.Priority() != 0xff {
		t.Errorf("priority = %x, want masked to 0xff", sm.Priority())
	}
}

func TestModelUpdateTransform(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	cmd := f.dev.Recorder()

	m.UpdateUBOs(cmd)
	if len(cmd.Uploads) != 3 {
		t.Fatalf("first UpdateUBOs uploads = %d, want vertex, index and local", len(cmd.Uploads))
	}

	m.Node().ResetChangedFlags()
	m.UpdateTransform()
	m.UpdateUBOs(cmd)
	if len(cmd.Uploads) != 3 {
		t.Errorf("unchanged model should not upload, got %d uploads", len(cmd.Uploads))
	}

	m.Node().SetPosition(mgl32.Vec3{5, 0, 0})
	m.UpdateTransform()
	b := m.WorldBounds()
	if b.Center != (mgl32.Vec3{5, 0, 0}) || b.HalfExtents != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("world bounds = %+v", b)
	}
	h := f.pools.Model.GetHandle(m.Handle(), pool.ModelWorldBounds)
	if f.pools.AABB.GetVec3(h, pool.AABBCenter) != b.Center {
		t.Error("world bounds should be mirrored into the AABB pool")
	}

	m.UpdateUBOs(cmd)
	if len(cmd.Uploads) != 4 {
		t.Fatalf("moved model uploads = %d, want 4", len(cmd.Uploads))
	}
	data := m.LocalBuffer().(*gfxtest.Buffer).Data
	if tx := math.Float32frombits(binary.LittleEndian.Uint32(data[48:])); tx != 5 {
		t.Errorf("matWorld translation x = %v, want 5", tx)
	}
}

func TestInstancedAttributes(t *testing.T) {
	f := newFixture(t)
	m := f.model(t, WithInstancedAttribute(
		gfx.Attribute{Name: "a_tint", Format: gputypes.VertexFormatFloat32x4}, 1, 0.5, 0, 1,
	))
	m.Node().SetPosition(mgl32.Vec3{1, 2, 3})
	m.UpdateTransform()

	block := m.InstancedAttributes()
	if block.Stride() != 64 || len(block.Attributes) != 4 {
		t.Fatalf("stride %d with %d attributes", block.Stride(), len(block.Attributes))
	}
	for _, a := range block.Attributes {
		if !a.IsInstanced {
			t.Errorf("attribute %s should be instanced", a.Name)
		}
	}
	rows := [][]float32{
		block.Floats(gfx.AttrMatWorld0),
		block.Floats(gfx.AttrMatWorld1),
		block.Floats(gfx.AttrMatWorld2),
	}
	want := [][]float32{{1, 0, 0, 1}, {0, 1, 0, 2}, {0, 0, 1, 3}}
	for r := range rows {
		for c := range 4 {
			if rows[r][c] != want[r][c] {
				t.Errorf("row %d = %v, want %v", r, rows[r], want[r])
				break
			}
		}
	}
	if tint := block.Floats("a_tint"); tint[1] != 0.5 {
		t.Errorf("tint = %v", tint)
	}
	if block.SetFloats("a_missing", 1) {
		t.Error("unknown attribute should not be written")
	}
}

func TestMeshFlatBuffers(t *testing.T) {
	f := newFixture(t)
	if f.mesh.VertexCount() != 24 || f.mesh.IndexCount() != 36 {
		t.Fatalf("counts = %d, %d", f.mesh.VertexCount(), f.mesh.IndexCount())
	}
	if f.mesh.Bounds().HalfExtents != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("bounds = %+v", f.mesh.Bounds())
	}
	flat := f.mesh.FlatBuffers()
	if len(flat) != 1 || flat[0].Count != 36 || flat[0].Stride != 24 || len(flat[0].Data) != 36*24 {
		t.Fatalf("flat buffers = %d streams, count %d", len(flat), flat[0].Count)
	}
	vertices, indices := BoxVertices(mgl32.Vec3{1, 1, 1})
	want := vertices[indices[2]].Marshal()
	got := flat[0].Data[2*24 : 3*24]
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("flat vertex 2 differs at byte %d", i)
		}
	}

	plain, err := NewMesh(f.pools, WithStream(make([]byte, 48), 24, VertexAttributes(0)...))
	if err != nil {
		t.Fatal(err)
	}
	if plain.IndexBuffer() != nil || plain.FlatBuffers()[0].Count != 2 {
		t.Error("non-indexed mesh should flatten to its own stream")
	}
}

func TestNewMeshAndModelErrors(t *testing.T) {
	f := newFixture(t)
	if _, err := NewMesh(f.pools); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("empty mesh error = %v", err)
	}
	if _, err := NewModel(f.pools, nil); !errors.Is(err, ErrNoLocalLayout) {
		t.Errorf("missing layout error = %v", err)
	}

	passes := make([]material.Pass, pool.MaxPassesPerSubModel+1)
	for i := range passes {
		passes[i] = f.pass
	}
	before := f.pools.Model.Len()
	if _, err := NewModel(f.pools, f.layout, WithSubMesh(f.mesh, passes...)); !errors.Is(err, ErrTooManyPasses) {
		t.Errorf("too many passes error = %v", err)
	}
	if f.pools.Model.Len() != before {
		t.Error("failed model should release its pool entry")
	}

	f.dev.FailBuffers = true
	vertices, _ := BoxVertices(mgl32.Vec3{1, 1, 1})
	if _, err := NewMesh(f.pools, WithVertices(vertices)); !errors.Is(err, gfxtest.ErrInjected) {
		t.Errorf("buffer failure error = %v", err)
	}
	if _, err := NewModel(f.pools, f.layout); !errors.Is(err, gfxtest.ErrInjected) {
		t.Errorf("local buffer failure error = %v", err)
	}
}

func TestLocalSetLayout(t *testing.T) {
	info := LocalSetLayoutInfo()
	if len(info.Bindings) != 3 {
		t.Fatalf("bindings = %d", len(info.Bindings))
	}
	tests := []struct {
		binding uint32
		size    uint64
		dynamic bool
	}{
		{LocalBinding, LocalSize, false},
		{light.ForwardLightBinding, light.ForwardLightSize, true},
		{LocalBatchedBinding, LocalBatchedSize, false},
	}
	for i, tt := range tests {
		b := info.Bindings[i]
		if b.Binding != tt.binding || b.Buffer.MinBindingSize != tt.size || b.Buffer.HasDynamicOffset != tt.dynamic {
			t.Errorf("binding %d = %+v", i, *b.Buffer)
		}
	}
	local := NewGPULocal(mgl32.Translate3D(1, 2, 3))
	if local.Size() != LocalSize || len(local.Marshal()) != LocalSize {
		t.Errorf("local uniform size = %d", local.Size())
	}
}

func TestModelDestroy(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	ia := m.SubModels()[0].InputAssembler().(*gfxtest.InputAssembler)
	buffers := f.pools.Buffer.Len()

	m.Destroy()
	m.Destroy()
	if f.pools.Model.Len() != 0 || f.pools.SubModel.Len() != 0 || f.pools.Node.Len() != 0 || f.pools.AABB.Len() != 0 {
		t.Error("destroy should free every entity entry")
	}
	if !ia.Destroyed || f.pools.Buffer.Len() != buffers-1 {
		t.Error("destroy should free the input assembler and the local buffer only")
	}
	if f.mesh.VertexBuffers()[0] == nil {
		t.Error("mesh buffers belong to the mesh")
	}
}
