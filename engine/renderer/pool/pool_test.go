package pool

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx/gfxtest"
	"github.com/go-gl/mathgl/mgl32"
)

func TestHandleLayout(t *testing.T) {
	h := newHandle(TypeLight, 0x123456, 7)
	if h.IsNull() {
		t.Fatal("handle with pool flag must not be null")
	}
	if got := h.Index(); got != 0x123456 {
		t.Errorf("Index() = %#x", got)
	}
	if got := h.Type(); got != TypeLight {
		t.Errorf("Type() = %v", got)
	}
	if got := h.Generation(); got != 7 {
		t.Errorf("Generation() = %d", got)
	}
	if got := h.Chunk(8); got != 0x1234 {
		t.Errorf("Chunk(8) = %#x", got)
	}
	if got := h.Entry(0xff); got != 0x56 {
		t.Errorf("Entry(0xff) = %#x", got)
	}
	if newHandle(TypeNone, 0, 0).IsNull() {
		t.Error("pool flag must keep the first handle non-zero")
	}
}

func TestLayoutsCoverViews(t *testing.T) {
	tests := []struct {
		name   string
		layout *Layout
		want   int
	}{
		{"pass", passLayout, int(passViewCount)},
		{"sub-model", subModelLayout, int(subModelViewCount)},
		{"model", modelLayout, int(modelViewCount)},
		{"node", nodeLayout, int(nodeViewCount)},
		{"camera", cameraLayout, int(cameraViewCount)},
		{"aabb", aabbLayout, int(aabbViewCount)},
		{"frustum", frustumLayout, int(frustumViewCount)},
		{"light", lightLayout, int(lightViewCount)},
		{"shadows", shadowsLayout, int(shadowsViewCount)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.layout.Fields(); got != tt.want {
				t.Errorf("Fields() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBufferPoolRoundTrip(t *testing.T) {
	p := NewBufferPool[ShadowsView](TypeShadows, shadowsLayout, WithMirror(true))
	h := p.Alloc()

	p.SetUint32(h, ShadowsType, 42)
	p.SetFloat32(h, ShadowsNear, 0.25)
	p.SetVec3(h, ShadowsNormal, mgl32.Vec3{0, 1, 0})
	p.SetMat4(h, ShadowsMatLight, mgl32.Ident4())

	if got := p.GetUint32(h, ShadowsType); got != 42 {
		t.Errorf("GetUint32() = %d, want 42", got)
	}
	if got := p.GetFloat32(h, ShadowsNear); got != 0.25 {
		t.Errorf("GetFloat32() = %v, want 0.25", got)
	}
	if got := p.GetVec3(h, ShadowsNormal); got != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("GetVec3() = %v", got)
	}
	if got := p.GetMat4(h, ShadowsMatLight); got != mgl32.Ident4() {
		t.Errorf("GetMat4() = %v", got)
	}

	p.Free(h)
	if got := p.GetUint32(h, ShadowsType); got != 0 {
		t.Errorf("GetUint32() after free = %d, want 0", got)
	}
	if got := p.GetFloat32(h, ShadowsNear); got != 0 {
		t.Errorf("GetFloat32() after free = %v, want 0", got)
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
}

func TestBufferPoolMirrorDisabled(t *testing.T) {
	p := NewBufferPool[NodeView](TypeNode, nodeLayout)
	h := p.Alloc()
	p.SetVec3(h, NodeWorldPosition, mgl32.Vec3{1, 2, 3})
	p.SetUint32(h, NodeLayer, 9)
	if got := p.GetVec3(h, NodeWorldPosition); got != (mgl32.Vec3{}) {
		t.Errorf("vector write without mirror stored %v", got)
	}
	if got := p.GetUint32(h, NodeLayer); got != 9 {
		t.Errorf("scalar write must always be stored, got %d", got)
	}
}

func TestBufferPoolHandleField(t *testing.T) {
	p := NewBufferPool[ModelView](TypeModel, modelLayout)
	h := p.Alloc()
	ref := newHandle(TypeNode, 77, 3)
	p.SetHandle(h, ModelNode, ref)
	if got := p.GetHandle(h, ModelNode); got != ref {
		t.Errorf("GetHandle() = %v, want %v", got, ref)
	}
	p.SetBool(h, ModelEnabled, true)
	if !p.GetBool(h, ModelEnabled) {
		t.Error("GetBool() = false")
	}
}

func TestBufferPoolReuse(t *testing.T) {
	p := NewBufferPool[NodeView](TypeNode, nodeLayout, WithChunkSize(4))
	handles := make([]Handle, 10)
	for i := range handles {
		handles[i] = p.Alloc()
		if got := handles[i].Index(); got != uint32(i) {
			t.Fatalf("fresh allocation %d got index %d", i, got)
		}
	}
	if p.Chunks() != 3 {
		t.Fatalf("Chunks() = %d, want 3", p.Chunks())
	}

	p.Free(handles[1])
	p.Free(handles[5])
	p.Free(handles[6])

	want := []uint32{1, 6, 5}
	for i, w := range want {
		h := p.Alloc()
		if got := h.Index(); got != w {
			t.Errorf("reuse %d: index %d, want %d", i, got, w)
		}
		if h == handles[w] {
			t.Errorf("reuse %d: generation was not advanced", i)
		}
	}
	if p.Chunks() != 3 {
		t.Errorf("reuse grew the pool to %d chunks", p.Chunks())
	}

	for p.Len() < 12 {
		p.Alloc()
	}
	if p.Chunks() != 3 {
		t.Fatalf("Chunks() = %d before overflow, want 3", p.Chunks())
	}
	if h := p.Alloc(); h.Index() != 12 || p.Chunks() != 4 {
		t.Errorf("overflow allocation index %d with %d chunks", h.Index(), p.Chunks())
	}
}

func TestBufferPoolViolations(t *testing.T) {
	var got []Violation
	collect := WithViolationHandler(func(v Violation) { got = append(got, v) })

	tests := []struct {
		name string
		run  func(p *BufferPool[NodeView])
		want ViolationKind
	}{
		{"null handle", func(p *BufferPool[NodeView]) { p.GetUint32(NullHandle, NodeLayer) }, ViolationNullHandle},
		{"out of range", func(p *BufferPool[NodeView]) { p.GetUint32(newHandle(TypeNode, 5000, 0), NodeLayer) }, ViolationOutOfRange},
		{"type mismatch", func(p *BufferPool[NodeView]) { p.GetUint32(newHandle(TypeLight, 0, 0), NodeLayer) }, ViolationTypeMismatch},
		{"stale", func(p *BufferPool[NodeView]) {
			h := p.Alloc()
			p.Free(h)
			p.SetUint32(h, NodeLayer, 1)
		}, ViolationStale},
		{"double free", func(p *BufferPool[NodeView]) {
			h := p.Alloc()
			p.Free(h)
			p.Free(h)
		}, ViolationDoubleFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			p := NewBufferPool[NodeView](TypeNode, nodeLayout, WithDebugChecks(true), collect)
			tt.run(p)
			if len(got) != 1 {
				t.Fatalf("got %d violations, want 1: %v", len(got), got)
			}
			if got[0].Kind != tt.want {
				t.Errorf("Kind = %v, want %v", got[0].Kind, tt.want)
			}
		})
	}

	t.Run("release mode reports nothing", func(t *testing.T) {
		got = nil
		p := NewBufferPool[NodeView](TypeNode, nodeLayout, collect)
		if v := p.GetUint32(newHandle(TypeNode, 5000, 0), NodeLayer); v != 0 {
			t.Errorf("out of range read = %d, want 0", v)
		}
		h := p.Alloc()
		p.Free(h)
		p.Free(h)
		if len(got) != 0 {
			t.Errorf("got %d violations without debug checks", len(got))
		}
		if p.Len() != 0 {
			t.Errorf("double free corrupted the live count: %d", p.Len())
		}
	})
}

func TestPanicOnViolation(t *testing.T) {
	p := NewBufferPool[NodeView](TypeNode, nodeLayout, WithPanicOnViolation())
	defer func() {
		r := recover()
		v, ok := r.(Violation)
		if !ok {
			t.Fatalf("recovered %v, want a Violation", r)
		}
		if v.Kind != ViolationNullHandle || v.Op != "get" {
			t.Errorf("violation = %+v", v)
		}
	}()
	p.GetUint32(NullHandle, NodeLayer)
}

func TestObjectPool(t *testing.T) {
	dev := gfxtest.NewDevice()
	pools := NewPools(dev)

	h, err := pools.Buffer.Alloc(gfx.BufferInfo{Size: 64, Stride: 16})
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	buf := pools.Buffer.Get(h)
	if buf == nil || buf.Size() != 64 {
		t.Fatalf("Get() = %v", buf)
	}
	if dev.BuffersCreated != 1 {
		t.Errorf("BuffersCreated = %d, want 1", dev.BuffersCreated)
	}

	pools.Buffer.Free(h)
	if !buf.(*gfxtest.Buffer).Destroyed {
		t.Error("Free() did not destroy the buffer")
	}
	if got := pools.Buffer.Get(h); got != nil {
		t.Errorf("Get() after free = %v, want nil", got)
	}

	h2, _ := pools.Buffer.Alloc(gfx.BufferInfo{Size: 32})
	if h2.Index() != h.Index() || h2 == h {
		t.Errorf("slot not recycled with a new generation: %v -> %v", h, h2)
	}

	dev.FailBuffers = true
	if h3, err := pools.Buffer.Alloc(gfx.BufferInfo{Size: 32}); err == nil || !h3.IsNull() {
		t.Errorf("Alloc() with failing device = %v, %v", h3, err)
	} else if !errors.Is(err, gfxtest.ErrInjected) {
		t.Errorf("error does not wrap the device error: %v", err)
	}

	pools.Destroy()
	if pools.Buffer.Len() != 0 {
		t.Errorf("Destroy() left %d buffers", pools.Buffer.Len())
	}
}

func TestObjectPoolWithoutDevice(t *testing.T) {
	pools := NewPools(nil)
	if _, err := pools.Shader.Alloc(gfx.ShaderInfo{Name: "x"}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Alloc() error = %v, want ErrNoDevice", err)
	}
}

func TestObjectPoolReusesPrevious(t *testing.T) {
	type obj struct{ n int }
	var reuses int
	p := NewObjectPool(TypeShader, func(n int, prev *obj, reused bool) (*obj, error) {
		if reused && prev != nil {
			reuses++
			prev.n = n
			return prev, nil
		}
		return &obj{n: n}, nil
	}, func(o *obj) *obj { return o })

	h, _ := p.Alloc(1)
	first := p.Get(h)
	p.Free(h)
	h, _ = p.Alloc(2)
	if p.Get(h) != first || first.n != 2 || reuses != 1 {
		t.Errorf("constructor did not receive the previous object")
	}
}

func TestArrayPool(t *testing.T) {
	a := NewArrayPool(TypeSubModelArray, 2)
	h := a.Alloc()
	for i := uint32(0); i < 5; i++ {
		if n := a.Push(h, 10+i); n != i+1 {
			t.Fatalf("Push() = %d, want %d", n, i+1)
		}
	}
	if a.Length(h) != 5 {
		t.Fatalf("Length() = %d", a.Length(h))
	}
	a.Erase(h, 1)
	want := []uint32{10, 12, 13, 14}
	got := a.Values(h)
	if len(got) != len(want) {
		t.Fatalf("Values() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values() = %v, want %v", got, want)
		}
	}
	a.Assign(h, 0, 99)
	a.Assign(h, 4, 15)
	a.Assign(h, 10, 1)
	if a.Get(h, 0) != 99 || a.Get(h, 4) != 15 || a.Length(h) != 5 {
		t.Errorf("Assign() produced %v", a.Values(h))
	}
	if a.Get(h, 7) != 0 {
		t.Error("out of range Get() must read 0")
	}

	a.Free(h)
	h2 := a.Alloc()
	if a.Length(h2) != 0 {
		t.Errorf("recycled array has length %d", a.Length(h2))
	}
	if a.Length(h) != 0 {
		t.Errorf("freed handle reports length %d", a.Length(h))
	}
}
