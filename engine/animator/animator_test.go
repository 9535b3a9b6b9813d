package animator

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx/gfxtest"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
)

func newNodes(t *testing.T, n int) []node.Node {
	t.Helper()
	pools := pool.NewPools(gfxtest.NewDevice(), pool.WithMirror(true))
	nodes := make([]node.Node, n)
	for i := range nodes {
		nodes[i] = node.NewNode(pools, node.WithPosition(mgl32.Vec3{float32(i), 0, 0}))
	}
	return nodes
}

func TestAddInstanceKeepsNodeTransform(t *testing.T) {
	nodes := newNodes(t, 2)
	a := NewAnimator(WithCapacity(4))
	a.AddInstance(nodes[0])
	idx := a.AddInstance(nodes[1])
	if idx != 1 || a.InstanceCount() != 2 {
		t.Fatalf("index = %d, count = %d", idx, a.InstanceCount())
	}
	if written := a.PrepareFrame(0.1); written != 2 {
		t.Errorf("written = %d, want both new instances", written)
	}
	if nodes[1].Position() != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("position = %v, want the node's own", nodes[1].Position())
	}
	if written := a.PrepareFrame(0.1); written != 0 {
		t.Errorf("written = %d, want nothing for still instances", written)
	}
}

func TestSpin(t *testing.T) {
	nodes := newNodes(t, 1)
	a := NewAnimator()
	idx := a.AddInstance(nodes[0])
	a.SetInstanceRotation(idx, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{})
	a.PrepareFrame(0.5)
	a.PrepareFrame(0.5)

	_, rot := a.InstanceRotation(idx)
	if !mgl32.FloatEqualThreshold(rot[1], 1, 1e-5) {
		t.Errorf("rotation = %v, want 1 radian around y", rot)
	}
	want := mgl32.AnglesToQuat(0, 1, 0, mgl32.XYZ)
	if !nodes[0].Rotation().ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("node rotation = %v, want %v", nodes[0].Rotation(), want)
	}
	if written := a.PrepareFrame(0.1); written != 1 {
		t.Errorf("written = %d, want the spinning instance every frame", written)
	}
}

func TestRemoveInstanceSwaps(t *testing.T) {
	tests := []struct {
		name    string
		remove  uint32
		swapped uint32
		ok      bool
		count   uint32
	}{
		{name: "middle", remove: 0, swapped: 2, ok: true, count: 2},
		{name: "last", remove: 2, ok: false, count: 2},
		{name: "out of range", remove: 7, ok: false, count: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := newNodes(t, 3)
			a := NewAnimator()
			for _, n := range nodes {
				a.AddInstance(n)
			}
			swapped, ok := a.RemoveInstance(tt.remove)
			if ok != tt.ok || (ok && swapped != tt.swapped) {
				t.Errorf("swapped = %d, %v, want %d, %v", swapped, ok, tt.swapped, tt.ok)
			}
			if a.InstanceCount() != tt.count {
				t.Errorf("count = %d, want %d", a.InstanceCount(), tt.count)
			}
			if tt.ok && a.Node(tt.remove) != nodes[tt.swapped] {
				t.Error("expected the last instance to move into the removed slot")
			}
			if written := a.PrepareFrame(0); written != int(tt.count) {
				t.Errorf("written = %d, want %d", written, tt.count)
			}
		})
	}
}

func TestSetInstanceData(t *testing.T) {
	nodes := newNodes(t, 1)
	a := NewAnimator()
	idx := a.AddInstance(nodes[0])
	a.PrepareFrame(0)

	a.SetInstanceData(idx, mgl32.Vec3{1, 2, 3}, mgl32.Vec3{2, 2, 2}, mgl32.Vec3{}, mgl32.Vec3{})
	a.SetInstanceTransform(99, mgl32.Vec3{}, mgl32.Vec3{})
	if written := a.PrepareFrame(0.1); written != 1 {
		t.Fatalf("written = %d, want 1", written)
	}
	if nodes[0].Position() != (mgl32.Vec3{1, 2, 3}) || nodes[0].Scale() != (mgl32.Vec3{2, 2, 2}) {
		t.Errorf("node transform = %v, %v", nodes[0].Position(), nodes[0].Scale())
	}

	a.Release()
	if a.InstanceCount() != 0 || a.Node(0) != nil {
		t.Error("expected no instances after Release")
	}
}

func TestWrapAngles(t *testing.T) {
	v := wrapAngles(mgl32.Vec3{7, -7, 1})
	if v[0] > 6.3 || v[1] < -6.3 || v[2] != 1 {
		t.Errorf("wrapped = %v", v)
	}
}
