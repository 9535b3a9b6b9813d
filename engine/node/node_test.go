package node

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
)

func vecNear(a, b mgl32.Vec3) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-4 {
			return false
		}
	}
	return true
}

func TestNodeWorldMatrix(t *testing.T) {
	pools := pool.NewPools(nil, pool.WithMirror(true))
	n := NewNode(pools,
		WithName("cube"),
		WithPosition(mgl32.Vec3{1, 2, 3}),
		WithScale(mgl32.Vec3{2, 2, 2}),
	)
	if n.Name() != "cube" || n.Layer() != LayerDefault {
		t.Fatalf("name = %q, layer = %x", n.Name(), n.Layer())
	}

	got := n.WorldMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	if !vecNear(got, mgl32.Vec3{3, 2, 3}) {
		t.Errorf("world * (1,0,0) = %v, want (3,2,3)", got)
	}
	if !vecNear(n.WorldPosition(), mgl32.Vec3{1, 2, 3}) {
		t.Errorf("world position = %v", n.WorldPosition())
	}
	if pools.Node.GetMat4(n.Handle(), pool.NodeWorldMatrix) != n.WorldMatrix() {
		t.Error("world matrix should be mirrored into the pool")
	}
}

func TestNodeParent(t *testing.T) {
	pools := pool.NewPools(nil)
	parent := NewNode(pools, WithPosition(mgl32.Vec3{10, 0, 0}))
	child := NewNode(pools, WithParent(parent), WithPosition(mgl32.Vec3{0, 1, 0}))
	if !vecNear(child.WorldPosition(), mgl32.Vec3{10, 1, 0}) {
		t.Fatalf("child world position = %v", child.WorldPosition())
	}

	parent.ResetChangedFlags()
	child.ResetChangedFlags()
	parent.SetPosition(mgl32.Vec3{0, 0, 5})
	if child.FlagsChanged()&ChangedPosition == 0 {
		t.Error("child should report its parent's change")
	}
	if !vecNear(child.WorldPosition(), mgl32.Vec3{0, 1, 5}) {
		t.Errorf("child world position = %v after parent move", child.WorldPosition())
	}
}

func TestNodeChangedFlags(t *testing.T) {
	pools := pool.NewPools(nil)
	n := NewNode(pools)
	if n.FlagsChanged() != ChangedTRS {
		t.Errorf("new node flags = %b, want %b", n.FlagsChanged(), ChangedTRS)
	}
	n.ResetChangedFlags()
	n.SetRotationFromEuler(0, 90, 0)
	if n.FlagsChanged() != ChangedRotation {
		t.Errorf("flags = %b, want rotation only", n.FlagsChanged())
	}
	if !vecNear(n.Forward(), mgl32.Vec3{-1, 0, 0}) {
		t.Errorf("forward after 90 degree yaw = %v, want (-1,0,0)", n.Forward())
	}
}

func TestNodeLookAt(t *testing.T) {
	pools := pool.NewPools(nil)
	n := NewNode(pools, WithPosition(mgl32.Vec3{0, 0, 10}))
	n.LookAt(mgl32.Vec3{10, 0, 10}, mgl32.Vec3{0, 1, 0})
	if !vecNear(n.Forward(), mgl32.Vec3{1, 0, 0}) {
		t.Errorf("forward = %v, want (1,0,0)", n.Forward())
	}
}

func TestNodeLayerAndDestroy(t *testing.T) {
	pools := pool.NewPools(nil)
	n := NewNode(pools, WithLayer(LayerUI2D))
	if n.Layer() != LayerUI2D {
		t.Errorf("layer = %x", n.Layer())
	}
	n.Destroy()
	n.Destroy()
	if pools.Node.Len() != 0 {
		t.Errorf("node pool len = %d after destroy", pools.Node.Len())
	}
}
