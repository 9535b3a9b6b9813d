package game_object

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/animator"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx/gfxtest"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

func newModel(t *testing.T) (*pool.Pools, model.Model) {
	t.Helper()
	dev := gfxtest.NewDevice()
	pools := pool.NewPools(dev, pool.WithMirror(true))
	layout, err := dev.CreateDescriptorSetLayout(model.LocalSetLayoutInfo())
	if err != nil {
		t.Fatal(err)
	}
	pass, err := material.NewPass(pools, material.SharedLayouts{Local: layout}, material.NewStandardProgram())
	if err != nil {
		t.Fatal(err)
	}
	vertices, indices := model.BoxVertices(mgl32.Vec3{1, 1, 1})
	mesh, err := model.NewMesh(pools, model.WithVertices(vertices), model.WithIndices(indices))
	if err != nil {
		t.Fatal(err)
	}
	m, err := model.NewModel(pools, layout, model.WithNode(node.NewNode(pools)), model.WithSubMesh(mesh, pass))
	if err != nil {
		t.Fatal(err)
	}
	return pools, m
}

func TestStaticObjectWritesNode(t *testing.T) {
	_, m := newModel(t)
	g := NewGameObject(WithID(7), WithModel(m), WithPosition(mgl32.Vec3{1, 2, 3}), WithScale(mgl32.Vec3{2, 2, 2}))
	if g.ID() != 7 || g.AnimatorInstanceID() != -1 {
		t.Errorf("id = %d, instance = %d", g.ID(), g.AnimatorInstanceID())
	}
	if m.Node().Position() != (mgl32.Vec3{1, 2, 3}) || m.Node().Scale() != (mgl32.Vec3{2, 2, 2}) {
		t.Errorf("node transform = %v, %v", m.Node().Position(), m.Node().Scale())
	}
	g.SetPosition(mgl32.Vec3{4, 5, 6})
	if g.Position() != (mgl32.Vec3{4, 5, 6}) {
		t.Errorf("position = %v", g.Position())
	}
	g.SetRotationSpeed(mgl32.Vec3{1, 1, 1})
	if g.RotationSpeed() != (mgl32.Vec3{}) {
		t.Error("a static object must not spin")
	}
	g.SetEnabled(false)
	if g.Enabled() || m.Enabled() {
		t.Error("expected the model to be disabled")
	}
}

func TestAnimatedObject(t *testing.T) {
	_, m := newModel(t)
	a := animator.NewAnimator()
	g := NewGameObject(WithModel(m), WithAnimator(a),
		WithPosition(mgl32.Vec3{0, 1, 0}), WithRotationSpeed(mgl32.Vec3{0, 2, 0}))
	if g.AnimatorInstanceID() != 0 || a.InstanceCount() != 1 {
		t.Fatalf("instance = %d, count = %d", g.AnimatorInstanceID(), a.InstanceCount())
	}
	a.PrepareFrame(0.25)
	if m.Node().Position() != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("node position = %v", m.Node().Position())
	}
	if r := g.Rotation(); !mgl32.FloatEqualThreshold(r[1], 0.5, 1e-5) {
		t.Errorf("rotation = %v, want 0.5 around y", r)
	}
	if g.RotationSpeed() != (mgl32.Vec3{0, 2, 0}) {
		t.Errorf("rotation speed = %v", g.RotationSpeed())
	}
}

func TestAttachedLightFollowsModel(t *testing.T) {
	pools, m := newModel(t)
	l := light.NewSphereLight(pools, light.WithPosition(mgl32.Vec3{0, 1, 0}))
	g := NewGameObject(WithModel(m), WithLight(l), WithPosition(mgl32.Vec3{5, 0, 0}))
	if l.Node().Parent() != m.Node() {
		t.Fatal("expected the light node to be parented to the model node")
	}

	s := scene.NewRenderScene(pools)
	g.AddTo(s)
	if len(s.Models()) != 1 || len(s.SphereLights()) != 1 {
		t.Errorf("models = %d, sphere lights = %d, want 1, 1", len(s.Models()), len(s.SphereLights()))
	}
	g.RemoveFrom(s)
	if len(s.Models()) != 0 || len(s.SphereLights()) != 0 {
		t.Error("expected the scene to be empty")
	}

	g.SetLight(nil)
	if l.Node().Parent() != nil || g.Light() != nil {
		t.Error("expected the light to be detached")
	}
}
