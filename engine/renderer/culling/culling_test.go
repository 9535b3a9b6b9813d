package culling

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx/gfxtest"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

type world struct {
	pools *pool.Pools
	mesh  model.Mesh
	pass  material.Pass
	scene scene.RenderScene
	cam   camera.Camera
	newM  func(pos mgl32.Vec3, options ...model.ModelBuilderOption) model.Model
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{pools: pool.NewPools(gfxtest.NewDevice(), pool.WithMirror(true))}
	layout, err := w.pools.Device().CreateDescriptorSetLayout(model.LocalSetLayoutInfo())
	if err != nil {
		t.Fatal(err)
	}
	if w.pass, err = material.NewPass(w.pools, material.SharedLayouts{Local: layout}, material.NewStandardProgram()); err != nil {
		t.Fatal(err)
	}
	vertices, indices := model.BoxVertices(mgl32.Vec3{1, 1, 1})
	if w.mesh, err = model.NewMesh(w.pools, model.WithVertices(vertices), model.WithIndices(indices)); err != nil {
		t.Fatal(err)
	}
	w.scene = scene.NewRenderScene(w.pools)
	w.cam = camera.NewCamera(w.pools, camera.WithClipPlanes(0.1, 100), camera.WithViewport(800, 600))
	w.newM = func(pos mgl32.Vec3, options ...model.ModelBuilderOption) model.Model {
		t.Helper()
		n := node.NewNode(w.pools, node.WithPosition(pos))
		m, err := model.NewModel(w.pools, layout, append([]model.ModelBuilderOption{model.WithNode(n), model.WithSubMesh(w.mesh, w.pass)}, options...)...)
		if err != nil {
			t.Fatal(err)
		}
		w.scene.AddModel(m)
		return m
	}
	return w
}

func depths(objs []RenderObject) []float32 {
	out := make([]float32, len(objs))
	for i, o := range objs {
		out[i] = o.Depth
	}
	return out
}

func TestCullDepths(t *testing.T) {
	w := newWorld(t)
	a := w.newM(mgl32.Vec3{0, 0, -5})
	b := w.newM(mgl32.Vec3{0, 0, -10})
	c := w.newM(mgl32.Vec3{0, 0, -50})
	w.newM(mgl32.Vec3{0, 0, 20})   // behind the camera
	w.newM(mgl32.Vec3{0, 0, -500}) // beyond the far plane
	w.newM(mgl32.Vec3{0, 0, -7}, model.WithEnabled(false))

	sc := NewSceneCulling()
	r := sc.Cull(w.cam, w.scene)
	if len(r.RenderObjects) != 3 {
		t.Fatalf("render objects = %d, want 3", len(r.RenderObjects))
	}
	want := []model.Model{a, b, c}
	for i, ro := range r.RenderObjects {
		if ro.Model != want[i] {
			t.Errorf("render object %d is not in scene order", i)
		}
	}
	got := depths(r.RenderObjects)
	for i, d := range []float32{5, 10, 50} {
		if math.Abs(float64(got[i]-d)) > 1e-4 {
			t.Errorf("depth %d = %v, want %v", i, got[i], d)
		}
	}

	// Results are reused across passes.
	r2 := sc.Cull(w.cam, w.scene)
	if r2 != r || len(r2.RenderObjects) != 3 {
		t.Error("second pass should reuse the result")
	}
}

func TestIsVisible(t *testing.T) {
	tests := []struct {
		name       string
		layer      uint32
		visFlags   uint32
		visibility uint32
		want       bool
	}{
		{"layer intersects", node.LayerDefault, 0, node.LayerDefault | 1, true},
		{"layer disjoint", node.LayerDefault, 0, 1, false},
		{"vis flags intersect", 1 << 3, 1, 1, true},
		{"ui exact match", node.LayerUI2D, 0, node.LayerUI2D, true},
		{"ui mask rejects other layers", node.LayerUI2D | node.LayerDefault, 0, node.LayerUI2D, false},
		{"ui mask ignores vis flags", node.LayerDefault, node.LayerUI2D, node.LayerUI2D, false},
		{"ui layer under mixed mask", node.LayerUI2D, 0, node.LayerUI2D | node.LayerDefault, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVisible(tt.layer, tt.visFlags, tt.visibility); got != tt.want {
				t.Errorf("IsVisible(%x, %x, %x) = %v, want %v", tt.layer, tt.visFlags, tt.visibility, got, tt.want)
			}
		})
	}
}

func TestCullShadowBounds(t *testing.T) {
	w := newWorld(t)
	w.scene.Shadows().SetEnabled(true)
	w.newM(mgl32.Vec3{0, 0, -10}, model.WithShadows(true, true))
	offscreen := w.newM(mgl32.Vec3{0, 0, 30}, model.WithShadows(true, false))
	w.newM(mgl32.Vec3{4, 0, -10}, model.WithShadows(false, true))

	r := NewSceneCulling().Cull(w.cam, w.scene)
	if len(r.RenderObjects) != 2 {
		t.Errorf("render objects = %d, want 2", len(r.RenderObjects))
	}
	if len(r.ShadowObjects) != 2 || r.ShadowObjects[1].Model != offscreen {
		t.Fatalf("shadow objects = %d, casters outside the view must be kept", len(r.ShadowObjects))
	}
	if !r.HasCasters || !r.HasReceivers {
		t.Fatal("caster and receiver bounds should be set")
	}
	if r.CasterBounds.Min() != (mgl32.Vec3{-1, -1, -11}) || r.CasterBounds.Max() != (mgl32.Vec3{1, 1, 31}) {
		t.Errorf("caster bounds = %v .. %v", r.CasterBounds.Min(), r.CasterBounds.Max())
	}
	if r.ReceiverBounds.Min() != (mgl32.Vec3{-1, -1, -11}) || r.ReceiverBounds.Max() != (mgl32.Vec3{5, 1, -9}) {
		t.Errorf("receiver bounds = %v .. %v", r.ReceiverBounds.Min(), r.ReceiverBounds.Max())
	}
	if r.CasterSphere.Center != (mgl32.Vec3{0, 0, 10}) {
		t.Errorf("caster sphere center = %v", r.CasterSphere.Center)
	}
	if w.scene.Shadows().CasterSphere() != r.CasterSphere || w.scene.Shadows().ReceiverSphere() != r.ReceiverSphere {
		t.Error("spheres should be written to the enabled shadows")
	}
}

func TestCullParallelPreservesOrder(t *testing.T) {
	w := newWorld(t)
	for i := range 300 {
		w.newM(mgl32.Vec3{float32(i%7) - 3, 0, -float32(i%90) - 2})
		w.newM(mgl32.Vec3{0, 0, float32(i) + 5})
	}
	serial := NewSceneCulling()
	parallel := NewSceneCulling(WithCullingWorkers(4), WithMinParallel(1))
	defer parallel.Destroy()
	if parallel.Workers() != 4 || serial.Workers() != 0 {
		t.Fatalf("workers = %d / %d", parallel.Workers(), serial.Workers())
	}

	want := serial.Cull(w.cam, w.scene).RenderObjects
	got := parallel.Cull(w.cam, w.scene).RenderObjects
	if len(got) != len(want) || len(got) == 0 {
		t.Fatalf("parallel = %d objects, serial = %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("object %d differs between parallel and serial culling", i)
		}
	}
}

func TestLightCulling(t *testing.T) {
	w := newWorld(t)
	m := w.newM(mgl32.Vec3{0, 0, -5})
	near := light.NewSphereLight(w.pools, light.WithPosition(mgl32.Vec3{0, 2.5, -5}), light.WithRange(2))
	far := light.NewSphereLight(w.pools, light.WithPosition(mgl32.Vec3{10, 0, -5}), light.WithRange(2))
	behind := light.NewSphereLight(w.pools, light.WithPosition(mgl32.Vec3{0, 0, 20}), light.WithRange(2))

	if CullSphereLight(near, m) || CullLight(near, m) {
		t.Error("overlapping sphere light should not be culled")
	}
	if !CullSphereLight(far, m) {
		t.Error("distant sphere light should be culled")
	}
	if !LightInFrustum(near, w.cam.Frustum()) || LightInFrustum(behind, w.cam.Frustum()) {
		t.Error("only lights touching the frustum are in it")
	}

	tests := []struct {
		name   string
		target mgl32.Vec3
		culled bool
	}{
		{"aimed at model", mgl32.Vec3{0, 0, -5}, false},
		{"aimed away", mgl32.Vec3{0, 0, 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := mgl32.Vec3{0, 0, 0}
			spot := light.NewSpotLight(w.pools,
				light.WithPosition(pos),
				light.WithDirection(tt.target.Sub(pos)),
				light.WithRange(20),
				light.WithSpotAngle(60))
			if got := CullSpotLight(spot, m); got != tt.culled {
				t.Errorf("CullSpotLight() = %v, want %v", got, tt.culled)
			}
		})
	}

	sun := light.NewDirectionalLight(w.pools)
	if CullLight(sun, m) {
		t.Error("directional lights never cull")
	}
}

func TestCalcDirectionalLightCullFrustum(t *testing.T) {
	w := newWorld(t)
	sun := light.NewDirectionalLight(w.pools, light.WithDirection(mgl32.Vec3{0.3, -1, -0.4}))
	shadows := light.NewShadows(w.pools, light.WithShadowDistance(30))

	if _, ok := CalcDirectionalLightCullFrustum(w.cam, sun, shadows); ok {
		t.Fatal("disabled shadows should not produce a frustum")
	}
	if _, ok := CalcDirectionalLightCullFrustum(w.cam, light.NewSphereLight(w.pools), shadows); ok {
		t.Fatal("non-directional lights should not produce a frustum")
	}

	shadows.SetEnabled(true)
	sf, ok := CalcDirectionalLightCullFrustum(w.cam, sun, shadows)
	if !ok {
		t.Fatal("expected a fitted frustum")
	}
	if shadows.MatLight() != sf.ViewProj {
		t.Error("light matrix should be stored in the shadow settings")
	}
	proj := mgl32.Perspective(w.cam.Fov(), w.cam.Aspect(), w.cam.Near(), 30)
	split := common.FrustumCorners(proj.Mul4(w.cam.ViewMatrix()).Inv())
	for i, c := range split {
		for p, plane := range sf.Frustum.Planes {
			if d := plane.SignedDistance(c); d < -1e-2 {
				t.Errorf("split corner %d outside plane %d by %v", i, p, d)
			}
		}
	}
	if sf.Direction.Sub(sun.Direction().Normalize()).Len() > 1e-5 {
		t.Errorf("frustum direction = %v", sf.Direction)
	}

	shadows = light.NewShadows(w.pools, light.WithShadowsEnabled(), light.WithFixedArea(5), light.WithShadowClipPlanes(1, 50))
	fixed, ok := CalcDirectionalLightCullFrustum(w.cam, sun, shadows)
	if !ok {
		t.Fatal("expected a fixed-area frustum")
	}
	if fixed.Position != sun.Position() {
		t.Errorf("fixed-area frustum should start at the light, got %v", fixed.Position)
	}
	ahead := sun.Position().Add(sf.Direction.Mul(10))
	if !common.SphereFrustum(common.Sphere{Center: ahead, Radius: 0.1}, fixed.Frustum) {
		t.Error("point ahead of the light should be inside the fixed-area frustum")
	}
	if common.SphereFrustum(common.Sphere{Center: ahead.Add(perp(sf.Direction).Mul(8)), Radius: 0.1}, fixed.Frustum) {
		t.Error("point beyond the ortho size should be outside the fixed-area frustum")
	}
}

func perp(dir mgl32.Vec3) mgl32.Vec3 {
	return dir.Cross(stableUp(dir)).Normalize()
}

func TestShadowCulling(t *testing.T) {
	w := newWorld(t)
	w.scene.Shadows().SetEnabled(true)
	inside := w.newM(mgl32.Vec3{0, 0, -10}, model.WithShadows(true, true))
	w.newM(mgl32.Vec3{500, 0, -10}, model.WithShadows(true, false))

	r := NewSceneCulling().Cull(w.cam, w.scene)
	sun := light.NewDirectionalLight(w.pools, light.WithDirection(mgl32.Vec3{0, -1, 0}))
	sf, ok := CalcDirectionalLightCullFrustum(w.cam, sun, w.scene.Shadows())
	if !ok {
		t.Fatal("expected a fitted frustum")
	}
	casters := ShadowCulling(nil, r.ShadowObjects, sf)
	if len(casters) != 1 || casters[0].Model != inside {
		t.Fatalf("casters = %d, want only the model near the view", len(casters))
	}
	if casters[0].Depth <= 0 {
		t.Errorf("caster depth along the light = %v, want positive", casters[0].Depth)
	}
}
