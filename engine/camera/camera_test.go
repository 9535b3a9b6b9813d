package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestCameraUpdate(t *testing.T) {
	pools := pool.NewPools(nil, pool.WithMirror(true))
	n := node.NewNode(pools, node.WithPosition(mgl32.Vec3{0, 0, 10}))
	c := NewCamera(pools, WithNode(n), WithViewport(800, 400), WithClipPlanes(0.5, 100))
	c.Update(false)

	if !near(c.Aspect(), 2) {
		t.Errorf("aspect = %v, want 2", c.Aspect())
	}
	if c.Position() != (mgl32.Vec3{0, 0, 10}) {
		t.Errorf("position = %v", c.Position())
	}
	if fwd := c.Forward(); !near(fwd[2], -1) {
		t.Errorf("forward = %v, want -Z", fwd)
	}
	if c.Exposure() != 1 {
		t.Errorf("LDR exposure = %v, want 1", c.Exposure())
	}

	origin := c.ViewMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !near(origin[2], -10) {
		t.Errorf("origin in view space = %v, want z = -10", origin)
	}
	if pools.Camera.GetMat4(c.Handle(), pool.CameraMatViewProj) != c.ViewProjectionMatrix() {
		t.Error("view-projection should be mirrored")
	}
	planes := make([]float32, 24)
	if !pools.Frustum.GetFloats(pools.Camera.GetHandle(c.Handle(), pool.CameraFrustum), pool.FrustumPlanes, planes) {
		t.Fatal("frustum planes not readable")
	}
	if planes[0] != c.Frustum().Planes[0].Normal[0] {
		t.Error("frustum planes should be mirrored")
	}
}

func TestCameraHDRExposure(t *testing.T) {
	pools := pool.NewPools(nil)
	c := NewCamera(pools)
	c.Update(true)
	// Sunny 16: EV100 = log2(16^2 * 125) ~ 14.97
	want := float32(1 / (1.2 * math.Exp2(math.Log2(256*125))))
	if !near(c.Exposure(), want) {
		t.Errorf("exposure = %v, want %v", c.Exposure(), want)
	}
}

func TestCameraVisibilityAndViewport(t *testing.T) {
	pools := pool.NewPools(nil)
	c := NewCamera(pools, WithVisibility(node.LayerDefault))
	if c.Visibility() != node.LayerDefault {
		t.Errorf("visibility = %x", c.Visibility())
	}
	c.SetViewport(1920, 1080)
	if c.Width() != 1920 || c.Height() != 1080 {
		t.Errorf("viewport = %dx%d", c.Width(), c.Height())
	}
	c.SetVisibility(node.LayerAll)
	if c.Visibility() != node.LayerAll {
		t.Errorf("visibility = %x", c.Visibility())
	}
	c.Destroy()
	if pools.Camera.Len() != 0 || pools.Frustum.Len() != 0 {
		t.Error("destroy should free the camera and frustum entries")
	}
}

func TestCameraOrtho(t *testing.T) {
	pools := pool.NewPools(nil)
	c := NewCamera(pools, WithOrtho(5), WithViewport(100, 100), WithClipPlanes(1, 50))
	c.Update(false)
	p := c.ProjectionMatrix().Mul4x1(mgl32.Vec4{5, 5, -1, 1})
	if !near(p[0], 1) || !near(p[1], 1) {
		t.Errorf("ortho corner projects to %v, want (1, 1)", p)
	}
}

func TestUniformClipCorrection(t *testing.T) {
	pools := pool.NewPools(nil)
	c := NewCamera(pools, WithClipPlanes(1, 10))
	c.Update(false)
	u := Uniform(c)
	vp := mgl32.Mat4(u.ViewProj)
	for _, tc := range []struct {
		z    float32
		want float32
	}{{-1, 0}, {-10, 1}} {
		clip := vp.Mul4x1(mgl32.Vec4{0, 0, tc.z, 1})
		if !near(clip[2]/clip[3], tc.want) {
			t.Errorf("depth at z=%v = %v, want %v", tc.z, clip[2]/clip[3], tc.want)
		}
	}
	if len(u.Marshal()) != 80 {
		t.Errorf("uniform size = %d, want 80", len(u.Marshal()))
	}
}
