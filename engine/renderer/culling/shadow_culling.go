package culling

import (
	"math"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowFrustum is a fitted orthographic light frustum for directional shadows.
type ShadowFrustum struct {
	Position   mgl32.Vec3
	Direction  mgl32.Vec3
	View       mgl32.Mat4
	Projection mgl32.Mat4
	ViewProj   mgl32.Mat4
	Frustum    common.Frustum
}

// CalcDirectionalLightCullFrustum fits an orthographic shadow frustum for the main light.
//
// With a fixed area the frustum is centered on the light node and sized by the shadow ortho size and
// clip planes. Otherwise the camera frustum is split at the shadow distance, its corners are moved
// into light space, and their light-space box is refit: the box center is snapped to whole shadow
// map texels, the light is placed behind the box along the negated light direction (far enough to
// also cover the shadow casters), and the projection is sized to the box extents.
// The light-space view-projection is written to the shadow settings.
//
// Parameters:
//   - cam: the camera whose view the shadows cover
//   - l: the directional main light
//   - shadows: the shadow settings
//
// Returns:
//   - ShadowFrustum: the fitted frustum
//   - bool: false when shadows are disabled or the light is missing, not directional or has no direction
func CalcDirectionalLightCullFrustum(cam camera.Camera, l light.Light, shadows light.Shadows) (ShadowFrustum, bool) {
	var sf ShadowFrustum
	if cam == nil || l == nil || shadows == nil || !shadows.Enabled() || l.Type() != light.LightTypeDirectional {
		return sf, false
	}
	dir := l.Direction()
	if dir.Len() < 1e-6 {
		return sf, false
	}
	dir = dir.Normalize()
	sf.Direction = dir
	up := stableUp(dir)

	if shadows.FixedArea() {
		sf.Position = l.Position()
		sf.View = mgl32.LookAtV(sf.Position, sf.Position.Add(dir), up)
		half := shadows.OrthoSize()
		sf.Projection = mgl32.Ortho(-half, half, -half, half, shadows.Near(), shadows.Far())
		return finish(sf, shadows), true
	}

	corners := splitCorners(cam, shadows.Distance())

	// Light space with the light at the origin looking along dir.
	lightView := mgl32.LookAtV(mgl32.Vec3{}, dir, up)
	lo := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, c := range corners {
		p := mgl32.TransformCoordinate(c, lightView)
		for i := range 3 {
			lo[i] = min(lo[i], p[i])
			hi[i] = max(hi[i], p[i])
		}
	}

	halfW := (hi[0] - lo[0]) * 0.5
	halfH := (hi[1] - lo[1]) * 0.5
	center := mgl32.Vec3{(lo[0] + hi[0]) * 0.5, (lo[1] + hi[1]) * 0.5, 0}
	size := shadows.Size()
	if size[0] > 0 && size[1] > 0 {
		// One texel of margin covers the corners lost to snapping.
		texelW, texelH := 2*halfW/size[0], 2*halfH/size[1]
		halfW += texelW
		halfH += texelH
		center[0] = snap(center[0], texelW)
		center[1] = snap(center[1], texelH)
	}

	// The light looks down -Z in light space, so "behind" the box is toward +Z.
	back := hi[2]
	if cs := shadows.CasterSphere(); cs.Radius > 0 {
		cz := mgl32.TransformCoordinate(cs.Center, lightView)[2]
		back = max(back, cz+cs.Radius)
	}
	back += shadows.Near()
	center[2] = back

	sf.Position = mgl32.TransformCoordinate(center, lightView.Inv())
	sf.View = mgl32.LookAtV(sf.Position, sf.Position.Add(dir), up)
	sf.Projection = mgl32.Ortho(-halfW, halfW, -halfH, halfH, 0, back-lo[2])
	return finish(sf, shadows), true
}

// ShadowCulling keeps the shadow casters whose world bounds touch the light frustum. Depth is
// re-measured along the light direction.
//
// Parameters:
//   - dst: the slice to append to, usually a reused buffer truncated to zero length
//   - casters: the shadow objects from a culling Result
//   - sf: the fitted light frustum
//
// Returns:
//   - []RenderObject: dst with the surviving casters appended
func ShadowCulling(dst []RenderObject, casters []RenderObject, sf ShadowFrustum) []RenderObject {
	for _, ro := range casters {
		b := ro.Model.WorldBounds()
		if !common.AABBFrustum(b, sf.Frustum) {
			continue
		}
		dst = append(dst, RenderObject{Model: ro.Model, Depth: Depth(b.Center, sf.Position, sf.Direction)})
	}
	return dst
}

// splitCorners returns the world-space corners of the camera frustum cut at the shadow distance.
func splitCorners(cam camera.Camera, distance float32) [8]mgl32.Vec3 {
	far := cam.Far()
	if distance > 0 && distance < far {
		far = max(distance, cam.Near()+1e-3)
	}
	if cam.Projection() != camera.ProjectionPerspective || far == cam.Far() {
		return cam.Frustum().Vertices
	}
	proj := mgl32.Perspective(cam.Fov(), cam.Aspect(), cam.Near(), far)
	return common.FrustumCorners(proj.Mul4(cam.ViewMatrix()).Inv())
}

// finish derives the view-projection and frustum and stores the light matrix.
func finish(sf ShadowFrustum, shadows light.Shadows) ShadowFrustum {
	sf.ViewProj = sf.Projection.Mul4(sf.View)
	sf.Frustum = common.ExtractFrustumFromMatrix(sf.ViewProj)
	shadows.SetMatLight(sf.ViewProj)
	return sf
}

// stableUp picks an up vector that is not parallel to the light direction.
func stableUp(dir mgl32.Vec3) mgl32.Vec3 {
	if math.Abs(float64(dir[1])) > 0.99 {
		return mgl32.Vec3{1, 0, 0}
	}
	return mgl32.Vec3{0, 1, 0}
}

func snap(v, step float32) float32 {
	if step <= 0 {
		return v
	}
	return float32(math.Floor(float64(v/step))) * step
}
