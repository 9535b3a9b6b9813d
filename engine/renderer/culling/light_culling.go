package culling

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
)

// LightSphere returns the sphere of influence of a punctual light.
func LightSphere(l light.Light) common.Sphere {
	return common.Sphere{Center: l.Position(), Radius: l.Range()}
}

// CullSphereLight reports whether a sphere light misses the model.
//
// Parameters:
//   - l: a sphere light
//   - m: the model to test
//
// Returns:
//   - bool: true when the light's sphere of influence does not touch the model's world bounds
func CullSphereLight(l light.Light, m model.Model) bool {
	return !common.SphereAABB(LightSphere(l), m.WorldBounds())
}

// CullSpotLight reports whether a spot light misses the model. The model must touch both the light's
// sphere of influence and its cone frustum to be lit.
//
// Parameters:
//   - l: a spot light
//   - m: the model to test
//
// Returns:
//   - bool: true when the model lies outside the light's range or cone
func CullSpotLight(l light.Light, m model.Model) bool {
	b := m.WorldBounds()
	return !common.SphereAABB(LightSphere(l), b) || !common.AABBFrustum(b, l.Frustum())
}

// CullLight dispatches to CullSphereLight or CullSpotLight. Directional lights never cull.
func CullLight(l light.Light, m model.Model) bool {
	switch l.Type() {
	case light.LightTypeSphere:
		return CullSphereLight(l, m)
	case light.LightTypeSpot:
		return CullSpotLight(l, m)
	}
	return false
}

// LightInFrustum reports whether a punctual light's sphere of influence touches the frustum.
//
// Parameters:
//   - l: a sphere or spot light
//   - f: the camera frustum
//
// Returns:
//   - bool: true if the light can affect anything inside the frustum
func LightInFrustum(l light.Light, f common.Frustum) bool {
	return common.SphereFrustum(LightSphere(l), f)
}
