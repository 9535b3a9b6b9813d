package light

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowsBuilderOption is a function that configures shadow settings during construction.
type ShadowsBuilderOption func(*shadows)

// WithShadowsEnabled enables shadow rendering.
func WithShadowsEnabled() ShadowsBuilderOption {
	return func(s *shadows) {
		s.pools.Shadows.SetBool(s.handle, pool.ShadowsEnabled, true)
	}
}

// WithShadowType sets the shadow technique.
func WithShadowType(t ShadowType) ShadowsBuilderOption {
	return func(s *shadows) {
		s.pools.Shadows.SetUint32(s.handle, pool.ShadowsType, uint32(t))
	}
}

// WithFixedArea uses a fixed box of the given half-extent around the light instead of fitting
// the shadow frustum to the camera.
//
// Parameters:
//   - orthoSize: the half-extent of the box
//
// Returns:
//   - ShadowsBuilderOption: a function that applies the fixed area option
func WithFixedArea(orthoSize float32) ShadowsBuilderOption {
	return func(s *shadows) {
		s.pools.Shadows.SetBool(s.handle, pool.ShadowsFixedArea, true)
		s.pools.Shadows.SetFloat32(s.handle, pool.ShadowsOrthoSize, orthoSize)
	}
}

// WithShadowClipPlanes sets the near and far planes of the shadow projection.
func WithShadowClipPlanes(near, far float32) ShadowsBuilderOption {
	return func(s *shadows) {
		s.pools.Shadows.SetFloat32(s.handle, pool.ShadowsNear, near)
		s.pools.Shadows.SetFloat32(s.handle, pool.ShadowsFar, far)
	}
}

// WithShadowDistance sets how far the shadow camera backs off along the light direction.
func WithShadowDistance(distance float32) ShadowsBuilderOption {
	return func(s *shadows) {
		s.pools.Shadows.SetFloat32(s.handle, pool.ShadowsDistance, distance)
	}
}

// WithShadowBias sets the depth bias.
func WithShadowBias(bias float32) ShadowsBuilderOption {
	return func(s *shadows) {
		s.pools.Shadows.SetFloat32(s.handle, pool.ShadowsBias, bias)
	}
}

// WithShadowMapResolution sets the shadow map size in texels.
func WithShadowMapResolution(width, height uint32) ShadowsBuilderOption {
	return func(s *shadows) {
		s.size = mgl32.Vec2{float32(width), float32(height)}
	}
}

// WithPlaneNormal sets the plane normal used by planar shadows.
func WithPlaneNormal(n mgl32.Vec3) ShadowsBuilderOption {
	return func(s *shadows) {
		if n.Len() > 0 {
			s.normal = n.Normalize()
		}
	}
}
