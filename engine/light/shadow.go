package light

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowMapResolution is the default width and height in texels of the shadow depth texture.
const ShadowMapResolution = 2048

// DefaultShadowHalfExtent is the default orthographic half-extent (in world units) of a fixed-area
// directional shadow frustum.
const DefaultShadowHalfExtent float32 = 40.0

// DefaultShadowNear is the default near plane of the directional shadow projection.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the default far plane of the directional shadow projection.
const DefaultShadowFar float32 = 200.0

// DefaultShadowBias is the constant depth bias applied to shadow comparisons.
const DefaultShadowBias float32 = 0.001

// DefaultShadowDistance is how far along the light direction the shadow camera backs off from
// the fitted center.
const DefaultShadowDistance float32 = 100.0

// ShadowType selects how shadows are rendered.
type ShadowType uint32

const (
	// ShadowTypeShadowMap renders casters into a depth map from the main light.
	ShadowTypeShadowMap ShadowType = iota
	// ShadowTypePlanar projects casters onto a plane.
	ShadowTypePlanar
)

type shadows struct {
	pools  *pool.Pools
	handle pool.Handle

	normal         mgl32.Vec3
	size           mgl32.Vec2
	casterSphere   common.Sphere
	receiverSphere common.Sphere
	matLight       mgl32.Mat4
}

// Shadows defines the shadow settings of a scene.
// Scalars live in the Shadows pool; vectors, spheres and the light matrix are mirrored there when
// pool mirroring is enabled.
type Shadows interface {
	// Handle returns the settings' pool handle.
	//
	// Returns:
	//   - pool.Handle: the handle into the Shadows pool
	Handle() pool.Handle

	// Enabled reports whether shadows are rendered.
	//
	// Returns:
	//   - bool: true when enabled
	Enabled() bool

	// SetEnabled enables or disables shadows.
	//
	// Parameters:
	//   - enabled: whether shadows are rendered
	SetEnabled(enabled bool)

	// Type returns the shadow technique.
	//
	// Returns:
	//   - ShadowType: shadow map or planar
	Type() ShadowType

	// FixedArea reports whether the directional shadow frustum is a fixed box around the light
	// instead of being fitted to the camera.
	//
	// Returns:
	//   - bool: true for a fixed area
	FixedArea() bool

	// Near returns the near plane of the shadow projection.
	//
	// Returns:
	//   - float32: the near plane
	Near() float32

	// Far returns the far plane of the shadow projection.
	//
	// Returns:
	//   - float32: the far plane
	Far() float32

	// OrthoSize returns the half-extent of a fixed-area shadow frustum.
	//
	// Returns:
	//   - float32: the half-extent
	OrthoSize() float32

	// Distance returns how far the shadow camera backs off along the light direction.
	//
	// Returns:
	//   - float32: the distance
	Distance() float32

	// Bias returns the depth bias.
	//
	// Returns:
	//   - float32: the bias
	Bias() float32

	// Size returns the shadow map size in texels.
	//
	// Returns:
	//   - mgl32.Vec2: width and height
	Size() mgl32.Vec2

	// Normal returns the plane normal used by planar shadows.
	//
	// Returns:
	//   - mgl32.Vec3: the normal
	Normal() mgl32.Vec3

	// CasterSphere returns the bounding sphere of the last frame's shadow casters.
	//
	// Returns:
	//   - common.Sphere: the caster bounds
	CasterSphere() common.Sphere

	// SetCasterSphere records the bounding sphere of the frame's shadow casters.
	//
	// Parameters:
	//   - s: the caster bounds
	SetCasterSphere(s common.Sphere)

	// ReceiverSphere returns the bounding sphere of the last frame's shadow receivers.
	//
	// Returns:
	//   - common.Sphere: the receiver bounds
	ReceiverSphere() common.Sphere

	// SetReceiverSphere records the bounding sphere of the frame's shadow receivers.
	//
	// Parameters:
	//   - s: the receiver bounds
	SetReceiverSphere(s common.Sphere)

	// MatLight returns the light view-projection matrix of the last shadow fit.
	//
	// Returns:
	//   - mgl32.Mat4: the matrix
	MatLight() mgl32.Mat4

	// SetMatLight records the light view-projection matrix of the frame's shadow fit.
	//
	// Parameters:
	//   - m: the matrix
	SetMatLight(m mgl32.Mat4)

	// Destroy frees the settings' pool entry.
	Destroy()
}

var _ Shadows = &shadows{}

// NewShadows creates shadow settings, disabled unless WithShadowsEnabled is given.
//
// Parameters:
//   - pools: the pools the settings are stored in
//   - options: variadic list of ShadowsBuilderOption functions to configure the settings
//
// Returns:
//   - Shadows: the settings
func NewShadows(pools *pool.Pools, options ...ShadowsBuilderOption) Shadows {
	s := &shadows{
		pools:    pools,
		handle:   pools.Shadows.Alloc(),
		normal:   mgl32.Vec3{0, 1, 0},
		size:     mgl32.Vec2{ShadowMapResolution, ShadowMapResolution},
		matLight: mgl32.Ident4(),
	}
	sp := pools.Shadows
	sp.SetFloat32(s.handle, pool.ShadowsNear, DefaultShadowNear)
	sp.SetFloat32(s.handle, pool.ShadowsFar, DefaultShadowFar)
	sp.SetFloat32(s.handle, pool.ShadowsOrthoSize, DefaultShadowHalfExtent)
	sp.SetFloat32(s.handle, pool.ShadowsDistance, DefaultShadowDistance)
	sp.SetFloat32(s.handle, pool.ShadowsBias, DefaultShadowBias)
	for _, opt := range options {
		opt(s)
	}
	sp.SetVec2(s.handle, pool.ShadowsSize, s.size)
	sp.SetVec3(s.handle, pool.ShadowsNormal, s.normal)
	sp.SetMat4(s.handle, pool.ShadowsMatLight, s.matLight)
	return s
}

func (s *shadows) Handle() pool.Handle {
	return s.handle
}

func (s *shadows) Enabled() bool {
	return s.pools.Shadows.GetBool(s.handle, pool.ShadowsEnabled)
}

func (s *shadows) SetEnabled(enabled bool) {
	s.pools.Shadows.SetBool(s.handle, pool.ShadowsEnabled, enabled)
}

func (s *shadows) Type() ShadowType {
	return ShadowType(s.pools.Shadows.GetUint32(s.handle, pool.ShadowsType))
}

func (s *shadows) FixedArea() bool {
	return s.pools.Shadows.GetBool(s.handle, pool.ShadowsFixedArea)
}

func (s *shadows) Near() float32 {
	return s.pools.Shadows.GetFloat32(s.handle, pool.ShadowsNear)
}

func (s *shadows) Far() float32 {
	return s.pools.Shadows.GetFloat32(s.handle, pool.ShadowsFar)
}

func (s *shadows) OrthoSize() float32 {
	return s.pools.Shadows.GetFloat32(s.handle, pool.ShadowsOrthoSize)
}

func (s *shadows) Distance() float32 {
	return s.pools.Shadows.GetFloat32(s.handle, pool.ShadowsDistance)
}

func (s *shadows) Bias() float32 {
	return s.pools.Shadows.GetFloat32(s.handle, pool.ShadowsBias)
}

func (s *shadows) Size() mgl32.Vec2 {
	return s.size
}

func (s *shadows) Normal() mgl32.Vec3 {
	return s.normal
}

func (s *shadows) CasterSphere() common.Sphere {
	return s.casterSphere
}

func (s *shadows) SetCasterSphere(sp common.Sphere) {
	s.casterSphere = sp
	s.pools.Shadows.SetVec4(s.handle, pool.ShadowsCasterSphere, sp.Center.Vec4(sp.Radius))
}

func (s *shadows) ReceiverSphere() common.Sphere {
	return s.receiverSphere
}

func (s *shadows) SetReceiverSphere(sp common.Sphere) {
	s.receiverSphere = sp
	s.pools.Shadows.SetVec4(s.handle, pool.ShadowsReceiverSphere, sp.Center.Vec4(sp.Radius))
}

func (s *shadows) MatLight() mgl32.Mat4 {
	return s.matLight
}

func (s *shadows) SetMatLight(m mgl32.Mat4) {
	s.matLight = m
	s.pools.Shadows.SetMat4(s.handle, pool.ShadowsMatLight, m)
}

func (s *shadows) Destroy() {
	if s.handle.IsNull() {
		return
	}
	s.pools.Shadows.Free(s.handle)
	s.handle = pool.NullHandle
}
