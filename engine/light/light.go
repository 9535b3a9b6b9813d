// Package light holds the scene lights and the shadow settings of a scene. Lights read their
// transform from a node and refresh their bounds in Update.
package light

import (
	"math"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
)

// LightType identifies the kind of light source.
type LightType uint32

const (
	// LightTypeDirectional is a light infinitely far away shining along its node's forward axis.
	LightTypeDirectional LightType = iota
	// LightTypeSphere is a point light with a physical radius and a range.
	LightTypeSphere
	// LightTypeSpot is a cone light along its node's forward axis.
	LightTypeSpot
)

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypeSphere:
		return "sphere"
	case LightTypeSpot:
		return "spot"
	default:
		return "unknown"
	}
}

const (
	// DefaultLuminance is the luminous intensity of new sphere and spot lights, in cd/m^2.
	DefaultLuminance float32 = 1700 / (4 * math.Pi * 0.15 * 0.15)
	// DefaultIlluminance is the illuminance of new directional lights, in lux.
	DefaultIlluminance float32 = 65000
	// DefaultColorTemperature is the Kelvin temperature of new lights.
	DefaultColorTemperature float32 = 6550

	spotNear float32 = 0.001
)

type lightImpl struct {
	pools   *pool.Pools
	handle  pool.Handle
	aabb    pool.Handle
	frustum pool.Handle
	node    node.Node
	ownNode bool
	name    string

	lightType        LightType
	color            mgl32.Vec3
	colorTemperature float32
	spotAngleRad     float32

	initPosition  *mgl32.Vec3
	initDirection *mgl32.Vec3

	position     mgl32.Vec3
	direction    mgl32.Vec3
	bounds       common.AABB
	worldFrustum common.Frustum
}

// Light defines the interface for a scene light.
// Type, range, size, spot angle, luminance and illuminance live in the Light pool; position,
// direction, color and the derived bounds are mirrored there when pool mirroring is enabled.
// Type-specific getters return zero values for lights of other types.
type Light interface {
	// Handle returns the light's pool handle.
	//
	// Returns:
	//   - pool.Handle: the handle into the Light pool
	Handle() pool.Handle

	// Type returns the kind of light.
	//
	// Returns:
	//   - LightType: directional, sphere or spot
	Type() LightType

	// Name returns the light name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Node returns the node the light reads its transform from.
	//
	// Returns:
	//   - node.Node: the light node
	Node() node.Node

	// Position returns the world position computed by the last Update.
	//
	// Returns:
	//   - mgl32.Vec3: the world-space position
	Position() mgl32.Vec3

	// Direction returns the normalized direction the light shines along, computed by the last Update.
	//
	// Returns:
	//   - mgl32.Vec3: the world-space direction
	Direction() mgl32.Vec3

	// Color returns the linear RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: the color
	Color() mgl32.Vec3

	// SetColor sets the linear RGB color of the light.
	//
	// Parameters:
	//   - c: the color
	SetColor(c mgl32.Vec3)

	// UseColorTemperature reports whether the color is tinted by the color temperature.
	//
	// Returns:
	//   - bool: true when the color temperature applies
	UseColorTemperature() bool

	// SetUseColorTemperature enables or disables the color temperature tint.
	//
	// Parameters:
	//   - enabled: whether the color temperature applies
	SetUseColorTemperature(enabled bool)

	// ColorTemperature returns the color temperature in Kelvin.
	//
	// Returns:
	//   - float32: the temperature
	ColorTemperature() float32

	// SetColorTemperature sets the color temperature in Kelvin and recomputes its RGB tint.
	//
	// Parameters:
	//   - kelvin: the temperature, clamped to [1000, 15000]
	SetColorTemperature(kelvin float32)

	// ColorTemperatureRGB returns the RGB tint of the color temperature.
	//
	// Returns:
	//   - mgl32.Vec3: the tint
	ColorTemperatureRGB() mgl32.Vec3

	// Luminance returns the luminous intensity of a sphere or spot light.
	//
	// Returns:
	//   - float32: the luminance, zero for directional lights
	Luminance() float32

	// SetLuminance sets the luminous intensity of a sphere or spot light.
	//
	// Parameters:
	//   - luminance: the luminance
	SetLuminance(luminance float32)

	// Illuminance returns the illuminance of a directional light.
	//
	// Returns:
	//   - float32: the illuminance, zero for sphere and spot lights
	Illuminance() float32

	// SetIlluminance sets the illuminance of a directional light.
	//
	// Parameters:
	//   - illuminance: the illuminance in lux
	SetIlluminance(illuminance float32)

	// Range returns the distance at which a sphere or spot light stops contributing.
	//
	// Returns:
	//   - float32: the range
	Range() float32

	// SetRange sets the range of a sphere or spot light.
	//
	// Parameters:
	//   - r: the range
	SetRange(r float32)

	// Size returns the physical radius of a sphere or spot light.
	//
	// Returns:
	//   - float32: the size
	Size() float32

	// SetSize sets the physical radius of a sphere or spot light.
	//
	// Parameters:
	//   - size: the size
	SetSize(size float32)

	// SpotAngle returns the cosine of half the cone angle of a spot light.
	//
	// Returns:
	//   - float32: cos(angle / 2), zero for other lights
	SpotAngle() float32

	// SetSpotAngle sets the full cone angle of a spot light.
	//
	// Parameters:
	//   - radians: the full cone angle in radians
	SetSpotAngle(radians float32)

	// AABB returns the world bounds of a sphere or spot light computed by the last Update.
	//
	// Returns:
	//   - common.AABB: the bounds, zero for directional lights
	AABB() common.AABB

	// Frustum returns the world frustum of a spot light computed by the last Update.
	//
	// Returns:
	//   - common.Frustum: the cone's bounding frustum, zero for other lights
	Frustum() common.Frustum

	// Update refreshes position, direction and the derived bounds from the node.
	Update()

	// Destroy frees the light's pool entries and, if the light created it, its node.
	Destroy()
}

var _ Light = &lightImpl{}

// NewSphereLight creates a sphere light.
//
// Parameters:
//   - pools: the pools the light is stored in
//   - options: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new sphere light
func NewSphereLight(pools *pool.Pools, options ...LightBuilderOption) Light {
	return newLight(pools, LightTypeSphere, options...)
}

// NewSpotLight creates a spot light with a 60 degree cone.
//
// Parameters:
//   - pools: the pools the light is stored in
//   - options: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new spot light
func NewSpotLight(pools *pool.Pools, options ...LightBuilderOption) Light {
	return newLight(pools, LightTypeSpot, options...)
}

// NewDirectionalLight creates a directional light.
//
// Parameters:
//   - pools: the pools the light is stored in
//   - options: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new directional light
func NewDirectionalLight(pools *pool.Pools, options ...LightBuilderOption) Light {
	return newLight(pools, LightTypeDirectional, options...)
}

func newLight(pools *pool.Pools, lightType LightType, options ...LightBuilderOption) *lightImpl {
	l := &lightImpl{
		pools:            pools,
		handle:           pools.Light.Alloc(),
		lightType:        lightType,
		color:            mgl32.Vec3{1, 1, 1},
		colorTemperature: DefaultColorTemperature,
		spotAngleRad:     mgl32.DegToRad(60),
	}
	lp := pools.Light
	lp.SetUint32(l.handle, pool.LightType, uint32(lightType))
	switch lightType {
	case LightTypeDirectional:
		lp.SetFloat32(l.handle, pool.LightIlluminance, DefaultIlluminance)
	default:
		l.aabb = pools.AABB.Alloc()
		lp.SetHandle(l.handle, pool.LightAABB, l.aabb)
		lp.SetFloat32(l.handle, pool.LightLuminance, DefaultLuminance)
		lp.SetFloat32(l.handle, pool.LightRange, 1)
		lp.SetFloat32(l.handle, pool.LightSize, 0.15)
	}
	if lightType == LightTypeSpot {
		l.frustum = pools.Frustum.Alloc()
		lp.SetHandle(l.handle, pool.LightFrustum, l.frustum)
		lp.SetFloat32(l.handle, pool.LightSpotAngle, float32(math.Cos(float64(l.spotAngleRad)*0.5)))
	}
	for _, opt := range options {
		opt(l)
	}
	if l.node == nil {
		l.node = node.NewNode(pools, node.WithName(l.name))
		l.ownNode = true
	}
	if l.initPosition != nil {
		l.node.SetPosition(*l.initPosition)
	}
	if l.initDirection != nil {
		pos := l.node.Position()
		up := mgl32.Vec3{0, 1, 0}
		if d := l.initDirection.Normalize(); math.Abs(float64(d.Dot(up))) > 0.999 {
			up = mgl32.Vec3{0, 0, 1}
		}
		l.node.LookAt(pos.Add(*l.initDirection), up)
	}
	l.initPosition, l.initDirection = nil, nil
	lp.SetHandle(l.handle, pool.LightNode, l.node.Handle())
	lp.SetVec3(l.handle, pool.LightColor, l.color)
	l.SetColorTemperature(l.colorTemperature)
	l.Update()
	return l
}

func (l *lightImpl) Handle() pool.Handle {
	return l.handle
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Name() string {
	return l.name
}

func (l *lightImpl) Node() node.Node {
	return l.node
}

func (l *lightImpl) Position() mgl32.Vec3 {
	return l.position
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	return l.direction
}

func (l *lightImpl) Color() mgl32.Vec3 {
	return l.color
}

func (l *lightImpl) SetColor(c mgl32.Vec3) {
	l.color = c
	l.pools.Light.SetVec3(l.handle, pool.LightColor, c)
}

func (l *lightImpl) UseColorTemperature() bool {
	return l.pools.Light.GetBool(l.handle, pool.LightUseColorTemperature)
}

func (l *lightImpl) SetUseColorTemperature(enabled bool) {
	l.pools.Light.SetBool(l.handle, pool.LightUseColorTemperature, enabled)
}

func (l *lightImpl) ColorTemperature() float32 {
	return l.colorTemperature
}

func (l *lightImpl) SetColorTemperature(kelvin float32) {
	l.colorTemperature = mgl32.Clamp(kelvin, 1000, 15000)
	l.pools.Light.SetVec3(l.handle, pool.LightColorTemperatureRGB, ColorTemperatureToRGB(l.colorTemperature))
}

func (l *lightImpl) ColorTemperatureRGB() mgl32.Vec3 {
	return ColorTemperatureToRGB(l.colorTemperature)
}

func (l *lightImpl) Luminance() float32 {
	return l.pools.Light.GetFloat32(l.handle, pool.LightLuminance)
}

func (l *lightImpl) SetLuminance(luminance float32) {
	if l.lightType == LightTypeDirectional {
		return
	}
	l.pools.Light.SetFloat32(l.handle, pool.LightLuminance, luminance)
}

func (l *lightImpl) Illuminance() float32 {
	return l.pools.Light.GetFloat32(l.handle, pool.LightIlluminance)
}

func (l *lightImpl) SetIlluminance(illuminance float32) {
	if l.lightType != LightTypeDirectional {
		return
	}
	l.pools.Light.SetFloat32(l.handle, pool.LightIlluminance, illuminance)
}

func (l *lightImpl) Range() float32 {
	return l.pools.Light.GetFloat32(l.handle, pool.LightRange)
}

func (l *lightImpl) SetRange(r float32) {
	if l.lightType == LightTypeDirectional {
		return
	}
	l.pools.Light.SetFloat32(l.handle, pool.LightRange, r)
}

func (l *lightImpl) Size() float32 {
	return l.pools.Light.GetFloat32(l.handle, pool.LightSize)
}

func (l *lightImpl) SetSize(size float32) {
	if l.lightType == LightTypeDirectional {
		return
	}
	l.pools.Light.SetFloat32(l.handle, pool.LightSize, size)
}

func (l *lightImpl) SpotAngle() float32 {
	return l.pools.Light.GetFloat32(l.handle, pool.LightSpotAngle)
}

func (l *lightImpl) SetSpotAngle(radians float32) {
	if l.lightType != LightTypeSpot {
		return
	}
	l.spotAngleRad = radians
	l.pools.Light.SetFloat32(l.handle, pool.LightSpotAngle, float32(math.Cos(float64(radians)*0.5)))
}

func (l *lightImpl) AABB() common.AABB {
	return l.bounds
}

func (l *lightImpl) Frustum() common.Frustum {
	return l.worldFrustum
}

func (l *lightImpl) Update() {
	if l.handle.IsNull() {
		return
	}
	l.position = l.node.WorldPosition()
	l.direction = l.node.Forward()

	lp := l.pools.Light
	lp.SetVec3(l.handle, pool.LightPosition, l.position)
	lp.SetVec3(l.handle, pool.LightDirection, l.direction)
	if l.lightType == LightTypeDirectional {
		return
	}

	r := l.Range()
	l.bounds = common.AABB{Center: l.position, HalfExtents: mgl32.Vec3{r, r, r}}
	l.pools.AABB.SetVec3(l.aabb, pool.AABBCenter, l.bounds.Center)
	l.pools.AABB.SetVec3(l.aabb, pool.AABBHalfExtents, l.bounds.HalfExtents)
	if l.lightType != LightTypeSpot {
		return
	}

	view := l.node.WorldMatrix().Inv()
	proj := mgl32.Perspective(l.spotAngleRad, 1, spotNear, max(r, spotNear*2))
	l.worldFrustum = common.ExtractFrustumFromMatrix(proj.Mul4(view))
	if l.pools.Mirror() {
		l.pools.Frustum.SetFloats(l.frustum, pool.FrustumVertices, common.FrustumVertexFloats(l.worldFrustum))
		l.pools.Frustum.SetFloats(l.frustum, pool.FrustumPlanes, common.FrustumPlaneFloats(l.worldFrustum))
	}
}

func (l *lightImpl) Destroy() {
	if l.handle.IsNull() {
		return
	}
	if !l.aabb.IsNull() {
		l.pools.AABB.Free(l.aabb)
	}
	if !l.frustum.IsNull() {
		l.pools.Frustum.Free(l.frustum)
	}
	if l.ownNode {
		l.node.Destroy()
	}
	l.pools.Light.Free(l.handle)
	l.handle, l.aabb, l.frustum = pool.NullHandle, pool.NullHandle, pool.NullHandle
}

// ColorTemperatureToRGB approximates the linear RGB tint of a black body at the given temperature.
// The Planckian locus is approximated in CIE 1960 UCS and converted through XYZ with BT.709 primaries.
//
// Parameters:
//   - kelvin: the temperature, clamped to [1000, 15000]
//
// Returns:
//   - mgl32.Vec3: the RGB tint
func ColorTemperatureToRGB(kelvin float32) mgl32.Vec3 {
	k := float64(mgl32.Clamp(kelvin, 1000, 15000))
	k2 := k * k
	u := (0.860117757 + 1.54118254e-4*k + 1.28641212e-7*k2) / (1 + 8.42420235e-4*k + 7.08145163e-7*k2)
	v := (0.317398726 + 4.22806245e-5*k + 4.20481691e-8*k2) / (1 - 2.89741816e-5*k + 1.61456053e-7*k2)

	d := 2*u - 8*v + 4
	x := 3 * u / d
	y := 2 * v / d
	z := 1 - x - y
	bigX := x / y
	bigZ := z / y

	return mgl32.Vec3{
		float32(3.2404542*bigX - 1.5371385 - 0.4985314*bigZ),
		float32(-0.9692660*bigX + 1.8760108 + 0.0415560*bigZ),
		float32(0.0556434*bigX - 0.2040259 + 1.0572252*bigZ),
	}
}
