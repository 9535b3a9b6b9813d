package pool

// MaxPassesPerSubModel is the number of pass and shader slots of a sub-model entry.
const MaxPassesPerSubModel = 8

// PassView enumerates the fields of a pass entry.
type PassView uint32

const (
	PassPriority PassView = iota
	PassPhase
	PassBatchingScheme
	PassPrimitive
	PassDynamicStates
	PassHash
	PassIsTransparent
	PassDescriptorSet
	PassPipelineLayout
	passViewCount
)

var passLayout = NewLayout(
	Uint32, Uint32, Uint32, Uint32, Uint32, Uint32, Uint32,
	HandleRef, HandleRef,
)

// SubModelView enumerates the fields of a sub-model entry.
type SubModelView uint32

const (
	SubModelPriority SubModelView = iota
	SubModelPassCount
	SubModelPass0
	SubModelShader0        = SubModelPass0 + MaxPassesPerSubModel
	SubModelDescriptorSet  = SubModelShader0 + MaxPassesPerSubModel
	SubModelInputAssembler = SubModelDescriptorSet + 1
	subModelViewCount      = SubModelInputAssembler + 1
)

var subModelLayout = func() *Layout {
	kinds := []FieldKind{Uint32, Uint32}
	for range 2 * MaxPassesPerSubModel {
		kinds = append(kinds, HandleRef)
	}
	kinds = append(kinds, HandleRef, HandleRef)
	return NewLayout(kinds...)
}()

// ModelView enumerates the fields of a model entry.
type ModelView uint32

const (
	ModelEnabled ModelView = iota
	ModelVisFlags
	ModelCastShadow
	ModelReceiveShadow
	ModelPriority
	ModelWorldBounds
	ModelNode
	ModelSubModelArray
	modelViewCount
)

var modelLayout = NewLayout(
	Uint32, Uint32, Uint32, Uint32, Uint32,
	HandleRef, HandleRef, HandleRef,
)

// NodeView enumerates the fields of a node entry.
type NodeView uint32

const (
	NodeFlagsChanged NodeView = iota
	NodeLayer
	NodeWorldScale
	NodeWorldPosition
	NodeWorldRotation
	NodeWorldMatrix
	nodeViewCount
)

var nodeLayout = NewLayout(Uint32, Uint32, Vec3, Vec3, Vec4, Mat4)

// CameraView enumerates the fields of a camera entry.
type CameraView uint32

const (
	CameraWidth CameraView = iota
	CameraHeight
	CameraVisibility
	CameraExposure
	CameraNode
	CameraFrustum
	CameraForward
	CameraPosition
	CameraMatView
	CameraMatProj
	CameraMatViewProj
	cameraViewCount
)

var cameraLayout = NewLayout(Uint32, Uint32, Uint32, Float32, HandleRef, HandleRef, Vec3, Vec3, Mat4, Mat4, Mat4)

// AABBView enumerates the fields of a bounding box entry.
type AABBView uint32

const (
	AABBCenter AABBView = iota
	AABBHalfExtents
	aabbViewCount
)

var aabbLayout = NewLayout(Vec3, Vec3)

// FrustumView enumerates the fields of a frustum entry.
type FrustumView uint32

const (
	// FrustumVertices holds the eight corners as 24 floats.
	FrustumVertices FrustumView = iota

	// FrustumPlanes holds the six planes as (nx, ny, nz, d) quadruples.
	FrustumPlanes
	frustumViewCount
)

var frustumLayout = NewLayout(FloatArray(24), FloatArray(24))

// LightView enumerates the fields of a light entry.
type LightView uint32

const (
	LightType LightView = iota
	LightUseColorTemperature
	LightNode
	LightAABB
	LightFrustum
	LightIlluminance
	LightLuminance
	LightRange
	LightSize
	LightSpotAngle
	LightDirection
	LightColor
	LightColorTemperatureRGB
	LightPosition
	lightViewCount
)

var lightLayout = NewLayout(
	Uint32, Uint32, HandleRef, HandleRef, HandleRef,
	Float32, Float32, Float32, Float32, Float32,
	Vec3, Vec3, Vec3, Vec3,
)

// ShadowsView enumerates the fields of a shadow settings entry.
type ShadowsView uint32

const (
	ShadowsEnabled ShadowsView = iota
	ShadowsType
	ShadowsFixedArea
	ShadowsNear
	ShadowsFar
	ShadowsOrthoSize
	ShadowsDistance
	ShadowsBias
	ShadowsSize
	ShadowsNormal
	ShadowsCasterSphere
	ShadowsReceiverSphere
	ShadowsMatLight
	shadowsViewCount
)

var shadowsLayout = NewLayout(
	Uint32, Uint32, Uint32,
	Float32, Float32, Float32, Float32, Float32,
	Vec2, Vec3, Vec4, Vec4, Mat4,
)
