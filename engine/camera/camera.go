// Package camera holds render cameras. A camera reads its transform from a node and derives
// view, projection and frustum from it once per frame in Update.
package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
)

// Projection selects perspective or orthographic projection.
type Projection uint32

const (
	ProjectionPerspective Projection = iota
	ProjectionOrtho
)

type cameraImpl struct {
	mu *sync.Mutex

	pools   *pool.Pools
	handle  pool.Handle
	frustum pool.Handle
	node    node.Node
	name    string

	projection  Projection
	fov         float32
	orthoHeight float32
	near        float32
	far         float32
	width       uint32
	height      uint32

	aperture float32
	shutter  float32
	iso      float32

	clearColor gfx.Color
	clearDepth float32

	viewMatrix           mgl32.Mat4
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4
	worldFrustum         common.Frustum
	position             mgl32.Vec3
	forward              mgl32.Vec3
}

// Camera defines the interface for a render camera.
// Width, height, visibility and exposure live in the Camera pool; position, forward, the
// matrices and the frustum are mirrored there when pool mirroring is enabled.
type Camera interface {
	// Handle returns the camera's pool handle.
	//
	// Returns:
	//   - pool.Handle: the handle into the Camera pool
	Handle() pool.Handle

	// Name returns the camera name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Node returns the node the camera reads its transform from.
	//
	// Returns:
	//   - node.Node: the camera node
	Node() node.Node

	// Projection returns the projection type.
	//
	// Returns:
	//   - Projection: perspective or orthographic
	Projection() Projection

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio, 1 for an empty viewport
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Width returns the viewport width in pixels.
	//
	// Returns:
	//   - uint32: the width
	Width() uint32

	// Height returns the viewport height in pixels.
	//
	// Returns:
	//   - uint32: the height
	Height() uint32

	// Visibility returns the layer mask of nodes the camera renders.
	//
	// Returns:
	//   - uint32: the visibility mask
	Visibility() uint32

	// Exposure returns the photometric exposure computed by the last Update.
	//
	// Returns:
	//   - float32: the exposure scale
	Exposure() float32

	// ClearColor returns the color the camera clears to.
	//
	// Returns:
	//   - gfx.Color: the clear color
	ClearColor() gfx.Color

	// ClearDepth returns the depth the camera clears to.
	//
	// Returns:
	//   - float32: the clear depth
	ClearDepth() float32

	// ViewMatrix returns the view matrix computed by the last Update.
	//
	// Returns:
	//   - mgl32.Mat4: the world-to-view transform
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the projection matrix computed by the last Update (OpenGL clip depth).
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns projection * view.
	//
	// Returns:
	//   - mgl32.Mat4: the combined matrix
	ViewProjectionMatrix() mgl32.Mat4

	// Frustum returns the world-space frustum computed by the last Update.
	//
	// Returns:
	//   - common.Frustum: the frustum with inward-facing planes
	Frustum() common.Frustum

	// Position returns the world-space camera position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Forward returns the normalized world-space viewing direction.
	//
	// Returns:
	//   - mgl32.Vec3: the forward vector
	Forward() mgl32.Vec3

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetNear sets the near clipping plane distance.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)

	// SetViewport sets the viewport size, which also defines the aspect ratio.
	//
	// Parameters:
	//   - width, height: the viewport size in pixels
	SetViewport(width, height uint32)

	// SetVisibility sets the layer mask of nodes the camera renders.
	//
	// Parameters:
	//   - mask: the visibility mask
	SetVisibility(mask uint32)

	// Update recomputes matrices, frustum, position, forward and exposure from the node.
	//
	// Parameters:
	//   - hdr: whether the frame renders in HDR; exposure is 1 otherwise
	Update(hdr bool)

	// Destroy frees the pool entries.
	Destroy()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera instance configured with the provided options. Without WithNode the
// camera creates its own node at the origin looking down -Z.
//
// Parameters:
//   - pools: the pools the camera is stored in
//   - options: variadic list of CameraBuilderOption functions to configure the camera
//
// Returns:
//   - Camera: a new Camera instance
func NewCamera(pools *pool.Pools, options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:          &sync.Mutex{},
		pools:       pools,
		handle:      pools.Camera.Alloc(),
		frustum:     pools.Frustum.Alloc(),
		fov:         mgl32.DegToRad(45),
		orthoHeight: 10,
		near:        0.1,
		far:         1000,
		width:       1,
		height:      1,
		aperture:    16,
		shutter:     1.0 / 125,
		iso:         100,
		clearColor:  gfx.Color{R: 0.1, G: 0.1, B: 0.1, A: 1},
		clearDepth:  1,
	}
	cp := pools.Camera
	cp.SetUint32(c.handle, pool.CameraVisibility, node.LayerAll)
	cp.SetFloat32(c.handle, pool.CameraExposure, 1)
	cp.SetHandle(c.handle, pool.CameraFrustum, c.frustum)
	for _, opt := range options {
		opt(c)
	}
	if c.node == nil {
		c.node = node.NewNode(pools, node.WithName(c.name))
	}
	cp.SetHandle(c.handle, pool.CameraNode, c.node.Handle())
	cp.SetUint32(c.handle, pool.CameraWidth, c.width)
	cp.SetUint32(c.handle, pool.CameraHeight, c.height)
	c.updateMatrices(false)
	return c
}

func (c *cameraImpl) Handle() pool.Handle {
	return c.handle
}

func (c *cameraImpl) Name() string {
	return c.name
}

func (c *cameraImpl) Node() node.Node {
	return c.node
}

func (c *cameraImpl) Projection() Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect()
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Width() uint32 {
	return c.pools.Camera.GetUint32(c.handle, pool.CameraWidth)
}

func (c *cameraImpl) Height() uint32 {
	return c.pools.Camera.GetUint32(c.handle, pool.CameraHeight)
}

func (c *cameraImpl) Visibility() uint32 {
	return c.pools.Camera.GetUint32(c.handle, pool.CameraVisibility)
}

func (c *cameraImpl) Exposure() float32 {
	return c.pools.Camera.GetFloat32(c.handle, pool.CameraExposure)
}

func (c *cameraImpl) ClearColor() gfx.Color {
	return c.clearColor
}

func (c *cameraImpl) ClearDepth() float32 {
	return c.clearDepth
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.worldFrustum
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Forward() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forward
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
}

func (c *cameraImpl) SetViewport(width, height uint32) {
	c.pools.Camera.SetUint32(c.handle, pool.CameraWidth, width)
	c.pools.Camera.SetUint32(c.handle, pool.CameraHeight, height)
}

func (c *cameraImpl) SetVisibility(mask uint32) {
	c.pools.Camera.SetUint32(c.handle, pool.CameraVisibility, mask)
}

func (c *cameraImpl) Update(hdr bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices(hdr)
}

func (c *cameraImpl) Destroy() {
	if c.handle.IsNull() {
		return
	}
	c.pools.Frustum.Free(c.frustum)
	c.pools.Camera.Free(c.handle)
	c.handle = pool.NullHandle
	c.frustum = pool.NullHandle
}

// aspect derives the aspect ratio from the pooled viewport size. Caller must hold the mutex.
func (c *cameraImpl) aspect() float32 {
	w := c.pools.Camera.GetUint32(c.handle, pool.CameraWidth)
	h := c.pools.Camera.GetUint32(c.handle, pool.CameraHeight)
	if w == 0 || h == 0 {
		return 1
	}
	return float32(w) / float32(h)
}

// exposure converts the physical camera settings to an exposure scale: 1 / (1.2 * 2^EV100).
func (c *cameraImpl) exposure() float32 {
	ev100 := math.Log2(float64(c.aperture*c.aperture) / float64(c.shutter) * 100 / float64(c.iso))
	return float32(1 / (1.2 * math.Exp2(ev100)))
}

// updateMatrices recalculates the view, projection and view-projection matrices, the frustum and
// the exposure, and mirrors them into the pools. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices(hdr bool) {
	world := c.node.WorldMatrix()
	c.viewMatrix = world.Inv()
	aspect := c.aspect()
	switch c.projection {
	case ProjectionOrtho:
		hh := c.orthoHeight
		hw := hh * aspect
		c.projectionMatrix = mgl32.Ortho(-hw, hw, -hh, hh, c.near, c.far)
	default:
		c.projectionMatrix = mgl32.Perspective(c.fov, aspect, c.near, c.far)
	}
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
	c.worldFrustum = common.ExtractFrustumFromMatrix(c.viewProjectionMatrix)
	c.position = world.Col(3).Vec3()
	c.forward = c.node.Forward()

	exposure := float32(1)
	if hdr {
		exposure = c.exposure()
	}

	cp := c.pools.Camera
	cp.SetFloat32(c.handle, pool.CameraExposure, exposure)
	cp.SetVec3(c.handle, pool.CameraPosition, c.position)
	cp.SetVec3(c.handle, pool.CameraForward, c.forward)
	cp.SetMat4(c.handle, pool.CameraMatView, c.viewMatrix)
	cp.SetMat4(c.handle, pool.CameraMatProj, c.projectionMatrix)
	cp.SetMat4(c.handle, pool.CameraMatViewProj, c.viewProjectionMatrix)
	if cp.Mirror() {
		c.pools.Frustum.SetFloats(c.frustum, pool.FrustumVertices, common.FrustumVertexFloats(c.worldFrustum))
		c.pools.Frustum.SetFloats(c.frustum, pool.FrustumPlanes, common.FrustumPlaneFloats(c.worldFrustum))
	}
}
