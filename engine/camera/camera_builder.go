package camera

import (
	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
)

// CameraBuilderOption is a function that configures a camera instance during construction.
type CameraBuilderOption func(*cameraImpl)

// WithName sets the camera name.
//
// Parameters:
//   - name: the camera name
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's name
func WithName(name string) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.name = name
	}
}

// WithNode sets the node the camera reads its transform from.
//
// Parameters:
//   - n: the camera node
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's node
func WithNode(n node.Node) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.node = n
	}
}

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithOrtho switches the camera to orthographic projection.
//
// Parameters:
//   - height: half the height of the view volume
//
// Returns:
//   - CameraBuilderOption: a function that sets the orthographic projection
func WithOrtho(height float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.projection = ProjectionOrtho
		c.orthoHeight = height
	}
}

// WithClipPlanes sets the near and far clipping plane distances.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the clip planes
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
		c.far = far
	}
}

// WithViewport sets the viewport size in pixels.
func WithViewport(width, height uint32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.width = width
		c.height = height
	}
}

// WithVisibility sets the layer mask of nodes the camera renders.
func WithVisibility(mask uint32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.pools.Camera.SetUint32(c.handle, pool.CameraVisibility, mask)
	}
}

// WithPhysicalExposure sets the aperture (f-stops), shutter time (seconds) and ISO used to derive
// the HDR exposure.
func WithPhysicalExposure(aperture, shutter, iso float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aperture = aperture
		c.shutter = shutter
		c.iso = iso
	}
}

// WithClearColor sets the color the camera clears to.
func WithClearColor(color gfx.Color) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.clearColor = color
	}
}
