package lighting

// DefaultLightBufferCapacity is the number of lights the light buffer holds before it first grows.
const DefaultLightBufferCapacity = 16

// AdditiveLightQueueBuilderOption configures a RenderAdditiveLightQueue.
type AdditiveLightQueueBuilderOption func(q *additiveLightQueue)

// WithHDR is an option builder that scales light luminance into the HDR range.
//
// Parameters:
//   - hdr: whether the renderer renders in HDR
//   - fpScale: the floating point scale applied with the light meter scale
//
// Returns:
//   - AdditiveLightQueueBuilderOption: a function that applies the HDR option to a queue
func WithHDR(hdr bool, fpScale float32) AdditiveLightQueueBuilderOption {
	return func(q *additiveLightQueue) {
		q.hdr = hdr
		q.fpScale = fpScale
	}
}

// WithLightBufferCapacity is an option builder that sets the initial light buffer capacity.
// The capacity is rounded up to a power of two.
//
// Parameters:
//   - lights: the number of lights
//
// Returns:
//   - AdditiveLightQueueBuilderOption: a function that applies the capacity option to a queue
func WithLightBufferCapacity(lights uint32) AdditiveLightQueueBuilderOption {
	return func(q *additiveLightQueue) {
		if lights > 0 {
			q.capacity = lights
		}
	}
}
