package backend

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped

	// PresentModeMailbox replaces the queued frame with the newest one without tearing.
	// Falls back to VSync when the surface does not support it.
	PresentModeMailbox
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// uboOffsetAlignment is the dynamic uniform offset alignment reported to the renderer.
// 256 is the largest value WebGPU allows an adapter to require, so it satisfies every adapter.
const uboOffsetAlignment = 256

// minDummySize is the smallest placeholder buffer bound to empty uniform slots.
const minDummySize = 256
