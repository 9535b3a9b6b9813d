package light

import (
	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
)

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithName sets the light name. A node created by the light inherits it.
//
// Parameters:
//   - name: the light name
//
// Returns:
//   - LightBuilderOption: a function that sets the light's name
func WithName(name string) LightBuilderOption {
	return func(l *lightImpl) {
		l.name = name
	}
}

// WithNode sets the node the light reads its transform from. The light does not destroy it.
//
// Parameters:
//   - n: the light node
//
// Returns:
//   - LightBuilderOption: a function that sets the light's node
func WithNode(n node.Node) LightBuilderOption {
	return func(l *lightImpl) {
		l.node = n
	}
}

// WithPosition is an option builder that sets the local position of the light's node.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(p mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.initPosition = &p
	}
}

// WithDirection is an option builder that turns the light's node to shine along the direction.
//
// Parameters:
//   - d: the direction, need not be normalized
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithDirection(d mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		if d.Len() == 0 {
			return
		}
		l.initDirection = &d
	}
}

// WithColor is an option builder that sets the linear RGB color of the light.
//
// Parameters:
//   - c: the color
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(c mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = c
	}
}

// WithColorTemperature enables the color temperature tint at the given temperature.
//
// Parameters:
//   - kelvin: the temperature in Kelvin
//
// Returns:
//   - LightBuilderOption: a function that applies the color temperature option to a lightImpl
func WithColorTemperature(kelvin float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.colorTemperature = kelvin
		l.pools.Light.SetBool(l.handle, pool.LightUseColorTemperature, true)
	}
}

// WithLuminance sets the luminous intensity of a sphere or spot light.
func WithLuminance(luminance float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetLuminance(luminance)
	}
}

// WithIlluminance sets the illuminance of a directional light.
func WithIlluminance(illuminance float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetIlluminance(illuminance)
	}
}

// WithRange sets the range of a sphere or spot light.
func WithRange(r float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetRange(r)
	}
}

// WithSize sets the physical radius of a sphere or spot light.
func WithSize(size float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetSize(size)
	}
}

// WithSpotAngle sets the full cone angle of a spot light in degrees.
//
// Parameters:
//   - degrees: the full cone angle
//
// Returns:
//   - LightBuilderOption: a function that applies the spot angle option to a lightImpl
func WithSpotAngle(degrees float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetSpotAngle(mgl32.DegToRad(degrees))
	}
}
