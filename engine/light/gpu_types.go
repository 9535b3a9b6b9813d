package light

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Float offsets of the members of one forward light entry.
const (
	ForwardLightPosOffset            = 0
	ForwardLightColorOffset          = 4
	ForwardLightSizeRangeAngleOffset = 8
	ForwardLightDirOffset            = 12
	ForwardLightFloats               = 16
)

// ForwardLightSize is the byte size of one forward light entry.
const ForwardLightSize = ForwardLightFloats * 4

// ForwardLightBinding is the binding of the forward light uniform in the local descriptor set.
const ForwardLightBinding = 1

// LightMeterScale converts photometric light units into the renderer's HDR range.
const LightMeterScale float32 = 10000

// GPUForwardLight is the GPU-aligned representation of one light of the additive light queue.
// Matches the WGSL ForwardLight struct of the standard program.
// Size: 64 bytes (std140 aligned).
type GPUForwardLight struct {
	Position       [4]float32 // offset  0: world position, w = 0 for sphere and 1 for spot lights
	Color          [4]float32 // offset 16: tinted linear color, w = scaled luminance
	SizeRangeAngle [4]float32 // offset 32: size, range, cos(half spot angle), unused
	Direction      [4]float32 // offset 48: spot direction, unused for sphere lights
}

// Size returns the size of the GPUForwardLight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPUForwardLight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUForwardLight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPUForwardLight) Marshal() []byte {
	buf := make([]byte, ForwardLightSize)
	g.MarshalInto(buf)
	return buf
}

// MarshalInto writes the entry into the first 64 bytes of dst. Shorter destinations are left untouched.
//
// Parameters:
//   - dst: the destination, typically a slice of the light buffer at lightIndex * stride
func (g *GPUForwardLight) MarshalInto(dst []byte) {
	if len(dst) < ForwardLightSize {
		return
	}
	for i, f := range g.Floats() {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(f))
	}
}

// Floats returns the entry as 16 floats in buffer order.
func (g *GPUForwardLight) Floats() [ForwardLightFloats]float32 {
	var out [ForwardLightFloats]float32
	copy(out[ForwardLightPosOffset:], g.Position[:])
	copy(out[ForwardLightColorOffset:], g.Color[:])
	copy(out[ForwardLightSizeRangeAngleOffset:], g.SizeRangeAngle[:])
	copy(out[ForwardLightDirOffset:], g.Direction[:])
	return out
}

// PackSphere packs a sphere light into a forward light entry.
//
// Parameters:
//   - l: the light, after its Update for the frame
//   - hdr: whether the luminance is scaled into the HDR range
//   - fpScale: the renderer's floating point scale, used only when hdr is set
//
// Returns:
//   - GPUForwardLight: the packed entry
func PackSphere(l Light, hdr bool, fpScale float32) GPUForwardLight {
	pos := l.Position()
	return GPUForwardLight{
		Position:       [4]float32{pos[0], pos[1], pos[2], 0},
		Color:          packColor(l, hdr, fpScale),
		SizeRangeAngle: [4]float32{l.Size(), l.Range(), 0, 0},
	}
}

// PackSpot packs a spot light into a forward light entry.
//
// Parameters:
//   - l: the light, after its Update for the frame
//   - hdr: whether the luminance is scaled into the HDR range
//   - fpScale: the renderer's floating point scale, used only when hdr is set
//
// Returns:
//   - GPUForwardLight: the packed entry
func PackSpot(l Light, hdr bool, fpScale float32) GPUForwardLight {
	pos := l.Position()
	dir := l.Direction()
	return GPUForwardLight{
		Position:       [4]float32{pos[0], pos[1], pos[2], 1},
		Color:          packColor(l, hdr, fpScale),
		SizeRangeAngle: [4]float32{l.Size(), l.Range(), l.SpotAngle(), 0},
		Direction:      [4]float32{dir[0], dir[1], dir[2], 0},
	}
}

// Pack packs a sphere or spot light. Directional lights yield the zero entry.
func Pack(l Light, hdr bool, fpScale float32) GPUForwardLight {
	switch l.Type() {
	case LightTypeSphere:
		return PackSphere(l, hdr, fpScale)
	case LightTypeSpot:
		return PackSpot(l, hdr, fpScale)
	default:
		return GPUForwardLight{}
	}
}

func tint(l Light) mgl32.Vec3 {
	c := l.Color()
	if l.UseColorTemperature() {
		t := l.ColorTemperatureRGB()
		c = mgl32.Vec3{c[0] * t[0], c[1] * t[1], c[2] * t[2]}
	}
	return c
}

func packColor(l Light, hdr bool, fpScale float32) [4]float32 {
	c := tint(l)
	lum := l.Luminance()
	if hdr {
		lum *= fpScale * LightMeterScale
	}
	return [4]float32{c[0], c[1], c[2], lum}
}

// GPUMainLightUniform is the main light part of the global uniform buffer. It follows the camera
// part in the WGSL Global struct of the standard program.
// Size: 48 bytes (std140 aligned).
type GPUMainLightUniform struct {
	Direction [4]float32 // offset  0: direction the light travels, w unused
	Color     [4]float32 // offset 16: tinted linear color, w = scaled illuminance
	Ambient   [4]float32 // offset 32: ambient sky color, w = ambient intensity
}

// Size returns the size of the GPUMainLightUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (g *GPUMainLightUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMainLightUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (g *GPUMainLightUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	vecs := [3][4]float32{g.Direction, g.Color, g.Ambient}
	for v := range vecs {
		for i := range 4 {
			binary.LittleEndian.PutUint32(buf[(v*4+i)*4:], math.Float32bits(vecs[v][i]))
		}
	}
	return buf
}

// MainLightUniform builds the main light uniform. A nil or non-directional light contributes no
// direct light and keeps only the ambient term.
//
// Parameters:
//   - l: the scene's main light, may be nil
//   - ambient: the ambient sky color with its intensity in w
//   - hdr: whether the illuminance is scaled into the HDR range
//   - exposure: the camera exposure, used only when hdr is set
//
// Returns:
//   - GPUMainLightUniform: the uniform
func MainLightUniform(l Light, ambient mgl32.Vec4, hdr bool, exposure float32) GPUMainLightUniform {
	u := GPUMainLightUniform{Ambient: ambient}
	if l == nil || l.Type() != LightTypeDirectional {
		return u
	}
	dir := l.Direction()
	c := tint(l)
	illum := l.Illuminance()
	if hdr {
		illum *= exposure
	}
	u.Direction = [4]float32{dir[0], dir[1], dir[2], 0}
	u.Color = [4]float32{c[0], c[1], c[2], illum}
	return u
}
