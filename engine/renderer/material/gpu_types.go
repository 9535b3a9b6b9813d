package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUPassParamsSource is the canonical WGSL definition of the PassParams struct bound at
// @group(1) @binding(0). Shaders that declare it receive the pass tint.
const GPUPassParamsSource = `struct PassParams {
    tintColor: vec4<f32>,
};
`

// GPUPassParams is the GPU-aligned uniform of a pass.
// Matches the WGSL PassParams struct layout exactly (see GPUPassParamsSource).
// Size: 16 bytes (one vec4<f32>, std140 aligned).
type GPUPassParams struct {
	TintColor [4]float32 // offset 0: RGBA tint multiplied into the surface color (16 bytes)
}

// Size returns the size of the GPUPassParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUPassParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUPassParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUPassParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.TintColor[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.TintColor[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.TintColor[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.TintColor[3]))
	return buf
}
