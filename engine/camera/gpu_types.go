package camera

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUCameraUniform is the GPU-aligned camera part of the global uniform buffer. It matches the
// first two members of the WGSL Global struct of the standard program.
// Size: 80 bytes (std140 aligned).
type GPUCameraUniform struct {
	ViewProj       [16]float32 // offset  0: combined view-projection matrix in WebGPU clip space (mat4x4<f32>)
	CameraPosition [3]float32  // offset 64: world-space camera position (vec4<f32>.xyz)
	Exposure       float32     // offset 76: exposure scale (vec4<f32>.w)
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.CameraPosition[i]))
	}
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(g.Exposure))
	return buf
}

// ClipCorrection remaps OpenGL clip depth [-w, w] to the WebGPU range [0, w].
var ClipCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Uniform builds the camera uniform for the camera's state after its last Update.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - GPUCameraUniform: the uniform with the view-projection in WebGPU clip space
func Uniform(c Camera) GPUCameraUniform {
	pos := c.Position()
	return GPUCameraUniform{
		ViewProj:       ClipCorrection.Mul4(c.ViewProjectionMatrix()),
		CameraPosition: [3]float32{pos[0], pos[1], pos[2]},
		Exposure:       c.Exposure(),
	}
}
