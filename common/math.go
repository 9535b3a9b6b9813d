package common

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/go-gl/mathgl/mgl32"
)

// PutMat4 writes a column-major 4x4 matrix as 16 little-endian float32 values into dst.
// dst must hold at least 64 bytes.
//
// Parameters:
//   - dst: destination byte slice
//   - m: the matrix to encode
func PutMat4(dst []byte, m mgl32.Mat4) {
	for i, v := range m {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// Float32At reads a little-endian float32 from src at byte offset off.
func Float32At(src []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
}

// NextPowerOfTwo returns the smallest power of two greater than or equal to n.
// Returns 1 for n == 0.
//
// Parameters:
//   - n: the value to round up
//
// Returns:
//   - uint32: the rounded value
func NextPowerOfTwo(n uint32) uint32 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len32(n-1)
}

// AlignUp rounds size up to the next multiple of alignment. An alignment of 0 returns size unchanged.
func AlignUp(size, alignment uint32) uint32 {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) / alignment * alignment
}
