package gfx

import (
	"encoding/binary"
	"hash/fnv"
)

// FormatSize returns the size in bytes of an attribute.
//
// Parameters:
//   - attr: the attribute to measure
//
// Returns:
//   - uint32: the size of one element of the attribute's format
func FormatSize(attr Attribute) uint32 {
	return uint32(attr.Format.Size())
}

// StreamStride returns the summed size of every attribute read from a stream.
//
// Parameters:
//   - attrs: the attribute list
//   - stream: the vertex stream to measure
//
// Returns:
//   - uint32: the stride of the stream in bytes
func StreamStride(attrs []Attribute, stream uint32) uint32 {
	var stride uint32
	for i := range attrs {
		if attrs[i].Stream == stream {
			stride += FormatSize(attrs[i])
		}
	}
	return stride
}

// HashAttributes hashes an attribute layout with FNV-1a. Locations are excluded;
// they are derived from the shader and resolved when a pipeline is built.
//
// Parameters:
//   - attrs: the attributes to hash
//
// Returns:
//   - uint32: the layout hash
func HashAttributes(attrs []Attribute) uint32 {
	h := fnv.New32a()
	var buf [4]byte
	for i := range attrs {
		a := &attrs[i]
		h.Write([]byte(a.Name))
		binary.LittleEndian.PutUint32(buf[:], uint32(a.Format))
		h.Write(buf[:])
		binary.LittleEndian.PutUint32(buf[:], a.Stream)
		h.Write(buf[:])
		var flags byte
		if a.IsNormalized {
			flags |= 1
		}
		if a.IsInstanced {
			flags |= 2
		}
		h.Write([]byte{flags})
	}
	return h.Sum32()
}

// HashRenderPass hashes a render pass description with FNV-1a.
//
// Parameters:
//   - info: the render pass description
//
// Returns:
//   - uint32: the render pass hash
func HashRenderPass(info RenderPassInfo) uint32 {
	h := fnv.New32a()
	var buf [4]byte
	for _, f := range info.ColorFormats {
		binary.LittleEndian.PutUint32(buf[:], uint32(f))
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint32(buf[:], uint32(info.DepthStencilFormat))
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], info.SampleCount)
	h.Write(buf[:])
	return h.Sum32()
}
