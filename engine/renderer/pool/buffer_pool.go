package pool

import (
	"math/bits"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// bufferChunk is one fixed-size block of entries. u32 and f32 are the shared backing stores
// of the two storage classes; gens holds the generation of every entry and free is the
// LIFO stack of unused entry indices.
type bufferChunk struct {
	u32  []uint32
	f32  []float32
	gens []uint32
	free []uint32
}

// BufferPool stores fixed-layout entities addressed by handles. F is the field enumeration of
// the entity; field i is described by the i-th kind of the pool's Layout.
//
// Chunks are only ever appended. Freed entries are zeroed and recycled, never compacted.
type BufferPool[F ~uint32] struct {
	typ       Type
	layout    *Layout
	cfg       *config
	chunkSize uint32
	entryBits uint32
	entryMask uint32
	maxChunks int
	chunks    []*bufferChunk
	live      int
}

// NewBufferPool creates an empty BufferPool.
//
// Parameters:
//   - t: the pool type encoded into issued handles
//   - layout: the per-entry field layout
//   - options: pool options (chunk size, mirror, debug checks, violation handler)
//
// Returns:
//   - *BufferPool[F]: the pool
func NewBufferPool[F ~uint32](t Type, layout *Layout, options ...PoolBuilderOption) *BufferPool[F] {
	return newBufferPool[F](t, layout, newConfig(options...))
}

func newBufferPool[F ~uint32](t Type, layout *Layout, cfg *config) *BufferPool[F] {
	entryBits := uint32(bits.TrailingZeros32(cfg.chunkSize))
	return &BufferPool[F]{
		typ:       t,
		layout:    layout,
		cfg:       cfg,
		chunkSize: cfg.chunkSize,
		entryBits: entryBits,
		entryMask: cfg.chunkSize - 1,
		maxChunks: (MaxIndex + 1) >> entryBits,
	}
}

// Type returns the pool type.
func (p *BufferPool[F]) Type() Type {
	return p.typ
}

// Len returns the number of live entries.
func (p *BufferPool[F]) Len() int {
	return p.live
}

// Chunks returns the number of allocated chunks.
func (p *BufferPool[F]) Chunks() int {
	return len(p.chunks)
}

// ChunkSize returns the number of entries per chunk.
func (p *BufferPool[F]) ChunkSize() uint32 {
	return p.chunkSize
}

// Alloc reserves an entry and returns its handle. The most recently freed entry of the first
// chunk with free entries is reused before a new chunk is allocated. Entries start zeroed.
//
// Returns:
//   - Handle: the new handle, NullHandle when the index space is exhausted
func (p *BufferPool[F]) Alloc() Handle {
	var ci int
	var c *bufferChunk
	for i, ch := range p.chunks {
		if len(ch.free) > 0 {
			ci, c = i, ch
			break
		}
	}
	if c == nil {
		if len(p.chunks) >= p.maxChunks {
			p.cfg.onViolation(Violation{Kind: ViolationOutOfRange, Pool: p.typ, Op: "alloc"})
			return NullHandle
		}
		c = p.newChunk()
		ci = len(p.chunks)
		p.chunks = append(p.chunks, c)
	}
	e := c.free[len(c.free)-1]
	c.free = c.free[:len(c.free)-1]
	p.live++
	return newHandle(p.typ, uint32(ci)<<p.entryBits|e, c.gens[e])
}

func (p *BufferPool[F]) newChunk() *bufferChunk {
	uStride, fStride := p.layout.Strides()
	c := &bufferChunk{
		u32:  make([]uint32, p.chunkSize*uStride),
		f32:  make([]float32, p.chunkSize*fStride),
		gens: make([]uint32, p.chunkSize),
		free: make([]uint32, p.chunkSize),
	}
	// entry 0 sits on top of the stack so a fresh chunk hands out ascending indices
	for i := range c.free {
		c.free[i] = p.chunkSize - 1 - uint32(i)
	}
	return c
}

// Free zeroes the entry, advances its generation and pushes it onto its chunk's free-list.
// Freeing a handle whose generation no longer matches is ignored; with debug checks on it is
// reported as a double free or a stale handle.
//
// Parameters:
//   - h: the handle to free
func (p *BufferPool[F]) Free(h Handle) {
	c, e, ok := p.locate(h, "free", false)
	if !ok {
		return
	}
	if c.gens[e] != h.Generation() {
		if p.cfg.debug {
			kind := ViolationStale
			if slices.Contains(c.free, e) {
				kind = ViolationDoubleFree
			}
			p.cfg.onViolation(Violation{Kind: kind, Pool: p.typ, Handle: h, Op: "free"})
		}
		return
	}
	uStride, fStride := p.layout.Strides()
	clear(c.u32[e*uStride : (e+1)*uStride])
	clear(c.f32[e*fStride : (e+1)*fStride])
	c.gens[e]++
	c.free = append(c.free, e)
	p.live--
}

// IsValid reports whether h refers to a live entry of this pool. It never reports violations.
func (p *BufferPool[F]) IsValid(h Handle) bool {
	if h.IsNull() || h.Type() != p.typ {
		return false
	}
	ci := h.Chunk(p.entryBits)
	if int(ci) >= len(p.chunks) {
		return false
	}
	c := p.chunks[ci]
	e := h.Entry(p.entryMask)
	return c.gens[e] == h.Generation() && !slices.Contains(c.free, e)
}

// locate resolves a handle to its chunk and entry. The null and out-of-range guards always
// run; the remaining checks run only with debug checks enabled.
func (p *BufferPool[F]) locate(h Handle, op string, full bool) (*bufferChunk, uint32, bool) {
	if h.IsNull() {
		p.report(ViolationNullHandle, h, op)
		return nil, 0, false
	}
	if p.cfg.debug && h.Type() != p.typ {
		p.report(ViolationTypeMismatch, h, op)
		return nil, 0, false
	}
	ci := h.Chunk(p.entryBits)
	if int(ci) >= len(p.chunks) {
		p.report(ViolationOutOfRange, h, op)
		return nil, 0, false
	}
	c := p.chunks[ci]
	e := h.Entry(p.entryMask)
	if full && p.cfg.debug {
		if c.gens[e] != h.Generation() || slices.Contains(c.free, e) {
			p.report(ViolationStale, h, op)
			return nil, 0, false
		}
	}
	return c, e, true
}

func (p *BufferPool[F]) report(kind ViolationKind, h Handle, op string) {
	if p.cfg.debug {
		p.cfg.onViolation(Violation{Kind: kind, Pool: p.typ, Handle: h, Op: op})
	}
}

func (p *BufferPool[F]) u32(h Handle, f F, slots uint32, op string) []uint32 {
	c, e, ok := p.locate(h, op, true)
	if !ok {
		return nil
	}
	off, ok := p.layout.field(uint32(f), StorageUint32, slots)
	if !ok {
		return nil
	}
	base := e*p.layout.uStride + off
	return c.u32[base : base+slots]
}

func (p *BufferPool[F]) f32(h Handle, f F, slots uint32, op string) []float32 {
	c, e, ok := p.locate(h, op, true)
	if !ok {
		return nil
	}
	off, ok := p.layout.field(uint32(f), StorageFloat32, slots)
	if !ok {
		return nil
	}
	base := e*p.layout.fStride + off
	return c.f32[base : base+slots]
}

// GetUint32 reads a uint32 field. Invalid handles read as 0.
func (p *BufferPool[F]) GetUint32(h Handle, f F) uint32 {
	if s := p.u32(h, f, 1, "get"); s != nil {
		return s[0]
	}
	return 0
}

// SetUint32 writes a uint32 field. Invalid handles are ignored.
func (p *BufferPool[F]) SetUint32(h Handle, f F, v uint32) {
	if s := p.u32(h, f, 1, "set"); s != nil {
		s[0] = v
	}
}

// GetBool reads a uint32 field as a boolean.
func (p *BufferPool[F]) GetBool(h Handle, f F) bool {
	return p.GetUint32(h, f) != 0
}

// SetBool writes a boolean into a uint32 field.
func (p *BufferPool[F]) SetBool(h Handle, f F, v bool) {
	var u uint32
	if v {
		u = 1
	}
	p.SetUint32(h, f, u)
}

// GetHandle reads a handle field. Invalid handles read as NullHandle.
func (p *BufferPool[F]) GetHandle(h Handle, f F) Handle {
	if s := p.u32(h, f, 2, "get"); s != nil {
		return Handle(uint64(s[1])<<32 | uint64(s[0]))
	}
	return NullHandle
}

// SetHandle writes a handle field. Invalid handles are ignored.
func (p *BufferPool[F]) SetHandle(h Handle, f F, v Handle) {
	if s := p.u32(h, f, 2, "set"); s != nil {
		s[0] = uint32(v)
		s[1] = uint32(v >> 32)
	}
}

// GetFloat32 reads a float32 field. Invalid handles read as 0.
func (p *BufferPool[F]) GetFloat32(h Handle, f F) float32 {
	if s := p.f32(h, f, 1, "get"); s != nil {
		return s[0]
	}
	return 0
}

// SetFloat32 writes a float32 field. Invalid handles are ignored.
func (p *BufferPool[F]) SetFloat32(h Handle, f F, v float32) {
	if s := p.f32(h, f, 1, "set"); s != nil {
		s[0] = v
	}
}

// Mirror reports whether vector and matrix writes are stored.
func (p *BufferPool[F]) Mirror() bool {
	return p.cfg.mirror
}

// SetVec2 writes a vector field. It is a no-op unless mirroring is enabled.
func (p *BufferPool[F]) SetVec2(h Handle, f F, v mgl32.Vec2) {
	p.SetFloats(h, f, v[:])
}

// SetVec3 writes a vector field. It is a no-op unless mirroring is enabled.
func (p *BufferPool[F]) SetVec3(h Handle, f F, v mgl32.Vec3) {
	p.SetFloats(h, f, v[:])
}

// SetVec4 writes a vector field. It is a no-op unless mirroring is enabled.
func (p *BufferPool[F]) SetVec4(h Handle, f F, v mgl32.Vec4) {
	p.SetFloats(h, f, v[:])
}

// SetMat4 writes a matrix field. It is a no-op unless mirroring is enabled.
func (p *BufferPool[F]) SetMat4(h Handle, f F, m mgl32.Mat4) {
	p.SetFloats(h, f, m[:])
}

// SetFloats writes len(v) contiguous float32 slots of a field. It is a no-op unless mirroring is enabled.
func (p *BufferPool[F]) SetFloats(h Handle, f F, v []float32) {
	if !p.cfg.mirror {
		return
	}
	if s := p.f32(h, f, uint32(len(v)), "set"); s != nil {
		copy(s, v)
	}
}

// GetFloats reads len(dst) contiguous float32 slots of a field into dst and reports whether the read succeeded.
func (p *BufferPool[F]) GetFloats(h Handle, f F, dst []float32) bool {
	s := p.f32(h, f, uint32(len(dst)), "get")
	if s == nil {
		return false
	}
	copy(dst, s)
	return true
}

// GetVec2 reads a vector field. Invalid handles read as the zero vector.
func (p *BufferPool[F]) GetVec2(h Handle, f F) (v mgl32.Vec2) {
	p.GetFloats(h, f, v[:])
	return v
}

// GetVec3 reads a vector field. Invalid handles read as the zero vector.
func (p *BufferPool[F]) GetVec3(h Handle, f F) (v mgl32.Vec3) {
	p.GetFloats(h, f, v[:])
	return v
}

// GetVec4 reads a vector field. Invalid handles read as the zero vector.
func (p *BufferPool[F]) GetVec4(h Handle, f F) (v mgl32.Vec4) {
	p.GetFloats(h, f, v[:])
	return v
}

// GetMat4 reads a matrix field. Invalid handles read as the zero matrix.
func (p *BufferPool[F]) GetMat4(h Handle, f F) (m mgl32.Mat4) {
	p.GetFloats(h, f, m[:])
	return m
}
