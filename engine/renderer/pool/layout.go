package pool

// StorageClass is the scalar type a field is stored as.
type StorageClass uint8

const (
	StorageUint32 StorageClass = iota
	StorageFloat32
)

// FieldKind describes the storage class and slot count of one field of a BufferPool entry.
type FieldKind struct {
	Class StorageClass
	Slots uint32
}

// Field kinds understood by BufferPool. Handle fields take two uint32 slots.
var (
	Uint32    = FieldKind{Class: StorageUint32, Slots: 1}
	HandleRef = FieldKind{Class: StorageUint32, Slots: 2}
	Float32   = FieldKind{Class: StorageFloat32, Slots: 1}
	Vec2      = FieldKind{Class: StorageFloat32, Slots: 2}
	Vec3      = FieldKind{Class: StorageFloat32, Slots: 3}
	Vec4      = FieldKind{Class: StorageFloat32, Slots: 4}
	Mat4      = FieldKind{Class: StorageFloat32, Slots: 16}
)

// FloatArray returns the kind of a field holding n contiguous float32 values.
func FloatArray(n uint32) FieldKind {
	return FieldKind{Class: StorageFloat32, Slots: n}
}

// Layout is the per-entry layout of a BufferPool. Fields are grouped by storage class:
// every uint32-class field occupies a run in the entry's uint32 block and every
// float32-class field a run in its float32 block.
type Layout struct {
	kinds   []FieldKind
	offsets []uint32
	uStride uint32
	fStride uint32
}

// NewLayout builds a Layout from field kinds. Field i of the layout is addressed by the value i
// of the pool's field enumeration.
//
// Parameters:
//   - kinds: the kind of every field, in enumeration order
//
// Returns:
//   - *Layout: the computed layout
func NewLayout(kinds ...FieldKind) *Layout {
	l := &Layout{kinds: kinds, offsets: make([]uint32, len(kinds))}
	for i, k := range kinds {
		switch k.Class {
		case StorageUint32:
			l.offsets[i] = l.uStride
			l.uStride += k.Slots
		case StorageFloat32:
			l.offsets[i] = l.fStride
			l.fStride += k.Slots
		}
	}
	return l
}

// Fields returns the number of fields in the layout.
func (l *Layout) Fields() int {
	return len(l.kinds)
}

// Strides returns the number of uint32 and float32 slots of one entry.
func (l *Layout) Strides() (uint32s, float32s uint32) {
	return l.uStride, l.fStride
}

func (l *Layout) field(f uint32, class StorageClass, slots uint32) (offset uint32, ok bool) {
	if int(f) >= len(l.kinds) {
		return 0, false
	}
	k := l.kinds[f]
	if k.Class != class || k.Slots < slots {
		return 0, false
	}
	return l.offsets[f], true
}
