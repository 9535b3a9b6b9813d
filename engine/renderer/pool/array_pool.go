package pool

import "github.com/Carmen-Shannon/oxy-render/common"

// DefaultArrayStep is the initial capacity and growth step of ArrayPool arrays.
const DefaultArrayStep = 8

// ArrayPool stores variable-length uint32 arrays, typically lists of entity handle indices.
// Slot 0 of every array holds its length; elements start at slot 1. Capacity grows to the
// next power of two of the required size rounded up to the step. Freed arrays keep their
// storage for reuse.
type ArrayPool struct {
	step  uint32
	slots *ObjectPool[[]uint32, struct{}]
}

// NewArrayPool creates an empty ArrayPool.
//
// Parameters:
//   - t: the pool type encoded into issued handles
//   - step: the initial capacity and growth step, 0 selects DefaultArrayStep
//   - options: pool options (debug checks, violation handler)
//
// Returns:
//   - *ArrayPool: the pool
func NewArrayPool(t Type, step uint32, options ...PoolBuilderOption) *ArrayPool {
	return newArrayPool(t, step, newConfig(options...))
}

func newArrayPool(t Type, step uint32, cfg *config) *ArrayPool {
	if step == 0 {
		step = DefaultArrayStep
	}
	a := &ArrayPool{step: step}
	a.slots = newObjectPool(t, func(_ struct{}, prev []uint32, reused bool) ([]uint32, error) {
		if reused && cap(prev) > 0 {
			prev = prev[:cap(prev)]
			clear(prev)
			return prev, nil
		}
		return make([]uint32, step), nil
	}, func(arr []uint32) []uint32 {
		return arr
	}, cfg)
	return a
}

// Alloc returns a handle to a new empty array.
func (a *ArrayPool) Alloc() Handle {
	h, _ := a.slots.Alloc(struct{}{})
	return h
}

// Free releases an array.
func (a *ArrayPool) Free(h Handle) {
	a.slots.Free(h)
}

// Len returns the number of live arrays.
func (a *ArrayPool) Len() int {
	return a.slots.Len()
}

// Length returns the number of elements of an array. Invalid handles have length 0.
func (a *ArrayPool) Length(h Handle) uint32 {
	arr := a.slots.Get(h)
	if len(arr) == 0 {
		return 0
	}
	return arr[0]
}

// Get returns element i of an array, or 0 when i is out of range.
func (a *ArrayPool) Get(h Handle, i uint32) uint32 {
	arr := a.slots.Get(h)
	if len(arr) == 0 || i >= arr[0] {
		return 0
	}
	return arr[i+1]
}

// Values returns a view of the elements of an array. The view is invalidated by Push and Assign.
func (a *ArrayPool) Values(h Handle) []uint32 {
	arr := a.slots.Get(h)
	if len(arr) == 0 {
		return nil
	}
	return arr[1 : 1+arr[0]]
}

// Push appends a value and returns the new length.
func (a *ArrayPool) Push(h Handle, v uint32) uint32 {
	arr := a.slots.Get(h)
	if len(arr) == 0 {
		return 0
	}
	n := arr[0]
	arr = a.reserve(h, arr, n+2)
	arr[n+1] = v
	arr[0] = n + 1
	return n + 1
}

// Assign writes element i. Assigning at i == Length appends; larger indices are ignored.
func (a *ArrayPool) Assign(h Handle, i uint32, v uint32) {
	arr := a.slots.Get(h)
	if len(arr) == 0 {
		return
	}
	switch n := arr[0]; {
	case i < n:
		arr[i+1] = v
	case i == n:
		a.Push(h, v)
	}
}

// Erase removes element i, shifting the following elements down.
func (a *ArrayPool) Erase(h Handle, i uint32) {
	arr := a.slots.Get(h)
	if len(arr) == 0 || i >= arr[0] {
		return
	}
	n := arr[0]
	copy(arr[i+1:n+1], arr[i+2:n+1])
	arr[n] = 0
	arr[0] = n - 1
}

// Clear empties an array without releasing its storage.
func (a *ArrayPool) Clear(h Handle) {
	arr := a.slots.Get(h)
	if len(arr) == 0 {
		return
	}
	clear(arr[:arr[0]+1])
}

// Destroy releases every array.
func (a *ArrayPool) Destroy() {
	a.slots.Destroy()
}

func (a *ArrayPool) reserve(h Handle, arr []uint32, size uint32) []uint32 {
	if uint32(len(arr)) >= size {
		return arr
	}
	capacity := common.NextPowerOfTwo(common.AlignUp(size, a.step))
	grown := make([]uint32, capacity)
	copy(grown, arr)
	a.slots.replace(h, grown)
	return grown
}
