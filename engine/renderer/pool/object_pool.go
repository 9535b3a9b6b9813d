package pool

// ObjectPool stores objects that need construction and destruction, typically device objects.
// T is the stored object and A the arguments its constructor takes.
//
// The constructor receives the object previously stored in the recycled slot (the zero value
// for a fresh slot) so that it can reuse it; the destructor returns the value left in the slot.
type ObjectPool[T any, A any] struct {
	typ     Type
	cfg     *config
	ctor    func(args A, prev T, reused bool) (T, error)
	dtor    func(obj T) T
	objects []T
	gens    []uint32
	live    []bool
	free    []uint32
	count   int
}

// NewObjectPool creates an empty ObjectPool.
//
// Parameters:
//   - t: the pool type encoded into issued handles
//   - ctor: builds the object for a slot
//   - dtor: releases the object of a slot and returns what the slot keeps, may be nil
//   - options: pool options (debug checks, violation handler)
//
// Returns:
//   - *ObjectPool[T, A]: the pool
func NewObjectPool[T any, A any](t Type, ctor func(args A, prev T, reused bool) (T, error), dtor func(obj T) T, options ...PoolBuilderOption) *ObjectPool[T, A] {
	return newObjectPool(t, ctor, dtor, newConfig(options...))
}

func newObjectPool[T any, A any](t Type, ctor func(args A, prev T, reused bool) (T, error), dtor func(obj T) T, cfg *config) *ObjectPool[T, A] {
	return &ObjectPool[T, A]{typ: t, cfg: cfg, ctor: ctor, dtor: dtor}
}

// Type returns the pool type.
func (p *ObjectPool[T, A]) Type() Type {
	return p.typ
}

// Len returns the number of live objects.
func (p *ObjectPool[T, A]) Len() int {
	return p.count
}

// Alloc constructs an object and returns its handle. The most recently freed slot is reused first.
//
// Parameters:
//   - args: the constructor arguments
//
// Returns:
//   - Handle: the new handle, NullHandle on failure
//   - error: the constructor error, if any
func (p *ObjectPool[T, A]) Alloc(args A) (Handle, error) {
	var idx uint32
	reused := false
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
		reused = true
	} else {
		if len(p.objects) > MaxIndex {
			p.cfg.onViolation(Violation{Kind: ViolationOutOfRange, Pool: p.typ, Op: "alloc"})
			return NullHandle, errPoolExhausted(p.typ)
		}
		idx = uint32(len(p.objects))
		var zero T
		p.objects = append(p.objects, zero)
		p.gens = append(p.gens, 0)
		p.live = append(p.live, false)
	}

	obj, err := p.ctor(args, p.objects[idx], reused)
	if err != nil {
		p.free = append(p.free, idx)
		return NullHandle, err
	}
	p.objects[idx] = obj
	p.live[idx] = true
	p.count++
	return newHandle(p.typ, idx, p.gens[idx]), nil
}

// Get returns the object of a handle. Invalid handles return the zero value of T.
func (p *ObjectPool[T, A]) Get(h Handle) T {
	var zero T
	idx, ok := p.locate(h, "get")
	if !ok {
		return zero
	}
	return p.objects[idx]
}

// replace swaps the object stored for a live handle.
func (p *ObjectPool[T, A]) replace(h Handle, obj T) {
	if idx, ok := p.locate(h, "set"); ok {
		p.objects[idx] = obj
	}
}

// Free destroys the object of a handle and recycles its slot.
func (p *ObjectPool[T, A]) Free(h Handle) {
	idx, ok := p.locate(h, "free")
	if !ok {
		return
	}
	obj := p.objects[idx]
	if p.dtor != nil {
		obj = p.dtor(obj)
	} else {
		var zero T
		obj = zero
	}
	p.objects[idx] = obj
	p.live[idx] = false
	p.gens[idx]++
	p.free = append(p.free, idx)
	p.count--
}

// Each calls fn for every live object.
func (p *ObjectPool[T, A]) Each(fn func(h Handle, obj T)) {
	for i, alive := range p.live {
		if alive {
			fn(newHandle(p.typ, uint32(i), p.gens[i]), p.objects[i])
		}
	}
}

// Destroy frees every live object.
func (p *ObjectPool[T, A]) Destroy() {
	for i, alive := range p.live {
		if alive {
			p.Free(newHandle(p.typ, uint32(i), p.gens[i]))
		}
	}
}

// locate validates a handle. Liveness and generation are always checked since the check is
// a slice lookup; violations are only reported with debug checks enabled.
func (p *ObjectPool[T, A]) locate(h Handle, op string) (uint32, bool) {
	kind := ViolationKind(0)
	idx := h.Index()
	switch {
	case h.IsNull():
		kind = ViolationNullHandle
	case h.Type() != p.typ:
		kind = ViolationTypeMismatch
	case int(idx) >= len(p.objects):
		kind = ViolationOutOfRange
	case p.gens[idx] != h.Generation():
		kind = ViolationStale
		if op == "free" && !p.live[idx] {
			kind = ViolationDoubleFree
		}
	case !p.live[idx]:
		kind = ViolationDoubleFree
		if op != "free" {
			kind = ViolationStale
		}
	}
	if kind != 0 {
		if p.cfg.debug {
			p.cfg.onViolation(Violation{Kind: kind, Pool: p.typ, Handle: h, Op: op})
		}
		return 0, false
	}
	return idx, true
}
