package batching

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
)

// Key identifies the buffers of one pass. Extra separates buffers of the same pass, e.g. one per
// light in the additive light queue.
type Key struct {
	Pass  pool.Handle
	Extra uint32
}

// cache is the implementation of the Cache interface.
type cache struct {
	pools     *pool.Pools
	instanced map[Key]InstancedBuffer
	batched   map[Key]BatchedBuffer
}

// Cache owns the instanced and batched buffers of one renderer, created on first request and kept
// until released.
type Cache interface {
	// Instanced returns the instanced buffer of a pass and extra key, creating it on first use.
	//
	// Parameters:
	//   - pass: the pass
	//   - extraKey: the extra key, 0 for the main phase
	//
	// Returns:
	//   - InstancedBuffer: the buffer
	Instanced(pass material.Pass, extraKey uint32) InstancedBuffer

	// Batched returns the batched buffer of a pass and extra key, creating it on first use.
	//
	// Parameters:
	//   - pass: the pass
	//   - extraKey: the extra key, 0 for the main phase
	//
	// Returns:
	//   - BatchedBuffer: the buffer
	Batched(pass material.Pass, extraKey uint32) BatchedBuffer

	// Release destroys every buffer of a pass. Call it before destroying the pass.
	Release(pass material.Pass)

	// Len returns the number of instanced and batched buffers.
	Len() (instanced, batched int)

	// Destroy destroys every buffer.
	Destroy()
}

var _ Cache = &cache{}

// NewCache creates an empty Cache.
//
// Parameters:
//   - pools: the pools new buffers allocate from
//
// Returns:
//   - Cache: the cache
func NewCache(pools *pool.Pools) Cache {
	return &cache{
		pools:     pools,
		instanced: make(map[Key]InstancedBuffer),
		batched:   make(map[Key]BatchedBuffer),
	}
}

func (c *cache) Instanced(pass material.Pass, extraKey uint32) InstancedBuffer {
	key := Key{Pass: pass.Handle(), Extra: extraKey}
	buf, ok := c.instanced[key]
	if !ok {
		buf = NewInstancedBuffer(c.pools, pass)
		c.instanced[key] = buf
	}
	return buf
}

func (c *cache) Batched(pass material.Pass, extraKey uint32) BatchedBuffer {
	key := Key{Pass: pass.Handle(), Extra: extraKey}
	buf, ok := c.batched[key]
	if !ok {
		buf = NewBatchedBuffer(c.pools, pass)
		c.batched[key] = buf
	}
	return buf
}

func (c *cache) Release(pass material.Pass) {
	h := pass.Handle()
	for k, buf := range c.instanced {
		if k.Pass == h {
			buf.Destroy()
			delete(c.instanced, k)
		}
	}
	for k, buf := range c.batched {
		if k.Pass == h {
			buf.Destroy()
			delete(c.batched, k)
		}
	}
}

func (c *cache) Len() (instanced, batched int) {
	return len(c.instanced), len(c.batched)
}

func (c *cache) Destroy() {
	for _, buf := range c.instanced {
		buf.Destroy()
	}
	for _, buf := range c.batched {
		buf.Destroy()
	}
	clear(c.instanced)
	clear(c.batched)
}
