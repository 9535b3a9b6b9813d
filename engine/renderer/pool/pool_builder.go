package pool

import "github.com/Carmen-Shannon/oxy-render/common"

// DefaultChunkSize is the number of entries per BufferPool chunk.
const DefaultChunkSize = 256

// config holds the settings shared by every pool of a Pools set.
type config struct {
	chunkSize   uint32
	mirror      bool
	debug       bool
	onViolation ViolationHandler
}

func defaultConfig() *config {
	return &config{
		chunkSize:   DefaultChunkSize,
		onViolation: LogViolation,
	}
}

func newConfig(options ...PoolBuilderOption) *config {
	c := defaultConfig()
	for _, opt := range options {
		opt(c)
	}
	return c
}

// PoolBuilderOption is a functional option used to configure pools during construction.
type PoolBuilderOption func(*config)

// WithChunkSize sets the number of entries per BufferPool chunk. The value is rounded up to a power of two.
//
// Parameters:
//   - size: the requested chunk size, 0 keeps the default
//
// Returns:
//   - PoolBuilderOption: a function that sets the chunk size
func WithChunkSize(size uint32) PoolBuilderOption {
	return func(c *config) {
		if size == 0 {
			return
		}
		c.chunkSize = min(common.NextPowerOfTwo(size), MaxIndex+1)
	}
}

// WithMirror enables vector and matrix writes into BufferPools. When disabled, SetVec2/3/4, SetMat4
// and SetFloats are no-ops because the entity objects remain the source of truth.
//
// Parameters:
//   - enabled: whether vector and matrix writes are stored
//
// Returns:
//   - PoolBuilderOption: a function that sets the mirror flag
func WithMirror(enabled bool) PoolBuilderOption {
	return func(c *config) {
		c.mirror = enabled
	}
}

// WithDebugChecks enables full handle validation: null, type, generation and free-list checks.
// Out-of-range accesses are guarded regardless of this setting.
//
// Parameters:
//   - enabled: whether debug validation runs
//
// Returns:
//   - PoolBuilderOption: a function that sets the debug flag
func WithDebugChecks(enabled bool) PoolBuilderOption {
	return func(c *config) {
		c.debug = enabled
	}
}

// WithViolationHandler sets the handler that receives contract violations.
//
// Parameters:
//   - h: the handler, nil restores LogViolation
//
// Returns:
//   - PoolBuilderOption: a function that sets the violation handler
func WithViolationHandler(h ViolationHandler) PoolBuilderOption {
	return func(c *config) {
		if h == nil {
			h = LogViolation
		}
		c.onViolation = h
	}
}

// WithPanicOnViolation enables debug checks and panics on the first violation.
func WithPanicOnViolation() PoolBuilderOption {
	return func(c *config) {
		c.debug = true
		c.onViolation = PanicViolation
	}
}
