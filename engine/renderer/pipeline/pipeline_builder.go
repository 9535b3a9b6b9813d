package pipeline

// DefaultInitialCapacity is the default number of hash buckets reserved up front.
const DefaultInitialCapacity = 64

type cacheConfig struct {
	initialCapacity int
}

// CacheBuilderOption is a functional option for configuring a Cache.
// Use the With* functions to create options.
type CacheBuilderOption func(*cacheConfig)

// WithInitialCapacity reserves hash buckets for the expected number of distinct pipeline states.
//
// Parameters:
//   - n: the number of buckets to reserve
//
// Returns:
//   - CacheBuilderOption: option function to apply
func WithInitialCapacity(n int) CacheBuilderOption {
	return func(c *cacheConfig) {
		c.initialCapacity = max(n, 0)
	}
}
