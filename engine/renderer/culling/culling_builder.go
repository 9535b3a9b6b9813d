package culling

// SceneCullingBuilderOption is a functional option for configuring a SceneCulling.
// Use the With* functions to create options.
type SceneCullingBuilderOption func(c *sceneCulling)

// WithCullingWorkers runs the per-model visibility and frustum tests on a worker pool.
// Results are assembled serially afterwards so output order always equals scene order.
//
// Parameters:
//   - n: the number of workers; 0 selects DefaultCullingWorkers, 1 keeps culling serial
//
// Returns:
//   - SceneCullingBuilderOption: option function to apply
func WithCullingWorkers(n int) SceneCullingBuilderOption {
	return func(c *sceneCulling) {
		if n <= 0 {
			n = DefaultCullingWorkers()
		}
		c.workers = n
	}
}

// WithMinParallel sets the model count below which the visibility phase stays serial even with
// workers configured. Default is DefaultMinParallel.
//
// Parameters:
//   - n: the threshold, clamped to at least 1
//
// Returns:
//   - SceneCullingBuilderOption: option function to apply
func WithMinParallel(n int) SceneCullingBuilderOption {
	return func(c *sceneCulling) {
		c.minParallel = max(n, 1)
	}
}
