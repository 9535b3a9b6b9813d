package animator

// AnimatorBuilderOption is a functional option applied to an animator during construction via NewAnimator.
type AnimatorBuilderOption func(*animator)

// WithCapacity preallocates room for the given number of instances.
//
// Parameters:
//   - n: the expected number of instances
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the capacity to an animator
func WithCapacity(n uint32) AnimatorBuilderOption {
	return func(a *animator) {
		a.instances = make([]instance, 0, n)
		a.dirtyIndices = make([]uint32, 0, n)
		a.dirtyBitset = make([]uint64, 0, (n+63)/64)
	}
}
