package common

// Reset truncates a slice to zero length while clearing the dropped elements so
// pointers held by them can be collected. The backing array is retained.
func Reset[T any](s []T) []T {
	clear(s)
	return s[:0]
}
