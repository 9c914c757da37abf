package common

func Filter[T any](slice []T, f func(T) bool) []T {
	result := []T{}
	for _, item := range slice {
		if f(item) {
			result = append(result, item)
		}
	}
	return result
}

// Find returns the first item matching f
func Find[T any](slice []T, f func(T) bool) (T, bool) {
	for _, item := range slice {
		if f(item) {
			return item, true
		}
	}

	var zero T
	return zero, false
}
