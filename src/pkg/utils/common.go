// Package utils holds small helpers shared across the module's packages.
package utils

// Must unwraps v, panicking if err is non-nil. Used for construction-time
// calls that are only ever expected to fail on programmer error (e.g.
// building a logger from a fixed config).
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}

	return v
}
