package cache

import "errors"

// Sentinel errors for caching operations.
var (
	// ErrCacheMiss is returned by the typed helpers when an item is not
	// cached or cannot be decoded.
	ErrCacheMiss = errors.New("cache miss")

	// ErrNetwork is returned when a shared backend cannot be reached.
	ErrNetwork = errors.New("cache backend unreachable")

	// ErrConfig is returned when a backend is constructed with incomplete
	// settings.
	ErrConfig = errors.New("invalid cache configuration")
)
