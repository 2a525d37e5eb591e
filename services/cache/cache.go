package cache

import "errors"

// ErrCacheMiss is returned when a key is not in the cache
var ErrCacheMiss = errors.New("cache: miss")

// Service abstracts the cooldown store. The worker records a marker per
// source after a successful crawl so restarts inside the cooldown window do
// not hammer the portals again.
type Service interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)
	// Set stores a value in the cache with an expiration in seconds
	Set(key string, value []byte, expiration int32) error
	// Delete removes a value from the cache
	Delete(key string) error
}
