package cache

import (
	"errors"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService implements Service backed by memcached, so the cooldown
// window survives process restarts.
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(addr string) *MemcacheService {
	return &MemcacheService{client: memcache.New(addr)}
}

// Get retrieves a value from memcache
func (s *MemcacheService) Get(key string) ([]byte, error) {
	item, err := s.client.Get(key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration in seconds
func (s *MemcacheService) Set(key string, value []byte, expiration int32) error {
	return s.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: expiration,
	})
}

// Delete removes a value from memcache
func (s *MemcacheService) Delete(key string) error {
	err := s.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
