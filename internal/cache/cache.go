// Package cache stores decoded lookup answers so repeated or resumed runs
// do not query the endpoint again for the same entity.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/footgraph/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives a key from the endpoint and the queried resource, so
// answers from different endpoints never mix
func CacheKey(endpoint, resource string) string {
	hash := sha256.Sum256([]byte(endpoint + "\n" + resource))
	return "footgraph-v1-" + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg: nil when disabled, memory only
// without a disk directory, memory over disk otherwise
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DiskDir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.DiskDir, cfg.DiskTTL)
}
