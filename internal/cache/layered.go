package cache

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/verdict/internal/model"
)

// LayeredCache checks memory first and falls back to disk
type LayeredCache struct {
	memory Cache
	disk   *DiskCache // nil when only memory is configured
	logger *zap.Logger
}

// NewLayeredCache creates a layered cache. The disk layer is skipped when
// diskDir is empty.
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration, logger *zap.Logger) *LayeredCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		logger: logger,
	}
	if diskDir != "" {
		c.disk = NewDiskCache(diskDir, diskTTL)
	}
	return c
}

// FromConfig builds the cache described by cfg
func FromConfig(cfg model.CacheConfig, logger *zap.Logger) *LayeredCache {
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL, logger)
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}
	if c.disk == nil {
		return nil, false
	}

	val, found := c.disk.Get(key)
	if !found {
		return nil, false
	}
	// Promote with the memory layer's default TTL
	_ = c.memory.Set(key, val, 0)
	c.logger.Debug("cache disk hit", zap.String("key", key))
	return val, true
}

// Set stores the value in both layers. A disk failure is returned but the
// memory entry is kept.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	if c.disk == nil {
		return nil
	}
	if err := c.disk.Set(key, value, ttl); err != nil {
		c.logger.Warn("cache disk write failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (c *LayeredCache) Delete(key string) error {
	errs := []error{c.memory.Delete(key)}
	if c.disk != nil {
		errs = append(errs, c.disk.Delete(key))
	}
	return errors.Join(errs...)
}

func (c *LayeredCache) Clear() error {
	errs := []error{c.memory.Clear()}
	if c.disk != nil {
		errs = append(errs, c.disk.Clear())
	}
	return errors.Join(errs...)
}

// Prune removes expired disk entries
func (c *LayeredCache) Prune() (int, error) {
	if c.disk == nil {
		return 0, nil
	}
	return c.disk.Prune()
}
