package cache

import (
	"context"
	"fmt"
	"fxsync/internal/adapters"
	"sync"

	"github.com/dgraph-io/ristretto"
	"github.com/sirupsen/logrus"
)

// RistrettoKVCache is a read-through cache in front of a durable KVStore.
type RistrettoKVCache struct {
	next  adapters.KVStore
	cache *ristretto.Cache
	// guards against a Get repopulating the cache with a value older than a concurrent Put
	mu sync.RWMutex
}

func NewKVCache(next adapters.KVStore, maxItems int64) (*RistrettoKVCache, error) {
	if maxItems <= 0 {
		maxItems = 128
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxItems,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create kv cache failed: %w", err)
	}
	return &RistrettoKVCache{next: next, cache: c}, nil
}

func (c *RistrettoKVCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.cache.Get(key); ok {
		if s, ok := v.(string); ok {
			return s, true, nil
		}
	}

	value, found, err := c.next.Get(ctx, key)
	if err != nil || !found {
		return value, found, err
	}
	logrus.WithField("key", key).Debug("kv cache miss, loaded from store")
	c.cache.Set(key, value, 1)
	return value, true, nil
}

func (c *RistrettoKVCache) Put(ctx context.Context, key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// drop the cached copy first: if the store write fails the next Get must go to the store
	c.cache.Del(key)
	if err := c.next.Put(ctx, key, value); err != nil {
		c.cache.Wait()
		return err
	}
	c.cache.Set(key, value, 1)
	c.cache.Wait()
	return nil
}

func (c *RistrettoKVCache) Close() { c.cache.Close() }
