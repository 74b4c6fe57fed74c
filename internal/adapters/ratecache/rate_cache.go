package ratecache

import (
	"context"
	"encoding/json"
	"fmt"
	"fxsync/internal/adapters"
	"fxsync/internal/domain"

	"github.com/sirupsen/logrus"
)

// Store keys. They match the entries written by earlier releases, keep them as is.
const (
	NamesKey = "currencies"
	RatesKey = "Rates"
)

// KVRateCache serializes the currency tables as JSON objects into a KVStore.
type KVRateCache struct {
	store adapters.KVStore
}

func NewKVRateCache(store adapters.KVStore) *KVRateCache {
	return &KVRateCache{store: store}
}

func (c *KVRateCache) LoadNames(ctx context.Context) (domain.NameTable, error) {
	var raw map[string]string
	if ok, err := c.load(ctx, NamesKey, &raw); !ok {
		return domain.NameTable{}, err
	}
	names := make(domain.NameTable, len(raw))
	for code, name := range raw {
		if nc := domain.NormalizeCode(code); nc != "" {
			names[nc] = name
		}
	}
	return names, nil
}

func (c *KVRateCache) SaveNames(ctx context.Context, names domain.NameTable) error {
	return c.save(ctx, NamesKey, names)
}

func (c *KVRateCache) LoadRates(ctx context.Context) (domain.RateTable, error) {
	var raw map[string]float64
	if ok, err := c.load(ctx, RatesKey, &raw); !ok {
		return domain.RateTable{}, err
	}
	rates := make(domain.RateTable, len(raw))
	for code, rate := range raw {
		if nc := domain.NormalizeCode(code); nc != "" {
			rates[nc] = rate
		}
	}
	return rates, nil
}

func (c *KVRateCache) SaveRates(ctx context.Context, rates domain.RateTable) error {
	return c.save(ctx, RatesKey, rates)
}

// load reports false for a missing entry, a store error or a value that can't be decoded.
// Only a store error is returned: missing and malformed entries are plain misses.
func (c *KVRateCache) load(ctx context.Context, key string, dst any) (bool, error) {
	log := logrus.WithField("key", key)

	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		log.WithError(err).Warn("Failed to read cached table")
		return false, fmt.Errorf("failed to read table %q: %w", key, err)
	}
	if !found {
		log.Debug("Cached table not found")
		return false, nil
	}
	if err = json.Unmarshal([]byte(raw), dst); err != nil {
		log.WithError(err).Warn("Malformed cached table, treating as empty")
		return false, nil
	}
	return true, nil
}

func (c *KVRateCache) save(ctx context.Context, key string, table any) error {
	payload, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to marshal table %q: %w", key, err)
	}
	if err = c.store.Put(ctx, key, string(payload)); err != nil {
		return fmt.Errorf("failed to save table %q: %w", key, err)
	}
	return nil
}
