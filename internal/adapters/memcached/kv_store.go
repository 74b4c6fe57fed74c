package memcached

import (
	"context"
	"errors"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/sirupsen/logrus"
)

const defaultPrefix = "fxsync:"

// KVStore keeps entries in memcached. Items are stored without expiration.
type KVStore struct {
	client *memcache.Client
	prefix string
}

func NewKVStore(hosts []string, prefix string) (*KVStore, error) {
	if len(hosts) == 0 {
		return nil, errors.New("memcached hosts are required")
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	logrus.WithField("hosts", hosts).Info("Connecting to memcached")
	mc := memcache.New(hosts...)
	if err := mc.Ping(); err != nil {
		return nil, fmt.Errorf("memcached ping failed: %w", err)
	}
	return &KVStore{client: mc, prefix: prefix}, nil
}

func (s *KVStore) key(key string) string { return s.prefix + key }

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	item, err := s.client.Get(s.key(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get memcached item %q: %w", key, err)
	}
	return string(item.Value), true, nil
}

func (s *KVStore) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Set(&memcache.Item{Key: s.key(key), Value: []byte(value)}); err != nil {
		return fmt.Errorf("failed to set memcached item %q: %w", key, err)
	}
	return nil
}
