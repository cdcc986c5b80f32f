package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	synthia "github.com/CYBERELLUM/qblock-synth-ia"
)

// RedisSnapshotStore implements synthia.SnapshotStore using Redis.
// Keys are namespaced as "{prefix}:{namespace}:{key}".
type RedisSnapshotStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	ctx    context.Context
}

// RedisStoreConfig configures the Redis store.
type RedisStoreConfig struct {
	Prefix string        // key prefix, default "sat"
	TTL    time.Duration // default TTL for entries, 0 = no expiry
}

// NewRedisSnapshotStore creates a SnapshotStore backed by Redis.
// Client, ClusterClient and Ring all satisfy redis.UniversalClient.
func NewRedisSnapshotStore(client redis.UniversalClient, config ...RedisStoreConfig) *RedisSnapshotStore {
	cfg := RedisStoreConfig{Prefix: "sat"}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "sat"
	}
	return &RedisSnapshotStore{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		ctx:    context.Background(),
	}
}

func (r *RedisSnapshotStore) key(namespace, key string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, namespace, key)
}

func (r *RedisSnapshotStore) Get(namespace, key string) (string, error) {
	val, err := r.client.Get(r.ctx, r.key(namespace, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}

func (r *RedisSnapshotStore) Set(namespace, key, value string) error {
	return r.client.Set(r.ctx, r.key(namespace, key), value, r.ttl).Err()
}

func (r *RedisSnapshotStore) Delete(namespace, key string) error {
	_, err := r.client.Del(r.ctx, r.key(namespace, key)).Result()
	return err
}

func (r *RedisSnapshotStore) ListKeys(namespace string) ([]string, error) {
	pattern := fmt.Sprintf("%s:%s:*", r.prefix, namespace)
	keys, err := r.client.Keys(r.ctx, pattern).Result()
	if err != nil {
		return nil, err
	}
	prefixLen := len(fmt.Sprintf("%s:%s:", r.prefix, namespace))
	result := make([]string, 0, len(keys))
	for _, k := range keys {
		if len(k) > prefixLen {
			result = append(result, k[prefixLen:])
		}
	}
	return result, nil
}

func (r *RedisSnapshotStore) Close() error {
	return r.client.Close()
}

// Compile-time interface check.
var _ synthia.SnapshotStore = (*RedisSnapshotStore)(nil)
