// Package cache wraps redis behind the small surface the service needs:
// TTL-bound values for pending registrations and sliding counters for OTP
// attempts and rate limiting. Keys are always "namespace:key" so unrelated
// subsystems never collide.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client redis.UniversalClient
}

// NewCache connects to a single node, or to a cluster when more than one
// address is given.
func NewCache(addrs []string, password string, useCluster bool) *Cache {
	var rdb redis.UniversalClient
	if useCluster && len(addrs) > 1 {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: password,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addrs[0],
			Password: password,
		})
	}
	return &Cache{client: rdb}
}

func key(namespace, k string) string { return namespace + ":" + k }

// Set stores a value that self-expires after ttl.
func (c *Cache) Set(ctx context.Context, namespace, k string, value interface{}, ttl time.Duration) error {
	return c.client.Set(ctx, key(namespace, k), value, ttl).Err()
}

// Get returns the stored value, or redis.Nil if the key is absent or has
// already expired.
func (c *Cache) Get(ctx context.Context, namespace, k string) (string, error) {
	return c.client.Get(ctx, key(namespace, k)).Result()
}

func (c *Cache) Delete(ctx context.Context, namespace, k string) error {
	return c.client.Del(ctx, key(namespace, k)).Err()
}

// TTL reports the remaining lifetime of a key.
func (c *Cache) TTL(ctx context.Context, namespace, k string) (time.Duration, error) {
	return c.client.TTL(ctx, key(namespace, k)).Result()
}

// IncrWindow bumps a counter whose expiry window starts on the first
// increment. Backs the OTP attempt counter and the rate limiter.
func (c *Cache) IncrWindow(ctx context.Context, namespace, k string, window time.Duration) (int64, error) {
	ck := key(namespace, k)

	cnt, err := c.client.Incr(ctx, ck).Result()
	if err != nil {
		return 0, err
	}
	if cnt == 1 {
		_ = c.client.Expire(ctx, ck, window).Err()
	}
	return cnt, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
