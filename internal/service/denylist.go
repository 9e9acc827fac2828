package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// TokenDenylist remembers revoked token ids until they would have expired anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const denylistKeyPrefix = "token_denylist:"

// RedisDenylist shares revocations between API replicas.
type RedisDenylist struct {
	client *redis.Client
}

var _ TokenDenylist = (*RedisDenylist)(nil)

func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client}
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denylistKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, denylistKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token denylist: %w", err)
	}
	return n > 0, nil
}

// MemoryDenylist is the single-process fallback used when redis is not configured.
// Entries are never evicted for size. Each one is dropped once maxTTL has
// passed, so memory is bounded by the revocations made within one token
// lifetime. maxTTL must not be shorter than the longest token lifetime.
type MemoryDenylist struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, time.Time]
	now   func() time.Time
}

var _ TokenDenylist = (*MemoryDenylist)(nil)

func NewMemoryDenylist(maxTTL time.Duration) *MemoryDenylist {
	return &MemoryDenylist{
		cache: expirable.NewLRU[string, time.Time](0, nil, maxTTL),
		now:   time.Now,
	}
}

func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.cache.Add(tokenID, until)
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.cache.Get(tokenID)
	if !ok {
		return false, nil
	}
	if d.now().After(v) {
		d.cache.Remove(tokenID)
		return false, nil
	}
	return true, nil
}
