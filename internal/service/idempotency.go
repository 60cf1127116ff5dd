package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hugobelem/depoc/internal/models"
	"github.com/hugobelem/depoc/pkg/redis"
)

const (
	idempotencyTTL = 24 * time.Hour
	// reservationTTL bounds how long a crashed request can hold its key.
	reservationTTL = time.Minute
)

// IdempotencyCache remembers the result of an obligation creation under the
// client's Idempotency-Key. Get returns nil, nil on a miss. Reserve claims a
// key for the request that will create it and reports false while another
// request holds it.
type IdempotencyCache interface {
	Reserve(ctx context.Context, tenantID, key string) (release func(), ok bool, err error)
	Get(ctx context.Context, tenantID, key string) (*models.CreatedObligation, error)
	Put(ctx context.Context, tenantID, key string, created *models.CreatedObligation) error
}

func idempotencyKey(tenantID, key string) string {
	return fmt.Sprintf("idempotency:obligation:%s:%s", tenantID, key)
}

func reservationKey(tenantID, key string) string {
	return idempotencyKey(tenantID, key) + ":pending"
}

type RedisIdempotencyCache struct {
	client *redis.Client
	locks  *RedisLocker
}

func NewRedisIdempotencyCache(client *redis.Client) *RedisIdempotencyCache {
	return &RedisIdempotencyCache{client: client, locks: NewRedisLocker(client)}
}

func (c *RedisIdempotencyCache) Reserve(ctx context.Context, tenantID, key string) (func(), bool, error) {
	return c.locks.Acquire(ctx, reservationKey(tenantID, key), reservationTTL)
}

func (c *RedisIdempotencyCache) Get(ctx context.Context, tenantID, key string) (*models.CreatedObligation, error) {
	data, err := c.client.Get(ctx, idempotencyKey(tenantID, key))
	if errors.Is(err, redis.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var created models.CreatedObligation
	if err := json.Unmarshal([]byte(data), &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *RedisIdempotencyCache) Put(ctx context.Context, tenantID, key string, created *models.CreatedObligation) error {
	data, err := json.Marshal(created)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, idempotencyKey(tenantID, key), data, idempotencyTTL)
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryIdempotencyCache is the single-process fallback used without Redis.
// Expired entries are dropped whenever the cache is written.
type MemoryIdempotencyCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	locks   *LocalLocker
	clock   func() time.Time
}

func NewMemoryIdempotencyCache() *MemoryIdempotencyCache {
	return &MemoryIdempotencyCache{
		entries: make(map[string]memoryEntry),
		locks:   NewLocalLocker(),
		clock:   time.Now,
	}
}

func (c *MemoryIdempotencyCache) Reserve(ctx context.Context, tenantID, key string) (func(), bool, error) {
	return c.locks.Acquire(ctx, reservationKey(tenantID, key), reservationTTL)
}

func (c *MemoryIdempotencyCache) Get(ctx context.Context, tenantID, key string) (*models.CreatedObligation, error) {
	k := idempotencyKey(tenantID, key)

	c.mu.Lock()
	entry, ok := c.entries[k]
	if ok && !c.clock().Before(entry.expires) {
		delete(c.entries, k)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return nil, nil
	}

	var created models.CreatedObligation
	if err := json.Unmarshal(entry.data, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *MemoryIdempotencyCache) Put(ctx context.Context, tenantID, key string, created *models.CreatedObligation) error {
	data, err := json.Marshal(created)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	for k, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[idempotencyKey(tenantID, key)] = memoryEntry{data: data, expires: now.Add(idempotencyTTL)}
	return nil
}

