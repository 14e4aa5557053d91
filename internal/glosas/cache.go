package glosas

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheKeyPrefix  = "glosas"
	cacheVersionKey = "glosas:version"
	bumpChannel     = "glosas.bump"

	sharedLoadTimeout = 2 * time.Minute
)

// Store is the byte-level backend of the loader cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
}

// Cache memoises loader output. It is an optimisation only: a nil Cache, a
// nil store and any store failure all fall through to the loader.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCache wires a store with a default entry TTL.
func NewCache(store Store, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, ttl: ttl, logger: logger}
}

// Key hashes an operation and its parameters into a cache key.
func (c *Cache) Key(op string, params ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(params, "\x1f")))
	return strings.Join([]string{cacheKeyPrefix, op, hex.EncodeToString(sum[:16])}, ":")
}

// Fetch decodes the cached value for key into dest, populating it with
// loader on a miss. Concurrent misses on one key share a single loader call.
func (c *Cache) Fetch(ctx context.Context, key string, ttl time.Duration, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("glosas: cache loader required")
	}
	if c == nil || c.store == nil {
		return loadInto(ctx, dest, loader)
	}
	payload, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
	}
	if err == nil && ok {
		if err := json.Unmarshal(payload, dest); err == nil {
			return nil
		}
		c.logger.Warn("cache payload invalid", slog.String("key", key))
	}

	if ttl <= 0 {
		ttl = c.ttl
	}
	// The shared load outlives the caller that started it, so one caller
	// cancelling never fails the others waiting on the same key.
	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		value, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(loadCtx, key, raw, ttl); err != nil {
			c.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

// Invalidate drops a single entry.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Delete(ctx, key)
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Flush(ctx)
}

func loadInto(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// MemoryStore is a bounded in-process store with per-entry expiry. When full
// the oldest entry is evicted.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

type memoryEntry struct {
	value    []byte
	inserted time.Time
	expires  time.Time
}

// NewMemoryStore builds a MemoryStore holding at most maxEntries values.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && !s.now().Before(entry.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictLocked(now)
	}
	entry := memoryEntry{value: value, inserted: now}
	if ttl > 0 {
		entry.expires = now.Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evictLocked drops expired entries, or the oldest one when none expired.
func (s *MemoryStore) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	expired := false
	for key, entry := range s.entries {
		if !entry.expires.IsZero() && !now.Before(entry.expires) {
			delete(s.entries, key)
			expired = true
			continue
		}
		if oldestKey == "" || entry.inserted.Before(oldest) {
			oldestKey, oldest = key, entry.inserted
		}
	}
	if !expired && oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

// RedisStore keeps entries in Redis under a versioned namespace so Flush is a
// single version bump shared by every process.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Version returns the current namespace version, initialising when missing.
func (s *RedisStore) Version(ctx context.Context) (int64, error) {
	ver, err := s.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := s.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return s.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := s.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

func (s *RedisStore) versioned(ctx context.Context, key string) (string, error) {
	ver, err := s.Version(ctx)
	if err != nil {
		return "", err
	}
	return key + ":" + strconv.FormatInt(ver, 10), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	vkey, err := s.versioned(ctx, key)
	if err != nil {
		return nil, false, err
	}
	payload, err := s.client.Get(ctx, vkey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	vkey, err := s.versioned(ctx, key)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, vkey, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	vkey, err := s.versioned(ctx, key)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, vkey).Err()
}

// Flush bumps the namespace version and announces it on the bump channel.
func (s *RedisStore) Flush(ctx context.Context) error {
	ver, err := s.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}
