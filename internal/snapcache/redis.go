package snapcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soinglobal/callscope/internal/domain"
)

const defaultKeyPrefix = "callscope:snapshot:"

// cacheEntry wraps a snapshot with cache metadata.
type cacheEntry struct {
	Snapshot domain.MarketSnapshot `json:"snapshot"`
	CachedAt time.Time             `json:"cachedAt"`
}

// RedisCache implements Cache on Redis with JSON values and a TTL.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// NewRedisCache creates a snapshot cache over a new Redis connection.
func NewRedisCache(opts RedisOptions) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisCache{client: client, keyPrefix: prefix, ttl: opts.TTL}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, contract string) (domain.MarketSnapshot, bool, error) {
	raw, err := r.client.Get(ctx, r.key(contract)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketSnapshot{}, false, nil
		}
		return domain.MarketSnapshot{}, false, fmt.Errorf("cache get %s: %w", contract, err)
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// A corrupt entry is a miss, not a failure.
		return domain.MarketSnapshot{}, false, nil
	}
	entry.Snapshot.Provenance = domain.ProvenanceCached
	return entry.Snapshot, true, nil
}

// Put implements Cache. Writes are idempotent upserts keyed by contract.
func (r *RedisCache) Put(ctx context.Context, contract string, snap domain.MarketSnapshot) error {
	entry := cacheEntry{Snapshot: snap, CachedAt: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", contract, err)
	}
	if err := r.client.Set(ctx, r.key(contract), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache put %s: %w", contract, err)
	}
	return nil
}

// Health reports whether the Redis backend answers a ping.
func (r *RedisCache) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) key(contract string) string {
	return r.keyPrefix + contract
}
