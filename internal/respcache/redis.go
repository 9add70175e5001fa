package respcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ziadkadry99/partsdesk/internal/logging"
	"github.com/ziadkadry99/partsdesk/internal/stream"
)

// DefaultPrefix namespaces cache keys in a shared Redis.
const DefaultPrefix = "partsdesk:resp:"

// RedisOptions configures a Redis cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisClient builds a client with the pool settings used for the cache.
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// Redis is a Cache shared between server replicas. Redis TTLs handle expiry.
// Hit and miss counters are per process.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
	counters
}

// NewRedis wraps client. Empty prefix and non-positive ttl use defaults.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, logger: logging.OrNop(logger)}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return eris.Wrap(r.client.Ping(ctx).Err(), "redis ping")
}

// Close closes the underlying client.
func (r *Redis) Close() error { return r.client.Close() }

// Lookup treats any Redis or decode error as a miss.
func (r *Redis) Lookup(ctx context.Context, fp string) ([]stream.Fragment, bool) {
	data, err := r.client.Get(ctx, r.prefix+fp).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache lookup failed", zap.Error(err))
		}
		r.misses.Add(1)
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil || len(e.Fragments) == 0 {
		r.logger.Warn("discarding undecodable cache entry", zap.String("fingerprint", fp), zap.Error(err))
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return e.Fragments, true
}

func (r *Redis) Store(ctx context.Context, fp string, frags []stream.Fragment) error {
	clean, err := cacheable(frags)
	if err != nil {
		return err
	}
	now := time.Now()
	data, err := json.Marshal(Entry{Fingerprint: fp, Fragments: clean, CreatedAt: now, ExpiresAt: now.Add(r.ttl)})
	if err != nil {
		return eris.Wrap(err, "encoding cache entry")
	}
	if err := r.client.Set(ctx, r.prefix+fp, data, r.ttl).Err(); err != nil {
		return eris.Wrap(err, "storing cache entry")
	}
	r.stores.Add(1)
	return nil
}

// InvalidateAll deletes every key under the prefix.
func (r *Redis) InvalidateAll(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return eris.Wrap(err, "invalidating cache")
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return eris.Wrap(err, "scanning cache keys")
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return eris.Wrap(err, "invalidating cache")
		}
	}
	return nil
}

func (r *Redis) Stats(ctx context.Context) Stats {
	n := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("counting cache entries", zap.Error(err))
	}
	return r.snapshot(n)
}
