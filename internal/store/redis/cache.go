// Package redis caches kline windows in front of a market data provider.
// The cache is strictly best-effort: any Redis failure falls through to the
// inner provider, and repeated failures open a circuit breaker so a dead
// Redis stops adding latency to every fetch.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tradelens/internal/marketdata"
	"tradelens/internal/metrics"
	"tradelens/internal/model"
	"tradelens/internal/series"

	goredis "github.com/go-redis/redis/v8"
)

const defaultTTL = 30 * time.Minute

// CacheConfig configures the kline cache.
type CacheConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // zero means defaultTTL
}

// Cache decorates a provider with read-through Redis caching of kline
// windows. It implements the same provider contract it wraps.
type Cache struct {
	client  *goredis.Client
	inner   marketdata.Provider
	ttl     time.Duration
	breaker *CircuitBreaker
	metrics *metrics.Metrics
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// NewCache connects to Redis and pings the server. metrics may be nil.
func NewCache(cfg CacheConfig, inner marketdata.Provider, m *metrics.Metrics) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	breaker := NewCircuitBreaker(5, 10*time.Second)
	breaker.OnStateChange = func(from, to State) {
		log.Printf("[redis] cache breaker %s -> %s", from, to)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Cache{client: client, inner: inner, ttl: ttl, breaker: breaker, metrics: m}, nil
}

// Klines serves the window from Redis when present, otherwise fetches from
// the inner provider and stores the result. Identical windows map to one key,
// so repeated trials over the same range hit the wire once.
func (c *Cache) Klines(ctx context.Context, symbol string, interval model.Interval, start, end time.Time) ([]series.Row, error) {
	key := cacheKey(symbol, interval, start, end)

	var cached []series.Row
	hit := false
	err := c.breaker.Execute(func() error {
		data, err := c.client.Get(ctx, key).Bytes()
		if err == goredis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &cached); err != nil {
			// Poisoned entry: drop it and refetch.
			c.client.Del(ctx, key)
			return nil
		}
		hit = true
		return nil
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[redis] cache read error for %s: %v", key, err)
	}
	c.metrics.IncCache(hit)
	if hit {
		return cached, nil
	}

	rows, err := c.inner.Klines(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}

	if serr := c.breaker.Execute(func() error {
		data, err := json.Marshal(rows)
		if err != nil {
			return err
		}
		return c.client.Set(ctx, key, data, c.ttl).Err()
	}); serr != nil && serr != ErrCircuitOpen {
		log.Printf("[redis] cache write error for %s: %v", key, serr)
	}
	return rows, nil
}

func cacheKey(symbol string, interval model.Interval, start, end time.Time) string {
	return fmt.Sprintf("kline:%s:%s:%d:%d", symbol, interval, start.UnixMilli(), end.UnixMilli())
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
