// Package ratecache caches carrier rate quotes in Redis. Quotes are requested
// from the storefront before an order exists, often repeatedly for the same
// cart, so a short-lived cache takes real load off the carrier APIs.
package ratecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atlascommerce/shipping/pkg/carrier"
)

// Cache stores rate quote results keyed by a digest of the request. A nil
// *Cache is a valid no-op, so callers need no branching when Redis is not
// configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis. Returns an error when the server is unreachable.
func New(ctx context.Context, addr string, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}, nil
}

// Key digests the quote-relevant fields of a request. Line items and
// instructions do not affect rates and are excluded.
func Key(req *carrier.ShippingRequest, all bool) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%.0f|%.1f|%.1f|%.1f|%s|%t",
		req.Origin.PostalCode, req.Origin.CountryCode,
		req.Destination.PostalCode, req.Destination.CountryCode,
		req.WeightGrams, req.LengthCM, req.WidthCM, req.HeightCM,
		req.Method, all)
	return "rates:" + hex.EncodeToString(h.Sum(nil))[:32]
}

// Get returns the cached rates for a key, or (nil, false) on miss or when the
// cache is disabled. Redis failures count as misses; quoting must not depend
// on the cache being healthy.
func (c *Cache) Get(ctx context.Context, key string) ([]carrier.ShippingRate, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rates []carrier.ShippingRate
	if err := json.Unmarshal(raw, &rates); err != nil {
		return nil, false
	}
	return rates, true
}

// Set stores rates under a key for the configured TTL. Failures are dropped.
func (c *Cache) Set(ctx context.Context, key string, rates []carrier.ShippingRate) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(rates)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, c.ttl)
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
