// Package cache holds read-through caches backed by Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sicommerce/storefront/internal/domain"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: miss")

const (
	defaultListingTTL = 10 * time.Minute
	listingKeyPrefix  = "listing:"
	// jitter adds up to a fifth of the base TTL so category keys do not expire together.
	jitterDivisor = 5
)

// ListingCache stores unfiltered category listings as JSON under listing:<slug>.
type ListingCache struct {
	client  redis.Cmdable
	baseTTL time.Duration
	jitter  func(max time.Duration) time.Duration
}

// ListingOption customises a ListingCache.
type ListingOption func(*ListingCache)

// WithJitter replaces the random TTL jitter source.
func WithJitter(fn func(max time.Duration) time.Duration) ListingOption {
	return func(c *ListingCache) {
		if fn != nil {
			c.jitter = fn
		}
	}
}

// NewListingCache wraps client. A non-positive ttl falls back to ten minutes.
func NewListingCache(client redis.Cmdable, ttl time.Duration, opts ...ListingOption) *ListingCache {
	if ttl <= 0 {
		ttl = defaultListingTTL
	}
	c := &ListingCache{
		client:  client,
		baseTTL: ttl,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *ListingCache) Get(ctx context.Context, categorySlug string) ([]domain.ProductListing, error) {
	data, err := c.client.Get(ctx, listingKey(categorySlug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var listings []domain.ProductListing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("unmarshal listing failed: %w", err)
	}
	return listings, nil
}

func (c *ListingCache) Set(ctx context.Context, categorySlug string, listings []domain.ProductListing) error {
	if listings == nil {
		listings = []domain.ProductListing{}
	}
	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("marshal listing failed: %w", err)
	}
	ttl := c.baseTTL + c.jitter(c.baseTTL/jitterDivisor)
	if err := c.client.Set(ctx, listingKey(categorySlug), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *ListingCache) Invalidate(ctx context.Context, categorySlug string) error {
	if err := c.client.Del(ctx, listingKey(categorySlug)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *ListingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func listingKey(slug string) string {
	return listingKeyPrefix + strings.ToLower(strings.TrimSpace(slug))
}

// Noop is used when no Redis address is configured; every Get misses.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]domain.ProductListing, error) { return nil, ErrCacheMiss }
func (Noop) Set(context.Context, string, []domain.ProductListing) error   { return nil }
func (Noop) Invalidate(context.Context, string) error                     { return nil }
