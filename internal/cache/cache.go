// Package cache is the shared (resource, realm) data-fetching layer.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/common/metrics"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Resource string

const (
	ResourceLicenses              Resource = "licenses"
	ResourceRVCRReports           Resource = "rvcr-reports"
	ResourcePaymentSummaryReports Resource = "payment-summary-reports"
	ResourceQBOUser               Resource = "qbo-user"
)

type Options struct {
	Prefix string
	TTL    time.Duration
	Logger logger.Logger
}

type Cache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	group  singleflight.Group
	logger logger.Logger
}

func New(client redis.Cmdable, opts Options) *Cache {
	if opts.Prefix == "" {
		opts.Prefix = "portal:cache"
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Cache{
		client: client,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		logger: opts.Logger.WithFields(map[string]interface{}{"component": "cache"}),
	}
}

func (c *Cache) key(resource Resource, realmID string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, resource, realmID)
}

// Get returns the cached value or runs load once for all concurrent callers
// of the same key. Redis failures fall through to load.
func Get[T any](ctx context.Context, c *Cache, resource Resource, realmID string, load func(context.Context) (T, error)) (T, error) {
	key := c.key(resource, realmID)

	var cached T
	hit, err := c.read(ctx, key, &cached)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(string(resource), "error").Inc()
		c.logger.Warn("cache read failed, loading directly", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	case hit:
		metrics.CacheLookups.WithLabelValues(string(resource), "hit").Inc()
		return cached, nil
	default:
		metrics.CacheLookups.WithLabelValues(string(resource), "miss").Inc()
	}

	// The shared load outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := load(shared)
		if err != nil {
			return nil, err
		}
		if werr := c.write(shared, key, value); werr != nil {
			c.logger.Warn("cache write failed", map[string]interface{}{
				"key":   key,
				"error": werr.Error(),
			})
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Put replaces the cached value in place.
func Put[T any](ctx context.Context, c *Cache, resource Resource, realmID string, value T) error {
	return c.write(ctx, c.key(resource, realmID), value)
}

// Update applies fn to the cached value when one is present. It reports
// whether an entry was updated.
func Update[T any](ctx context.Context, c *Cache, resource Resource, realmID string, fn func(T) T) (bool, error) {
	key := c.key(resource, realmID)
	var cached T
	hit, err := c.read(ctx, key, &cached)
	if err != nil || !hit {
		return false, err
	}
	if err := c.write(ctx, key, fn(cached)); err != nil {
		return false, err
	}
	return true, nil
}

// Invalidate drops the entries of resources for realmID.
func (c *Cache) Invalidate(ctx context.Context, realmID string, resources ...Resource) error {
	if len(resources) == 0 {
		return nil
	}
	keys := make([]string, 0, len(resources))
	for _, r := range resources {
		keys = append(keys, c.key(r, realmID))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", map[string]interface{}{
			"keys":  keys,
			"error": err.Error(),
		})
		return fmt.Errorf("invalidate %v: %w", keys, err)
	}
	return nil
}

func (c *Cache) read(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("discarding undecodable cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false, nil
	}
	return true, nil
}

func (c *Cache) write(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
