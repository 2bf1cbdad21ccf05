package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gometeo/weatherlookup/internal/apperr"
	"github.com/gometeo/weatherlookup/internal/model"
)

var errEmptyDocument = errors.New("document has no current conditions")

// NewClient parses a redis:// connection string. It does not dial.
func NewClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// WeatherCache stores full (un-windowed) weather documents per coordinate
// pair. Entries expire on their own and are never invalidated.
type WeatherCache struct {
	client *redis.Client
	logger *slog.Logger
}

func New(client *redis.Client, logger *slog.Logger) *WeatherCache {
	return &WeatherCache{
		client: client,
		logger: logger,
	}
}

func (c *WeatherCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *WeatherCache) Close() error {
	return c.client.Close()
}

// Get returns the cached document for the pair, or nil when there is none.
// Connectivity and decoding failures come back as apperr.KindCache errors;
// callers treat them as a miss.
func (c *WeatherCache) Get(ctx context.Context, lat, lon string) (*model.WeatherDocument, error) {
	key := WeatherKey(lat, lon)

	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Cache(err, "cache read failed for %s", key)
	}

	var doc model.WeatherDocument
	if err := json.Unmarshal(val, &doc); err != nil {
		return nil, apperr.Cache(err, "cache entry %s is not a weather document", key)
	}
	if doc.Current.Dt == 0 {
		return nil, apperr.Cache(errEmptyDocument, "cache entry %s is not a weather document", key)
	}

	c.logger.Debug("weather served from cache", "key", key)
	return &doc, nil
}

// Put stores doc under the pair with the given TTL, replacing any entry.
// The TTL is not refreshed by reads.
func (c *WeatherCache) Put(ctx context.Context, lat, lon string, doc model.WeatherDocument, ttl time.Duration) error {
	key := WeatherKey(lat, lon)

	data, err := json.Marshal(doc)
	if err != nil {
		return apperr.Cache(err, "cannot encode weather document for %s", key)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return apperr.Cache(err, "cache write failed for %s", key)
	}

	c.logger.Debug("weather cached", "key", key, "ttl", ttl)
	return nil
}

// WeatherKey builds the cache key from the coordinates exactly as they were
// written in the query string: "51.50" and "51.5" are different keys.
func WeatherKey(lat, lon string) string {
	return "weather:" + lat + "," + lon
}
