// Package warmer keeps the weather cache populated for the most requested
// coordinates so that hot locations rarely miss.
package warmer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gometeo/weatherlookup/internal/model"
)

// Source ranks coordinate pairs by how often their weather was requested.
type Source interface {
	HotLocations(ctx context.Context, limit int) ([]model.HotLocation, error)
}

type Fetcher interface {
	FetchHourlyWeather(ctx context.Context, lat, lon float64) (model.WeatherDocument, error)
}

type Cache interface {
	Put(ctx context.Context, lat, lon string, doc model.WeatherDocument, ttl time.Duration) error
}

type Options struct {
	Interval    time.Duration
	TopN        int
	Concurrency int
	TTL         time.Duration
}

// Result summarizes one warming pass.
type Result struct {
	Warmed int
	Failed int
}

type Warmer struct {
	source  Source
	fetcher Fetcher
	cache   Cache
	opts    Options
	logger  *slog.Logger
}

func New(source Source, fetcher Fetcher, cache Cache, opts Options, logger *slog.Logger) *Warmer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Warmer{
		source:  source,
		fetcher: fetcher,
		cache:   cache,
		opts:    opts,
		logger:  logger,
	}
}

// Run warms once immediately and then on every tick until ctx is done.
func (w *Warmer) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.WarmOnce(ctx); err != nil {
			w.logger.Error("cache warming pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// WarmOnce refreshes the cache entry of each hot location. A location that
// fails is logged and skipped; only a failing Source aborts the pass.
func (w *Warmer) WarmOnce(ctx context.Context) (Result, error) {
	start := time.Now()

	hot, err := w.source.HotLocations(ctx, w.opts.TopN)
	if err != nil {
		return Result{}, fmt.Errorf("load hot locations: %w", err)
	}

	var warmed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Concurrency)

	for _, loc := range hot {
		loc := loc
		g.Go(func() error {
			if err := w.warm(gctx, loc); err != nil {
				failed.Add(1)
				w.logger.Warn("location not warmed", "lat", loc.Lat, "lon", loc.Lon, "error", err)
				return nil
			}
			warmed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Warmed: int(warmed.Load()), Failed: int(failed.Load())}
	w.logger.Info("cache warming pass done",
		"locations", len(hot),
		"warmed", res.Warmed,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

func (w *Warmer) warm(ctx context.Context, loc model.HotLocation) error {
	lat, err := strconv.ParseFloat(loc.Lat, 64)
	if err != nil {
		return fmt.Errorf("bad latitude %q: %w", loc.Lat, err)
	}
	lon, err := strconv.ParseFloat(loc.Lon, 64)
	if err != nil {
		return fmt.Errorf("bad longitude %q: %w", loc.Lon, err)
	}

	doc, err := w.fetcher.FetchHourlyWeather(ctx, lat, lon)
	if err != nil {
		return err
	}
	return w.cache.Put(ctx, loc.Lat, loc.Lon, doc, w.opts.TTL)
}
