package warmer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gometeo/weatherlookup/internal/model"
)

type fakeSource struct {
	hot      []model.HotLocation
	err      error
	gotLimit int
	calls    atomic.Int32
}

func (s *fakeSource) HotLocations(_ context.Context, limit int) ([]model.HotLocation, error) {
	s.calls.Add(1)
	s.gotLimit = limit
	return s.hot, s.err
}

type fakeFetcher struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	failLat     float64
}

func (f *fakeFetcher) FetchHourlyWeather(_ context.Context, lat, lon float64) (model.WeatherDocument, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.maxInFlight.Load()
		if n <= old || f.maxInFlight.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if lat == f.failLat {
		return model.WeatherDocument{}, errors.New("upstream unavailable")
	}
	return model.WeatherDocument{Lat: lat, Lon: lon}, nil
}

type fakeCache struct {
	mu   sync.Mutex
	keys map[string]time.Duration
}

func (c *fakeCache) Put(_ context.Context, lat, lon string, _ model.WeatherDocument, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[lat+","+lon] = ttl
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWarmOnce(t *testing.T) {
	source := &fakeSource{hot: []model.HotLocation{
		{Lat: "51.5", Lon: "-0.12", Hits: 40},
		{Lat: "48.85", Lon: "2.35", Hits: 30},
		{Lat: "40.71", Lon: "-74.01", Hits: 20},
		{Lat: "35.68", Lon: "139.69", Hits: 10},
		{Lat: "-33.87", Lon: "151.21", Hits: 5},
	}}
	fetcher := &fakeFetcher{failLat: 40.71}
	cache := &fakeCache{keys: map[string]time.Duration{}}

	w := New(source, fetcher, cache, Options{TopN: 5, Concurrency: 2, TTL: time.Hour}, testLogger())
	res, err := w.WarmOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Result{Warmed: 4, Failed: 1}, res)
	assert.Equal(t, 5, source.gotLimit)
	assert.LessOrEqual(t, fetcher.maxInFlight.Load(), int32(2))

	assert.Len(t, cache.keys, 4)
	assert.Equal(t, time.Hour, cache.keys["51.5,-0.12"])
	assert.NotContains(t, cache.keys, "40.71,-74.01")
}

func TestWarmOnce_SkipsUnparsableCoordinates(t *testing.T) {
	source := &fakeSource{hot: []model.HotLocation{{Lat: "north", Lon: "1"}, {Lat: "1", Lon: "2"}}}
	cache := &fakeCache{keys: map[string]time.Duration{}}

	w := New(source, &fakeFetcher{failLat: 999}, cache, Options{TopN: 2, Concurrency: 4}, testLogger())
	res, err := w.WarmOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Result{Warmed: 1, Failed: 1}, res)
}

func TestWarmOnce_SourceFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("database down")}

	w := New(source, &fakeFetcher{}, &fakeCache{keys: map[string]time.Duration{}}, Options{TopN: 3}, testLogger())
	_, err := w.WarmOnce(context.Background())

	assert.ErrorContains(t, err, "database down")
}

func TestRun_WarmsImmediatelyAndStopsOnCancel(t *testing.T) {
	source := &fakeSource{}
	w := New(source, &fakeFetcher{}, &fakeCache{keys: map[string]time.Duration{}},
		Options{Interval: time.Hour, TopN: 1}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return source.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
