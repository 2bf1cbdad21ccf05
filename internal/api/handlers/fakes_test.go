package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/gometeo/weatherlookup/internal/model"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu           sync.Mutex
	items        []model.GeoLocationItem
	item         model.GeoLocationItem
	doc          model.WeatherDocument
	err          error
	gotCity      string
	gotLimit     int
	gotLat       float64
	gotLon       float64
	weatherCalls int
}

func (p *fakeProvider) ForwardGeocode(_ context.Context, city string, limit int) ([]model.GeoLocationItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gotCity, p.gotLimit = city, limit
	return p.items, p.err
}

func (p *fakeProvider) ReverseGeocode(_ context.Context, lat, lon float64) (model.GeoLocationItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gotLat, p.gotLon = lat, lon
	return p.item, p.err
}

func (p *fakeProvider) FetchHourlyWeather(_ context.Context, lat, lon float64) (model.WeatherDocument, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.weatherCalls++
	p.gotLat, p.gotLon = lat, lon
	return p.doc, p.err
}

type cacheEntry struct {
	doc model.WeatherDocument
	ttl time.Duration
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	getErr  error
	putErr  error
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]cacheEntry{}}
}

func (c *fakeCache) Get(_ context.Context, lat, lon string) (*model.WeatherDocument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	e, ok := c.entries[lat+","+lon]
	if !ok {
		return nil, nil
	}
	doc := e.doc
	return &doc, nil
}

func (c *fakeCache) Put(_ context.Context, lat, lon string, doc model.WeatherDocument, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[lat+","+lon] = cacheEntry{doc: doc, ttl: ttl}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.LookupEvent
}

func (p *fakePublisher) Publish(_ context.Context, ev model.LookupEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *fakePublisher) all() []model.LookupEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.LookupEvent(nil), p.events...)
}

type fakePopular struct {
	queries  []model.PopularQuery
	err      error
	gotLimit int
}

func (s *fakePopular) PopularQueries(_ context.Context, limit int) ([]model.PopularQuery, error) {
	s.gotLimit = limit
	return s.queries, s.err
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var errDown = errors.New("connection refused")

// testClock is a settable clock for the handler.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	provider  *fakeProvider
	cache     *fakeCache
	publisher *fakePublisher
	popular   *fakePopular
	clock     *testClock
	health    map[string]Pinger
	router    *mux.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		provider:  &fakeProvider{},
		cache:     newFakeCache(),
		publisher: &fakePublisher{},
		popular:   &fakePopular{},
		clock:     &testClock{now: testNow},
		health:    map[string]Pinger{},
	}

	h := NewWeatherHandler(Options{
		Provider:  env.provider,
		Cache:     env.cache,
		Publisher: env.publisher,
		Popular:   env.popular,
		Health:    env.health,
		CacheTTL:  time.Hour,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:       env.clock.Now,
	})

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	api.HandleFunc("/search-by-coord", h.SearchByCoord).Methods(http.MethodGet)
	api.HandleFunc("/weather", h.GetWeather).Methods(http.MethodGet)
	api.HandleFunc("/popular", h.Popular).Methods(http.MethodGet)
	api.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	env.router = r
	return env
}

func (e *testEnv) get(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// forecastDoc has hourly samples from one hour before testNow to nine
// hours after it.
func forecastDoc() model.WeatherDocument {
	doc := model.WeatherDocument{
		Lat:            51.5,
		Lon:            -0.12,
		Timezone:       "Europe/London",
		TimezoneOffset: 3600,
		Current: model.CurrentWeather{
			WeatherSample: model.WeatherSample{
				Dt:      testNow.Add(-10 * time.Minute).Unix(),
				Temp:    14.2,
				Weather: []model.Condition{{ID: 803, Main: "Clouds", Description: "broken clouds", Icon: "04d"}},
			},
			Sunrise: testNow.Add(-5 * time.Hour).Unix(),
			Sunset:  testNow.Add(6 * time.Hour).Unix(),
		},
	}
	for i := -1; i <= 9; i++ {
		doc.Hourly = append(doc.Hourly, model.HourlyWeather{
			WeatherSample: model.WeatherSample{
				Dt:      testNow.Add(time.Duration(i) * time.Hour).Unix(),
				Temp:    14 + float64(i)/10,
				Weather: []model.Condition{{ID: 500, Main: "Rain", Description: "light rain", Icon: "10d"}},
			},
			Pop: 0.4,
		})
	}
	return doc
}
