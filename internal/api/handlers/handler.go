// Package handlers serves the /api/v1 routes: validate the query, delegate
// to the provider client or the cache, wrap the result in an envelope.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gometeo/weatherlookup/internal/apperr"
	"github.com/gometeo/weatherlookup/internal/events"
	"github.com/gometeo/weatherlookup/internal/model"
)

// Provider is the upstream geocoding and weather source.
type Provider interface {
	ForwardGeocode(ctx context.Context, city string, limit int) ([]model.GeoLocationItem, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (model.GeoLocationItem, error)
	FetchHourlyWeather(ctx context.Context, lat, lon float64) (model.WeatherDocument, error)
}

// WeatherCache stores full, un-windowed weather documents keyed by the raw
// coordinate text.
type WeatherCache interface {
	Get(ctx context.Context, lat, lon string) (*model.WeatherDocument, error)
	Put(ctx context.Context, lat, lon string, doc model.WeatherDocument, ttl time.Duration) error
}

// PopularStore lists the most searched city names.
type PopularStore interface {
	PopularQueries(ctx context.Context, limit int) ([]model.PopularQuery, error)
}

// Pinger is a dependency checked by the health route.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Provider  Provider
	Cache     WeatherCache
	Publisher events.Publisher
	Popular   PopularStore

	// Health maps a dependency name to its check.
	Health   map[string]Pinger
	CacheTTL time.Duration
	Logger   *slog.Logger

	// Now is replaced in tests.
	Now func() time.Time
}

type WeatherHandler struct {
	provider  Provider
	cache     WeatherCache
	publisher events.Publisher
	popular   PopularStore
	health    map[string]Pinger
	ttl       time.Duration
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

func NewWeatherHandler(opts Options) *WeatherHandler {
	h := &WeatherHandler{
		provider:  opts.Provider,
		cache:     opts.Cache,
		publisher: opts.Publisher,
		popular:   opts.Popular,
		health:    opts.Health,
		ttl:       opts.CacheTTL,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if h.publisher == nil {
		h.publisher = events.NopPublisher{}
	}
	if h.ttl <= 0 {
		h.ttl = time.Hour
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// HasPopular reports whether the popular searches route can be served.
func (h *WeatherHandler) HasPopular() bool {
	return h.popular != nil
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func sendData(w http.ResponseWriter, data any) {
	sendJSON(w, http.StatusOK, model.SuccessResponse{Success: true, Data: data})
}

func sendError(w http.ResponseWriter, status int, message, details string) {
	sendJSON(w, status, model.ErrorResponse{
		Success: false,
		Message: message,
		Error:   details,
	})
}

// sendFailure answers with the status of err's kind. The error field carries
// only the safe message of the apperr.Error, never the wrapped cause.
func sendFailure(w http.ResponseWriter, message string, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		sendError(w, appErr.HTTPStatus(), message, appErr.Message)
		return
	}
	sendError(w, http.StatusInternalServerError, message, "internal error")
}
