// Package openweather is the only place that talks to the OpenWeather
// geocoding and one-call APIs. Provider payloads are decoded into private
// wide types and projected into internal/model before they leave.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/gometeo/weatherlookup/internal/apperr"
	"github.com/gometeo/weatherlookup/internal/model"
)

// breakerTripAfter consecutive failures open the circuit for 30s.
const breakerTripAfter = 5

const (
	DefaultBaseURL     = "https://api.openweathermap.org"
	DefaultTimeout     = 3 * time.Second
	DefaultSearchLimit = 10

	directGeocodePath  = "/geo/1.0/direct"
	reverseGeocodePath = "/geo/1.0/reverse"
	oneCallPath        = "/data/3.0/onecall"
)

var (
	errUnexpectedStatus = errors.New("unexpected status code")
	errMalformedPayload = errors.New("malformed payload")
)

type Options struct {
	BaseURL string
	APIKey  string
	// Timeout bounds every provider call, including reading the body.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is built once at startup and shared by all handlers. It holds no
// per-request state.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	logger     *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		breaker:    breaker,
		logger:     logger,
	}
}

// ForwardGeocode resolves a city name to candidate locations. Zero matches
// is an empty slice, not an error.
func (c *Client) ForwardGeocode(ctx context.Context, city string, limit int) ([]model.GeoLocationItem, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("lang", "en")
	params.Set("limit", strconv.Itoa(limit))

	var records []geoRecord
	if err := c.getJSON(ctx, directGeocodePath, params, &records); err != nil {
		return nil, apperr.Upstream(err, "geocoding request failed for city '%s'", city)
	}

	return toGeoLocationItems(records), nil
}

// ReverseGeocode resolves coordinates to the nearest named place.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (model.GeoLocationItem, error) {
	params := coordParams(lat, lon)
	params.Set("limit", "1")

	var records []geoRecord
	if err := c.getJSON(ctx, reverseGeocodePath, params, &records); err != nil {
		return model.GeoLocationItem{}, apperr.Upstream(err,
			"reverse geocoding request failed for coordinates lat: %s, lon: %s",
			formatCoord(lat), formatCoord(lon))
	}
	if len(records) == 0 {
		return model.GeoLocationItem{}, apperr.NotFound(
			"no location found for coordinates lat: %s, lon: %s",
			formatCoord(lat), formatCoord(lon))
	}

	return toGeoLocationItem(records[0]), nil
}

// FetchHourlyWeather returns current conditions and the hourly forecast.
// Hourly samples at or before current.dt are removed.
func (c *Client) FetchHourlyWeather(ctx context.Context, lat, lon float64) (model.WeatherDocument, error) {
	params := coordParams(lat, lon)
	params.Set("units", "metric")
	params.Set("exclude", "minutely,daily")

	fail := func(err error) (model.WeatherDocument, error) {
		return model.WeatherDocument{}, apperr.Upstream(err,
			"weather request failed for coordinates lat: %s, lon: %s",
			formatCoord(lat), formatCoord(lon))
	}

	var payload oneCallResponse
	if err := c.getJSON(ctx, oneCallPath, params, &payload); err != nil {
		return fail(err)
	}
	if payload.Current == nil {
		return fail(fmt.Errorf("%w: missing current block", errMalformedPayload))
	}

	return dropStaleHourly(toWeatherDocument(payload)), nil
}

// getJSON performs one GET against the provider and decodes the body into
// dst. The call is detached from the caller's cancellation and bounded by
// the client timeout instead.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dst any) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	params.Set("appid", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return stripURL(err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return nil, stripURL(doErr)
		}
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, r.Body)
			r.Body.Close()
			return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, r.StatusCode)
		}
		return r, nil
	})
	if err != nil {
		c.logger.Warn("openweather request failed",
			"path", path,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedPayload, err)
	}

	c.logger.Debug("openweather request completed",
		"path", path,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func coordParams(lat, lon float64) url.Values {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	return params
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// stripURL drops the request URL from transport errors: it carries the
// appid query parameter.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}
	return err
}
