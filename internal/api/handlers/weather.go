package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gometeo/weatherlookup/internal/forecast"
	"github.com/gometeo/weatherlookup/internal/model"
)

// GetWeather serves current conditions and up to six upcoming hours. The
// cache holds the full document; the hourly window is cut per request so a
// cached entry never serves hours that have already passed.
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	query, verr := h.parseCoords(r)
	if verr != nil {
		verr.send(w)
		return
	}

	ctx := r.Context()

	// 1. Cache
	doc, err := h.cache.Get(ctx, query.LatText, query.LonText)
	if err != nil {
		h.logger.Warn("weather cache unavailable, fetching upstream",
			"lat", query.LatText,
			"lon", query.LonText,
			"error", err)
		doc = nil
	}
	cacheHit := doc != nil

	// 2. Provider
	if !cacheHit {
		fresh, err := h.provider.FetchHourlyWeather(ctx, query.Lat, query.Lon)
		if err != nil {
			h.logger.Error("weather fetch failed", "lat", query.LatText, "lon", query.LonText, "error", err)
			sendFailure(w, fmt.Sprintf("Error fetching weather data for coordinates lat: %s, lon: %s",
				query.LatText, query.LonText), err)
			return
		}

		if err := h.cache.Put(ctx, query.LatText, query.LonText, fresh, h.ttl); err != nil {
			h.logger.Warn("weather not cached", "lat", query.LatText, "lon", query.LonText, "error", err)
		}
		doc = &fresh
	}

	now := h.now()
	h.publisher.Publish(ctx, model.LookupEvent{
		Kind:     model.LookupWeather,
		Lat:      query.LatText,
		Lon:      query.LonText,
		CacheHit: cacheHit,
		At:       now.UTC(),
	})

	sendData(w, forecast.WindowHourly(*doc, now))

	source := "upstream"
	if cacheHit {
		source = "cache"
	}
	h.logger.Info("weather served",
		"lat", query.LatText,
		"lon", query.LonText,
		"source", source,
		"duration_ms", time.Since(start).Milliseconds())
}
