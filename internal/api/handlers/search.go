package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gometeo/weatherlookup/internal/apperr"
	"github.com/gometeo/weatherlookup/internal/model"
)

// Search resolves a city name to candidate locations.
func (h *WeatherHandler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	query, verr := h.parseSearch(r)
	if verr != nil {
		verr.send(w)
		return
	}

	ctx := r.Context()
	items, err := h.provider.ForwardGeocode(ctx, query.City, query.Limit)
	if err != nil {
		h.logger.Error("city search failed", "city", query.City, "error", err)
		sendFailure(w, fmt.Sprintf("Error fetching location for city '%s'", query.City), err)
		return
	}

	h.publisher.Publish(ctx, model.LookupEvent{
		Kind:  model.LookupSearch,
		Query: strings.ToLower(query.City),
		At:    h.now().UTC(),
	})

	sendData(w, items)

	h.logger.Info("city search served",
		"city", query.City,
		"results", len(items),
		"duration_ms", time.Since(start).Milliseconds())
}

// SearchByCoord resolves coordinates to the nearest named place.
func (h *WeatherHandler) SearchByCoord(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	query, verr := h.parseCoords(r)
	if verr != nil {
		verr.send(w)
		return
	}

	ctx := r.Context()
	item, err := h.provider.ReverseGeocode(ctx, query.Lat, query.Lon)
	if err != nil {
		message := fmt.Sprintf("Error fetching location for coordinates lat: %s, lon: %s", query.LatText, query.LonText)
		if apperr.Is(err, apperr.KindNotFound) {
			message = fmt.Sprintf("No location found for coordinates lat: %s, lon: %s", query.LatText, query.LonText)
			h.logger.Info("no location for coordinates", "lat", query.LatText, "lon", query.LonText)
		} else {
			h.logger.Error("reverse geocoding failed", "lat", query.LatText, "lon", query.LonText, "error", err)
		}
		sendFailure(w, message, err)
		return
	}

	h.publisher.Publish(ctx, model.LookupEvent{
		Kind:  model.LookupReverse,
		Lat:   query.LatText,
		Lon:   query.LonText,
		Label: item.City,
		At:    h.now().UTC(),
	})

	sendData(w, item)

	h.logger.Info("reverse geocoding served",
		"lat", query.LatText,
		"lon", query.LonText,
		"city", item.City,
		"duration_ms", time.Since(start).Milliseconds())
}
