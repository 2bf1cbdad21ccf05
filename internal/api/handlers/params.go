package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gometeo/weatherlookup/internal/apperr"
)

const (
	defaultSearchLimit  = 10
	defaultPopularLimit = 10
	maxPopularLimit     = 50
)

const (
	msgCityRequired   = "city is required"
	errCityRequired   = "The parameter 'city' is required and cannot be empty."
	msgCoordsRequired = "lat and lon are required"
	errCoordsRequired = "The parameters 'lat' and 'lon' are both required and cannot be empty."
	msgCoordsInvalid  = "lat and lon must be numbers"
	errCoordsInvalid  = "The parameters 'lat' and 'lon' must be finite numbers."
)

type searchQuery struct {
	City  string `validate:"required"`
	Limit int    `validate:"gt=0"`
}

// coordQuery keeps the trimmed query text next to the parsed values: the
// text is the cache key, the floats go upstream.
type coordQuery struct {
	LatText string `validate:"required"`
	LonText string `validate:"required"`
	Lat     float64
	Lon     float64
}

// validationError is answered as 422 with its fixed message pair.
type validationError struct {
	message string
	details string
}

func (e *validationError) send(w http.ResponseWriter) {
	sendError(w, apperr.KindValidation.HTTPStatus(), e.message, e.details)
}

func (h *WeatherHandler) parseSearch(r *http.Request) (searchQuery, *validationError) {
	q := r.URL.Query()
	query := searchQuery{
		City:  strings.TrimSpace(q.Get("city")),
		Limit: parseLimit(q.Get("limit"), defaultSearchLimit),
	}
	if err := h.validate.Struct(query); err != nil {
		return searchQuery{}, &validationError{message: msgCityRequired, details: errCityRequired}
	}
	return query, nil
}

func (h *WeatherHandler) parseCoords(r *http.Request) (coordQuery, *validationError) {
	q := r.URL.Query()
	query := coordQuery{
		LatText: strings.TrimSpace(q.Get("lat")),
		LonText: strings.TrimSpace(q.Get("lon")),
	}
	if err := h.validate.Struct(query); err != nil {
		return coordQuery{}, &validationError{message: msgCoordsRequired, details: errCoordsRequired}
	}

	var ok bool
	if query.Lat, ok = parseFinite(query.LatText); !ok {
		return coordQuery{}, &validationError{message: msgCoordsInvalid, details: errCoordsInvalid}
	}
	if query.Lon, ok = parseFinite(query.LonText); !ok {
		return coordQuery{}, &validationError{message: msgCoordsInvalid, details: errCoordsInvalid}
	}
	return query, nil
}

// parseLimit falls back to def for anything that is not a positive integer.
func parseLimit(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseFinite(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
