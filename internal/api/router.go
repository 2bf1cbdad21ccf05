// Package api assembles the HTTP surface of the service.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gometeo/weatherlookup/internal/api/handlers"
	"github.com/gometeo/weatherlookup/internal/api/middleware"
)

type RouterConfig struct {
	Handler        *handlers.WeatherHandler
	Limiter        middleware.Limiter
	AllowedOrigins []string
	TrustProxy     bool
	Logger         *slog.Logger
}

// NewRouter mounts the /api/v1 routes and wraps them in the edge chain.
// The chain sits outside mux so that unmatched paths and preflight
// requests pass through it too.
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	h := cfg.Handler

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	api.HandleFunc("/search-by-coord", h.SearchByCoord).Methods(http.MethodGet)
	api.HandleFunc("/weather", h.GetWeather).Methods(http.MethodGet)
	if h.HasPopular() {
		api.HandleFunc("/popular", h.Popular).Methods(http.MethodGet)
	}
	api.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(notFound)

	chain := []middleware.Middleware{
		middleware.Recoverer(cfg.Logger),
		middleware.RequestID,
		middleware.Logging(cfg.Logger),
		middleware.SecurityHeaders,
		middleware.CORS(cfg.AllowedOrigins),
	}
	if cfg.Limiter != nil {
		chain = append(chain, middleware.RateLimit(cfg.Limiter, cfg.TrustProxy, cfg.Logger))
	}
	chain = append(chain, middleware.ContentType)

	return middleware.Chain(router, chain...)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"success":false,"message":"Not found","error":"The requested route does not exist."}`))
}
