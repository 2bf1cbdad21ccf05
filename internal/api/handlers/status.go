package handlers

import (
	"net/http"
	"time"
)

// Popular lists the most searched city names.
func (h *WeatherHandler) Popular(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), defaultPopularLimit)
	if limit > maxPopularLimit {
		limit = maxPopularLimit
	}

	queries, err := h.popular.PopularQueries(r.Context(), limit)
	if err != nil {
		h.logger.Error("popular searches unavailable", "error", err)
		sendError(w, http.StatusInternalServerError, "Error fetching popular searches", "statistics store unavailable")
		return
	}

	sendData(w, queries)
}

// HealthCheck pings every configured dependency.
func (h *WeatherHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := map[string]string{
		"status": "ok",
		"time":   h.now().UTC().Format(time.RFC3339),
	}

	for name, dep := range h.health {
		if err := dep.Ping(ctx); err != nil {
			health[name] = "unhealthy"
			health["status"] = "degraded"
			h.logger.Error("health check failed", "dependency", name, "error", err)
			continue
		}
		health[name] = "healthy"
	}

	status := http.StatusOK
	if health["status"] == "degraded" {
		status = http.StatusServiceUnavailable
	}

	sendJSON(w, status, health)
}
