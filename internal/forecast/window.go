// Package forecast holds the serve-time shaping of cached weather documents.
package forecast

import (
	"time"

	"github.com/gometeo/weatherlookup/internal/model"
)

// MaxHourly is the number of hourly samples delivered to clients.
const MaxHourly = 6

// WindowHourly returns a copy of doc whose hourly list keeps only samples
// strictly after now, capped at MaxHourly, in provider order. doc is not
// modified. Cached documents hold the full list so that every read can
// recompute the window from its own "now".
func WindowHourly(doc model.WeatherDocument, now time.Time) model.WeatherDocument {
	cutoff := now.Unix()

	hourly := make([]model.HourlyWeather, 0, MaxHourly)
	for _, h := range doc.Hourly {
		if len(hourly) == MaxHourly {
			break
		}
		if h.Dt > cutoff {
			hourly = append(hourly, h)
		}
	}

	out := doc
	out.Hourly = hourly
	return out
}
