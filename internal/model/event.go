package model

import "time"

// LookupKind identifies which API route produced a LookupEvent.
type LookupKind string

const (
	LookupSearch  LookupKind = "search"
	LookupReverse LookupKind = "reverse"
	LookupWeather LookupKind = "weather"
)

// LookupEvent is what travels through Kafka from the API to the aggregator.
// Lat and Lon keep the raw query text so they line up with cache keys.
type LookupEvent struct {
	Kind     LookupKind `json:"kind"`
	Query    string     `json:"query,omitempty"`
	Lat      string     `json:"lat,omitempty"`
	Lon      string     `json:"lon,omitempty"`
	Label    string     `json:"label,omitempty"`
	CacheHit bool       `json:"cache_hit"`
	At       time.Time  `json:"at"`
}

// Key returns the aggregation key of the event within its kind.
func (e LookupEvent) Key() string {
	if e.Kind == LookupSearch {
		return e.Query
	}
	return e.Lat + "," + e.Lon
}

// HotLocation is a frequently requested coordinate pair, as stored.
type HotLocation struct {
	Lat  string
	Lon  string
	Hits int64
}
