package model

import "time"

// SuccessResponse wraps every successful API payload.
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ErrorResponse is the envelope for every failure. Message is user facing,
// Error is a lower level diagnostic.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// PopularQuery is one row of the most searched city names.
type PopularQuery struct {
	Query    string    `json:"query"`
	Hits     int64     `json:"hits"`
	LastSeen time.Time `json:"last_seen"`
}
