package progress

import (
	"time"
)

// Status is the last reported state of one app's harvest.
type Status struct {
	AppID string `json:"app_id"`

	// State is the controller state name (FETCHING, DONE, FAILED, ...).
	State string `json:"state"`

	// Offset is the server-side position reached so far.
	Offset int `json:"offset"`

	// Total is the running total the harvest is working towards.
	Total int `json:"total"`

	// Written is the number of records appended during the current run.
	Written int `json:"written"`

	// Cursor is the resume token after the last processed page.
	Cursor string `json:"cursor"`

	// Error holds the failure message for FAILED harvests.
	Error string `json:"error,omitempty"`

	// UpdatedAt is when the status was reported.
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal returns true for DONE and FAILED.
func (s *Status) Terminal() bool {
	return s.State == "DONE" || s.State == "FAILED"
}

// Percent returns progress towards Total, or 0 when Total is unknown.
func (s *Status) Percent() float64 {
	if s.Total <= 0 {
		return 0
	}
	p := float64(s.Offset) / float64(s.Total) * 100
	if p > 100 {
		return 100
	}
	return p
}
