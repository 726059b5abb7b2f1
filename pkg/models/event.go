package models

import "time"

// Panel describes the addressable pixel geometry of the target display.
type Panel struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RefreshResult is the status event published after every refresh cycle.
// Subscribers (typically the dashboard page itself) use it to show when the
// panel content was last updated and why a cycle failed.
type RefreshResult struct {
	Type        string    `json:"type"`
	URL         string    `json:"url"`
	Panel       Panel     `json:"panel"`
	Success     bool      `json:"success"`
	FailureKind string    `json:"failure_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	ProcessedAt time.Time `json:"processed_at"`
}
