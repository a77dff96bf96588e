package models

import "time"

// EventType classifies screener status events.
type EventType string

const (
	EventLoading       EventType = "loading"
	EventLoaded        EventType = "loaded"
	EventLoadFailed    EventType = "load_failed"
	EventFilterChanged EventType = "filter_changed"
)

// Event is a status change pushed to the UI shell and downstream consumers.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
	Tickers int       `json:"tickers"`
	Source  string    `json:"source,omitempty"`
	At      time.Time `json:"at"`
}
