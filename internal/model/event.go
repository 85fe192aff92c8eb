package model

import "time"

// Event is a registry event (bankruptcy, formation, capital change) as
// published by the business register's announcement feed.
type Event struct {
	CVR          string    `json:"cvr"`
	Name         string    `json:"name"`
	EventType    string    `json:"event_type"`
	EventSubtype string    `json:"event_subtype,omitempty"`
	NACE         string    `json:"nace,omitempty"`
	EventDate    time.Time `json:"event_date"`
	SourceID     string    `json:"source_id,omitempty"`
	SourceURL    string    `json:"source_url,omitempty"`
}

// EventFilter selects events from the announcement feed.
type EventFilter struct {
	EventType    string
	NACEPrefixes []string
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
	Offset       int
}
