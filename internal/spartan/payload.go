// Package spartan understands the race listing embedded in the upstream
// find-race page. The page carries the full race list as a javascript
// assignment (`window.races = [...];`) rather than a real API response, so
// extraction is line-oriented string surgery before any JSON parsing.
package spartan

import "encoding/json"

// VenuePayload is the nested venue object on races and events
type VenuePayload struct {
	Name string `json:"name"`
}

// CategoryPayload carries the event category. Upstream is not consistent
// about the key name; some payloads use category_identifier and some use
// category_name.
type CategoryPayload struct {
	Identifier string `json:"category_identifier"`
	Name       string `json:"category_name"`
}

// Slug returns the upstream category slug, preferring category_identifier
// and falling back to category_name.
func (c CategoryPayload) Slug() string {
	if c.Identifier != "" {
		return c.Identifier
	}
	return c.Name
}

// EventPayload is one subevent of a race as upstream serializes it
type EventPayload struct {
	ID        json.Number     `json:"id"`
	Category  CategoryPayload `json:"category"`
	EventName string          `json:"event_name"`
	RaceID    json.Number     `json:"race_id"`
	StartDate string          `json:"start_date"`
	Venue     VenuePayload    `json:"venue"`
}

// RacePayload is one race as upstream serializes it. Numeric ids arrive as
// either numbers or strings depending on which frontend build produced the
// page, hence json.Number. Location fields are frequently absent; pointers
// distinguish absent from zero for the coordinates.
type RacePayload struct {
	ID        json.Number    `json:"id"`
	EventName string         `json:"event_name"`
	StartDate string         `json:"start_date"`
	Venue     VenuePayload   `json:"venue"`
	Country   string         `json:"country"`
	Region    string         `json:"region"`
	Latitude  *float64       `json:"latitude"`
	Longitude *float64       `json:"longitude"`
	Subevents []EventPayload `json:"subevents"`
}
