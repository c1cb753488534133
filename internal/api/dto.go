package api

import (
	"github.com/starford/munin/internal/eventservice"
	"github.com/starford/munin/internal/index"
)

// RecordEventRequest is the request body for recording an event.
type RecordEventRequest struct {
	Type      string         `json:"type"`
	Namespace string         `json:"namespace"`
	Origin    string         `json:"origin"`
	Actor     string         `json:"actor,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Recorded is the response for a successful record (aliased from the
// domain layer).
type Recorded = eventservice.Recorded

// EventListResponse wraps paginated event listings.
type EventListResponse struct {
	Events []index.EventRow `json:"events"`
	Total  int              `json:"total"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// Summary is the journal state response (aliased from the domain layer).
type Summary = eventservice.Summary
