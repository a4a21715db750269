// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/wayfarer/v2/internal/domain/itinerary"
	"github.com/wayfarer/v2/internal/ports/outbound"
)

// SessionPhase is the lifecycle phase of an itinerary session.
type SessionPhase string

const (
	// PhaseForming means no itinerary is present and the preference form is live.
	PhaseForming SessionPhase = "forming"
	// PhaseGenerating means a generation request is in flight.
	PhaseGenerating SessionPhase = "generating"
	// PhaseViewing means an itinerary is present.
	PhaseViewing SessionPhase = "viewing"
)

// ItinerarySession defines the use cases of the itinerary lifecycle: generate
// from a preference form, mutate in place, save into bounded history, reset.
type ItinerarySession interface {
	// Commands - operations that modify state
	Generate(ctx context.Context, cmd GenerateCommand) (*itinerary.Itinerary, error)
	Save(ctx context.Context, override *itinerary.Itinerary) (*itinerary.Itinerary, error)
	Reset(ctx context.Context) error
	SetComment(ctx context.Context, dayNumber int, activityKey, note string) error
	SetDescription(ctx context.Context, description string) error
	ReorderDay(ctx context.Context, dayNumber int) error

	// Queries - operations that read state
	Phase() SessionPhase
	Current() (*itinerary.Itinerary, error)
	Comment(dayNumber int, activityKey string) (string, error)
	History(ctx context.Context) ([]*itinerary.Itinerary, error)
	ClearHistory(ctx context.Context) error
}

// GenerateCommand carries the preference form into generation.
type GenerateCommand struct {
	Scope    string `json:"scope" validate:"required"`
	Location string `json:"location" validate:"required"`
	Theme    string `json:"theme"`
	DayCount int    `json:"dayCount" validate:"required,min=1,max=14"`
	Budget   string `json:"budget"`
	Language string `json:"language"`
}

// Request converts the command into the outbound planner request.
func (c GenerateCommand) Request() outbound.PlanRequest {
	return outbound.PlanRequest{
		Scope:    c.Scope,
		Location: c.Location,
		Theme:    c.Theme,
		DayCount: c.DayCount,
		Budget:   c.Budget,
		Language: c.Language,
	}
}

// ViewState is the view-model input state owned by the synchronizer.
type ViewState struct {
	DayNumber   int                             `json:"dayNumber"`
	Filters     map[itinerary.ActivityType]bool `json:"filters"`
	SearchQuery string                          `json:"searchQuery"`
	MapExpanded bool                            `json:"mapExpanded"`
}

// ItineraryView defines the synchronized list/map projection over the
// current itinerary.
type ItineraryView interface {
	SetDay(dayNumber int)
	SetFilter(t itinerary.ActivityType, visible bool)
	SetSearchQuery(q string)
	SetMapExpanded(expanded bool)
	ToggleExpanded(activityKey string)
	SelectMarker(activityKey string)

	Render(ctx context.Context) (*DayView, error)

	// Narration cursor over the visible set.
	NarrationIndex() int
	NarrateNext(ctx context.Context) error
	NarratePrevious(ctx context.Context) error
	NarrateSeek(ctx context.Context, index int) error
}

// DayView is the rendered projection for one day: the filtered list entries
// plus the map geometry, both derived from the same underlying day.
type DayView struct {
	DayNumber int         `json:"dayNumber"`
	DayTitle  string      `json:"dayTitle"`
	Entries   []ListEntry `json:"entries"`

	Markers  []outbound.Marker `json:"markers"`
	Route    []RoutePoint      `json:"route"`
	Viewport *outbound.Bounds  `json:"viewport,omitempty"`

	MapExpanded bool `json:"mapExpanded"`
}

// RoutePoint is one vertex of the connecting polyline.
type RoutePoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ListEntry is one visible activity as shown in the list presentation.
type ListEntry struct {
	Key              string                 `json:"key"`
	Activity         itinerary.Activity     `json:"activity"`
	Comment          string                 `json:"comment"`
	Expanded         bool                   `json:"expanded"`
	Highlighted      bool                   `json:"highlighted"`
	ReservationLink  string                 `json:"reservationLink,omitempty"`
	DerivedTravel    *DerivedTravel         `json:"derivedTravel,omitempty"`
	EnrichedAddress  string                 `json:"enrichedAddress,omitempty"`
	MarkerColor      string                 `json:"markerColor"`
}

// DerivedTravel is the backfilled travel leg for a TRAVEL activity whose
// time and transport were absent from the generated plan.
type DerivedTravel struct {
	DistanceKm float64 `json:"distanceKm"`
	TravelTime string  `json:"travelTime"`
	Transport  string  `json:"transport"`
}
