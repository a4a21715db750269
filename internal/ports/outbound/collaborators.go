// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/wayfarer/v2/internal/domain/geo"
	"github.com/wayfarer/v2/internal/domain/itinerary"
)

// ErrMissingCredentials is returned by an AIPlanner whose required
// credentials are absent. The session surfaces it distinctly from any other
// generation failure.
var ErrMissingCredentials = errors.New("ai planner credentials are not configured")

// AIPlanner generates a structured multi-day itinerary from a preference
// form. A single request/response call; there is no cancellation once issued
// and no automatic retry.
type AIPlanner interface {
	GeneratePlan(ctx context.Context, req PlanRequest) (*itinerary.Itinerary, error)
}

// PlanRequest is the preference form handed to the planner.
type PlanRequest struct {
	Scope    string `json:"scope"`
	Location string `json:"location"`
	Theme    string `json:"theme"`
	DayCount int    `json:"dayCount"`
	Budget   string `json:"budget"`
	Language string `json:"language"`
}

// HistoryRepository persists the bounded most-recently-used list of saved
// itineraries under a fixed storage identifier. It is read once at startup
// and rewritten on every save or clear.
type HistoryRepository interface {
	Load(ctx context.Context) ([]*itinerary.Itinerary, error)
	Replace(ctx context.Context, entries []*itinerary.Itinerary) error
}

// CacheRepository is a byte cache with TTL, used for AI response caching.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// NearbyStop is a named point of interest close to a coordinate, typically a
// transit stop.
type NearbyStop struct {
	Name     string
	Distance float64 // meters from the query coordinate
}

// PlaceEnrichment looks up a nearby named point of interest for a
// coordinate. Zero or one result; lookups are independent and best-effort.
type PlaceEnrichment interface {
	NearbyStop(ctx context.Context, coord geo.Coordinate, radiusMeters int) (*NearbyStop, error)
}

// Marker is one interactive map marker with its declarative popup content.
type Marker struct {
	ID       string         `json:"id"`
	Position geo.Coordinate `json:"position"`
	Color    string         `json:"color"`
	Popup    PopupContent   `json:"popup"`
}

// PopupContent is the structured popup model the map renderer translates
// into platform UI. The core never builds markup strings.
type PopupContent struct {
	Header   string        `json:"header"`
	Badges   []string      `json:"badges,omitempty"`
	Sections []PopupField  `json:"sections,omitempty"`
	Actions  []PopupAction `json:"actions,omitempty"`
}

// PopupField is one labeled detail line inside a popup.
type PopupField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// PopupAction is a popup button with a semantic identifier the renderer maps
// to behavior (e.g. "view-in-list", "reserve").
type PopupAction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// Bounds is a rectangular viewport region.
type Bounds struct {
	SouthWest geo.Coordinate `json:"southWest"`
	NorthEast geo.Coordinate `json:"northEast"`
}

// MapSurface abstracts the rendering widget: markers in, a polyline in,
// viewport framing in, click events out. Implementations must tolerate a
// full rebuild of all markers on every view change.
type MapSurface interface {
	SetMarkers(markers []Marker) error
	DrawRoute(points []geo.Coordinate) error
	FitBounds(b Bounds) error
	Clear() error
	OnMarkerClick(fn func(markerID string))
}

// ConnectivityObserver reports whether the ambient environment is online and
// notifies on transitions. The core never reaches into ambient globals.
type ConnectivityObserver interface {
	Online() bool
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Narrator speaks one stop's text aloud. Optional collaborator; the view
// only tracks the narrated stop cursor.
type Narrator interface {
	Speak(ctx context.Context, text string) error
	Stop()
}
