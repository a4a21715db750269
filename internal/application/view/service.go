// Package view provides the application layer for the synchronized list/map
// projection over the current itinerary. It owns presentation state only;
// every data mutation goes through the session service.
package view

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wayfarer/v2/internal/domain/geo"
	"github.com/wayfarer/v2/internal/domain/itinerary"
	"github.com/wayfarer/v2/internal/infrastructure/monitoring"
	"github.com/wayfarer/v2/internal/ports/inbound"
	"github.com/wayfarer/v2/internal/ports/outbound"
	"github.com/wayfarer/v2/pkg/errors"
)

const (
	// highlightDuration is how long a cross-navigation highlight lasts.
	highlightDuration = 2 * time.Second

	// minTravelLegKm is the floor under which a computed inter-stop
	// distance is treated as noise and no travel leg is backfilled.
	minTravelLegKm = 0.5

	// enrichRadiusMeters is the search radius for nearby-stop lookups.
	enrichRadiusMeters = 300

	// enrichTimeout bounds each individual nearby-stop lookup.
	enrichTimeout = 3 * time.Second
)

// defaultViewport frames the supported region when no activity carries
// coordinates at all.
var defaultViewport = outbound.Bounds{
	SouthWest: geo.Coordinate{Lat: 36.3, Lng: -5.7},
	NorthEast: geo.Coordinate{Lat: 37.3, Lng: -3.7},
}

// Service implements the synchronized itinerary view.
type Service struct {
	session      inbound.ItinerarySession
	surface      outbound.MapSurface
	enricher     outbound.PlaceEnrichment
	connectivity outbound.ConnectivityObserver
	narrator     outbound.Narrator
	metrics      *monitoring.MetricsCollector
	logger       *zap.Logger

	now func() time.Time

	mu             sync.Mutex
	dayNumber      int
	filters        map[itinerary.ActivityType]bool
	searchQuery    string
	mapExpanded    bool
	expanded       map[string]bool
	highlightKey   string
	highlightUntil time.Time
	narrationIdx   int
	enriched       map[string]string
}

// NewService creates the view service and wires marker clicks back into
// cross-navigation. The map surface, enricher, connectivity observer and
// narrator are all optional collaborators.
func NewService(
	session inbound.ItinerarySession,
	surface outbound.MapSurface,
	enricher outbound.PlaceEnrichment,
	connectivity outbound.ConnectivityObserver,
	narrator outbound.Narrator,
	metrics *monitoring.MetricsCollector,
	logger *zap.Logger,
) inbound.ItineraryView {
	s := &Service{
		session:      session,
		surface:      surface,
		enricher:     enricher,
		connectivity: connectivity,
		narrator:     narrator,
		metrics:      metrics,
		logger:       logger.Named("itinerary-view"),
		now:          time.Now,
		dayNumber:    1,
		filters:      defaultFilters(),
		expanded:     make(map[string]bool),
		enriched:     make(map[string]string),
	}
	if surface != nil {
		surface.OnMarkerClick(s.SelectMarker)
	}
	return s
}

func defaultFilters() map[itinerary.ActivityType]bool {
	f := make(map[itinerary.ActivityType]bool, len(itinerary.ActivityTypes()))
	for _, t := range itinerary.ActivityTypes() {
		f[t] = true
	}
	return f
}

// SetDay selects the active day. Changing days resets per-activity
// expansion, the highlight and the narration cursor.
func (s *Service) SetDay(dayNumber int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dayNumber == s.dayNumber {
		return
	}
	s.dayNumber = dayNumber
	s.expanded = make(map[string]bool)
	s.highlightKey = ""
	s.narrationIdx = 0
}

// SetFilter toggles visibility for one activity type.
func (s *Service) SetFilter(t itinerary.ActivityType, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters[t] = visible
	s.narrationIdx = 0
}

// SetSearchQuery updates the free-text filter.
func (s *Service) SetSearchQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchQuery = q
	s.narrationIdx = 0
}

// SetMapExpanded switches between the list pane and the full map pane.
func (s *Service) SetMapExpanded(expanded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapExpanded = expanded
}

// ToggleExpanded flips one list entry's detail disclosure.
func (s *Service) ToggleExpanded(activityKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded[activityKey] = !s.expanded[activityKey]
}

// SelectMarker is the marker-to-list cross-navigation: the entry is
// expanded, the list pane is brought forward, and a transient highlight is
// applied.
func (s *Service) SelectMarker(activityKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded[activityKey] = true
	s.mapExpanded = false
	s.highlightKey = activityKey
	s.highlightUntil = s.now().Add(highlightDuration)
}

// Render projects the current itinerary day into the list/map view model
// and pushes the geometry to the map surface.
func (s *Service) Render(ctx context.Context) (*inbound.DayView, error) {
	current, err := s.session.Current()
	if err != nil {
		return nil, err
	}
	if len(current.Days) == 0 {
		return nil, errors.NewDataIntegrityError("itinerary has no days")
	}

	s.mu.Lock()
	day, err := current.CurrentDay(s.dayNumber)
	if err != nil {
		s.mu.Unlock()
		return nil, errors.NewDataIntegrityError(err.Error())
	}
	pending := s.pendingEnrichmentLocked(day)
	s.mu.Unlock()

	if len(pending) > 0 {
		s.enrich(ctx, pending)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.highlightKey != "" && !s.now().Before(s.highlightUntil) {
		s.highlightKey = ""
	}

	view := &inbound.DayView{
		DayNumber:   day.DayNumber,
		DayTitle:    day.Title,
		MapExpanded: s.mapExpanded,
	}

	var visibleCoords []geo.Coordinate
	var allCoords []geo.Coordinate
	for i, a := range day.Activities {
		if a.HasCoordinates() {
			allCoords = append(allCoords, *a.Coordinates)
		}
		if !s.visibleLocked(a) {
			continue
		}

		key := a.Key()
		entry := inbound.ListEntry{
			Key:             key,
			Activity:        a,
			Comment:         current.Comment(day.DayNumber, key),
			Expanded:        s.expanded[key],
			Highlighted:     key == s.highlightKey,
			EnrichedAddress: s.enriched[key],
			MarkerColor:     a.Type.MarkerColor(),
			DerivedTravel:   deriveTravel(day.Activities, i),
		}
		if a.Type.Reservable() {
			entry.ReservationLink = reservationLink(a)
		}
		view.Entries = append(view.Entries, entry)

		if a.HasCoordinates() {
			visibleCoords = append(visibleCoords, *a.Coordinates)
			view.Markers = append(view.Markers, outbound.Marker{
				ID:       key,
				Position: *a.Coordinates,
				Color:    entry.MarkerColor,
				Popup:    buildPopup(entry),
			})
		}
	}

	for _, c := range allCoords {
		view.Route = append(view.Route, inbound.RoutePoint{Lat: c.Lat, Lng: c.Lng})
	}
	view.Viewport = s.viewportLocked(visibleCoords, allCoords)

	s.pushToSurface(view, allCoords)
	return view, nil
}

// visibleLocked applies the type filters and the search query.
func (s *Service) visibleLocked(a itinerary.Activity) bool {
	if !s.filters[a.Type] {
		return false
	}
	if s.searchQuery == "" {
		return true
	}
	q := strings.ToLower(s.searchQuery)
	return strings.Contains(strings.ToLower(a.PlaceName), q) ||
		strings.Contains(strings.ToLower(a.Description), q)
}

// deriveTravel backfills a travel leg for a TRAVEL activity whose time and
// transport are absent, measured against the immediately preceding activity
// in the unfiltered day order. Legs under the noise floor stay blank.
func deriveTravel(activities []itinerary.Activity, idx int) *inbound.DerivedTravel {
	a := activities[idx]
	if a.Type != itinerary.ActivityTypeTravel {
		return nil
	}
	if a.TravelTime != "" || a.TransportDetails != "" {
		return nil
	}
	if idx == 0 || !a.HasCoordinates() {
		return nil
	}
	prev := activities[idx-1]
	if !prev.HasCoordinates() {
		return nil
	}
	dist := geo.DistanceKm(*prev.Coordinates, *a.Coordinates)
	if dist <= minTravelLegKm {
		return nil
	}
	return &inbound.DerivedTravel{
		DistanceKm: dist,
		TravelTime: geo.EstimateTravelTime(dist),
		Transport:  geo.SuggestTransportMode(dist),
	}
}

// viewportLocked picks the framing region: visible markers first, then all
// coordinate-bearing activities (unless a search is narrowing the list), and
// finally the fixed regional default when the day has no geometry at all.
func (s *Service) viewportLocked(visible, all []geo.Coordinate) *outbound.Bounds {
	if len(visible) > 0 {
		b := boundsOf(visible)
		return &b
	}
	if len(all) > 0 {
		if s.searchQuery != "" {
			// An active search with no geo matches keeps the viewport put.
			return nil
		}
		b := boundsOf(all)
		return &b
	}
	b := defaultViewport
	return &b
}

func boundsOf(coords []geo.Coordinate) outbound.Bounds {
	b := outbound.Bounds{SouthWest: coords[0], NorthEast: coords[0]}
	for _, c := range coords[1:] {
		if c.Lat < b.SouthWest.Lat {
			b.SouthWest.Lat = c.Lat
		}
		if c.Lng < b.SouthWest.Lng {
			b.SouthWest.Lng = c.Lng
		}
		if c.Lat > b.NorthEast.Lat {
			b.NorthEast.Lat = c.Lat
		}
		if c.Lng > b.NorthEast.Lng {
			b.NorthEast.Lng = c.Lng
		}
	}
	return b
}

// pushToSurface mirrors the view model onto the map collaborator. Surface
// failures are logged, never surfaced; the list presentation stands alone.
func (s *Service) pushToSurface(view *inbound.DayView, route []geo.Coordinate) {
	if s.surface == nil {
		return
	}
	if err := s.surface.SetMarkers(view.Markers); err != nil {
		s.logger.Warn("Failed to push markers", zap.Error(err))
	}
	if err := s.surface.DrawRoute(route); err != nil {
		s.logger.Warn("Failed to push route", zap.Error(err))
	}
	if view.Viewport != nil {
		if err := s.surface.FitBounds(*view.Viewport); err != nil {
			s.logger.Warn("Failed to fit bounds", zap.Error(err))
		}
	}
}

func reservationLink(a itinerary.Activity) string {
	q := a.PlaceName
	if a.Address != "" {
		q += " " + a.Address
	}
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(q)
}

// buildPopup assembles the declarative popup model for one marker. The map
// renderer translates it into platform UI; no markup is built here.
func buildPopup(entry inbound.ListEntry) outbound.PopupContent {
	a := entry.Activity
	popup := outbound.PopupContent{
		Header: a.PlaceName,
		Badges: []string{string(a.Type), a.Time},
	}

	address := a.Address
	if address == "" {
		address = entry.EnrichedAddress
	}
	if address != "" {
		popup.Sections = append(popup.Sections, outbound.PopupField{Label: "Address", Value: address})
	}
	if a.PriceEstimate != "" {
		popup.Sections = append(popup.Sections, outbound.PopupField{Label: "Price", Value: a.PriceEstimate})
	}
	if a.TravelTime != "" {
		popup.Sections = append(popup.Sections, outbound.PopupField{Label: "Travel time", Value: a.TravelTime})
	} else if entry.DerivedTravel != nil {
		popup.Sections = append(popup.Sections, outbound.PopupField{Label: "Travel time", Value: entry.DerivedTravel.TravelTime})
	}
	if entry.Comment != "" {
		popup.Sections = append(popup.Sections, outbound.PopupField{Label: "Note", Value: entry.Comment})
	}

	popup.Actions = append(popup.Actions, outbound.PopupAction{ID: "view-in-list", Label: "View in list"})
	if entry.ReservationLink != "" {
		popup.Actions = append(popup.Actions, outbound.PopupAction{ID: "reserve", Label: "Reserve", URL: entry.ReservationLink})
	}
	return popup
}
