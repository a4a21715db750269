package view

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wayfarer/v2/internal/domain/geo"
	"github.com/wayfarer/v2/internal/domain/itinerary"
)

// enrichTarget is one outstanding nearby-stop lookup.
type enrichTarget struct {
	key   string
	coord geo.Coordinate
}

// pendingEnrichmentLocked lists the TRAVEL activities of the day that lack
// an address, carry coordinates, and have not been looked up this session.
// Nothing is pending while the environment is offline.
func (s *Service) pendingEnrichmentLocked(day *itinerary.DayPlan) []enrichTarget {
	if s.enricher == nil {
		return nil
	}
	if s.connectivity != nil && !s.connectivity.Online() {
		return nil
	}
	var targets []enrichTarget
	for _, a := range day.Activities {
		if a.Type != itinerary.ActivityTypeTravel || a.Address != "" || !a.HasCoordinates() {
			continue
		}
		key := a.Key()
		if _, done := s.enriched[key]; done {
			continue
		}
		targets = append(targets, enrichTarget{key: key, coord: *a.Coordinates})
	}
	return targets
}

// enrich fans the lookups out concurrently. Each lookup has its own timeout
// and its own failure; one failing never aborts the others. Results land in
// the session-local cache, failures are simply absent from it.
func (s *Service) enrich(ctx context.Context, targets []enrichTarget) {
	results := make([]string, len(targets))
	found := make([]bool, len(targets))

	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t enrichTarget) {
			defer wg.Done()
			lookupCtx, cancel := context.WithTimeout(ctx, enrichTimeout)
			defer cancel()

			stop, err := s.enricher.NearbyStop(lookupCtx, t.coord, enrichRadiusMeters)
			if err != nil {
				s.metrics.Enrichment("error")
				s.logger.Debug("Nearby-stop lookup failed",
					zap.String("activity", t.key),
					zap.Error(err),
				)
				return
			}
			if stop == nil {
				// Empty answers are remembered so the lookup is not
				// repeated; errors are not, and stay absent.
				s.metrics.Enrichment("empty")
				found[i] = true
				return
			}
			s.metrics.Enrichment("ok")
			results[i] = fmt.Sprintf("%s (%.0f m)", stop.Name, stop.Distance)
			found[i] = true
		}(i, t)
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range targets {
		if found[i] {
			s.enriched[t.key] = results[i]
		}
	}
}
