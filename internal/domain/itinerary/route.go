package itinerary

import (
	"github.com/wayfarer/v2/internal/domain/geo"
)

// minReorderLen is the shortest day worth reordering. With two stops or
// fewer there is only one meaningful order.
const minReorderLen = 3

// ReorderByProximity produces a visiting order for one day's activities that
// approximately minimizes total travel distance, without altering the
// activity set. The first activity is the anchor and never moves; from there
// the nearest unplaced coordinate-bearing activity is appended greedily.
// Activities without coordinates are never "nearest": they keep their
// original relative order and are flushed to the output whenever no
// coordinate-bearing candidate remains. Ties keep input order.
//
// This is the classic nearest-neighbor TSP approximation, O(n²) in the day's
// activity count. A day realistically holds on the order of ten stops, so
// the quadratic cost is irrelevant and the non-optimal result is an accepted
// trade-off for interactivity.
func ReorderByProximity(activities []Activity) []Activity {
	if len(activities) < minReorderLen {
		return activities
	}

	ordered := make([]Activity, 0, len(activities))
	ordered = append(ordered, activities[0])

	remaining := make([]Activity, len(activities)-1)
	copy(remaining, activities[1:])

	last := activities[0]
	for len(remaining) > 0 {
		best := -1
		bestDist := 0.0
		if last.HasCoordinates() {
			for i, cand := range remaining {
				if !cand.HasCoordinates() {
					continue
				}
				d := geo.DistanceKm(*last.Coordinates, *cand.Coordinates)
				if best == -1 || d < bestDist {
					best = i
					bestDist = d
				}
			}
		}

		if best == -1 {
			// No coordinate-bearing candidate is reachable: flush the rest
			// in original relative order.
			ordered = append(ordered, remaining...)
			break
		}

		last = remaining[best]
		ordered = append(ordered, last)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return ordered
}

// ReorderDay replaces the order of the identified day with the proximity
// ordering. All other days are untouched.
func (it *Itinerary) ReorderDay(dayNumber int) error {
	day, err := it.Day(dayNumber)
	if err != nil {
		return err
	}
	day.Activities = ReorderByProximity(day.Activities)
	return nil
}
