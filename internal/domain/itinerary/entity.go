// Package itinerary contains the core domain model for generated travel
// plans: the itinerary aggregate, its days and activities, derived activity
// keys, and the route reordering heuristic.
package itinerary

import (
	"fmt"

	"github.com/wayfarer/v2/internal/domain/geo"
)

// Activity is one scheduled item within a day. Time and PriceEstimate are
// free-form display strings, not parsed values; that is the external schema
// this model round-trips.
type Activity struct {
	Time             string          `json:"time"`
	PlaceName        string          `json:"placeName"`
	Description      string          `json:"description"`
	PriceEstimate    string          `json:"priceEstimate"`
	Type             ActivityType    `json:"type"`
	Address          string          `json:"address,omitempty"`
	Coordinates      *geo.Coordinate `json:"coordinates,omitempty"`
	TravelTime       string          `json:"travelTime,omitempty"`
	TransportDetails string          `json:"transportDetails,omitempty"`
}

// Key derives the activity's stable identifier from place name and time.
// Activities carry no independent id in the external schema; two activities
// sharing name and time collide, and the later one wins in any keyed lookup.
func (a Activity) Key() string {
	return a.PlaceName + "-" + a.Time
}

// HasCoordinates reports whether the activity can appear on the map and
// participate in route geometry.
func (a Activity) HasCoordinates() bool {
	return a.Coordinates != nil
}

// Validate checks the activity's structural invariants.
func (a Activity) Validate() error {
	if a.PlaceName == "" {
		return ErrEmptyPlaceName
	}
	if !a.Type.Valid() {
		return ErrInvalidType
	}
	if a.Coordinates != nil {
		if err := a.Coordinates.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DayPlan is one day of the itinerary. Activity order is the visiting order
// and the operand of route reordering.
type DayPlan struct {
	DayNumber  int        `json:"dayNumber"`
	Title      string     `json:"title"`
	Activities []Activity `json:"activities"`
}

// Validate checks the day's structural invariants.
func (d DayPlan) Validate() error {
	if d.DayNumber < 1 {
		return ErrInvalidDayNumber
	}
	for _, a := range d.Activities {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("day %d, activity %q: %w", d.DayNumber, a.PlaceName, err)
		}
	}
	return nil
}

// ActivityByKey returns the activity with the given derived key, or
// ErrActivityNotFound. On key collision the last match wins, matching the
// keyed-lookup semantics of the rest of the model.
func (d DayPlan) ActivityByKey(key string) (Activity, error) {
	found := Activity{}
	ok := false
	for _, a := range d.Activities {
		if a.Key() == key {
			found = a
			ok = true
		}
	}
	if !ok {
		return Activity{}, ErrActivityNotFound
	}
	return found, nil
}

// Itinerary is the aggregate produced by the AI planner and mutated in place
// by the session: comments attached, days reordered, description edited.
type Itinerary struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Days        []DayPlan `json:"days"`

	// Timestamp is the persistence identity. Zero means the itinerary has
	// never been saved.
	Timestamp int64 `json:"timestamp,omitempty"`

	// Language tags which locale produced the generated content.
	Language string `json:"language,omitempty"`

	// UserComments maps "day_<dayNumber>_<activityKey>" to a free-text note.
	// Entries for deleted or renamed activities are left orphaned.
	UserComments map[string]string `json:"userComments,omitempty"`
}

// CommentKey builds the composite key under which a note for one activity of
// one day is stored.
func CommentKey(dayNumber int, activityKey string) string {
	return fmt.Sprintf("day_%d_%s", dayNumber, activityKey)
}

// Validate checks the aggregate's invariants. An itinerary with zero days is
// a terminal error state for any view built on top of it.
func (it *Itinerary) Validate() error {
	if it.Title == "" {
		return ErrEmptyTitle
	}
	if len(it.Days) == 0 {
		return ErrNoDays
	}
	seen := make(map[int]bool, len(it.Days))
	for _, d := range it.Days {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.DayNumber] {
			return ErrDuplicateDay
		}
		seen[d.DayNumber] = true
	}
	return nil
}

// Day returns the plan with the given day number, or ErrDayNotFound.
func (it *Itinerary) Day(dayNumber int) (*DayPlan, error) {
	for i := range it.Days {
		if it.Days[i].DayNumber == dayNumber {
			return &it.Days[i], nil
		}
	}
	return nil, ErrDayNotFound
}

// CurrentDay resolves the selected day, falling back to the first day when
// the selected number has no match. Exactly one day is current at any time.
func (it *Itinerary) CurrentDay(selected int) (*DayPlan, error) {
	if len(it.Days) == 0 {
		return nil, ErrNoDays
	}
	if d, err := it.Day(selected); err == nil {
		return d, nil
	}
	return &it.Days[0], nil
}

// SetComment attaches a note to one activity of one day, allocating the
// comment map on first use.
func (it *Itinerary) SetComment(dayNumber int, activityKey, note string) {
	if it.UserComments == nil {
		it.UserComments = make(map[string]string)
	}
	it.UserComments[CommentKey(dayNumber, activityKey)] = note
}

// Comment reads the note for one activity of one day. A missing note is an
// empty string, never an error: the view renders an edit-ready state.
func (it *Itinerary) Comment(dayNumber int, activityKey string) string {
	return it.UserComments[CommentKey(dayNumber, activityKey)]
}

// Clone returns a deep copy, used when a snapshot must not observe later
// in-place mutation (history entries, stale-generation comparison).
func (it *Itinerary) Clone() *Itinerary {
	cp := *it
	cp.Days = make([]DayPlan, len(it.Days))
	for i, d := range it.Days {
		day := d
		day.Activities = make([]Activity, len(d.Activities))
		copy(day.Activities, d.Activities)
		if d.Activities == nil {
			day.Activities = nil
		}
		cp.Days[i] = day
	}
	if it.UserComments != nil {
		cp.UserComments = make(map[string]string, len(it.UserComments))
		for k, v := range it.UserComments {
			cp.UserComments[k] = v
		}
	}
	return &cp
}
