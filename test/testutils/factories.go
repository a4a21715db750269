// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/wayfarer/v2/internal/domain/geo"
	"github.com/wayfarer/v2/internal/domain/itinerary"
)

// ItineraryFactory builds randomized but valid itineraries
type ItineraryFactory struct {
	faker *gofakeit.Faker
}

// NewItineraryFactory creates an itinerary factory with seeded faker
func NewItineraryFactory(seed int64) *ItineraryFactory {
	return &ItineraryFactory{
		faker: gofakeit.New(seed),
	}
}

var activityTypes = []itinerary.ActivityType{
	itinerary.ActivityTypeVisit,
	itinerary.ActivityTypeFood,
	itinerary.ActivityTypeLodging,
	itinerary.ActivityTypeTravel,
}

// Coordinate returns a random point within roughly the Málaga area, so
// distances between generated activities stay within walkable magnitudes.
func (f *ItineraryFactory) Coordinate() geo.Coordinate {
	return geo.Coordinate{
		Lat: 36.6 + f.faker.Float64Range(0, 0.3),
		Lng: -4.6 + f.faker.Float64Range(0, 0.4),
	}
}

// Activity generates a single valid activity. Roughly one in five carries no
// coordinates, matching planner output where minor stops go ungeocoded.
func (f *ItineraryFactory) Activity(hour int) itinerary.Activity {
	a := itinerary.Activity{
		Time:          fmt.Sprintf("%d:00 %s", ((hour-1)%12)+1, meridiem(hour)),
		PlaceName:     f.faker.Company(),
		Description:   f.faker.Sentence(8),
		PriceEstimate: fmt.Sprintf("%d EUR", f.faker.Number(5, 80)),
		Type:          activityTypes[f.faker.Number(0, len(activityTypes)-1)],
	}
	if f.faker.Number(1, 5) > 1 {
		coord := f.Coordinate()
		a.Coordinates = &coord
		a.Address = f.faker.Street()
	}
	return a
}

// DayPlan generates a day with the given number of activities
func (f *ItineraryFactory) DayPlan(dayNumber, activityCount int) itinerary.DayPlan {
	d := itinerary.DayPlan{
		DayNumber: dayNumber,
		Title:     f.faker.Sentence(3),
	}
	for i := 0; i < activityCount; i++ {
		d.Activities = append(d.Activities, f.Activity(9+i))
	}
	return d
}

// Itinerary generates a complete itinerary with the given number of days
func (f *ItineraryFactory) Itinerary(dayCount int) *itinerary.Itinerary {
	it := &itinerary.Itinerary{
		Title:       f.faker.Sentence(4),
		Description: f.faker.Paragraph(1, 2, 8, " "),
		Language:    "en",
		Timestamp:   time.Now().UnixMilli(),
	}
	for day := 1; day <= dayCount; day++ {
		it.Days = append(it.Days, f.DayPlan(day, f.faker.Number(3, 6)))
	}
	return it
}

// Saved generates an itinerary carrying the given persistence timestamp
func (f *ItineraryFactory) Saved(timestamp int64, dayCount int) *itinerary.Itinerary {
	it := f.Itinerary(dayCount)
	it.Timestamp = timestamp
	return it
}

func meridiem(hour int) string {
	if hour < 12 {
		return "AM"
	}
	return "PM"
}
