package itinerary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer/v2/internal/domain/geo"
)

func coord(lat, lng float64) *geo.Coordinate {
	return &geo.Coordinate{Lat: lat, Lng: lng}
}

func TestActivityKey(t *testing.T) {
	a := Activity{PlaceName: "Museo Picasso", Time: "10:00 AM", Type: ActivityTypeVisit}
	assert.Equal(t, "Museo Picasso-10:00 AM", a.Key())
}

func TestActivityValidate(t *testing.T) {
	t.Run("missing place name", func(t *testing.T) {
		a := Activity{Time: "10:00 AM", Type: ActivityTypeVisit}
		assert.ErrorIs(t, a.Validate(), ErrEmptyPlaceName)
	})

	t.Run("unknown type", func(t *testing.T) {
		a := Activity{PlaceName: "Somewhere", Type: ActivityType("SHOPPING")}
		assert.ErrorIs(t, a.Validate(), ErrInvalidType)
	})

	t.Run("bad coordinates", func(t *testing.T) {
		a := Activity{PlaceName: "Somewhere", Type: ActivityTypeVisit, Coordinates: coord(120, 0)}
		assert.ErrorIs(t, a.Validate(), geo.ErrInvalidLatitude)
	})

	t.Run("valid without coordinates", func(t *testing.T) {
		a := Activity{PlaceName: "Somewhere", Type: ActivityTypeFood}
		assert.NoError(t, a.Validate())
	})
}

func TestActivityTypeProperties(t *testing.T) {
	assert.Equal(t, "blue", ActivityTypeVisit.MarkerColor())
	assert.Equal(t, "orange", ActivityTypeFood.MarkerColor())
	assert.Equal(t, "purple", ActivityTypeLodging.MarkerColor())
	assert.Equal(t, "gray", ActivityTypeTravel.MarkerColor())

	assert.True(t, ActivityTypeFood.Reservable())
	assert.True(t, ActivityTypeLodging.Reservable())
	assert.False(t, ActivityTypeVisit.Reservable())
	assert.False(t, ActivityTypeTravel.Reservable())
}

func testItinerary() *Itinerary {
	return &Itinerary{
		Title:       "Weekend in Malaga",
		Description: "Two days along the coast",
		Days: []DayPlan{
			{
				DayNumber: 1,
				Title:     "Old town",
				Activities: []Activity{
					{Time: "10:00 AM", PlaceName: "Museo Picasso", Type: ActivityTypeVisit, Coordinates: coord(36.7215, -4.4184)},
					{Time: "1:00 PM", PlaceName: "El Pimpi", Type: ActivityTypeFood, Coordinates: coord(36.7218, -4.4170)},
				},
			},
			{
				DayNumber: 2,
				Title:     "Coast",
				Activities: []Activity{
					{Time: "9:00 AM", PlaceName: "La Malagueta", Type: ActivityTypeVisit, Coordinates: coord(36.7190, -4.4094)},
				},
			},
		},
	}
}

func TestItineraryValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, testItinerary().Validate())
	})

	t.Run("zero days is terminal", func(t *testing.T) {
		it := &Itinerary{Title: "Empty"}
		assert.ErrorIs(t, it.Validate(), ErrNoDays)
	})

	t.Run("duplicate day numbers", func(t *testing.T) {
		it := testItinerary()
		it.Days[1].DayNumber = 1
		assert.ErrorIs(t, it.Validate(), ErrDuplicateDay)
	})

	t.Run("day number below one", func(t *testing.T) {
		it := testItinerary()
		it.Days[0].DayNumber = 0
		assert.ErrorIs(t, it.Validate(), ErrInvalidDayNumber)
	})
}

func TestCurrentDay(t *testing.T) {
	it := testItinerary()

	t.Run("selected day", func(t *testing.T) {
		d, err := it.CurrentDay(2)
		require.NoError(t, err)
		assert.Equal(t, 2, d.DayNumber)
	})

	t.Run("missing selection falls back to first day", func(t *testing.T) {
		d, err := it.CurrentDay(7)
		require.NoError(t, err)
		assert.Equal(t, 1, d.DayNumber)
	})

	t.Run("no days", func(t *testing.T) {
		empty := &Itinerary{}
		_, err := empty.CurrentDay(1)
		assert.ErrorIs(t, err, ErrNoDays)
	})
}

func TestComments(t *testing.T) {
	it := testItinerary()

	t.Run("round trip", func(t *testing.T) {
		it.SetComment(1, "Museo Picasso-10:00 AM", "book tickets ahead")
		assert.Equal(t, "book tickets ahead", it.Comment(1, "Museo Picasso-10:00 AM"))
	})

	t.Run("missing note reads empty", func(t *testing.T) {
		assert.Equal(t, "", it.Comment(2, "La Malagueta-9:00 AM"))
	})

	t.Run("composite key shape", func(t *testing.T) {
		assert.Equal(t, "day_1_Museo Picasso-10:00 AM", CommentKey(1, "Museo Picasso-10:00 AM"))
	})

	t.Run("same key on another day is distinct", func(t *testing.T) {
		it.SetComment(2, "Museo Picasso-10:00 AM", "other day")
		assert.Equal(t, "book tickets ahead", it.Comment(1, "Museo Picasso-10:00 AM"))
		assert.Equal(t, "other day", it.Comment(2, "Museo Picasso-10:00 AM"))
	})
}

func TestActivityByKey(t *testing.T) {
	day := testItinerary().Days[0]

	a, err := day.ActivityByKey("El Pimpi-1:00 PM")
	require.NoError(t, err)
	assert.Equal(t, "El Pimpi", a.PlaceName)

	_, err = day.ActivityByKey("nope")
	assert.ErrorIs(t, err, ErrActivityNotFound)
}

func TestClone(t *testing.T) {
	it := testItinerary()
	it.SetComment(1, "El Pimpi-1:00 PM", "try the sweet wine")

	cp := it.Clone()
	cp.Days[0].Activities[0].PlaceName = "Changed"
	cp.SetComment(1, "El Pimpi-1:00 PM", "changed")

	assert.Equal(t, "Museo Picasso", it.Days[0].Activities[0].PlaceName)
	assert.Equal(t, "try the sweet wine", it.Comment(1, "El Pimpi-1:00 PM"))
}
