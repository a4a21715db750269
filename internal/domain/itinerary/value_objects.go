package itinerary

// Value objects shared across the itinerary aggregate.

// ActivityType is the closed category that drives filtering, marker color
// and reservation-link eligibility.
type ActivityType string

const (
	ActivityTypeVisit   ActivityType = "VISIT"
	ActivityTypeFood    ActivityType = "FOOD"
	ActivityTypeLodging ActivityType = "LODGING"
	ActivityTypeTravel  ActivityType = "TRAVEL"
)

// ActivityTypes lists every valid type in display order.
func ActivityTypes() []ActivityType {
	return []ActivityType{
		ActivityTypeVisit,
		ActivityTypeFood,
		ActivityTypeLodging,
		ActivityTypeTravel,
	}
}

// Valid reports whether t is one of the four known categories.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityTypeVisit, ActivityTypeFood, ActivityTypeLodging, ActivityTypeTravel:
		return true
	}
	return false
}

// MarkerColor returns the map marker color associated with the type.
func (t ActivityType) MarkerColor() string {
	switch t {
	case ActivityTypeFood:
		return "orange"
	case ActivityTypeLodging:
		return "purple"
	case ActivityTypeTravel:
		return "gray"
	default:
		return "blue"
	}
}

// Reservable reports whether activities of this type carry a reservation
// link. Only food and lodging stops can be booked.
func (t ActivityType) Reservable() bool {
	return t == ActivityTypeFood || t == ActivityTypeLodging
}
