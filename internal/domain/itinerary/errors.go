package itinerary

import "errors"

// Domain errors for itinerary operations

var (
	// Entity validation errors
	ErrEmptyPlaceName    = errors.New("activity place name is required")
	ErrInvalidType       = errors.New("activity type must be VISIT, FOOD, LODGING or TRAVEL")
	ErrInvalidDayNumber  = errors.New("day number must be at least 1")
	ErrDuplicateDay      = errors.New("day numbers must be unique within an itinerary")
	ErrEmptyTitle        = errors.New("itinerary title is required")

	// View-level integrity errors
	ErrNoDays = errors.New("itinerary has no days")

	// Lookup errors
	ErrDayNotFound      = errors.New("day not found")
	ErrActivityNotFound = errors.New("activity not found")
)
