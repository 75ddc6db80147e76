package domain

import "time"

// Place is a point of interest in the trip plan. Base records come from
// external feed imports (or direct user additions) and are never mutated in
// place; user changes live in the edit overlay.
type Place struct {
	// Key is the immutable synthetic identity, assigned once at creation.
	Key string `json:"key"`
	// ID is the display slug derived from the current name. It is regenerated
	// when a place is renamed and must be unique within the effective view.
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    Category  `json:"category"`
	City        string    `json:"city"`
	Coordinates *Point    `json:"coordinates,omitempty"`
	Description string    `json:"description,omitempty"`
	SourceID    string    `json:"source_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Category classifies a place for itinerary grouping.
type Category string

const (
	CategoryAccommodation Category = "accommodation"
	CategoryRestaurant    Category = "restaurant"
	CategoryEntertainment Category = "entertainment"
	CategoryTransport     Category = "transport"
	CategoryShopping      Category = "shopping"
	CategoryHardware      Category = "hardware"
)

// ValidCategories returns all place categories.
func ValidCategories() []Category {
	return []Category{
		CategoryAccommodation,
		CategoryRestaurant,
		CategoryEntertainment,
		CategoryTransport,
		CategoryShopping,
		CategoryHardware,
	}
}

// IsValidCategory checks if category is a known value.
func IsValidCategory(category Category) bool {
	for _, c := range ValidCategories() {
		if c == category {
			return true
		}
	}
	return false
}
