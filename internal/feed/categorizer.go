package feed

import (
	"strings"

	"github.com/place-sync-service/internal/domain"
)

// categoryKeywords are checked in order; the first set with a match wins.
// Order matters: transport is checked first, then accommodation, restaurant,
// hardware, shopping.
var categoryKeywords = []struct {
	category domain.Category
	keywords []string
}{
	{domain.CategoryTransport, []string{
		"station", "airport", "terminal", "shinkansen", "metro", "subway",
		"train", "bus stop", "ferry", "monorail", "tram", "haneda", "narita",
	}},
	{domain.CategoryAccommodation, []string{
		"hotel", "hostel", "ryokan", "inn", "guesthouse", "guest house",
		"capsule", "apartment", "airbnb", "resort",
	}},
	{domain.CategoryRestaurant, []string{
		"restaurant", "ramen", "sushi", "izakaya", "cafe", "coffee", "bar",
		"yakitori", "udon", "soba", "tempura", "tonkatsu", "curry", "noodle",
		"bakery", "diner", "bistro", "grill", "yakiniku", "food",
	}},
	// hardware before shopping so "hardware store" is not swallowed by "store"
	{domain.CategoryHardware, []string{
		"hardware", "home center", "tokyu hands", "diy", "tool", "workshop",
	}},
	{domain.CategoryShopping, []string{
		"shop", "store", "mall", "market", "department", "outlet", "arcade",
		"don quijote", "uniqlo", "electronics", "bookstore", "souvenir",
	}},
}

// Categorize infers a category from lower-cased name and description text.
// Keyword sets are checked in a fixed order; anything unmatched falls back to
// entertainment.
func Categorize(name, description string) domain.Category {
	text := strings.ToLower(name + " " + description)

	for _, set := range categoryKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(text, kw) {
				return set.category
			}
		}
	}

	return domain.CategoryEntertainment
}
