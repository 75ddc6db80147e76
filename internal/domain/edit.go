package domain

import "time"

// EditFields is the partial set of place fields a user edit may override.
// Nil means "not edited".
type EditFields struct {
	Name        *string   `json:"name,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Description *string   `json:"description,omitempty"`
}

// IsEmpty reports whether no field is overridden.
func (f EditFields) IsEmpty() bool {
	return f.Name == nil && f.Category == nil && f.Description == nil
}

// UserPlaceEdit is one overlay entry: the current user modification of a
// single logical place. At most one current entry exists per place;
// re-editing updates the entry and bumps Version.
type UserPlaceEdit struct {
	// PlaceKey links the edit to the base record's immutable key. Edits
	// imported from older exports may carry an empty key and are resolved
	// through the PlaceID / OriginalPlaceID slug chain instead.
	PlaceKey string `json:"place_key,omitempty"`
	// PlaceID is the slug of the place as it was when the edit was made.
	PlaceID string `json:"place_id"`
	// OriginalPlaceID tracks the pre-rename slug when a chain of renames has
	// occurred, so the edit can still be matched to its base record.
	OriginalPlaceID *string    `json:"original_place_id,omitempty"`
	EditedFields    EditFields `json:"edited_fields"`
	EditedAt        time.Time  `json:"edited_at"`
	// Version starts at 1 and increments on every further edit to the same
	// place. Import resolution is strictly version-wins.
	Version int `json:"version"`
}

// Matches reports whether the edit belongs to the given base record. A keyed
// edit binds to exactly one record; the slug chain is only consulted for
// keyless edits from legacy exports, where a later record may reuse a freed
// slug and must not inherit someone else's edit.
func (e *UserPlaceEdit) Matches(p *Place) bool {
	if e.PlaceKey != "" {
		return e.PlaceKey == p.Key
	}
	if e.PlaceID == p.ID {
		return true
	}
	return e.OriginalPlaceID != nil && *e.OriginalPlaceID == p.ID
}
