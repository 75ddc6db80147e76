package dto

// CreatePlaceRequest adds a place by hand, outside any feed.
type CreatePlaceRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Category    string   `json:"category" validate:"omitempty,oneof=accommodation restaurant entertainment transport shopping hardware"`
	City        string   `json:"city" validate:"omitempty,max=100"`
	Lat         *float64 `json:"lat" validate:"omitempty,min=-90,max=90"`
	Lon         *float64 `json:"lon" validate:"omitempty,min=-180,max=180"`
	Description string   `json:"description" validate:"omitempty,max=2000"`
}

// UpdatePlaceRequest modifies a place. Only the provided fields change; the
// change is recorded as an overlay edit, the imported record stays intact.
type UpdatePlaceRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Category    *string `json:"category" validate:"omitempty,oneof=accommodation restaurant entertainment transport shopping hardware"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// PlaceFilter narrows the place listing. All fields are optional; Lat, Lon
// and RadiusKm only apply together.
type PlaceFilter struct {
	Category string
	City     string
	SourceID string
	Lat      *float64
	Lon      *float64
	RadiusKm *float64
}

// HasRadius reports whether the filter carries a complete radius query.
func (f PlaceFilter) HasRadius() bool {
	return f.Lat != nil && f.Lon != nil && f.RadiusKm != nil
}

// IsEmpty reports whether no filtering is requested at all.
func (f PlaceFilter) IsEmpty() bool {
	return f.Category == "" && f.City == "" && f.SourceID == "" && !f.HasRadius()
}

// SyncTriggerRequest asks for a sync run.
type SyncTriggerRequest struct {
	SourceID string `json:"source_id" validate:"omitempty,max=100"`
	All      bool   `json:"all"`
}
