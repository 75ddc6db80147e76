package domain

import "time"

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies inside the box (inclusive).
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// StoreStats summarizes the merged place store for the stats endpoint.
type StoreStats struct {
	TotalPlaces  int            `json:"total_places"`
	EditedPlaces int            `json:"edited_places"`
	BySource     map[string]int `json:"by_source"`
	ByCategory   map[string]int `json:"by_category"`
	ByCity       map[string]int `json:"by_city"`
	LastSyncAt   *time.Time     `json:"last_sync_at,omitempty"`
}
