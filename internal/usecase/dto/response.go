package dto

import "github.com/place-sync-service/internal/domain"

// PlacesResponse lists the merged effective view.
type PlacesResponse struct {
	Places []domain.Place `json:"places"`
	Total  int            `json:"total"`
}

// ImportEditsResponse reports how many overlay edits were applied.
type ImportEditsResponse struct {
	Applied int `json:"applied"`
	Total   int `json:"total"`
}

// SourceResponse describes one configured feed source together with its
// live sync state.
type SourceResponse struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Format domain.FeedFormat `json:"format"`
	Status domain.SyncStatus `json:"status"`
}

// SyncTriggerResponse acknowledges that a sync request was queued.
type SyncTriggerResponse struct {
	Queued  bool   `json:"queued"`
	Message string `json:"message"`
}
