package domain

import "time"

// Storage blob keys. The blob store is read whole and written whole per key.
const (
	StorageKeyPlaces            = "places"
	StorageKeySyncHistoryPrefix = "sync_history_"
)

// SyncHistoryKey returns the blob key holding the sync history of a source.
func SyncHistoryKey(sourceID string) string {
	return StorageKeySyncHistoryPrefix + sourceID
}

// PlaceStorageData is the single unit of durable state for the place engine:
// all base records (every source, flattened) plus the user edit overlay.
type PlaceStorageData struct {
	OriginalPlaces []Place         `json:"original_places"`
	UserEdits      []UserPlaceEdit `json:"user_edits"`
	LastSyncAt     *time.Time      `json:"last_sync_at,omitempty"`
}

// EditExportVersion identifies the export blob layout.
const EditExportVersion = 1

// EditExport is the backup/restore format for the edit overlay.
type EditExport struct {
	UserEdits  []UserPlaceEdit `json:"user_edits"`
	ExportedAt time.Time       `json:"exported_at"`
	Version    int             `json:"version"`
}
