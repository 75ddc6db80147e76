package domain

import "time"

// FeedFormat tags the wire format of an external feed payload. One parser
// implementation exists per tag.
type FeedFormat string

const (
	// FormatKML is the XML placemark export format.
	FormatKML FeedFormat = "kml"
	// FormatJSONList is the proprietary guarded nested-array list format.
	FormatJSONList FeedFormat = "jsonlist"
)

// SourceConfig describes one externally syncable map feed. Configuration is
// static per deployment.
type SourceConfig struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	FetchID string     `json:"fetch_id"`
	Format  FeedFormat `json:"format"`
}

// FeedPayload is the raw result of one feed fetch.
type FeedPayload struct {
	Raw []byte
	// Hint is the format implied by which envelope field the endpoint filled.
	Hint FeedFormat
}

// SyncPhase is a step of the per-source sync pipeline, reported in strict
// order before each step executes.
type SyncPhase string

const (
	PhaseConnecting SyncPhase = "connecting"
	PhaseFetching   SyncPhase = "fetching"
	PhaseParsing    SyncPhase = "parsing"
	PhaseProcessing SyncPhase = "processing"
	PhaseCompleting SyncPhase = "completing"
)

// SyncState is the live state of one source.
type SyncState string

const (
	SyncStateIdle       SyncState = "idle"
	SyncStateConnecting SyncState = "connecting"
	SyncStateSyncing    SyncState = "syncing"
	SyncStateSuccess    SyncState = "success"
	SyncStateError      SyncState = "error"
)

// SyncVerification cross-checks the reconciler's own added count against the
// observed store growth. A mismatch is a diagnostic signal, never a failure.
type SyncVerification struct {
	BeforeCount int  `json:"before_count"`
	AfterCount  int  `json:"after_count"`
	ActualAdded int  `json:"actual_added"`
	CountsMatch bool `json:"counts_match"`
}

// SyncResult is the outcome of one sync attempt against one source.
type SyncResult struct {
	ID                string            `json:"id"`
	SourceID          string            `json:"source_id"`
	Success           bool              `json:"success"`
	PlacesFound       int               `json:"places_found"`
	PlacesAdded       int               `json:"places_added"`
	DuplicatesSkipped int               `json:"duplicates_skipped"`
	SyncedAt          time.Time         `json:"synced_at"`
	Error             string            `json:"error,omitempty"`
	Verification      *SyncVerification `json:"verification,omitempty"`
}

// SyncStatus is the current live status of one source, mirrored from the
// last result for UI display.
type SyncStatus struct {
	SourceID          string    `json:"source_id"`
	State             SyncState `json:"state"`
	Message           string    `json:"message"`
	PlacesFound       int       `json:"places_found"`
	PlacesAdded       int       `json:"places_added"`
	DuplicatesSkipped int       `json:"duplicates_skipped"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SyncHistoryLimit caps the durable per-source history at the most recent
// results.
const SyncHistoryLimit = 50

// StreamSyncRequests is the redis stream carrying sync trigger requests.
const StreamSyncRequests = "place:sync:requests"

// SyncRequest is the stream message asking the worker to sync one source,
// or every configured source when All is set.
type SyncRequest struct {
	SourceID    string    `json:"source_id,omitempty"`
	All         bool      `json:"all,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// StreamMessage is a raw message read from a stream.
type StreamMessage struct {
	ID   string
	Data string
}
