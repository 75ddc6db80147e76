package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/domain/repository"
	"github.com/place-sync-service/internal/metrics"
	"github.com/place-sync-service/internal/pkg/errors"
	"github.com/place-sync-service/internal/pkg/utils"
)

const flushTimeout = 10 * time.Second

// UserSourceID marks base records added directly by the user rather than
// imported from an external feed.
const UserSourceID = "user"

// ReconcileResult reports one reconcile pass. Before/After counts are taken
// under the same lock as the append loop, so verification against Added is
// race-free even with concurrent mutators.
type ReconcileResult struct {
	Added             int
	DuplicatesSkipped int
	BeforeCount       int
	AfterCount        int
}

// PlaceStore owns the base-layer records and the user edit overlay, and
// computes the merged effective view. In-memory state is authoritative;
// every mutation schedules an asynchronous flush of the full storage blob.
// Exactly one process may host a store instance.
type PlaceStore struct {
	mu       sync.Mutex
	data     domain.PlaceStorageData
	gen      uint64
	blobRepo repository.BlobRepository
	logger   *zap.Logger

	// flushMu serializes async flush writes; flushedGen drops writes of
	// snapshots older than one already persisted.
	flushWG    sync.WaitGroup
	flushMu    sync.Mutex
	flushedGen uint64
}

func NewPlaceStore(blobRepo repository.BlobRepository, logger *zap.Logger) *PlaceStore {
	return &PlaceStore{
		blobRepo: blobRepo,
		logger:   logger,
	}
}

// Open loads the storage blob. A missing blob starts an empty store. Records
// persisted by builds that predate the synthetic key are backfilled with one.
func (s *PlaceStore) Open(ctx context.Context) error {
	raw, err := s.blobRepo.Load(ctx, domain.StorageKeyPlaces)
	if err != nil {
		return errors.ErrStorageFailed.WithDetails(map[string]interface{}{
			"op":     "load",
			"reason": err.Error(),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if raw == nil {
		s.data = domain.PlaceStorageData{}
		s.logger.Info("Place store opened empty")
		return nil
	}

	var data domain.PlaceStorageData
	if err := json.Unmarshal(raw, &data); err != nil {
		return errors.ErrStorageFailed.WithDetails(map[string]interface{}{
			"op":     "decode",
			"reason": err.Error(),
		})
	}

	backfilled := 0
	for i := range data.OriginalPlaces {
		if data.OriginalPlaces[i].Key == "" {
			data.OriginalPlaces[i].Key = uuid.New().String()
			backfilled++
		}
	}

	s.data = data
	s.updateGauges()
	s.logger.Info("Place store opened",
		zap.Int("places", len(data.OriginalPlaces)),
		zap.Int("edits", len(data.UserEdits)),
		zap.Int("keys_backfilled", backfilled))
	return nil
}

// EffectivePlaces merges the base layer with current overlay edits. Edited
// fields win; a renamed place gets its id recomputed from the new name.
// Ordering follows base-record insertion order.
func (s *PlaceStore) EffectivePlaces() []domain.Place {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectivePlacesLocked()
}

func (s *PlaceStore) effectivePlacesLocked() []domain.Place {
	effective := make([]domain.Place, 0, len(s.data.OriginalPlaces))
	for i := range s.data.OriginalPlaces {
		base := s.data.OriginalPlaces[i]
		if edit := s.findEditLocked(&base); edit != nil {
			effective = append(effective, mergeEdit(base, edit))
		} else {
			effective = append(effective, base)
		}
	}
	return effective
}

// findEditLocked resolves the current edit for a base record. The immutable
// key is authoritative; the slug chain (PlaceID / OriginalPlaceID) is kept as
// an O(n) fallback for edits imported from exports that predate the key.
func (s *PlaceStore) findEditLocked(base *domain.Place) *domain.UserPlaceEdit {
	for i := range s.data.UserEdits {
		if s.data.UserEdits[i].Matches(base) {
			return &s.data.UserEdits[i]
		}
	}
	return nil
}

func mergeEdit(base domain.Place, edit *domain.UserPlaceEdit) domain.Place {
	merged := base
	if edit.EditedFields.Name != nil {
		merged.Name = *edit.EditedFields.Name
		merged.ID = utils.Slugify(merged.Name)
	}
	if edit.EditedFields.Category != nil {
		merged.Category = *edit.EditedFields.Category
	}
	if edit.EditedFields.Description != nil {
		merged.Description = *edit.EditedFields.Description
	}
	return merged
}

// Count returns the number of base records.
func (s *PlaceStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.OriginalPlaces)
}

// LastSyncAt returns the time of the last reconcile, if any.
func (s *PlaceStore) LastSyncAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.LastSyncAt == nil {
		return nil
	}
	t := *s.data.LastSyncAt
	return &t
}

// Reconcile merges freshly parsed places into the base layer. An incoming
// place is skipped when a base record with the same id or the same name
// already exists anywhere in the store, across all sources. Re-running a sync
// against unchanged feed content therefore adds nothing.
func (s *PlaceStore) Reconcile(ctx context.Context, sourceID string, incoming []domain.Place) ReconcileResult {
	s.mu.Lock()

	result := ReconcileResult{BeforeCount: len(s.data.OriginalPlaces)}
	now := time.Now().UTC()

	for _, place := range incoming {
		if s.hasBaseLocked(place.ID, place.Name) {
			result.DuplicatesSkipped++
			continue
		}
		place.Key = uuid.New().String()
		place.SourceID = sourceID
		place.CreatedAt = now
		s.data.OriginalPlaces = append(s.data.OriginalPlaces, place)
		result.Added++
	}

	result.AfterCount = len(s.data.OriginalPlaces)
	s.data.LastSyncAt = &now
	s.updateGauges()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.flushAsync(snap)
	return result
}

func (s *PlaceStore) hasBaseLocked(id, name string) bool {
	for i := range s.data.OriginalPlaces {
		if s.data.OriginalPlaces[i].ID == id || strings.EqualFold(s.data.OriginalPlaces[i].Name, name) {
			return true
		}
	}
	return false
}

// AddPlace appends a user-originated base record. It is rejected when a place
// with the same name already exists in the effective view.
func (s *PlaceStore) AddPlace(ctx context.Context, place domain.Place) (domain.Place, error) {
	s.mu.Lock()

	for _, existing := range s.effectivePlacesLocked() {
		if strings.EqualFold(existing.Name, place.Name) {
			s.mu.Unlock()
			return domain.Place{}, errors.ErrNameConflict.WithDetails(map[string]interface{}{
				"name": place.Name,
			})
		}
	}

	place.Key = uuid.New().String()
	place.ID = utils.Slugify(place.Name)
	if place.SourceID == "" {
		place.SourceID = UserSourceID
	}
	place.CreatedAt = time.Now().UTC()

	s.data.OriginalPlaces = append(s.data.OriginalPlaces, place)
	s.updateGauges()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.flushAsync(snap)
	return place, nil
}

// UpdatePlace records a user modification of one place as an overlay edit.
// The id may be the place's effective slug, its base slug, or its immutable
// key. A rename that collides with another place's effective name fails.
// Re-editing updates the existing entry in place and bumps its version.
func (s *PlaceStore) UpdatePlace(ctx context.Context, id string, fields domain.EditFields) (domain.Place, error) {
	if fields.IsEmpty() {
		return domain.Place{}, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"reason": "no fields to update",
		})
	}

	s.mu.Lock()

	base := s.resolveBaseLocked(id)
	if base == nil {
		s.mu.Unlock()
		return domain.Place{}, errors.ErrPlaceNotFound.WithDetails(map[string]interface{}{
			"id": id,
		})
	}

	if fields.Name != nil {
		for _, existing := range s.effectivePlacesLocked() {
			if existing.Key == base.Key {
				continue
			}
			if strings.EqualFold(existing.Name, *fields.Name) {
				s.mu.Unlock()
				return domain.Place{}, errors.ErrNameConflict.WithDetails(map[string]interface{}{
					"name": *fields.Name,
				})
			}
		}
	}

	now := time.Now().UTC()
	edit := s.findEditLocked(base)
	if edit == nil {
		s.data.UserEdits = append(s.data.UserEdits, domain.UserPlaceEdit{
			PlaceKey:     base.Key,
			PlaceID:      base.ID,
			EditedFields: fields,
			EditedAt:     now,
			Version:      1,
		})
		edit = &s.data.UserEdits[len(s.data.UserEdits)-1]
	} else {
		if fields.Name != nil && edit.EditedFields.Name != nil && *edit.EditedFields.Name != *fields.Name {
			// keep the pre-rename slug reachable for older exports
			prev := utils.Slugify(*edit.EditedFields.Name)
			edit.OriginalPlaceID = &prev
		}
		if fields.Name != nil {
			edit.EditedFields.Name = fields.Name
		}
		if fields.Category != nil {
			edit.EditedFields.Category = fields.Category
		}
		if fields.Description != nil {
			edit.EditedFields.Description = fields.Description
		}
		edit.EditedAt = now
		edit.Version++
	}

	merged := mergeEdit(*base, edit)
	s.updateGauges()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.flushAsync(snap)
	return merged, nil
}

// resolveBaseLocked finds the base record for an identifier. The effective
// slug is checked before the base slug: a rename frees the old slug, and when
// a later record takes it the identifier must address the record the user
// sees, not the renamed one still carrying the slug underneath.
func (s *PlaceStore) resolveBaseLocked(id string) *domain.Place {
	for i := range s.data.OriginalPlaces {
		base := &s.data.OriginalPlaces[i]
		effective := *base
		if edit := s.findEditLocked(base); edit != nil {
			effective = mergeEdit(*base, edit)
		}
		if effective.ID == id {
			return base
		}
	}
	for i := range s.data.OriginalPlaces {
		base := &s.data.OriginalPlaces[i]
		if base.Key == id || base.ID == id {
			return base
		}
	}
	return nil
}

// ExportEdits snapshots the overlay for backup or cross-device merge.
func (s *PlaceStore) ExportEdits() domain.EditExport {
	s.mu.Lock()
	defer s.mu.Unlock()

	edits := make([]domain.UserPlaceEdit, len(s.data.UserEdits))
	copy(edits, s.data.UserEdits)

	return domain.EditExport{
		UserEdits:  edits,
		ExportedAt: time.Now().UTC(),
		Version:    domain.EditExportVersion,
	}
}

// ImportEdits merges an external edit set into the local overlay with
// version-wins resolution: an incoming edit replaces the local edit for the
// same place only when its version is strictly greater. Edits for places this
// store has never seen are kept; they attach once the base record appears.
func (s *PlaceStore) ImportEdits(ctx context.Context, export domain.EditExport) (int, error) {
	if export.Version > domain.EditExportVersion {
		return 0, errors.ErrInvalidImportBlob.WithDetails(map[string]interface{}{
			"version": export.Version,
		})
	}

	s.mu.Lock()

	imported := 0
	for _, incoming := range export.UserEdits {
		s.relinkEditKeyLocked(&incoming)
		local := s.findLocalEditLocked(&incoming)
		if local == nil {
			s.data.UserEdits = append(s.data.UserEdits, incoming)
			imported++
			continue
		}
		if incoming.Version > local.Version {
			*local = incoming
			imported++
		}
	}

	s.updateGauges()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.flushAsync(snap)
	return imported, nil
}

// relinkEditKeyLocked rebinds an imported edit to this store's base records.
// Keys from another deployment mean nothing here, so an unknown key is
// replaced by the key of the base record the slug chain resolves to, or
// cleared when no base matches yet so the edit can attach later by slug.
func (s *PlaceStore) relinkEditKeyLocked(edit *domain.UserPlaceEdit) {
	if edit.PlaceKey != "" {
		for i := range s.data.OriginalPlaces {
			if s.data.OriginalPlaces[i].Key == edit.PlaceKey {
				return
			}
		}
	}
	for i := range s.data.OriginalPlaces {
		base := &s.data.OriginalPlaces[i]
		if base.ID == edit.PlaceID || (edit.OriginalPlaceID != nil && *edit.OriginalPlaceID == base.ID) {
			edit.PlaceKey = base.Key
			return
		}
	}
	edit.PlaceKey = ""
}

// findLocalEditLocked locates the local edit describing the same logical
// place as the incoming one: by key when both carry it, otherwise through the
// base record the incoming edit resolves to.
func (s *PlaceStore) findLocalEditLocked(incoming *domain.UserPlaceEdit) *domain.UserPlaceEdit {
	for i := range s.data.UserEdits {
		local := &s.data.UserEdits[i]
		if incoming.PlaceKey != "" && local.PlaceKey != "" {
			if local.PlaceKey == incoming.PlaceKey {
				return local
			}
			continue
		}
		if local.PlaceID == incoming.PlaceID {
			return local
		}
		if incoming.OriginalPlaceID != nil && local.PlaceID == *incoming.OriginalPlaceID {
			return local
		}
		if local.OriginalPlaceID != nil && *local.OriginalPlaceID == incoming.PlaceID {
			return local
		}
	}
	return nil
}

// Stats summarizes the effective view.
func (s *PlaceStore) Stats() domain.StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := domain.StoreStats{
		TotalPlaces: len(s.data.OriginalPlaces),
		BySource:    make(map[string]int),
		ByCategory:  make(map[string]int),
		ByCity:      make(map[string]int),
	}
	if s.data.LastSyncAt != nil {
		t := *s.data.LastSyncAt
		stats.LastSyncAt = &t
	}

	for _, place := range s.effectivePlacesLocked() {
		stats.BySource[place.SourceID]++
		stats.ByCategory[string(place.Category)]++
		stats.ByCity[place.City]++
	}
	for i := range s.data.OriginalPlaces {
		if s.findEditLocked(&s.data.OriginalPlaces[i]) != nil {
			stats.EditedPlaces++
		}
	}

	return stats
}

// Flush writes the storage blob synchronously.
func (s *PlaceStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if err := s.blobRepo.Save(ctx, domain.StorageKeyPlaces, snap.raw); err != nil {
		return errors.ErrStorageFailed.WithDetails(map[string]interface{}{
			"op":     "flush",
			"reason": err.Error(),
		})
	}
	s.flushedGen = snap.gen
	return nil
}

// Close drains pending asynchronous flushes and writes a final snapshot.
func (s *PlaceStore) Close(ctx context.Context) error {
	s.flushWG.Wait()
	return s.Flush(ctx)
}

type snapshot struct {
	raw []byte
	gen uint64
}

func (s *PlaceStore) snapshotLocked() snapshot {
	raw, err := json.Marshal(s.data)
	if err != nil {
		// storage data is plain structs; marshal cannot realistically fail
		s.logger.Error("Failed to marshal store snapshot", zap.Error(err))
		return snapshot{}
	}
	s.gen++
	return snapshot{raw: raw, gen: s.gen}
}

// flushAsync persists a snapshot without blocking the caller. Failures are
// logged and counted, never raised: the in-memory state stays authoritative
// until the next successful flush or restart. Writes are serialized and a
// snapshot older than one already persisted is dropped.
func (s *PlaceStore) flushAsync(snap snapshot) {
	if snap.raw == nil {
		return
	}

	s.flushWG.Add(1)
	go func() {
		defer s.flushWG.Done()

		s.flushMu.Lock()
		defer s.flushMu.Unlock()

		if snap.gen <= s.flushedGen {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()

		if err := s.blobRepo.Save(ctx, domain.StorageKeyPlaces, snap.raw); err != nil {
			metrics.StoreFlushFailures.Inc()
			s.logger.Error("Store flush failed, in-memory state remains authoritative",
				zap.Error(err))
			return
		}
		s.flushedGen = snap.gen
	}()
}

func (s *PlaceStore) updateGauges() {
	metrics.StorePlaces.Set(float64(len(s.data.OriginalPlaces)))
	metrics.StoreEdits.Set(float64(len(s.data.UserEdits)))
}
