package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	apperrors "github.com/place-sync-service/internal/pkg/errors"
	"github.com/place-sync-service/internal/store"
)

// memBlobRepo keeps blobs in memory so persistence can be verified with
// read-after-write. failSave makes every Save return an error.
type memBlobRepo struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	failSave bool
}

func newMemBlobRepo() *memBlobRepo {
	return &memBlobRepo{blobs: make(map[string][]byte)}
}

func (r *memBlobRepo) Load(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blobs[key], nil
}

func (r *memBlobRepo) Save(_ context.Context, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave {
		return errors.New("disk full")
	}
	r.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (r *memBlobRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blobs, key)
	return nil
}

func newOpenStore(t *testing.T) (*store.PlaceStore, *memBlobRepo) {
	t.Helper()
	repo := newMemBlobRepo()
	s := store.NewPlaceStore(repo, zap.NewNop())
	require.NoError(t, s.Open(context.Background()))
	return s, repo
}

func strPtr(s string) *string                   { return &s }
func catPtr(c domain.Category) *domain.Category { return &c }
func pt(lat, lon float64) *domain.Point         { return &domain.Point{Lat: lat, Lon: lon} }

func feedPlace(name string, lat, lon float64) domain.Place {
	return domain.Place{
		ID:          slugOf(name),
		Name:        name,
		Category:    domain.CategoryEntertainment,
		City:        "Tokyo",
		Coordinates: pt(lat, lon),
	}
}

// slugOf mirrors how the parser derives ids, enough for fixtures.
func slugOf(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ':
			out = append(out, '-')
		}
	}
	return string(out)
}

func TestPlaceStore_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("first reconcile adds everything", func(t *testing.T) {
		s, _ := newOpenStore(t)

		result := s.Reconcile(ctx, "tokyo-main", []domain.Place{
			feedPlace("Sensoji Temple", 35.7148, 139.7967),
			feedPlace("Ichiran Shibuya", 35.6595, 139.7016),
		})

		assert.Equal(t, 2, result.Added)
		assert.Equal(t, 0, result.DuplicatesSkipped)
		assert.Equal(t, 0, result.BeforeCount)
		assert.Equal(t, 2, result.AfterCount)
		assert.Equal(t, 2, s.Count())
		assert.NotNil(t, s.LastSyncAt())

		for _, place := range s.EffectivePlaces() {
			assert.NotEmpty(t, place.Key)
			assert.Equal(t, "tokyo-main", place.SourceID)
			assert.False(t, place.CreatedAt.IsZero())
		}
	})

	t.Run("repeat reconcile adds nothing", func(t *testing.T) {
		s, _ := newOpenStore(t)
		batch := []domain.Place{
			feedPlace("Sensoji Temple", 35.7148, 139.7967),
			feedPlace("Ichiran Shibuya", 35.6595, 139.7016),
		}

		s.Reconcile(ctx, "tokyo-main", batch)
		result := s.Reconcile(ctx, "tokyo-main", batch)

		assert.Equal(t, 0, result.Added)
		assert.Equal(t, 2, result.DuplicatesSkipped)
		assert.Equal(t, 2, s.Count())
	})

	t.Run("dedup spans sources and ignores name case", func(t *testing.T) {
		s, _ := newOpenStore(t)

		s.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})
		result := s.Reconcile(ctx, "backup-feed", []domain.Place{
			{ID: "different-id", Name: "SENSOJI TEMPLE", Coordinates: pt(35.7148, 139.7967)},
			feedPlace("Nara Park", 34.6851, 135.8430),
		})

		assert.Equal(t, 1, result.Added)
		assert.Equal(t, 1, result.DuplicatesSkipped)
		assert.Equal(t, 2, s.Count())
	})
}

func TestPlaceStore_EffectivePlaces(t *testing.T) {
	ctx := context.Background()

	t.Run("edited fields win over base fields", func(t *testing.T) {
		s, _ := newOpenStore(t)
		s.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})

		_, err := s.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{
			Category:    catPtr(domain.CategoryTransport),
			Description: strPtr("actually a station"),
		})
		require.NoError(t, err)

		effective := s.EffectivePlaces()
		require.Len(t, effective, 1)
		assert.Equal(t, "Sensoji Temple", effective[0].Name)
		assert.Equal(t, "sensoji-temple", effective[0].ID)
		assert.Equal(t, domain.CategoryTransport, effective[0].Category)
		assert.Equal(t, "actually a station", effective[0].Description)
	})

	t.Run("rename changes slug without adding a record", func(t *testing.T) {
		s, _ := newOpenStore(t)
		s.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})

		merged, err := s.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{
			Name: strPtr("Asakusa Kannon"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Asakusa Kannon", merged.Name)
		assert.Equal(t, "asakusa-kannon", merged.ID)

		effective := s.EffectivePlaces()
		require.Len(t, effective, 1)
		assert.Equal(t, "asakusa-kannon", effective[0].ID)
		assert.Equal(t, 1, s.Count())
		assertUniqueEffectiveIDs(t, effective)
	})
}

func TestPlaceStore_UpdatePlace(t *testing.T) {
	ctx := context.Background()

	t.Run("empty edit is rejected", func(t *testing.T) {
		s, _ := newOpenStore(t)
		_, err := s.UpdatePlace(ctx, "anything", domain.EditFields{})
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})

	t.Run("unknown place", func(t *testing.T) {
		s, _ := newOpenStore(t)
		_, err := s.UpdatePlace(ctx, "nope", domain.EditFields{Name: strPtr("X")})
		assert.ErrorIs(t, err, apperrors.ErrPlaceNotFound)
	})

	t.Run("re-edit bumps version on the same entry", func(t *testing.T) {
		s, _ := newOpenStore(t)
		s.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})

		_, err := s.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{Description: strPtr("v1")})
		require.NoError(t, err)
		_, err = s.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{Description: strPtr("v2")})
		require.NoError(t, err)

		export := s.ExportEdits()
		require.Len(t, export.UserEdits, 1)
		assert.Equal(t, 2, export.UserEdits[0].Version)
		assert.Equal(t, "v2", *export.UserEdits[0].EditedFields.Description)
	})

	t.Run("renamed place stays addressable by key, new slug and base slug", func(t *testing.T) {
		s, _ := newOpenStore(t)
		s.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})
		key := s.EffectivePlaces()[0].Key

		_, err := s.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{Name: strPtr("Asakusa Kannon")})
		require.NoError(t, err)

		for _, id := range []string{key, "asakusa-kannon", "sensoji-temple"} {
			merged, err := s.UpdatePlace(ctx, id, domain.EditFields{Description: strPtr("via " + id)})
			require.NoError(t, err, "id %q", id)
			assert.Equal(t, "asakusa-kannon", merged.ID)
		}

		export := s.ExportEdits()
		require.Len(t, export.UserEdits, 1)
		assert.Equal(t, 4, export.UserEdits[0].Version)
	})

	t.Run("second rename records the previous slug", func(t *testing.T) {
		s, _ := newOpenStore(t)
		s.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})

		_, err := s.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{Name: strPtr("Asakusa Kannon")})
		require.NoError(t, err)
		_, err = s.UpdatePlace(ctx, "asakusa-kannon", domain.EditFields{Name: strPtr("Kannon Hall")})
		require.NoError(t, err)

		export := s.ExportEdits()
		require.Len(t, export.UserEdits, 1)
		require.NotNil(t, export.UserEdits[0].OriginalPlaceID)
		assert.Equal(t, "asakusa-kannon", *export.UserEdits[0].OriginalPlaceID)
	})

	t.Run("rename collision with another effective name fails", func(t *testing.T) {
		s, _ := newOpenStore(t)
		s.Reconcile(ctx, "tokyo-main", []domain.Place{
			feedPlace("Sensoji Temple", 35.7148, 139.7967),
			feedPlace("Nara Park", 34.6851, 135.8430),
		})

		_, err := s.UpdatePlace(ctx, "nara-park", domain.EditFields{Name: strPtr("sensoji temple")})
		assert.ErrorIs(t, err, apperrors.ErrNameConflict)
	})
}

func TestPlaceStore_AddPlace(t *testing.T) {
	ctx := context.Background()

	t.Run("fills key, slug and user source", func(t *testing.T) {
		s, _ := newOpenStore(t)

		added, err := s.AddPlace(ctx, domain.Place{
			Name:        "My Secret Cafe",
			Category:    domain.CategoryRestaurant,
			City:        "Tokyo",
			Coordinates: pt(35.66, 139.70),
		})
		require.NoError(t, err)

		assert.NotEmpty(t, added.Key)
		assert.Equal(t, "my-secret-cafe", added.ID)
		assert.Equal(t, store.UserSourceID, added.SourceID)
		assert.Equal(t, 1, s.Count())
	})

	t.Run("conflict against an edited name", func(t *testing.T) {
		s, _ := newOpenStore(t)
		s.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})
		_, err := s.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{Name: strPtr("Asakusa Kannon")})
		require.NoError(t, err)

		_, err = s.AddPlace(ctx, domain.Place{Name: "asakusa kannon"})
		assert.ErrorIs(t, err, apperrors.ErrNameConflict)

		// the old base name is no longer effective, so it is free again
		_, err = s.AddPlace(ctx, domain.Place{Name: "Sensoji Temple"})
		assert.NoError(t, err)
		assertUniqueEffectiveIDs(t, s.EffectivePlaces())
	})

	t.Run("record reusing a freed slug keeps its own identity", func(t *testing.T) {
		s, _ := newOpenStore(t)
		s.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})
		renamed, err := s.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{Name: strPtr("Asakusa Kannon")})
		require.NoError(t, err)

		readded, err := s.AddPlace(ctx, domain.Place{Name: "Sensoji Temple"})
		require.NoError(t, err)

		// the rename edit must stay bound to the record it was made on,
		// never bleed onto the newcomer that took over the freed slug
		effective := s.EffectivePlaces()
		require.Len(t, effective, 2)
		assertUniqueEffectiveIDs(t, effective)

		byKey := make(map[string]domain.Place, len(effective))
		for _, p := range effective {
			byKey[p.Key] = p
		}
		assert.Equal(t, "Asakusa Kannon", byKey[renamed.Key].Name)
		assert.Equal(t, "asakusa-kannon", byKey[renamed.Key].ID)
		assert.Equal(t, "Sensoji Temple", byKey[readded.Key].Name)
		assert.Equal(t, "sensoji-temple", byKey[readded.Key].ID)

		// addressing the reused slug edits the record the user sees
		updated, err := s.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{Description: strPtr("rebuilt gate")})
		require.NoError(t, err)
		assert.Equal(t, readded.Key, updated.Key)
		assert.Equal(t, "Sensoji Temple", updated.Name)
	})
}

// assertUniqueEffectiveIDs checks that no two effective records share an id.
func assertUniqueEffectiveIDs(t *testing.T, places []domain.Place) {
	t.Helper()
	seen := make(map[string]string, len(places))
	for _, p := range places {
		if other, ok := seen[p.ID]; ok {
			t.Fatalf("effective id %q shared by %q and %q", p.ID, other, p.Name)
		}
		seen[p.ID] = p.Name
	}
}

func TestPlaceStore_ImportEdits(t *testing.T) {
	ctx := context.Background()

	t.Run("higher version wins, lower is ignored", func(t *testing.T) {
		s, _ := newOpenStore(t)
		s.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})
		_, err := s.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{Description: strPtr("local")})
		require.NoError(t, err)

		lower := domain.EditExport{
			Version: domain.EditExportVersion,
			UserEdits: []domain.UserPlaceEdit{{
				PlaceID:      "sensoji-temple",
				EditedFields: domain.EditFields{Description: strPtr("stale remote")},
				Version:      1,
			}},
		}
		applied, err := s.ImportEdits(ctx, lower)
		require.NoError(t, err)
		assert.Equal(t, 0, applied)

		higher := lower
		higher.UserEdits[0].Version = 5
		higher.UserEdits[0].EditedFields.Description = strPtr("fresh remote")
		applied, err = s.ImportEdits(ctx, higher)
		require.NoError(t, err)
		assert.Equal(t, 1, applied)

		effective := s.EffectivePlaces()
		require.Len(t, effective, 1)
		assert.Equal(t, "fresh remote", effective[0].Description)
	})

	t.Run("edit for an unseen place is kept and attaches later", func(t *testing.T) {
		s, _ := newOpenStore(t)

		applied, err := s.ImportEdits(ctx, domain.EditExport{
			Version: domain.EditExportVersion,
			UserEdits: []domain.UserPlaceEdit{{
				PlaceID:      "nara-park",
				EditedFields: domain.EditFields{Description: strPtr("deer everywhere")},
				Version:      1,
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, applied)
		assert.Equal(t, 0, s.Count())

		s.Reconcile(ctx, "kansai", []domain.Place{feedPlace("Nara Park", 34.6851, 135.8430)})
		effective := s.EffectivePlaces()
		require.Len(t, effective, 1)
		assert.Equal(t, "deer everywhere", effective[0].Description)
	})

	t.Run("keys from another deployment are relinked", func(t *testing.T) {
		origin, _ := newOpenStore(t)
		origin.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})
		_, err := origin.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{Description: strPtr("edited elsewhere")})
		require.NoError(t, err)

		replica, _ := newOpenStore(t)
		replica.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})
		localKey := replica.EffectivePlaces()[0].Key

		applied, err := replica.ImportEdits(ctx, origin.ExportEdits())
		require.NoError(t, err)
		assert.Equal(t, 1, applied)

		effective := replica.EffectivePlaces()
		require.Len(t, effective, 1)
		assert.Equal(t, "edited elsewhere", effective[0].Description)

		// the edit now carries this store's key, not the origin's
		export := replica.ExportEdits()
		require.Len(t, export.UserEdits, 1)
		assert.Equal(t, localKey, export.UserEdits[0].PlaceKey)
	})

	t.Run("edits on records sharing a slug stay separate", func(t *testing.T) {
		s, _ := newOpenStore(t)
		s.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})
		_, err := s.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{Name: strPtr("Asakusa Kannon")})
		require.NoError(t, err)
		readded, err := s.AddPlace(ctx, domain.Place{Name: "Sensoji Temple"})
		require.NoError(t, err)
		_, err = s.UpdatePlace(ctx, readded.Key, domain.EditFields{Description: strPtr("the new one")})
		require.NoError(t, err)

		// both edits point at slug "sensoji-temple"; re-importing the
		// export must match each against its own entry, not collapse them
		applied, err := s.ImportEdits(ctx, s.ExportEdits())
		require.NoError(t, err)
		assert.Equal(t, 0, applied)

		export := s.ExportEdits()
		require.Len(t, export.UserEdits, 2)
		effective := s.EffectivePlaces()
		require.Len(t, effective, 2)
		assertUniqueEffectiveIDs(t, effective)
	})

	t.Run("too-new export version is rejected", func(t *testing.T) {
		s, _ := newOpenStore(t)
		_, err := s.ImportEdits(ctx, domain.EditExport{Version: domain.EditExportVersion + 1})
		assert.ErrorIs(t, err, apperrors.ErrInvalidImportBlob)
	})
}

func TestPlaceStore_Persistence(t *testing.T) {
	ctx := context.Background()

	t.Run("close then reopen round-trips the data", func(t *testing.T) {
		s, repo := newOpenStore(t)
		s.Reconcile(ctx, "tokyo-main", []domain.Place{feedPlace("Sensoji Temple", 35.7148, 139.7967)})
		_, err := s.UpdatePlace(ctx, "sensoji-temple", domain.EditFields{Description: strPtr("edited")})
		require.NoError(t, err)
		require.NoError(t, s.Close(ctx))

		reopened := store.NewPlaceStore(repo, zap.NewNop())
		require.NoError(t, reopened.Open(ctx))

		assert.Equal(t, 1, reopened.Count())
		effective := reopened.EffectivePlaces()
		require.Len(t, effective, 1)
		assert.Equal(t, "edited", effective[0].Description)
		assert.NotNil(t, reopened.LastSyncAt())
	})

	t.Run("open backfills missing keys", func(t *testing.T) {
		repo := newMemBlobRepo()
		legacy := []byte(`{"original_places":[{"id":"sensoji-temple","name":"Sensoji Temple"}],"user_edits":[]}`)
		require.NoError(t, repo.Save(ctx, domain.StorageKeyPlaces, legacy))

		s := store.NewPlaceStore(repo, zap.NewNop())
		require.NoError(t, s.Open(ctx))

		effective := s.EffectivePlaces()
		require.Len(t, effective, 1)
		assert.NotEmpty(t, effective[0].Key)
	})

	t.Run("mutations succeed while flushes fail", func(t *testing.T) {
		s, repo := newOpenStore(t)
		repo.failSave = true

		_, err := s.AddPlace(ctx, domain.Place{Name: "My Secret Cafe"})
		require.NoError(t, err)
		assert.Equal(t, 1, s.Count())

		err = s.Flush(ctx)
		assert.ErrorIs(t, err, apperrors.ErrStorageFailed)
	})
}

func TestPlaceStore_Stats(t *testing.T) {
	ctx := context.Background()
	s, _ := newOpenStore(t)

	s.Reconcile(ctx, "tokyo-main", []domain.Place{
		feedPlace("Sensoji Temple", 35.7148, 139.7967),
		feedPlace("Ichiran Shibuya", 35.6595, 139.7016),
	})
	_, err := s.UpdatePlace(ctx, "ichiran-shibuya", domain.EditFields{Category: catPtr(domain.CategoryRestaurant)})
	require.NoError(t, err)
	_, err = s.AddPlace(ctx, domain.Place{Name: "My Secret Cafe", Category: domain.CategoryRestaurant, City: "Osaka"})
	require.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, 3, stats.TotalPlaces)
	assert.Equal(t, 1, stats.EditedPlaces)
	assert.Equal(t, 2, stats.BySource["tokyo-main"])
	assert.Equal(t, 1, stats.BySource[store.UserSourceID])
	assert.Equal(t, 2, stats.ByCategory[string(domain.CategoryRestaurant)])
}
