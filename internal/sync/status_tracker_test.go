package sync_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	syncpkg "github.com/place-sync-service/internal/sync"
)

func newTestTracker() (*syncpkg.StatusTracker, *memBlobRepo) {
	blobRepo := newMemBlobRepo()
	mockCache := &MockCacheRepository{}
	mockCache.On("SetSyncStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return syncpkg.NewStatusTracker(blobRepo, mockCache, time.Minute, zap.NewNop()), blobRepo
}

func TestStatusTracker_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown source reports idle", func(t *testing.T) {
		tracker, _ := newTestTracker()
		status := tracker.Status("tokyo-main")
		assert.Equal(t, domain.SyncStateIdle, status.State)
		assert.Equal(t, "tokyo-main", status.SourceID)
	})

	t.Run("phases map to live states", func(t *testing.T) {
		tracker, _ := newTestTracker()

		tracker.SetPhase(ctx, "tokyo-main", domain.PhaseConnecting)
		assert.Equal(t, domain.SyncStateConnecting, tracker.Status("tokyo-main").State)

		tracker.SetPhase(ctx, "tokyo-main", domain.PhaseParsing)
		status := tracker.Status("tokyo-main")
		assert.Equal(t, domain.SyncStateSyncing, status.State)
		assert.Equal(t, string(domain.PhaseParsing), status.Message)
	})

	t.Run("result sets terminal state", func(t *testing.T) {
		tracker, _ := newTestTracker()

		tracker.SetResult(ctx, &domain.SyncResult{
			SourceID:    "tokyo-main",
			Success:     true,
			PlacesFound: 10,
			PlacesAdded: 3,
		})
		status := tracker.Status("tokyo-main")
		assert.Equal(t, domain.SyncStateSuccess, status.State)
		assert.Equal(t, 3, status.PlacesAdded)

		tracker.SetResult(ctx, &domain.SyncResult{
			SourceID: "tokyo-main",
			Success:  false,
			Error:    "fetch failed: timeout",
		})
		status = tracker.Status("tokyo-main")
		assert.Equal(t, domain.SyncStateError, status.State)
		assert.Equal(t, "fetch failed: timeout", status.Message)
	})
}

func TestStatusTracker_History(t *testing.T) {
	ctx := context.Background()

	t.Run("empty history for never-synced source", func(t *testing.T) {
		tracker, _ := newTestTracker()
		history, err := tracker.History(ctx, "tokyo-main")
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("newest entry first", func(t *testing.T) {
		tracker, _ := newTestTracker()

		require.NoError(t, tracker.AppendHistory(ctx, &domain.SyncResult{ID: "a", SourceID: "tokyo-main"}))
		require.NoError(t, tracker.AppendHistory(ctx, &domain.SyncResult{ID: "b", SourceID: "tokyo-main"}))

		history, err := tracker.History(ctx, "tokyo-main")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "b", history[0].ID)
		assert.Equal(t, "a", history[1].ID)
	})

	t.Run("history is capped at the limit", func(t *testing.T) {
		tracker, _ := newTestTracker()

		for i := 0; i < domain.SyncHistoryLimit+5; i++ {
			result := &domain.SyncResult{
				ID:       fmt.Sprintf("run-%d", i),
				SourceID: "tokyo-main",
				SyncedAt: time.Now(),
			}
			require.NoError(t, tracker.AppendHistory(ctx, result))
		}

		history, err := tracker.History(ctx, "tokyo-main")
		require.NoError(t, err)
		assert.Len(t, history, domain.SyncHistoryLimit)
		assert.Equal(t, fmt.Sprintf("run-%d", domain.SyncHistoryLimit+4), history[0].ID)
	})

	t.Run("histories are kept per source", func(t *testing.T) {
		tracker, _ := newTestTracker()

		require.NoError(t, tracker.AppendHistory(ctx, &domain.SyncResult{ID: "a", SourceID: "tokyo-main"}))
		require.NoError(t, tracker.AppendHistory(ctx, &domain.SyncResult{ID: "b", SourceID: "kansai"}))

		history, err := tracker.History(ctx, "kansai")
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "b", history[0].ID)
	})
}

func TestStatusTracker_LastSyncTime(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker()

	at, err := tracker.LastSyncTime(ctx, "tokyo-main")
	require.NoError(t, err)
	assert.Nil(t, at)

	okTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.AppendHistory(ctx, &domain.SyncResult{
		ID: "ok", SourceID: "tokyo-main", Success: true, SyncedAt: okTime,
	}))
	require.NoError(t, tracker.AppendHistory(ctx, &domain.SyncResult{
		ID: "bad", SourceID: "tokyo-main", Success: false, SyncedAt: okTime.Add(time.Hour),
	}))

	at, err = tracker.LastSyncTime(ctx, "tokyo-main")
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.True(t, at.Equal(okTime))
}
