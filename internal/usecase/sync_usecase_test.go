package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/feed"
	apperrors "github.com/place-sync-service/internal/pkg/errors"
	"github.com/place-sync-service/internal/store"
	"github.com/place-sync-service/internal/sync"
	"github.com/place-sync-service/internal/usecase"
)

// MockStreamRepository is a mock of StreamRepository
type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	args := m.Called(ctx, stream, group)
	return args.Error(0)
}

func (m *MockStreamRepository) ConsumeStream(ctx context.Context, stream, group, consumer string) (<-chan domain.StreamMessage, error) {
	args := m.Called(ctx, stream, group, consumer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan domain.StreamMessage), args.Error(1)
}

func (m *MockStreamRepository) AckMessage(ctx context.Context, stream, group, messageID string) error {
	args := m.Called(ctx, stream, group, messageID)
	return args.Error(0)
}

func (m *MockStreamRepository) PublishToStream(ctx context.Context, stream string, data interface{}) error {
	args := m.Called(ctx, stream, data)
	return args.Error(0)
}

// MockFeedClient is a mock of FeedClient
type MockFeedClient struct {
	mock.Mock
}

func (m *MockFeedClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockFeedClient) Fetch(ctx context.Context, fetchID string) (*domain.FeedPayload, error) {
	args := m.Called(ctx, fetchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeedPayload), args.Error(1)
}

func newSyncUseCase(t *testing.T, mockCache *MockCacheRepository, mockStream *MockStreamRepository) (*usecase.SyncUseCase, *sync.StatusTracker) {
	t.Helper()
	logger := zap.NewNop()
	blobRepo := newMemBlobRepo()

	placeStore := store.NewPlaceStore(blobRepo, logger)
	require.NoError(t, placeStore.Open(context.Background()))

	sources := []domain.SourceConfig{
		{ID: "tokyo-main", Name: "Tokyo Main Feed", FetchID: "feed-1", Format: domain.FormatKML},
		{ID: "kansai", Name: "Kansai Feed", FetchID: "feed-2", Format: domain.FormatJSONList},
	}

	tracker := sync.NewStatusTracker(blobRepo, mockCache, time.Minute, logger)
	orch := sync.NewOrchestrator(placeStore, &MockFeedClient{}, feed.NewParser(logger), tracker, mockCache, sources, logger)

	return usecase.NewSyncUseCase(orch, tracker, mockStream, mockCache, logger), tracker
}

func TestSyncUseCase_Trigger(t *testing.T) {
	ctx := context.Background()

	t.Run("queues a request for a known source", func(t *testing.T) {
		mockStream := &MockStreamRepository{}
		mockStream.On("PublishToStream", mock.Anything, domain.StreamSyncRequests, mock.MatchedBy(func(data interface{}) bool {
			req, ok := data.(domain.SyncRequest)
			return ok && req.SourceID == "tokyo-main" && !req.All
		})).Return(nil)

		uc, _ := newSyncUseCase(t, &MockCacheRepository{}, mockStream)

		resp, err := uc.TriggerSync(ctx, "tokyo-main")
		require.NoError(t, err)
		assert.True(t, resp.Queued)
		mockStream.AssertExpectations(t)
	})

	t.Run("rejects an unknown source without queueing", func(t *testing.T) {
		mockStream := &MockStreamRepository{}
		uc, _ := newSyncUseCase(t, &MockCacheRepository{}, mockStream)

		_, err := uc.TriggerSync(ctx, "nope")
		assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)
		mockStream.AssertNotCalled(t, "PublishToStream", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sync-all queues one covering request", func(t *testing.T) {
		mockStream := &MockStreamRepository{}
		mockStream.On("PublishToStream", mock.Anything, domain.StreamSyncRequests, mock.MatchedBy(func(data interface{}) bool {
			req, ok := data.(domain.SyncRequest)
			return ok && req.All
		})).Return(nil)

		uc, _ := newSyncUseCase(t, &MockCacheRepository{}, mockStream)

		resp, err := uc.TriggerSyncAll(ctx)
		require.NoError(t, err)
		assert.True(t, resp.Queued)
	})
}

func TestSyncUseCase_GetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("live state wins over the mirror", func(t *testing.T) {
		mockCache := &MockCacheRepository{}
		mockCache.On("SetSyncStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		uc, tracker := newSyncUseCase(t, mockCache, &MockStreamRepository{})
		tracker.SetPhase(ctx, "tokyo-main", domain.PhaseFetching)

		status, err := uc.GetStatus(ctx, "tokyo-main")
		require.NoError(t, err)
		assert.Equal(t, domain.SyncStateSyncing, status.State)
		mockCache.AssertNotCalled(t, "GetSyncStatus", mock.Anything, mock.Anything)
	})

	t.Run("idle falls back to the cache mirror", func(t *testing.T) {
		mirrored := &domain.SyncStatus{
			SourceID: "tokyo-main",
			State:    domain.SyncStateSuccess,
			Message:  "sync completed",
		}
		mockCache := &MockCacheRepository{}
		mockCache.On("GetSyncStatus", mock.Anything, "tokyo-main").Return(mirrored, nil)

		uc, _ := newSyncUseCase(t, mockCache, &MockStreamRepository{})

		status, err := uc.GetStatus(ctx, "tokyo-main")
		require.NoError(t, err)
		assert.Equal(t, domain.SyncStateSuccess, status.State)
	})

	t.Run("idle with an empty mirror stays idle", func(t *testing.T) {
		mockCache := &MockCacheRepository{}
		mockCache.On("GetSyncStatus", mock.Anything, "tokyo-main").Return(nil, nil)

		uc, _ := newSyncUseCase(t, mockCache, &MockStreamRepository{})

		status, err := uc.GetStatus(ctx, "tokyo-main")
		require.NoError(t, err)
		assert.Equal(t, domain.SyncStateIdle, status.State)
	})

	t.Run("unknown source", func(t *testing.T) {
		uc, _ := newSyncUseCase(t, &MockCacheRepository{}, &MockStreamRepository{})
		_, err := uc.GetStatus(ctx, "nope")
		assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)
	})
}

func TestSyncUseCase_ListSources(t *testing.T) {
	ctx := context.Background()
	mockCache := &MockCacheRepository{}
	mockCache.On("GetSyncStatus", mock.Anything, mock.Anything).Return(nil, nil)

	uc, _ := newSyncUseCase(t, mockCache, &MockStreamRepository{})

	sources, err := uc.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "tokyo-main", sources[0].ID)
	assert.Equal(t, domain.FormatJSONList, sources[1].Format)
	assert.Equal(t, domain.SyncStateIdle, sources[0].Status.State)
}
