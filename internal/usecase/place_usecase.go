package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/domain/repository"
	"github.com/place-sync-service/internal/feed"
	"github.com/place-sync-service/internal/pkg/errors"
	"github.com/place-sync-service/internal/pkg/utils"
	"github.com/place-sync-service/internal/store"
	"github.com/place-sync-service/internal/usecase/dto"
)

// PlaceUseCase serves the merged place view and records user changes. Reads
// of the unfiltered view go through the cache; every mutation invalidates it.
type PlaceUseCase struct {
	store     *store.PlaceStore
	cacheRepo repository.CacheRepository
	logger    *zap.Logger
	cacheTTL  time.Duration
}

func NewPlaceUseCase(
	placeStore *store.PlaceStore,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *PlaceUseCase {
	return &PlaceUseCase{
		store:     placeStore,
		cacheRepo: cacheRepo,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// ListPlaces returns the effective view, optionally narrowed by a filter.
// Filtering always happens on the full view, so only the unfiltered list is
// worth caching.
func (uc *PlaceUseCase) ListPlaces(ctx context.Context, filter dto.PlaceFilter) ([]domain.Place, error) {
	if filter.HasRadius() {
		if !utils.ValidateCoordinates(*filter.Lat, *filter.Lon) {
			return nil, errors.ErrInvalidCoordinates
		}
		if !utils.ValidateRadius(*filter.RadiusKm) {
			return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
				"reason": "radius_km must be between 0.1 and 100",
			})
		}
	}

	places := uc.effectivePlaces(ctx)
	if filter.IsEmpty() {
		return places, nil
	}

	filtered := make([]domain.Place, 0, len(places))
	for _, place := range places {
		if filter.Category != "" && string(place.Category) != filter.Category {
			continue
		}
		if filter.City != "" && !strings.EqualFold(place.City, filter.City) {
			continue
		}
		if filter.SourceID != "" && place.SourceID != filter.SourceID {
			continue
		}
		if filter.HasRadius() {
			if place.Coordinates == nil {
				continue
			}
			distance := utils.HaversineDistance(
				*filter.Lat, *filter.Lon,
				place.Coordinates.Lat, place.Coordinates.Lon,
			)
			if distance > *filter.RadiusKm {
				continue
			}
		}
		filtered = append(filtered, place)
	}

	return filtered, nil
}

// effectivePlaces returns the merged view, from cache when possible.
func (uc *PlaceUseCase) effectivePlaces(ctx context.Context) []domain.Place {
	cached, err := uc.cacheRepo.GetEffectivePlaces(ctx)
	if err == nil && cached != nil {
		return cached
	}
	if err != nil {
		uc.logger.Warn("Failed to read effective places from cache", zap.Error(err))
	}

	places := uc.store.EffectivePlaces()
	if err := uc.cacheRepo.SetEffectivePlaces(ctx, places, uc.cacheTTL); err != nil {
		uc.logger.Warn("Failed to cache effective places", zap.Error(err))
	}
	return places
}

// GetPlace resolves one place by effective slug or immutable key.
func (uc *PlaceUseCase) GetPlace(ctx context.Context, id string) (*domain.Place, error) {
	for _, place := range uc.effectivePlaces(ctx) {
		if place.ID == id || place.Key == id {
			p := place
			return &p, nil
		}
	}
	return nil, errors.ErrPlaceNotFound.WithDetails(map[string]interface{}{
		"id": id,
	})
}

// CreatePlace adds a user-originated place to the base layer.
func (uc *PlaceUseCase) CreatePlace(ctx context.Context, req dto.CreatePlaceRequest) (*domain.Place, error) {
	place := domain.Place{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		City:        strings.TrimSpace(req.City),
	}

	if req.Category != "" {
		place.Category = domain.Category(req.Category)
	} else {
		place.Category = feed.Categorize(place.Name, place.Description)
	}

	if req.Lat != nil && req.Lon != nil {
		if !utils.ValidateCoordinates(*req.Lat, *req.Lon) {
			return nil, errors.ErrInvalidCoordinates
		}
		place.Coordinates = &domain.Point{Lat: *req.Lat, Lon: *req.Lon}
		if place.City == "" {
			place.City = feed.DetectCity(*place.Coordinates)
		}
	}
	if place.City == "" {
		place.City = feed.DefaultCity
	}

	added, err := uc.store.AddPlace(ctx, place)
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx)
	uc.logger.Info("Place created",
		zap.String("id", added.ID),
		zap.String("name", added.Name))
	return &added, nil
}

// UpdatePlace records a user edit of one place.
func (uc *PlaceUseCase) UpdatePlace(ctx context.Context, id string, req dto.UpdatePlaceRequest) (*domain.Place, error) {
	fields := domain.EditFields{
		Description: req.Description,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
				"reason": "name cannot be blank",
			})
		}
		fields.Name = &name
	}
	if req.Category != nil {
		category := domain.Category(*req.Category)
		if !domain.IsValidCategory(category) {
			return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
				"reason": "unknown category " + *req.Category,
			})
		}
		fields.Category = &category
	}

	merged, err := uc.store.UpdatePlace(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx)
	uc.logger.Info("Place updated",
		zap.String("id", merged.ID),
		zap.Int("edit_fields", countFields(fields)))
	return &merged, nil
}

// ExportEdits snapshots the edit overlay.
func (uc *PlaceUseCase) ExportEdits(ctx context.Context) domain.EditExport {
	return uc.store.ExportEdits()
}

// ImportEdits merges an exported edit set with version-wins resolution.
func (uc *PlaceUseCase) ImportEdits(ctx context.Context, export domain.EditExport) (int, error) {
	applied, err := uc.store.ImportEdits(ctx, export)
	if err != nil {
		return 0, err
	}

	uc.invalidate(ctx)
	uc.logger.Info("Edits imported",
		zap.Int("received", len(export.UserEdits)),
		zap.Int("applied", applied))
	return applied, nil
}

// Stats summarizes the effective view.
func (uc *PlaceUseCase) Stats(ctx context.Context) domain.StoreStats {
	return uc.store.Stats()
}

func (uc *PlaceUseCase) invalidate(ctx context.Context) {
	if err := uc.cacheRepo.InvalidateEffectivePlaces(ctx); err != nil {
		uc.logger.Warn("Failed to invalidate effective places cache", zap.Error(err))
	}
}

func countFields(fields domain.EditFields) int {
	n := 0
	if fields.Name != nil {
		n++
	}
	if fields.Category != nil {
		n++
	}
	if fields.Description != nil {
		n++
	}
	return n
}
