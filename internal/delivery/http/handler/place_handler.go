package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/pkg/errors"
	"github.com/place-sync-service/internal/pkg/utils"
	"github.com/place-sync-service/internal/pkg/validator"
	"github.com/place-sync-service/internal/usecase"
	"github.com/place-sync-service/internal/usecase/dto"
)

// PlaceHandler serves the merged place view and user edits.
type PlaceHandler struct {
	placeUC *usecase.PlaceUseCase
	logger  *zap.Logger
}

func NewPlaceHandler(placeUC *usecase.PlaceUseCase, logger *zap.Logger) *PlaceHandler {
	return &PlaceHandler{
		placeUC: placeUC,
		logger:  logger,
	}
}

// ListPlaces godoc
// @Summary List places
// @Description Returns the merged place view (imported records with user edits applied), optionally filtered
// @Tags Places
// @Produce json
// @Param category query string false "Filter by category"
// @Param city query string false "Filter by city"
// @Param source_id query string false "Filter by originating source"
// @Param lat query number false "Radius filter center latitude"
// @Param lon query number false "Radius filter center longitude"
// @Param radius_km query number false "Radius filter distance in km"
// @Success 200 {object} utils.SuccessResponse{data=dto.PlacesResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/places [get]
func (h *PlaceHandler) ListPlaces(c *fiber.Ctx) error {
	filter := dto.PlaceFilter{
		Category: c.Query("category"),
		City:     c.Query("city"),
		SourceID: c.Query("source_id"),
	}
	if lat, err := queryFloat(c, "lat"); err != nil {
		return utils.SendError(c, err)
	} else {
		filter.Lat = lat
	}
	if lon, err := queryFloat(c, "lon"); err != nil {
		return utils.SendError(c, err)
	} else {
		filter.Lon = lon
	}
	if radius, err := queryFloat(c, "radius_km"); err != nil {
		return utils.SendError(c, err)
	} else {
		filter.RadiusKm = radius
	}

	places, err := h.placeUC.ListPlaces(c.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list places", zap.Error(err))
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, dto.PlacesResponse{
		Places: places,
		Total:  len(places),
	}, &utils.Meta{Total: len(places)})
}

// GetPlace godoc
// @Summary Get one place
// @Description Resolves one place of the merged view by its slug or immutable key
// @Tags Places
// @Produce json
// @Param id path string true "Place slug or key"
// @Success 200 {object} utils.SuccessResponse{data=domain.Place}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/places/{id} [get]
func (h *PlaceHandler) GetPlace(c *fiber.Ctx) error {
	place, err := h.placeUC.GetPlace(c.Context(), c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, place, nil)
}

// CreatePlace godoc
// @Summary Create a place
// @Description Adds a user-originated place to the base layer
// @Tags Places
// @Accept json
// @Produce json
// @Param request body dto.CreatePlaceRequest true "Place to create"
// @Success 201 {object} utils.SuccessResponse{data=domain.Place}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/v1/places [post]
func (h *PlaceHandler) CreatePlace(c *fiber.Ctx) error {
	var req dto.CreatePlaceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"reason": "malformed JSON body",
		}))
	}
	if err := validator.Validate(req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"reason": err.Error(),
		}))
	}

	place, err := h.placeUC.CreatePlace(c.Context(), req)
	if err != nil {
		h.logger.Error("Failed to create place", zap.Error(err))
		return utils.SendError(c, err)
	}

	c.Status(fiber.StatusCreated)
	return utils.SendSuccess(c, place, nil)
}

// UpdatePlace godoc
// @Summary Update a place
// @Description Records a user edit of one place; the imported record itself is never modified
// @Tags Places
// @Accept json
// @Produce json
// @Param id path string true "Place slug or key"
// @Param request body dto.UpdatePlaceRequest true "Fields to change"
// @Success 200 {object} utils.SuccessResponse{data=domain.Place}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/v1/places/{id} [patch]
func (h *PlaceHandler) UpdatePlace(c *fiber.Ctx) error {
	var req dto.UpdatePlaceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"reason": "malformed JSON body",
		}))
	}
	if err := validator.Validate(req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"reason": err.Error(),
		}))
	}

	place, err := h.placeUC.UpdatePlace(c.Context(), c.Params("id"), req)
	if err != nil {
		h.logger.Error("Failed to update place",
			zap.String("id", c.Params("id")),
			zap.Error(err))
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, place, nil)
}

// ExportEdits godoc
// @Summary Export user edits
// @Description Exports the edit overlay for backup or transfer to another deployment
// @Tags Edits
// @Produce json
// @Success 200 {object} domain.EditExport
// @Router /api/v1/places/edits/export [get]
func (h *PlaceHandler) ExportEdits(c *fiber.Ctx) error {
	export := h.placeUC.ExportEdits(c.Context())
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="place-edits.json"`)
	return c.JSON(export)
}

// ImportEdits godoc
// @Summary Import user edits
// @Description Merges an exported edit set into the local overlay; for places edited on both sides the higher version wins
// @Tags Edits
// @Accept json
// @Produce json
// @Param request body domain.EditExport true "Exported edit set"
// @Success 200 {object} utils.SuccessResponse{data=dto.ImportEditsResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/places/edits/import [post]
func (h *PlaceHandler) ImportEdits(c *fiber.Ctx) error {
	var export domain.EditExport
	if err := c.BodyParser(&export); err != nil {
		return utils.SendError(c, errors.ErrInvalidImportBlob.WithDetails(map[string]interface{}{
			"reason": "malformed JSON body",
		}))
	}

	applied, err := h.placeUC.ImportEdits(c.Context(), export)
	if err != nil {
		h.logger.Error("Failed to import edits", zap.Error(err))
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, dto.ImportEditsResponse{
		Applied: applied,
		Total:   len(export.UserEdits),
	}, nil)
}

// GetStats godoc
// @Summary Store statistics
// @Description Summarizes the merged view by source, category and city
// @Tags Statistics
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=domain.StoreStats}
// @Router /api/v1/stats [get]
func (h *PlaceHandler) GetStats(c *fiber.Ctx) error {
	return utils.SendSuccess(c, h.placeUC.Stats(c.Context()), nil)
}

// queryFloat reads an optional float query parameter.
func queryFloat(c *fiber.Ctx, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"reason": name + " must be a number",
		})
	}
	return &value, nil
}
