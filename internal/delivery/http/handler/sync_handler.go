package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/place-sync-service/internal/pkg/utils"
	"github.com/place-sync-service/internal/usecase"
)

// SyncHandler exposes sync triggering and observation.
type SyncHandler struct {
	syncUC *usecase.SyncUseCase
	logger *zap.Logger
}

func NewSyncHandler(syncUC *usecase.SyncUseCase, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		syncUC: syncUC,
		logger: logger,
	}
}

// TriggerSync godoc
// @Summary Trigger a sync
// @Description Queues a sync of one configured source; the sync worker executes it
// @Tags Sync
// @Produce json
// @Param source_id path string true "Source id"
// @Success 202 {object} utils.SuccessResponse{data=dto.SyncTriggerResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sync/{source_id} [post]
func (h *SyncHandler) TriggerSync(c *fiber.Ctx) error {
	resp, err := h.syncUC.TriggerSync(c.Context(), c.Params("source_id"))
	if err != nil {
		h.logger.Error("Failed to trigger sync",
			zap.String("source_id", c.Params("source_id")),
			zap.Error(err))
		return utils.SendError(c, err)
	}

	c.Status(fiber.StatusAccepted)
	return utils.SendSuccess(c, resp, nil)
}

// TriggerSyncAll godoc
// @Summary Trigger a sync of every source
// @Description Queues one sync request covering all configured sources
// @Tags Sync
// @Produce json
// @Success 202 {object} utils.SuccessResponse{data=dto.SyncTriggerResponse}
// @Router /api/v1/sync [post]
func (h *SyncHandler) TriggerSyncAll(c *fiber.Ctx) error {
	resp, err := h.syncUC.TriggerSyncAll(c.Context())
	if err != nil {
		h.logger.Error("Failed to trigger sync of all sources", zap.Error(err))
		return utils.SendError(c, err)
	}

	c.Status(fiber.StatusAccepted)
	return utils.SendSuccess(c, resp, nil)
}

// GetStatus godoc
// @Summary Live sync status
// @Description Returns the current sync state of one source
// @Tags Sync
// @Produce json
// @Param source_id path string true "Source id"
// @Success 200 {object} utils.SuccessResponse{data=domain.SyncStatus}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sync/{source_id}/status [get]
func (h *SyncHandler) GetStatus(c *fiber.Ctx) error {
	status, err := h.syncUC.GetStatus(c.Context(), c.Params("source_id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, status, nil)
}

// GetHistory godoc
// @Summary Sync history
// @Description Returns past sync results of one source, newest first
// @Tags Sync
// @Produce json
// @Param source_id path string true "Source id"
// @Success 200 {object} utils.SuccessResponse{data=[]domain.SyncResult}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sync/{source_id}/history [get]
func (h *SyncHandler) GetHistory(c *fiber.Ctx) error {
	history, err := h.syncUC.GetHistory(c.Context(), c.Params("source_id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, history, &utils.Meta{Total: len(history)})
}

// ListSources godoc
// @Summary List configured sources
// @Description Returns every configured feed source with its live sync status
// @Tags Sync
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]dto.SourceResponse}
// @Router /api/v1/sources [get]
func (h *SyncHandler) ListSources(c *fiber.Ctx) error {
	sources, err := h.syncUC.ListSources(c.Context())
	if err != nil {
		h.logger.Error("Failed to list sources", zap.Error(err))
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, sources, &utils.Meta{Total: len(sources)})
}
