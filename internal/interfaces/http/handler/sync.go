package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/application/pipeline"
	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/domain/storefront"
	"github.com/storesync/backend/internal/interfaces/http/dto"
)

// SyncHandler exposes the sync pipeline: change batch intake, full resync,
// reconciliation read-through and dead-letter operations
type SyncHandler struct {
	BaseHandler
	syncService  *pipeline.SyncService
	orchestrator *pipeline.Orchestrator
	idempotency  shared.IdempotencyConfig
	logger       *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(
	syncService *pipeline.SyncService,
	orchestrator *pipeline.Orchestrator,
	logger *zap.Logger,
) *SyncHandler {
	return &SyncHandler{
		syncService:  syncService,
		orchestrator: orchestrator,
		idempotency:  shared.DefaultIdempotencyConfig(),
		logger:       logger,
	}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/batches", h.SubmitBatch)
		sync.POST("/resync", h.Resync)
		sync.POST("/reconcile", h.ReconcileStatus)
		sync.GET("/dead-letter", h.ListDeadLetter)
		sync.POST("/dead-letter/:id/requeue", h.RequeueDeadLetter)
		sync.GET("/queue/stats", h.QueueStats)
	}
}

// SubmitBatch accepts one raw change batch, commits it to the local mirror
// and enqueues the lane tasks. The local commit is synchronous; storefront
// dispatch happens asynchronously on the worker lanes.
func (h *SyncHandler) SubmitBatch(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	var req dto.SubmitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	records := make([]pipeline.ChangeRecord, 0, len(req.Records))
	for _, raw := range req.Records {
		records = append(records, pipeline.Canonicalize(raw))
	}

	result, duplicate, err := h.syncService.SubmitOnce(c.Request.Context(), tenantID, req.BatchKey, records, h.idempotency)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if duplicate {
		// Already-processed batch keys report the same outcome as a no-op
		h.Accepted(c, &pipeline.IntakeResult{})
		return
	}

	h.Accepted(c, result)
}

// Resync enqueues every item of the tenant's local mirror for dispatch again
func (h *SyncHandler) Resync(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	enqueued, err := h.syncService.Resync(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, dto.ResyncResponse{TasksEnqueued: enqueued})
}

// ReconcileStatus reports the remote storefront state for a set of ERP item ids
func (h *SyncHandler) ReconcileStatus(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	var req dto.ReconcileStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	existing, err := h.syncService.ReconcileStatus(c.Request.Context(), tenantID, req.ErpItemIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ReconcileStatusResponseFromDomain(req.ErpItemIDs, existing))
}

// ListDeadLetter returns dead-letter tasks with pagination
func (h *SyncHandler) ListDeadLetter(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	tasks, total, err := h.orchestrator.ListDead(c.Request.Context(), tenantID, req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.SyncTaskListResponse(tasks), total, req.Page, req.PageSize)
}

// RequeueDeadLetter resets a dead-letter task for reprocessing
func (h *SyncHandler) RequeueDeadLetter(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid task ID")
		return
	}
	taskID, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.orchestrator.RequeueDead(c.Request.Context(), tenantID, taskID)
	if err != nil {
		if errors.Is(err, storefront.ErrTaskNotDead) {
			h.Error(c, http.StatusConflict, dto.ErrCodeConflict, "Task is not in the dead letter")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.logger.Info("dead-letter task requeued via API",
		zap.String("task_id", taskID.String()),
		zap.String("tenant_id", tenantID.String()))
	h.Success(c, dto.SyncTaskResponseFromDomain(task))
}

// QueueStats returns task counts by status across all lanes
func (h *SyncHandler) QueueStats(c *gin.Context) {
	counts, err := h.orchestrator.QueueStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.QueueStatsResponseFromDomain(counts))
}
