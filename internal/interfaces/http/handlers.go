package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/erp-requisitions/internal/application/workflow"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps   Dependencies
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, logger *zap.Logger) *Handlers {
	return &Handlers{
		deps:   deps,
		logger: logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// ListRequisitionsRequest represents query parameters for listing requisitions
type ListRequisitionsRequest struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// TransitionRequest moves a requisition along the chain
type TransitionRequest struct {
	TargetStatus   string `json:"target_status" binding:"required"`
	WarehouseID    string `json:"warehouse_id"`
	ExpectedStatus string `json:"expected_status"`
}

// TransferTransitionRequest moves an asset transfer
type TransferTransitionRequest struct {
	TargetStatus   string `json:"target_status" binding:"required"`
	ExpectedStatus string `json:"expected_status"`
}

// PendingCountsResponse holds badge counts keyed by status
type PendingCountsResponse struct {
	Counts map[entity.RequisitionStatus]int `json:"counts"`
	Total  int                              `json:"total"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy, details := true, interface{}(nil)
	if h.deps.Health != nil {
		healthy, details = h.deps.Health(c.Request.Context())
	}

	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: details,
	}
	status := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, Response{
		Success: healthy,
		Data:    response,
	})
}

// CreateRequisition handles POST /api/requisitions
func (h *Handlers) CreateRequisition(c *gin.Context) {
	var req workflow.CreateRequisitionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	created, err := h.deps.Requisitions.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    created,
	})
}

// ListRequisitions handles GET /api/requisitions
func (h *Handlers) ListRequisitions(c *gin.Context) {
	var req ListRequisitionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	list, err := h.deps.Requisitions.List(c.Request.Context(), actorFrom(c), workflow.ListQuery{
		Status: entity.RequisitionStatus(req.Status),
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    nonNil(list),
	})
}

// ListPending handles GET /api/requisitions/pending
func (h *Handlers) ListPending(c *gin.Context) {
	list, err := h.deps.Requisitions.ListPendingForActor(c.Request.Context(), actorFrom(c))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    nonNil(list),
	})
}

// PendingCounts handles GET /api/requisitions/pending/counts
func (h *Handlers) PendingCounts(c *gin.Context) {
	counts, err := h.deps.Badges.PendingCounts(c.Request.Context(), actorFrom(c).OrganizationID)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    PendingCountsResponse{Counts: counts, Total: total},
	})
}

// ExportRequisitions handles GET /api/requisitions/export
func (h *Handlers) ExportRequisitions(c *gin.Context) {
	status := entity.RequisitionStatus(c.Query("status"))

	// Render fully before writing so failures still get a JSON error
	var buf bytes.Buffer
	rows, err := h.deps.Export.ExportRequisitions(c.Request.Context(), actorFrom(c), status, &buf)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("requisitions_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Export-Rows", fmt.Sprintf("%d", rows))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetRequisition handles GET /api/requisitions/:id
func (h *Handlers) GetRequisition(c *gin.Context) {
	req, err := h.deps.Requisitions.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    req,
	})
}

// RequisitionHistory handles GET /api/requisitions/:id/history
func (h *Handlers) RequisitionHistory(c *gin.Context) {
	records, err := h.deps.Requisitions.History(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    nonNil(records),
	})
}

// TransitionRequisition handles POST /api/requisitions/:id/transition
func (h *Handlers) TransitionRequisition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "target_status is required")
		return
	}

	updated, err := h.deps.Requisitions.Transition(c.Request.Context(), actorFrom(c), workflow.TransitionInput{
		RequisitionID:  c.Param("id"),
		Target:         entity.RequisitionStatus(req.TargetStatus),
		WarehouseID:    req.WarehouseID,
		ExpectedStatus: entity.RequisitionStatus(req.ExpectedStatus),
	})
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    updated,
	})
}

// CreateTransfer handles POST /api/transfers
func (h *Handlers) CreateTransfer(c *gin.Context) {
	var req workflow.CreateTransferInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	created, err := h.deps.Transfers.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    created,
	})
}

// GetTransfer handles GET /api/transfers/:id
func (h *Handlers) GetTransfer(c *gin.Context) {
	transfer, err := h.deps.Transfers.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    transfer,
	})
}

// TransitionTransfer handles POST /api/transfers/:id/transition
func (h *Handlers) TransitionTransfer(c *gin.Context) {
	var req TransferTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "target_status is required")
		return
	}

	updated, err := h.deps.Transfers.Transition(c.Request.Context(), actorFrom(c), workflow.TransferTransitionInput{
		TransferID:     c.Param("id"),
		Target:         entity.TransferStatus(req.TargetStatus),
		ExpectedStatus: entity.TransferStatus(req.ExpectedStatus),
	})
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    updated,
	})
}

// nonNil keeps empty lists as [] in JSON
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
