package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"x2beta/internal/approval"
	"x2beta/internal/domain"
	"x2beta/internal/middleware"
	"x2beta/internal/port"
)

// ApprovalHandler serves the approval console endpoints.
type ApprovalHandler struct {
	engine    *approval.Engine
	approvals port.ApprovalRepository
}

// NewApprovalHandler creates a new ApprovalHandler.
func NewApprovalHandler(engine *approval.Engine, approvals port.ApprovalRepository) *ApprovalHandler {
	return &ApprovalHandler{engine: engine, approvals: approvals}
}

// decideRequest is the request body for POST /approvals/:id/decide.
type decideRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// List handles GET /api/v1/approvals?status=
func (h *ApprovalHandler) List(c *gin.Context) {
	status := domain.ApprovalStatus(c.DefaultQuery("status", string(domain.ApprovalStatusPending)))
	switch status {
	case domain.ApprovalStatusPending, domain.ApprovalStatusApproved, domain.ApprovalStatusRejected:
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_STATUS", "status must be pending, approved, or rejected")
		return
	}

	requests, err := h.approvals.ListByStatus(c.Request.Context(), status)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, requests)
}

// Decide handles POST /api/v1/approvals/:id/decide
func (h *ApprovalHandler) Decide(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "approval id must be a UUID")
		return
	}

	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body must include status")
		return
	}

	status := domain.ApprovalStatus(req.Status)
	if status != domain.ApprovalStatusApproved && status != domain.ApprovalStatusRejected {
		RespondError(c, http.StatusBadRequest, "INVALID_STATUS", "status must be approved or rejected")
		return
	}

	approver := middleware.GetApprover(c)
	decided, err := h.engine.Decide(c.Request.Context(), id, status, approver, req.Notes)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, decided)
}
