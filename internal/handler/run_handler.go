package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"x2beta/internal/port"
)

// RunHandler serves run status and exception listing endpoints.
type RunHandler struct {
	runs       port.RunRepository
	exceptions port.ExceptionRepository
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(runs port.RunRepository, exceptions port.ExceptionRepository) *RunHandler {
	return &RunHandler{runs: runs, exceptions: exceptions}
}

// GetByID handles GET /api/v1/runs/:id
func (h *RunHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "run id must be a UUID")
		return
	}

	run, err := h.runs.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, run)
}

// ListExceptions handles GET /api/v1/runs/:id/exceptions
func (h *RunHandler) ListExceptions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "run id must be a UUID")
		return
	}

	if _, err := h.runs.GetByID(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}

	exceptions, err := h.exceptions.ListByRun(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, exceptions)
}
