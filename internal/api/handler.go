package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guttosm/nsepulse/internal/domain/dto"
	"github.com/guttosm/nsepulse/internal/service"
)

// Handler provides HTTP handlers for the screening run history.
//
// Responsibilities:
//   - Validate path parameters
//   - Delegate lookups to the run service
//   - Translate stored runs into response DTOs
type Handler struct {
	svc service.RunService
}

// NewHandler constructs a new Handler instance.
func NewHandler(svc service.RunService) *Handler {
	return &Handler{svc: svc}
}

// GetLatestRun handles GET /api/v1/runs/latest.
//
// Responses:
//   - 200 OK: RunResponse of the most recent run.
//   - 404 Not Found: No run recorded yet.
//   - 500 Internal Server Error: Failure in the storage layer.
func (h *Handler) GetLatestRun(c *gin.Context) {
	run, err := h.svc.LatestRun(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch latest run", err))
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("no runs recorded", nil))
		return
	}
	c.JSON(http.StatusOK, dto.NewRunResponse(run.Summary, run.Results))
}

// GetRun handles GET /api/v1/runs/:id.
//
// Responses:
//   - 200 OK: RunResponse of the requested run.
//   - 400 Bad Request: id is not a UUID.
//   - 404 Not Found: Unknown run.
//   - 500 Internal Server Error: Failure in the storage layer.
func (h *Handler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid run id", err))
		return
	}

	run, err := h.svc.RunByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch run", err))
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("run not found", nil))
		return
	}
	c.JSON(http.StatusOK, dto.NewRunResponse(run.Summary, run.Results))
}
