// Package http provides HTTP handlers for inspecting and reprocessing dead letters.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
	"github.com/allisson/workforce-sync/internal/deadletter/http/dto"
	deadLetterUseCase "github.com/allisson/workforce-sync/internal/deadletter/usecase"
	"github.com/allisson/workforce-sync/internal/httputil"
	customValidation "github.com/allisson/workforce-sync/internal/validation"
)

// DeadLetterHandler handles HTTP requests for dead letters.
type DeadLetterHandler struct {
	deadLetterUseCase deadLetterUseCase.DeadLetterUseCase
	logger            *slog.Logger
}

// NewDeadLetterHandler creates a new dead letter handler.
func NewDeadLetterHandler(
	deadLetterUseCase deadLetterUseCase.DeadLetterUseCase,
	logger *slog.Logger,
) *DeadLetterHandler {
	return &DeadLetterHandler{
		deadLetterUseCase: deadLetterUseCase,
		logger:            logger,
	}
}

// ListHandler lists dead letters, newest first.
// GET /v1/dead-letters?status=&event_id=&offset=&limit=
func (h *DeadLetterHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	filter := deadLetterDomain.Filter{
		Status:  deadLetterDomain.Status(c.Query("status")),
		EventID: c.Query("event_id"),
	}

	deadLetters, err := h.deadLetterUseCase.List(c.Request.Context(), filter, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDeadLettersToListResponse(deadLetters))
}

// GetHandler retrieves a dead letter by ID.
// GET /v1/dead-letters/:id
func (h *DeadLetterHandler) GetHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	dl, err := h.deadLetterUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDeadLetterToResponse(dl))
}

// ReprocessHandler replays a dead letter, optionally with an edited payload.
// POST /v1/dead-letters/:id/reprocess
// Returns 200 OK with the updated dead letter, or the mapped error when the
// replay failed. A failed replay still spends one retry.
func (h *DeadLetterHandler) ReprocessHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.ReprocessRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	dl, err := h.deadLetterUseCase.Reprocess(c.Request.Context(), id, req.Payload)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDeadLetterToResponse(dl))
}

func (h *DeadLetterHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c,
			fmt.Errorf("invalid dead letter ID format: must be a valid UUID"),
			h.logger)
		return uuid.Nil, false
	}
	return id, true
}
