// Package http provides HTTP handlers for reconciled person records.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/workforce-sync/internal/httputil"
	personDomain "github.com/allisson/workforce-sync/internal/person/domain"
	"github.com/allisson/workforce-sync/internal/person/http/dto"
	personUseCase "github.com/allisson/workforce-sync/internal/person/usecase"
)

// PersonHandler handles HTTP requests for person records.
type PersonHandler struct {
	reconcileUseCase personUseCase.ReconcileUseCase
	logger           *slog.Logger
}

// NewPersonHandler creates a new person handler.
func NewPersonHandler(reconcileUseCase personUseCase.ReconcileUseCase, logger *slog.Logger) *PersonHandler {
	return &PersonHandler{
		reconcileUseCase: reconcileUseCase,
		logger:           logger,
	}
}

// HistoryHandler returns every version written for a person.
// GET /v1/people/:source_id/history
func (h *PersonHandler) HistoryHandler(c *gin.Context) {
	entries, err := h.reconcileUseCase.History(c.Request.Context(), c.Param("source_id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	// Every write appends a version, so no entries means no person.
	if len(entries) == 0 {
		httputil.HandleErrorGin(c, personDomain.ErrPersonNotFound, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapHistoryToListResponse(entries))
}
