// Package http provides HTTP handlers for querying validation findings.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/workforce-sync/internal/httputil"
	validationDomain "github.com/allisson/workforce-sync/internal/validation/domain"
	"github.com/allisson/workforce-sync/internal/validation/http/dto"
	validationUseCase "github.com/allisson/workforce-sync/internal/validation/usecase"
)

// FindingHandler handles HTTP requests for validation findings.
type FindingHandler struct {
	validationUseCase validationUseCase.ValidationUseCase
	logger            *slog.Logger
}

// NewFindingHandler creates a new finding handler.
func NewFindingHandler(
	validationUseCase validationUseCase.ValidationUseCase,
	logger *slog.Logger,
) *FindingHandler {
	return &FindingHandler{
		validationUseCase: validationUseCase,
		logger:            logger,
	}
}

// ListHandler lists findings, newest first.
// GET /v1/findings?event_id=&severity=&since=&offset=&limit=
func (h *FindingHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	filter := validationDomain.Filter{EventID: c.Query("event_id")}

	if raw := c.Query("severity"); raw != "" {
		severity, ok := validationDomain.ParseSeverity(raw)
		if !ok {
			httputil.HandleBadRequestGin(c,
				fmt.Errorf("invalid severity parameter: must be ERROR or WARNING"),
				h.logger)
			return
		}
		filter.Severity = severity
	}

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.HandleBadRequestGin(c,
				fmt.Errorf("invalid since parameter: must be an RFC 3339 timestamp"),
				h.logger)
			return
		}
		filter.Since = &since
	}

	findings, err := h.validationUseCase.List(c.Request.Context(), filter, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapFindingsToListResponse(findings))
}

// StatsHandler returns the number of findings per rule.
// GET /v1/findings/stats
func (h *FindingHandler) StatsHandler(c *gin.Context) {
	counts, err := h.validationUseCase.Stats(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRuleCountsToStatsResponse(counts))
}
