package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/models"
	"github.com/hugobelem/depoc/internal/service"
	"github.com/hugobelem/depoc/pkg/middleware"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type ObligationHandler struct {
	service *service.ObligationService
	ledger  *service.LedgerService
	logger  *zap.Logger
}

func NewObligationHandler(service *service.ObligationService, ledger *service.LedgerService, logger *zap.Logger) *ObligationHandler {
	return &ObligationHandler{
		service: service,
		ledger:  ledger,
		logger:  logger,
	}
}

// CreateObligation handles POST /api/v1/obligations
func (h *ObligationHandler) CreateObligation(c *gin.Context) {
	var req models.ObligationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	created, err := h.service.Create(c.Request.Context(), middleware.TenantID(c), key, &req)
	if err != nil {
		respondError(c, h.logger, err, "create obligation")
		return
	}

	c.JSON(http.StatusCreated, models.NewCreatedObligationResponse(created))
}

// GetObligation handles GET /api/v1/obligations/:id
func (h *ObligationHandler) GetObligation(c *gin.Context) {
	o, err := h.service.Get(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "get obligation")
		return
	}

	c.JSON(http.StatusOK, models.NewObligationResponse(o))
}

// ListObligations handles GET /api/v1/obligations
func (h *ObligationHandler) ListObligations(c *gin.Context) {
	filter, err := obligationFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	obligations, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err, "list obligations")
		return
	}

	resp := make([]models.ObligationResponse, 0, len(obligations))
	for _, o := range obligations {
		resp = append(resp, models.NewObligationResponse(o))
	}
	c.JSON(http.StatusOK, gin.H{"obligations": resp})
}

func obligationFilter(c *gin.Context) (models.ObligationFilter, error) {
	filter := models.ObligationFilter{
		TenantID:       middleware.TenantID(c),
		Direction:      models.Direction(c.Query("direction")),
		CounterpartyID: c.Query("counterparty_id"),
		SeriesID:       c.Query("series_id"),
	}

	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, models.ObligationStatus(s))
			}
		}
	}

	for param, dst := range map[string]**time.Time{
		"due_from": &filter.DueFrom,
		"due_to":   &filter.DueTo,
	} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return filter, fmt.Errorf("%s must be a date in YYYY-MM-DD format", param)
		}
		*dst = &t
	}
	return filter, nil
}

// UpdateObligation handles PATCH /api/v1/obligations/:id
func (h *ObligationHandler) UpdateObligation(c *gin.Context) {
	var req models.ObligationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	o, err := h.service.Update(c.Request.Context(), middleware.TenantID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err, "update obligation")
		return
	}

	c.JSON(http.StatusOK, models.NewObligationResponse(o))
}

// DeleteObligation handles DELETE /api/v1/obligations/:id
func (h *ObligationHandler) DeleteObligation(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.TenantID(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "delete obligation")
		return
	}

	c.Status(http.StatusNoContent)
}

// RederiveObligation handles POST /api/v1/obligations/:id/rederive
func (h *ObligationHandler) RederiveObligation(c *gin.Context) {
	o, err := h.service.Rederive(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "rederive obligation")
		return
	}

	c.JSON(http.StatusOK, models.NewObligationResponse(o))
}

// ListObligationEntries handles GET /api/v1/obligations/:id/entries
func (h *ObligationHandler) ListObligationEntries(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := middleware.TenantID(c)

	o, err := h.service.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "get obligation")
		return
	}

	entries, err := h.ledger.List(ctx, models.EntryFilter{TenantID: tenantID, ObligationID: o.ID})
	if err != nil {
		respondError(c, h.logger, err, "list entries")
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entryResponses(entries)})
}
