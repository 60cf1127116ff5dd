package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/models"
	"github.com/hugobelem/depoc/internal/service"
	"github.com/hugobelem/depoc/pkg/middleware"
)

type LedgerHandler struct {
	service *service.LedgerService
	logger  *zap.Logger
}

func NewLedgerHandler(service *service.LedgerService, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: service,
		logger:  logger,
	}
}

func entryResponses(entries []*models.LedgerEntry) []models.EntryResponse {
	resp := make([]models.EntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, models.NewEntryResponse(e))
	}
	return resp
}

func (h *LedgerHandler) CreateEntry(c *gin.Context) {
	var req models.EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.service.Post(c.Request.Context(), middleware.TenantID(c), &req)
	if err != nil {
		respondError(c, h.logger, err, "create ledger entry")
		return
	}

	c.JSON(http.StatusCreated, models.NewEntryResponse(entry))
}

func (h *LedgerHandler) GetEntry(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "get ledger entry")
		return
	}

	c.JSON(http.StatusOK, models.NewEntryResponse(entry))
}

func (h *LedgerHandler) ListEntries(c *gin.Context) {
	filter := models.EntryFilter{
		TenantID:     middleware.TenantID(c),
		AccountID:    c.Query("account_id"),
		ObligationID: c.Query("obligation_id"),
		Type:         models.EntryType(c.Query("type")),
	}

	entries, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err, "list ledger entries")
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entryResponses(entries)})
}

func (h *LedgerHandler) UpdateEntry(c *gin.Context) {
	var req models.EntryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.service.Update(c.Request.Context(), middleware.TenantID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err, "update ledger entry")
		return
	}

	c.JSON(http.StatusOK, models.NewEntryResponse(entry))
}

func (h *LedgerHandler) DeleteEntry(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.TenantID(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "delete ledger entry")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *LedgerHandler) CreateTransfer(c *gin.Context) {
	var req models.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	transfer, err := h.service.Transfer(c.Request.Context(), middleware.TenantID(c), &req)
	if err != nil {
		respondError(c, h.logger, err, "create transfer")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"source":      models.NewEntryResponse(transfer.Source),
		"destination": models.NewEntryResponse(transfer.Destination),
	})
}
