package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/models"
	"github.com/hugobelem/depoc/internal/service"
	"github.com/hugobelem/depoc/pkg/middleware"
)

type AccountHandler struct {
	service *service.AccountService
	logger  *zap.Logger
}

func NewAccountHandler(service *service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		service: service,
		logger:  logger,
	}
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req models.AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	account, err := h.service.Create(c.Request.Context(), middleware.TenantID(c), &req)
	if err != nil {
		respondError(c, h.logger, err, "create account")
		return
	}

	c.JSON(http.StatusCreated, models.NewAccountResponse(account))
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, err := h.service.Get(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "get account")
		return
	}

	c.JSON(http.StatusOK, models.NewAccountResponse(account))
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.service.List(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondError(c, h.logger, err, "list accounts")
		return
	}

	resp := make([]models.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, models.NewAccountResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"accounts": resp})
}

func (h *AccountHandler) Reconcile(c *gin.Context) {
	report, err := h.service.Reconcile(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "reconcile account")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account_id":     report.AccountID,
		"stored_balance": models.Money(report.StoredBalance),
		"ledger_balance": models.Money(report.LedgerBalance),
		"difference":     models.Money(report.Difference),
		"total_credits":  models.Money(report.TotalCredits),
		"total_debits":   models.Money(report.TotalDebits),
		"entry_count":    report.EntryCount,
		"is_balanced":    report.IsBalanced,
		"checked_at":     report.CheckedAt,
	})
}
