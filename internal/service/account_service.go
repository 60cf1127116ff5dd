package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/models"
	"github.com/hugobelem/depoc/internal/repository"
)

type AccountService struct {
	store  repository.Store
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewAccountService(store repository.Store, logger *zap.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
}

func (s *AccountService) Create(ctx context.Context, tenantID string, req *models.AccountRequest) (*models.Account, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}

	kind := req.Kind
	switch kind {
	case "":
		kind = models.AccountKindOther
	case models.AccountKindCash, models.AccountKindBank, models.AccountKindCard, models.AccountKindOther:
	default:
		return nil, invalid("kind", "must be cash, bank, card or other")
	}

	now := s.now()
	account := &models.Account{
		ID:        s.newID(),
		TenantID:  tenantID,
		Name:      name,
		Kind:      kind,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account created",
		zap.String("business_id", tenantID),
		zap.String("account_id", account.ID),
		zap.String("kind", string(kind)))
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, tenantID, id string) (*models.Account, error) {
	return s.store.GetAccount(ctx, tenantID, id)
}

func (s *AccountService) List(ctx context.Context, tenantID string) ([]*models.Account, error) {
	return s.store.ListAccounts(ctx, tenantID)
}

// Reconcile compares the stored balance of an account with the sum of the
// entries posted to it.
func (s *AccountService) Reconcile(ctx context.Context, tenantID, id string) (*models.AccountReconciliation, error) {
	account, err := s.store.GetAccount(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListEntries(ctx, models.EntryFilter{TenantID: tenantID, AccountID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}

	report := &models.AccountReconciliation{
		AccountID:     id,
		StoredBalance: account.Balance,
		LedgerBalance: decimal.Zero,
		TotalCredits:  decimal.Zero,
		TotalDebits:   decimal.Zero,
		EntryCount:    len(entries),
		CheckedAt:     s.now(),
	}
	for _, e := range entries {
		report.LedgerBalance = report.LedgerBalance.Add(e.Amount)
		if e.Amount.IsNegative() {
			report.TotalDebits = report.TotalDebits.Add(e.Amount.Abs())
		} else {
			report.TotalCredits = report.TotalCredits.Add(e.Amount)
		}
	}
	report.Difference = report.StoredBalance.Sub(report.LedgerBalance)
	report.IsBalanced = report.Difference.IsZero()

	if report.IsBalanced {
		s.logger.Info("reconciliation complete - BALANCED",
			zap.String("account_id", id),
			zap.Int("entries", report.EntryCount),
			zap.String("balance", models.Money(report.StoredBalance)))
	} else {
		s.logger.Warn("reconciliation complete - UNBALANCED",
			zap.String("account_id", id),
			zap.String("stored_balance", models.Money(report.StoredBalance)),
			zap.String("ledger_balance", models.Money(report.LedgerBalance)),
			zap.String("difference", models.Money(report.Difference)))
	}
	return report, nil
}
