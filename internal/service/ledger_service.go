package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/events"
	"github.com/hugobelem/depoc/internal/metrics"
	"github.com/hugobelem/depoc/internal/models"
	"github.com/hugobelem/depoc/internal/repository"
)

// LedgerService posts entries against accounts. Every write moves the
// account balance and re-derives the settled obligation in the same
// transaction.
type LedgerService struct {
	store       repository.Store
	obligations *ObligationService
	events      events.Publisher
	logger      *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewLedgerService(store repository.Store, obligations *ObligationService, publisher events.Publisher, logger *zap.Logger) *LedgerService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &LedgerService{
		store:       store,
		obligations: obligations,
		events:      publisher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.New().String() },
	}
}

// signed gives amount the sign of the entry type: credits add, debits subtract.
func signed(t models.EntryType, amount decimal.Decimal) decimal.Decimal {
	if t == models.EntryTypeDebit {
		return amount.Neg()
	}
	return amount
}

// Post records a credit or debit.
func (s *LedgerService) Post(ctx context.Context, tenantID string, req *models.EntryRequest) (*models.LedgerEntry, error) {
	if req.Type != models.EntryTypeCredit && req.Type != models.EntryTypeDebit {
		return nil, invalid("type", "must be credit or debit")
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	now := s.now()
	occurred, err := parseTimestamp("occurred_at", req.OccurredAt, now)
	if err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		ID:          s.newID(),
		TenantID:    tenantID,
		AccountID:   req.AccountID,
		Type:        req.Type,
		Amount:      signed(req.Type, amount),
		Description: req.Description,
		OccurredAt:  occurred,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.ObligationID != "" {
		id := req.ObligationID
		entry.ObligationID = &id
	}

	var change *events.Event
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.LockAccount(ctx, tenantID, entry.AccountID); err != nil {
			return reference("account_id", err)
		}
		if entry.ObligationID != nil {
			if _, err := tx.LockObligation(ctx, tenantID, *entry.ObligationID); err != nil {
				return reference("obligation_id", err)
			}
		}

		if err := tx.CreateEntry(ctx, entry); err != nil {
			return err
		}
		if err := tx.AdjustAccountBalance(ctx, tenantID, entry.AccountID, entry.Amount, now); err != nil {
			return err
		}

		var err error
		change, err = s.settle(ctx, tx, entry.TenantID, entry.ObligationID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.EntryPosted(string(entry.Type))
	s.logger.Info("ledger entry posted",
		zap.String("business_id", tenantID),
		zap.String("entry_id", entry.ID),
		zap.String("account_id", entry.AccountID),
		zap.String("type", string(entry.Type)),
		zap.String("amount", models.Money(entry.Amount)))
	s.publish(ctx, change)

	return entry, nil
}

// Update changes the amount, description or date of a credit or debit. The
// account moves by the difference between the new and old amounts.
func (s *LedgerService) Update(ctx context.Context, tenantID, id string, req *models.EntryUpdateRequest) (*models.LedgerEntry, error) {
	var (
		entry  *models.LedgerEntry
		change *events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		if entry, err = tx.GetEntry(ctx, tenantID, id); err != nil {
			return err
		}
		if entry.Type == models.EntryTypeTransfer {
			return &ConflictError{Message: "transfer entries cannot be edited; delete the transfer and create it again"}
		}
		if _, err := tx.LockAccount(ctx, tenantID, entry.AccountID); err != nil {
			return err
		}
		if entry.ObligationID != nil {
			if _, err := tx.LockObligation(ctx, tenantID, *entry.ObligationID); err != nil {
				return err
			}
		}

		now := s.now()
		delta := decimal.Zero
		if req.Amount != nil {
			amount, err := parseAmount("amount", *req.Amount)
			if err != nil {
				return err
			}
			next := signed(entry.Type, amount)
			delta = next.Sub(entry.Amount)
			entry.Amount = next
		}
		if req.Description != nil {
			entry.Description = *req.Description
		}
		if req.OccurredAt != nil {
			occurred, err := parseTimestamp("occurred_at", *req.OccurredAt, entry.OccurredAt)
			if err != nil {
				return err
			}
			entry.OccurredAt = occurred
		}
		entry.UpdatedAt = now

		if err := tx.UpdateEntry(ctx, entry); err != nil {
			return err
		}
		if !delta.IsZero() {
			if err := tx.AdjustAccountBalance(ctx, tenantID, entry.AccountID, delta, now); err != nil {
				return err
			}
		}

		change, err = s.settle(ctx, tx, tenantID, entry.ObligationID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ledger entry updated", zap.String("business_id", tenantID), zap.String("entry_id", id))
	s.publish(ctx, change)
	return entry, nil
}

// Delete removes an entry and reverses its effect on the account. Deleting
// either side of a transfer removes both sides.
func (s *LedgerService) Delete(ctx context.Context, tenantID, id string) error {
	var changes []*events.Event
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		entry, err := tx.GetEntry(ctx, tenantID, id)
		if err != nil {
			return err
		}

		doomed := []*models.LedgerEntry{entry}
		if entry.Type == models.EntryTypeTransfer && entry.LinkedID != nil {
			linked, err := tx.GetEntry(ctx, tenantID, *entry.LinkedID)
			switch {
			case err == nil:
				doomed = append(doomed, linked)
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}
		}

		accounts := make([]string, 0, len(doomed))
		for _, e := range doomed {
			accounts = append(accounts, e.AccountID)
		}
		if err := lockAccounts(ctx, tx, tenantID, accounts...); err != nil {
			return err
		}

		now := s.now()
		for _, e := range doomed {
			if err := tx.DeleteEntry(ctx, tenantID, e.ID); err != nil {
				return err
			}
			if err := tx.AdjustAccountBalance(ctx, tenantID, e.AccountID, e.Amount.Neg(), now); err != nil {
				return err
			}
		}

		for _, e := range doomed {
			change, err := s.settle(ctx, tx, tenantID, e.ObligationID)
			if err != nil {
				return err
			}
			changes = append(changes, change)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("ledger entry deleted", zap.String("business_id", tenantID), zap.String("entry_id", id))
	s.publish(ctx, changes...)
	return nil
}

func (s *LedgerService) Get(ctx context.Context, tenantID, id string) (*models.LedgerEntry, error) {
	return s.store.GetEntry(ctx, tenantID, id)
}

func (s *LedgerService) List(ctx context.Context, filter models.EntryFilter) ([]*models.LedgerEntry, error) {
	return s.store.ListEntries(ctx, filter)
}

// Transfer moves money between two accounts of the business as a linked pair
// of entries: the source is debited and the destination credited, both in one
// transaction.
func (s *LedgerService) Transfer(ctx context.Context, tenantID string, req *models.TransferRequest) (*models.Transfer, error) {
	if req.FromAccountID == req.ToAccountID {
		return nil, invalid("to_account_id", "must differ from from_account_id")
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	now := s.now()
	occurred, err := parseTimestamp("occurred_at", req.OccurredAt, now)
	if err != nil {
		return nil, err
	}

	sourceID, destinationID := s.newID(), s.newID()
	transfer := &models.Transfer{
		Source: &models.LedgerEntry{
			ID:          sourceID,
			TenantID:    tenantID,
			AccountID:   req.FromAccountID,
			Type:        models.EntryTypeTransfer,
			Amount:      amount.Neg(),
			LinkedID:    &destinationID,
			Description: req.Description,
			OccurredAt:  occurred,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Destination: &models.LedgerEntry{
			ID:          destinationID,
			TenantID:    tenantID,
			AccountID:   req.ToAccountID,
			Type:        models.EntryTypeTransfer,
			Amount:      amount,
			LinkedID:    &sourceID,
			Description: req.Description,
			OccurredAt:  occurred,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := lockAccounts(ctx, tx, tenantID, req.FromAccountID, req.ToAccountID); err != nil {
			return err
		}
		for _, e := range []*models.LedgerEntry{transfer.Source, transfer.Destination} {
			if err := tx.CreateEntry(ctx, e); err != nil {
				return err
			}
			if err := tx.AdjustAccountBalance(ctx, tenantID, e.AccountID, e.Amount, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.EntryPosted(string(models.EntryTypeTransfer))
	metrics.EntryPosted(string(models.EntryTypeTransfer))
	s.logger.Info("transfer settled",
		zap.String("business_id", tenantID),
		zap.String("from_account_id", req.FromAccountID),
		zap.String("to_account_id", req.ToAccountID),
		zap.String("amount", models.Money(amount)))

	s.publish(ctx, &events.Event{
		Type:       events.TransferSettled,
		BusinessID: tenantID,
		SubjectID:  sourceID,
		Data: map[string]interface{}{
			"from_account_id":      req.FromAccountID,
			"to_account_id":        req.ToAccountID,
			"amount":               models.Money(amount),
			"destination_entry_id": destinationID,
		},
		OccurredAt: now,
	})
	return transfer, nil
}

// lockAccounts locks accounts in ID order so that concurrent transfers
// between the same pair cannot deadlock.
func lockAccounts(ctx context.Context, tx repository.Store, tenantID string, ids ...string) error {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	var last string
	for i, id := range sorted {
		if i > 0 && id == last {
			continue
		}
		last = id
		if _, err := tx.LockAccount(ctx, tenantID, id); err != nil {
			return reference("account_id", err)
		}
	}
	return nil
}

// settle re-derives the obligation an entry points at, if any.
func (s *LedgerService) settle(ctx context.Context, tx repository.Store, tenantID string, obligationID *string) (*events.Event, error) {
	if obligationID == nil {
		return nil, nil
	}
	_, change, err := s.obligations.rederive(ctx, tx, tenantID, *obligationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return change, err
}

// reference turns a missing referenced record into a validation error.
func reference(field string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return invalid(field, "does not exist")
	}
	return err
}

func (s *LedgerService) publish(ctx context.Context, evs ...*events.Event) {
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		if err := s.events.Publish(ctx, *ev); err != nil {
			s.logger.Error("failed to publish event",
				zap.String("type", ev.Type),
				zap.String("subject_id", ev.SubjectID),
				zap.Error(err))
		}
	}
}
