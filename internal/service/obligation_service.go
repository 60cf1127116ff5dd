package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/balance"
	"github.com/hugobelem/depoc/internal/events"
	"github.com/hugobelem/depoc/internal/metrics"
	"github.com/hugobelem/depoc/internal/models"
	"github.com/hugobelem/depoc/internal/recurrence"
	"github.com/hugobelem/depoc/internal/repository"
)

// maxInstallments bounds a single installment plan.
const maxInstallments = 360

type ObligationService struct {
	store  repository.Store
	cache  IdempotencyCache
	events events.Publisher
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewObligationService(store repository.Store, cache IdempotencyCache, publisher events.Publisher, logger *zap.Logger) *ObligationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ObligationService{
		store:  store,
		cache:  cache,
		events: publisher,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
}

// Create validates the request, stores the obligation and, when it recurs,
// the rest of its series. A request replayed with the same idempotency key
// returns the first result without writing anything; one sent while the
// first is still running is refused with a ConflictError.
func (s *ObligationService) Create(ctx context.Context, tenantID, idempotencyKey string, req *models.ObligationRequest) (*models.CreatedObligation, error) {
	if idempotencyKey != "" && s.cache != nil {
		release, ok, err := s.cache.Reserve(ctx, tenantID, idempotencyKey)
		switch {
		case err != nil:
			s.logger.Warn("idempotency reservation failed", zap.String("key", idempotencyKey), zap.Error(err))
		case !ok:
			return nil, &ConflictError{Message: "a request with this idempotency key is already in progress"}
		default:
			defer release()
		}

		cached, err := s.cache.Get(ctx, tenantID, idempotencyKey)
		if err != nil {
			s.logger.Warn("idempotency lookup failed", zap.String("key", idempotencyKey), zap.Error(err))
		}
		if cached != nil {
			s.logger.Info("replaying obligation creation",
				zap.String("business_id", tenantID),
				zap.String("key", idempotencyKey),
				zap.String("obligation_id", cached.Obligation.ID))
			return cached, nil
		}
	}

	o, err := s.build(tenantID, req)
	if err != nil {
		return nil, err
	}
	policy := o.Recurrence

	created := &models.CreatedObligation{Obligation: o}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.CreateObligations(ctx, o); err != nil {
			return err
		}

		if o.IsRecurring() {
			created.Series = recurrence.Expand(o, s.newID)
			if err := tx.CreateObligations(ctx, created.Series...); err != nil {
				return err
			}
			if err := tx.UpdateObligation(ctx, o); err != nil {
				return err
			}
		}

		_, err := s.derive(ctx, tx, o, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create obligation: %w", err)
	}

	metrics.ObligationsCreated(string(o.Direction), string(policy), 1+len(created.Series))
	s.logger.Info("obligation created",
		zap.String("business_id", tenantID),
		zap.String("obligation_id", o.ID),
		zap.String("direction", string(o.Direction)),
		zap.String("recurrence", string(policy)),
		zap.Int("series", len(created.Series)))

	s.publish(ctx, events.Event{
		Type:       events.ObligationCreated,
		BusinessID: tenantID,
		SubjectID:  o.ID,
		Data: map[string]interface{}{
			"direction":    o.Direction,
			"total_amount": models.Money(o.TotalAmount),
			"due_date":     o.DueDate.Format(models.DateLayout),
			"recurrence":   policy,
			"series_size":  1 + len(created.Series),
		},
		OccurredAt: s.now(),
	})

	if idempotencyKey != "" && s.cache != nil {
		if err := s.cache.Put(ctx, tenantID, idempotencyKey, created); err != nil {
			s.logger.Warn("failed to cache obligation", zap.String("key", idempotencyKey), zap.Error(err))
		}
	}
	return created, nil
}

func (s *ObligationService) build(tenantID string, req *models.ObligationRequest) (*models.Obligation, error) {
	if strings.TrimSpace(req.CounterpartyID) == "" {
		return nil, invalid("counterparty_id", "is required")
	}
	if req.Direction != models.DirectionPayable && req.Direction != models.DirectionReceivable {
		return nil, invalid("direction", "must be payable or receivable")
	}

	total, err := parseAmount("total_amount", req.TotalAmount)
	if err != nil {
		return nil, err
	}
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		return nil, err
	}
	now := s.now()
	issued, err := parseOptionalDate("issued_at", req.IssuedAt, recurrence.Truncate(now))
	if err != nil {
		return nil, err
	}

	o := &models.Obligation{
		ID:                 s.newID(),
		TenantID:           tenantID,
		CounterpartyID:     req.CounterpartyID,
		CategoryID:         req.CategoryID,
		IssuedAt:           issued,
		DueDate:            due,
		TotalAmount:        total,
		AmountPaid:         decimal.Zero,
		OutstandingBalance: total,
		Direction:          req.Direction,
		Status:             models.StatusPending,
		Recurrence:         req.Recurrence,
		PaymentMethod:      req.PaymentMethod,
		Reference:          req.Reference,
		Notes:              req.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if o.Recurrence == "" {
		o.Recurrence = models.RecurrenceOnce
	}

	switch o.Recurrence {
	case models.RecurrenceOnce, models.RecurrenceMonthly:
	case models.RecurrenceWeekly:
		if req.Weekday == nil || strings.TrimSpace(*req.Weekday) == "" {
			return nil, invalid("weekday", "is required for weekly recurrence")
		}
		wd, err := parseWeekday(*req.Weekday)
		if err != nil {
			return nil, err
		}
		o.Weekday = &wd
	case models.RecurrenceInstallments:
		if req.Installments < 1 {
			return nil, invalid("installments", "is required for installment recurrence and must be at least 1")
		}
		if req.Installments > maxInstallments {
			return nil, invalid("installments", "must be at most %d", maxInstallments)
		}
		if req.DayOfMonth == nil {
			return nil, invalid("due_day_of_month", "is required for installment recurrence")
		}
		if *req.DayOfMonth < 1 || *req.DayOfMonth > 31 {
			return nil, invalid("due_day_of_month", "must be between 1 and 31")
		}
		day := *req.DayOfMonth
		o.DayOfMonth = &day
		o.Installments = req.Installments
	default:
		return nil, invalid("recurrence", "must be once, weekly, monthly or installments")
	}
	return o, nil
}

func (s *ObligationService) Get(ctx context.Context, tenantID, id string) (*models.Obligation, error) {
	return s.store.GetObligation(ctx, tenantID, id)
}

func (s *ObligationService) List(ctx context.Context, filter models.ObligationFilter) ([]*models.Obligation, error) {
	return s.store.ListObligations(ctx, filter)
}

// Update applies a partial update and re-derives the money fields so that a
// new total is reflected in the outstanding balance straight away.
func (s *ObligationService) Update(ctx context.Context, tenantID, id string, req *models.ObligationUpdateRequest) (*models.Obligation, error) {
	var (
		o      *models.Obligation
		change *events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		if o, err = tx.LockObligation(ctx, tenantID, id); err != nil {
			return err
		}
		if err := applyUpdate(o, req); err != nil {
			return err
		}
		o.UpdatedAt = s.now()

		change, err = s.derive(ctx, tx, o, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("obligation updated", zap.String("business_id", tenantID), zap.String("obligation_id", id))
	if change != nil {
		s.publish(ctx, *change)
	}
	return o, nil
}

func applyUpdate(o *models.Obligation, req *models.ObligationUpdateRequest) error {
	if req.CounterpartyID != nil {
		if strings.TrimSpace(*req.CounterpartyID) == "" {
			return invalid("counterparty_id", "cannot be empty")
		}
		o.CounterpartyID = *req.CounterpartyID
	}
	if req.CategoryID != nil {
		o.CategoryID = *req.CategoryID
	}
	if req.IssuedAt != nil {
		issued, err := parseDate("issued_at", *req.IssuedAt)
		if err != nil {
			return err
		}
		o.IssuedAt = issued
	}
	if req.DueDate != nil {
		due, err := parseDate("due_date", *req.DueDate)
		if err != nil {
			return err
		}
		o.DueDate = due
	}
	if req.TotalAmount != nil {
		total, err := parseAmount("total_amount", *req.TotalAmount)
		if err != nil {
			return err
		}
		o.TotalAmount = total
	}
	if req.PaymentMethod != nil {
		o.PaymentMethod = *req.PaymentMethod
	}
	if req.Reference != nil {
		o.Reference = *req.Reference
	}
	if req.Notes != nil {
		o.Notes = *req.Notes
	}
	return nil
}

// Delete removes an obligation unless ledger entries still settle it.
func (s *ObligationService) Delete(ctx context.Context, tenantID, id string) error {
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		o, err := tx.LockObligation(ctx, tenantID, id)
		if err != nil {
			return err
		}

		n, err := tx.CountObligationEntries(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &ConflictError{Message: fmt.Sprintf("cannot delete %s: it has associated financial transactions", o.Kind())}
		}
		return tx.DeleteObligation(ctx, tenantID, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("obligation deleted", zap.String("business_id", tenantID), zap.String("obligation_id", id))
	return nil
}

// Rederive recomputes amount paid, outstanding balance and status from the
// ledger entries linked to the obligation.
func (s *ObligationService) Rederive(ctx context.Context, tenantID, id string) (*models.Obligation, error) {
	var (
		o      *models.Obligation
		change *events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		o, change, err = s.rederive(ctx, tx, tenantID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if change != nil {
		s.publish(ctx, *change)
	}
	return o, nil
}

// rederive locks the obligation within tx and brings its derived fields in
// line with its entries. The returned event is non-nil when the status moved.
func (s *ObligationService) rederive(ctx context.Context, tx repository.Store, tenantID, id string) (*models.Obligation, *events.Event, error) {
	o, err := tx.LockObligation(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	change, err := s.derive(ctx, tx, o, false)
	if err != nil {
		return nil, nil, err
	}
	return o, change, nil
}

// derive applies the ledger sum to an obligation already held by tx and
// saves it when anything changed or force is set.
func (s *ObligationService) derive(ctx context.Context, tx repository.Store, o *models.Obligation, force bool) (*events.Event, error) {
	sum, err := tx.SumObligationEntries(ctx, o.TenantID, o.ID)
	if err != nil {
		return nil, err
	}

	previous := o.Status
	if !balance.Apply(o, sum) && !force {
		return nil, nil
	}
	o.UpdatedAt = s.now()
	if err := tx.UpdateObligation(ctx, o); err != nil {
		return nil, err
	}

	if previous == o.Status {
		return nil, nil
	}
	return &events.Event{
		Type:       events.ObligationStatusChanged,
		BusinessID: o.TenantID,
		SubjectID:  o.ID,
		Data: map[string]interface{}{
			"from":                previous,
			"to":                  o.Status,
			"amount_paid":         models.Money(o.AmountPaid),
			"outstanding_balance": models.Money(o.OutstandingBalance),
		},
		OccurredAt: o.UpdatedAt,
	}, nil
}

// publish never fails the caller; the write it describes is already committed.
func (s *ObligationService) publish(ctx context.Context, evs ...events.Event) {
	for _, ev := range evs {
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Error("failed to publish event",
				zap.String("type", ev.Type),
				zap.String("subject_id", ev.SubjectID),
				zap.Error(err))
		}
	}
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
