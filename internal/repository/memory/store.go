// Package memory is an in-process implementation of repository.Store used by
// tests and by single-node deployments that run without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hugobelem/depoc/internal/models"
	"github.com/hugobelem/depoc/internal/repository"
)

type state struct {
	txMu sync.Mutex // held for a whole transaction or a single write outside one
	mu   sync.RWMutex

	obligations map[string]*models.Obligation
	entries     map[string]*models.LedgerEntry
	accounts    map[string]*models.Account
}

// Store keeps every record in maps keyed by ID. Values are cloned on the way
// in and out so callers never share memory with the store.
type Store struct {
	st   *state
	inTx bool
}

func New() *Store {
	return &Store{st: &state{
		obligations: make(map[string]*models.Obligation),
		entries:     make(map[string]*models.LedgerEntry),
		accounts:    make(map[string]*models.Account),
	}}
}

// WithinTx serializes transactions and restores a snapshot of every map when
// fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.st.txMu.Lock()
	defer s.st.txMu.Unlock()

	s.st.mu.RLock()
	snap := s.st.snapshot()
	s.st.mu.RUnlock()

	if err := fn(&Store{st: s.st, inTx: true}); err != nil {
		s.st.mu.Lock()
		s.st.obligations, s.st.entries, s.st.accounts = snap.obligations, snap.entries, snap.accounts
		s.st.mu.Unlock()
		return err
	}
	return nil
}

// lock takes the write lock. Outside a transaction it first waits for the
// running one, so a rollback never restores over a committed write.
func (s *Store) lock() func() {
	if !s.inTx {
		s.st.txMu.Lock()
	}
	s.st.mu.Lock()
	return func() {
		s.st.mu.Unlock()
		if !s.inTx {
			s.st.txMu.Unlock()
		}
	}
}

type snapshot struct {
	obligations map[string]*models.Obligation
	entries     map[string]*models.LedgerEntry
	accounts    map[string]*models.Account
}

// snapshot copies the maps. Stored values are replaced, never mutated, so the
// pointers can be shared.
func (st *state) snapshot() snapshot {
	snap := snapshot{
		obligations: make(map[string]*models.Obligation, len(st.obligations)),
		entries:     make(map[string]*models.LedgerEntry, len(st.entries)),
		accounts:    make(map[string]*models.Account, len(st.accounts)),
	}
	for k, v := range st.obligations {
		snap.obligations[k] = v
	}
	for k, v := range st.entries {
		snap.entries[k] = v
	}
	for k, v := range st.accounts {
		snap.accounts[k] = v
	}
	return snap
}

func cloneObligation(o *models.Obligation) *models.Obligation {
	c := *o
	if o.Weekday != nil {
		w := *o.Weekday
		c.Weekday = &w
	}
	if o.DayOfMonth != nil {
		d := *o.DayOfMonth
		c.DayOfMonth = &d
	}
	if o.SeriesID != nil {
		id := *o.SeriesID
		c.SeriesID = &id
	}
	return &c
}

func cloneEntry(e *models.LedgerEntry) *models.LedgerEntry {
	c := *e
	if e.ObligationID != nil {
		id := *e.ObligationID
		c.ObligationID = &id
	}
	if e.LinkedID != nil {
		id := *e.LinkedID
		c.LinkedID = &id
	}
	return &c
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	return &c
}

func (s *Store) CreateObligations(ctx context.Context, obligations ...*models.Obligation) error {
	defer s.lock()()

	for _, o := range obligations {
		s.st.obligations[o.ID] = cloneObligation(o)
	}
	return nil
}

func (s *Store) GetObligation(ctx context.Context, tenantID, id string) (*models.Obligation, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	o, ok := s.st.obligations[id]
	if !ok || o.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return cloneObligation(o), nil
}

// LockObligation is a plain read: transactions already run one at a time.
func (s *Store) LockObligation(ctx context.Context, tenantID, id string) (*models.Obligation, error) {
	return s.GetObligation(ctx, tenantID, id)
}

func (s *Store) UpdateObligation(ctx context.Context, o *models.Obligation) error {
	defer s.lock()()

	cur, ok := s.st.obligations[o.ID]
	if !ok || cur.TenantID != o.TenantID {
		return repository.ErrNotFound
	}
	s.st.obligations[o.ID] = cloneObligation(o)
	return nil
}

func (s *Store) DeleteObligation(ctx context.Context, tenantID, id string) error {
	defer s.lock()()

	o, ok := s.st.obligations[id]
	if !ok || o.TenantID != tenantID {
		return repository.ErrNotFound
	}
	delete(s.st.obligations, id)
	return nil
}

func (s *Store) ListObligations(ctx context.Context, filter models.ObligationFilter) ([]*models.Obligation, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	statuses := make(map[models.ObligationStatus]bool, len(filter.Statuses))
	for _, st := range filter.Statuses {
		statuses[st] = true
	}

	var out []*models.Obligation
	for _, o := range s.st.obligations {
		switch {
		case o.TenantID != filter.TenantID:
		case filter.Direction != "" && o.Direction != filter.Direction:
		case len(statuses) > 0 && !statuses[o.Status]:
		case filter.CounterpartyID != "" && o.CounterpartyID != filter.CounterpartyID:
		case filter.SeriesID != "" && (o.SeriesID == nil || *o.SeriesID != filter.SeriesID):
		case filter.DueFrom != nil && o.DueDate.Before(*filter.DueFrom):
		case filter.DueTo != nil && o.DueDate.After(*filter.DueTo):
		default:
			out = append(out, cloneObligation(o))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) MarkOverdue(ctx context.Context, before time.Time, now time.Time) (int64, error) {
	defer s.lock()()

	var n int64
	for id, o := range s.st.obligations {
		if o.Status == models.StatusPaid || !o.DueDate.Before(before) {
			continue
		}
		c := cloneObligation(o)
		c.Status = models.StatusOverdue
		c.UpdatedAt = now
		s.st.obligations[id] = c
		n++
	}
	return n, nil
}

func (s *Store) CreateEntry(ctx context.Context, e *models.LedgerEntry) error {
	defer s.lock()()

	s.st.entries[e.ID] = cloneEntry(e)
	return nil
}

func (s *Store) GetEntry(ctx context.Context, tenantID, id string) (*models.LedgerEntry, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	e, ok := s.st.entries[id]
	if !ok || e.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return cloneEntry(e), nil
}

func (s *Store) UpdateEntry(ctx context.Context, e *models.LedgerEntry) error {
	defer s.lock()()

	cur, ok := s.st.entries[e.ID]
	if !ok || cur.TenantID != e.TenantID {
		return repository.ErrNotFound
	}
	c := cloneEntry(cur)
	c.Amount = e.Amount
	c.Description = e.Description
	c.OccurredAt = e.OccurredAt
	c.UpdatedAt = e.UpdatedAt
	s.st.entries[e.ID] = c
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, tenantID, id string) error {
	defer s.lock()()

	e, ok := s.st.entries[id]
	if !ok || e.TenantID != tenantID {
		return repository.ErrNotFound
	}
	delete(s.st.entries, id)
	return nil
}

func (s *Store) ListEntries(ctx context.Context, filter models.EntryFilter) ([]*models.LedgerEntry, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var out []*models.LedgerEntry
	for _, e := range s.st.entries {
		switch {
		case e.TenantID != filter.TenantID:
		case filter.AccountID != "" && e.AccountID != filter.AccountID:
		case filter.ObligationID != "" && (e.ObligationID == nil || *e.ObligationID != filter.ObligationID):
		case filter.Type != "" && e.Type != filter.Type:
		default:
			out = append(out, cloneEntry(e))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.After(b.OccurredAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) SumObligationEntries(ctx context.Context, tenantID, obligationID string) (decimal.Decimal, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	sum := decimal.Zero
	for _, e := range s.st.entries {
		if e.TenantID == tenantID && e.ObligationID != nil && *e.ObligationID == obligationID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (s *Store) CountObligationEntries(ctx context.Context, tenantID, obligationID string) (int, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	n := 0
	for _, e := range s.st.entries {
		if e.TenantID == tenantID && e.ObligationID != nil && *e.ObligationID == obligationID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *models.Account) error {
	defer s.lock()()

	s.st.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (s *Store) GetAccount(ctx context.Context, tenantID, id string) (*models.Account, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	a, ok := s.st.accounts[id]
	if !ok || a.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (s *Store) LockAccount(ctx context.Context, tenantID, id string) (*models.Account, error) {
	return s.GetAccount(ctx, tenantID, id)
}

func (s *Store) AdjustAccountBalance(ctx context.Context, tenantID, id string, delta decimal.Decimal, now time.Time) error {
	defer s.lock()()

	a, ok := s.st.accounts[id]
	if !ok || a.TenantID != tenantID {
		return repository.ErrNotFound
	}
	c := cloneAccount(a)
	c.Balance = c.Balance.Add(delta)
	c.UpdatedAt = now
	s.st.accounts[id] = c
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, tenantID string) ([]*models.Account, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var out []*models.Account
	for _, a := range s.st.accounts {
		if a.TenantID == tenantID {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

var _ repository.Store = (*Store)(nil)
