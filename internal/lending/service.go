package lending

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

// Default retry budget for transitions that lose a race.
const (
	DefaultMaxAttempts  = 5
	DefaultRetryBackoff = 5 * time.Millisecond
)

// Service is the loan lifecycle controller. It is safe for concurrent use;
// consistency between concurrent callers comes from the store's
// compare-and-swap commit, not from locks held here.
type Service struct {
	store     Store
	directory Directory

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// MaxAttempts bounds how often a transition is recomputed after a conflict.
	MaxAttempts int
	// RetryBackoff is the initial wait between attempts; it doubles each time.
	RetryBackoff time.Duration
}

// NewService creates a lending service over the given store and identity directory.
func NewService(store Store, directory Directory) *Service {
	return &Service{
		store:        store,
		directory:    directory,
		Now:          time.Now,
		MaxAttempts:  DefaultMaxAttempts,
		RetryBackoff: DefaultRetryBackoff,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) maxAttempts() int {
	if s.MaxAttempts < 1 {
		return 1
	}
	return s.MaxAttempts
}

func (s *Service) retryBackoff() time.Duration {
	if s.RetryBackoff <= 0 {
		return DefaultRetryBackoff
	}
	return s.RetryBackoff
}

// SubmitLoanRequest records a pending request by borrowerUID for one unit of
// itemID and returns the new loan's id. Stock is only checked on approval.
func (s *Service) SubmitLoanRequest(ctx context.Context, itemID, borrowerUID string) (string, error) {
	loan, err := s.store.CreateLoan(ctx, itemID, borrowerUID, s.now())
	if err != nil {
		return "", err
	}
	return loan.ID, nil
}

// Decide approves or rejects a pending loan.
func (s *Service) Decide(ctx context.Context, loanID string, action model.Action) (*model.Loan, error) {
	if action != model.ActionApprove && action != model.ActionReject {
		return nil, fmt.Errorf("%w: %q is not a decision", model.ErrInvalidTransition, action)
	}
	return s.ApplyTransition(ctx, loanID, action)
}

// RecordReturn marks an approved loan as returned and puts its unit back in stock.
func (s *Service) RecordReturn(ctx context.Context, loanID string) (*model.Loan, error) {
	return s.ApplyTransition(ctx, loanID, model.ActionReturn)
}

// GetLoan returns a single loan.
func (s *Service) GetLoan(ctx context.Context, loanID string) (*model.Loan, error) {
	return s.store.GetLoan(ctx, loanID)
}

// ListPending returns pending requests, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]LoanView, error) {
	return s.listByStatus(ctx, model.LoanPending, model.LoanOrder{Field: model.FieldRequestedAt})
}

// ListActive returns approved loans, soonest due first.
func (s *Service) ListActive(ctx context.Context) ([]LoanView, error) {
	return s.listByStatus(ctx, model.LoanApproved, model.LoanOrder{Field: model.FieldDueAt})
}

// ListHistory returns returned loans, most recently returned first.
func (s *Service) ListHistory(ctx context.Context) ([]LoanView, error) {
	return s.listByStatus(ctx, model.LoanReturned, model.LoanOrder{Field: model.FieldReturnedAt, Descending: true})
}

// ListBorrowerLoans returns every loan requested by borrowerUID, newest request first.
func (s *Service) ListBorrowerLoans(ctx context.Context, borrowerUID string) ([]LoanView, error) {
	loans, err := s.store.LoansByBorrower(ctx, borrowerUID, model.LoanOrder{Field: model.FieldRequestedAt, Descending: true})
	if err != nil {
		return nil, err
	}
	return s.join(ctx, loans)
}

func (s *Service) listByStatus(ctx context.Context, status model.LoanStatus, order model.LoanOrder) ([]LoanView, error) {
	loans, err := s.store.LoansByStatus(ctx, status, order)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, loans)
}

// Stats are the dashboard counters.
type Stats struct {
	Items   int `json:"items"`
	Pending int `json:"pending"`
	Active  int `json:"active"`
}

// Stats counts catalog items, pending requests and active loans.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.CountLoans(ctx, model.LoanPending)
	if err != nil {
		return nil, err
	}
	active, err := s.store.CountLoans(ctx, model.LoanApproved)
	if err != nil {
		return nil, err
	}
	return &Stats{Items: len(items), Pending: pending, Active: active}, nil
}
