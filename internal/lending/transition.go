package lending

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

const maxRetryBackoff = 200 * time.Millisecond

// Apply computes the effect of action on a loan and the item it references.
// It returns the transition to commit; the inputs are not modified.
func Apply(loan model.Loan, item model.Item, action model.Action, now time.Time) (model.Transition, error) {
	next, err := model.Next(loan.Status, action)
	if err != nil {
		return model.Transition{}, err
	}

	tr := model.Transition{
		Loan:        loan,
		LoanVersion: loan.Version,
		ItemVersion: item.Version,
	}
	tr.Loan.Status = next

	switch action {
	case model.ActionApprove:
		if item.AvailableStock <= 0 {
			return model.Transition{}, fmt.Errorf("%w: item %s has no units available", model.ErrInsufficientStock, item.ID)
		}
		due := now.Add(model.LoanPeriod)
		tr.Loan.DueAt = &due
		if tr.Loan.RequestedAt.IsZero() {
			tr.Loan.RequestedAt = now
		}
		item.AvailableStock--
		tr.Item = &item

	case model.ActionReturn:
		returned := now
		tr.Loan.ReturnedAt = &returned
		item.AvailableStock = min(item.AvailableStock+1, item.TotalStock)
		tr.Item = &item
	}

	return tr, nil
}

// ApplyTransition applies action to the loan with the given id and adjusts
// its item's stock as one atomic unit. The loan and item are re-read and the
// transition recomputed whenever a concurrent commit wins the race, up to
// MaxAttempts times.
func (s *Service) ApplyTransition(ctx context.Context, loanID string, action model.Action) (*model.Loan, error) {
	backoff := s.retryBackoff()

	for attempt := 1; ; attempt++ {
		loan, err := s.store.GetLoan(ctx, loanID)
		if err != nil {
			return nil, err
		}
		item, err := s.store.GetItem(ctx, loan.ItemID)
		if err != nil {
			return nil, err
		}

		tr, err := Apply(*loan, *item, action, s.now())
		if err != nil {
			return nil, err
		}

		err = s.store.CommitTransition(ctx, tr)
		if err == nil {
			committed := tr.Loan
			committed.Version = tr.LoanVersion + 1
			return &committed, nil
		}
		if !errors.Is(err, model.ErrConflict) {
			return nil, err
		}
		if attempt >= s.maxAttempts() {
			return nil, fmt.Errorf("%w: %s loan %s after %d attempts", model.ErrConflictRetryExhausted, action, loanID, attempt)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff + rand.N(backoff)):
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}
