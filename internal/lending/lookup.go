package lending

import (
	"context"
	"errors"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

// Unknown is shown in place of an item or borrower that no longer exists.
const Unknown = "unknown"

// LoanView is a loan joined with the display names of its item and borrower.
type LoanView struct {
	model.Loan
	ItemName         string `json:"itemName"`
	BorrowerUsername string `json:"borrowerUsername"`
	Overdue          bool   `json:"overdue"`
}

// lookup memoizes item and user reads for the duration of one list call.
// It is never shared between calls, so every list reflects current state.
type lookup struct {
	store     Store
	directory Directory
	items     map[string]string
	users     map[string]string
}

func newLookup(store Store, directory Directory) *lookup {
	return &lookup{
		store:     store,
		directory: directory,
		items:     make(map[string]string),
		users:     make(map[string]string),
	}
}

func (l *lookup) itemName(ctx context.Context, id string) (string, error) {
	if name, ok := l.items[id]; ok {
		return name, nil
	}
	name := Unknown
	item, err := l.store.GetItem(ctx, id)
	switch {
	case err == nil:
		name = item.Name
	case !errors.Is(err, model.ErrNotFound):
		return "", err
	}
	l.items[id] = name
	return name, nil
}

func (l *lookup) username(ctx context.Context, uid string) (string, error) {
	if name, ok := l.users[uid]; ok {
		return name, nil
	}
	name := Unknown
	if l.directory != nil {
		u, err := l.directory.LookupUser(ctx, uid)
		switch {
		case err == nil:
			name = u.Username
		case !errors.Is(err, model.ErrNotFound):
			return "", err
		}
	}
	l.users[uid] = name
	return name, nil
}

func (s *Service) join(ctx context.Context, loans []model.Loan) ([]LoanView, error) {
	lk := newLookup(s.store, s.directory)
	now := s.now()

	views := make([]LoanView, 0, len(loans))
	for _, loan := range loans {
		itemName, err := lk.itemName(ctx, loan.ItemID)
		if err != nil {
			return nil, err
		}
		username, err := lk.username(ctx, loan.BorrowerUID)
		if err != nil {
			return nil, err
		}
		views = append(views, LoanView{
			Loan:             loan,
			ItemName:         itemName,
			BorrowerUsername: username,
			Overdue:          overdue(loan, now),
		})
	}
	return views, nil
}

func overdue(loan model.Loan, now time.Time) bool {
	return loan.Status == model.LoanApproved && loan.DueAt != nil && now.After(*loan.DueAt)
}
