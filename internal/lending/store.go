// Package lending implements the loan lifecycle: borrow requests, staff
// decisions and returns, together with the item stock accounting that must
// stay consistent with them.
package lending

import (
	"context"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

// Store is the item catalog and loan record store the service runs on.
//
// Lookups of missing records return an error wrapping model.ErrNotFound.
// CommitTransition must write the loan and the optional item of a
// transition atomically, and only if both records still carry the versions
// the transition was computed from; otherwise it writes nothing and returns
// an error wrapping model.ErrConflict.
type Store interface {
	CreateItem(ctx context.Context, name, description string, totalStock int) (*model.Item, error)
	GetItem(ctx context.Context, id string) (*model.Item, error)
	ListItems(ctx context.Context) ([]model.Item, error)
	UpdateItem(ctx context.Context, id, name, description string, totalStock int) (*model.Item, error)
	DeleteItem(ctx context.Context, id string) error
	SetItemPhoto(ctx context.Context, id string, photo []byte, mime string) error
	GetItemPhoto(ctx context.Context, id string) ([]byte, string, error)

	CreateLoan(ctx context.Context, itemID, borrowerUID string, requestedAt time.Time) (*model.Loan, error)
	GetLoan(ctx context.Context, id string) (*model.Loan, error)
	LoansByStatus(ctx context.Context, status model.LoanStatus, order model.LoanOrder) ([]model.Loan, error)
	LoansByBorrower(ctx context.Context, borrowerUID string, order model.LoanOrder) ([]model.Loan, error)
	CountLoans(ctx context.Context, status model.LoanStatus) (int, error)

	CommitTransition(ctx context.Context, tr model.Transition) error
}

// Directory resolves borrower uids to identities for display.
type Directory interface {
	LookupUser(ctx context.Context, uid string) (*model.User, error)
}
