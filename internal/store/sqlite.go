package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

// SQLite exposes the item catalog and loan records in a SQLite database as
// the store the lending service runs on.
type SQLite struct {
	DB *sql.DB
}

func (s *SQLite) CreateItem(ctx context.Context, name, description string, totalStock int) (*model.Item, error) {
	return CreateItem(ctx, s.DB, name, description, totalStock)
}

func (s *SQLite) GetItem(ctx context.Context, id string) (*model.Item, error) {
	return GetItem(ctx, s.DB, id)
}

func (s *SQLite) ListItems(ctx context.Context) ([]model.Item, error) {
	return ListItems(ctx, s.DB)
}

func (s *SQLite) UpdateItem(ctx context.Context, id, name, description string, totalStock int) (*model.Item, error) {
	return UpdateItem(ctx, s.DB, id, name, description, totalStock)
}

func (s *SQLite) DeleteItem(ctx context.Context, id string) error {
	return DeleteItem(ctx, s.DB, id)
}

func (s *SQLite) SetItemPhoto(ctx context.Context, id string, photo []byte, mime string) error {
	return SetItemPhoto(ctx, s.DB, id, photo, mime)
}

func (s *SQLite) GetItemPhoto(ctx context.Context, id string) ([]byte, string, error) {
	return GetItemPhoto(ctx, s.DB, id)
}

func (s *SQLite) CreateLoan(ctx context.Context, itemID, borrowerUID string, requestedAt time.Time) (*model.Loan, error) {
	return CreateLoan(ctx, s.DB, itemID, borrowerUID, requestedAt)
}

func (s *SQLite) GetLoan(ctx context.Context, id string) (*model.Loan, error) {
	return GetLoan(ctx, s.DB, id)
}

func (s *SQLite) LoansByStatus(ctx context.Context, status model.LoanStatus, order model.LoanOrder) ([]model.Loan, error) {
	return ListLoansByStatus(ctx, s.DB, status, order)
}

func (s *SQLite) LoansByBorrower(ctx context.Context, borrowerUID string, order model.LoanOrder) ([]model.Loan, error) {
	return ListLoansByBorrower(ctx, s.DB, borrowerUID, order)
}

func (s *SQLite) CountLoans(ctx context.Context, status model.LoanStatus) (int, error) {
	return CountLoansByStatus(ctx, s.DB, status)
}

func (s *SQLite) CommitTransition(ctx context.Context, tr model.Transition) error {
	return CommitTransition(ctx, s.DB, tr)
}

// Directory resolves borrower uids against the users table.
type Directory struct {
	DB *sql.DB
}

// LookupUser returns the user with the given uid, including soft-deleted ones
// so historical loans still show who borrowed.
func (d *Directory) LookupUser(ctx context.Context, uid string) (*model.User, error) {
	u, err := GetUser(ctx, d.DB, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", uid, model.ErrNotFound)
	}
	return u, nil
}
