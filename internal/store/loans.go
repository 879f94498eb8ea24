package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/izposoja/internal/model"
)

const loanColumns = `id, item_id, borrower_uid, status, requested_at, due_at, returned_at, version`

// orderColumns maps sortable loan fields to their columns.
var orderColumns = map[model.LoanField]string{
	model.FieldRequestedAt: "requested_at",
	model.FieldDueAt:       "due_at",
	model.FieldReturnedAt:  "returned_at",
}

// CreateLoan records a new pending loan request.
func CreateLoan(ctx context.Context, db *sql.DB, itemID, borrowerUID string, requestedAt time.Time) (*model.Loan, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO loans (id, item_id, borrower_uid, status, requested_at) VALUES (?, ?, ?, ?, ?)`,
		id, itemID, borrowerUID, model.LoanPending, requestedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating loan: %w", err)
	}

	return GetLoan(ctx, db, id)
}

// GetLoan returns a loan by ID.
func GetLoan(ctx context.Context, db *sql.DB, id string) (*model.Loan, error) {
	loan, err := scanLoan(db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	return loan, nil
}

// ListLoansByStatus returns all loans in the given status.
func ListLoansByStatus(ctx context.Context, db *sql.DB, status model.LoanStatus, order model.LoanOrder) ([]model.Loan, error) {
	query, err := orderedQuery(`SELECT `+loanColumns+` FROM loans WHERE status = ?`, order)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("listing loans by status: %w", err)
	}
	defer rows.Close()

	return scanLoans(rows)
}

// ListLoansByBorrower returns all loans requested by the given borrower.
func ListLoansByBorrower(ctx context.Context, db *sql.DB, borrowerUID string, order model.LoanOrder) ([]model.Loan, error) {
	query, err := orderedQuery(`SELECT `+loanColumns+` FROM loans WHERE borrower_uid = ?`, order)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, borrowerUID)
	if err != nil {
		return nil, fmt.Errorf("listing loans by borrower: %w", err)
	}
	defer rows.Close()

	return scanLoans(rows)
}

// CountLoansByStatus returns the number of loans in the given status.
func CountLoansByStatus(ctx context.Context, db *sql.DB, status model.LoanStatus) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE status = ?`, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting loans: %w", err)
	}
	return count, nil
}

func orderedQuery(base string, order model.LoanOrder) (string, error) {
	col, ok := orderColumns[order.Field]
	if !ok {
		return "", fmt.Errorf("unsupported loan order field %q", order.Field)
	}
	dir := "ASC"
	if order.Descending {
		dir = "DESC"
	}
	return base + ` ORDER BY ` + col + ` ` + dir + `, id ` + dir, nil
}

func scanLoans(rows *sql.Rows) ([]model.Loan, error) {
	var loans []model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning loan: %w", err)
		}
		loans = append(loans, *loan)
	}
	return loans, rows.Err()
}

func scanLoan(row scanner) (*model.Loan, error) {
	l := &model.Loan{}
	var requestedAt int64
	var dueAt, returnedAt sql.NullInt64
	if err := row.Scan(&l.ID, &l.ItemID, &l.BorrowerUID, &l.Status,
		&requestedAt, &dueAt, &returnedAt, &l.Version); err != nil {
		return nil, err
	}
	l.RequestedAt = fromNanos(requestedAt)
	l.DueAt = nullTime(dueAt)
	l.ReturnedAt = nullTime(returnedAt)
	return l, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func nanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
