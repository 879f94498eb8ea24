package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/erazemk/izposoja/internal/model"
)

// CommitTransition writes a loan transition and its stock adjustment in a
// single transaction. Each row is only updated if its version still matches
// the one the transition was computed from; otherwise nothing is written and
// model.ErrConflict is returned.
func CommitTransition(ctx context.Context, db *sql.DB, tr model.Transition) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", conflictIfBusy(err))
	}
	defer tx.Rollback()

	l := tr.Loan
	result, err := tx.ExecContext(ctx,
		`UPDATE loans SET status = ?, requested_at = ?, due_at = ?, returned_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		l.Status, l.RequestedAt.UnixNano(), nanos(l.DueAt), nanos(l.ReturnedAt),
		l.ID, tr.LoanVersion,
	)
	if err != nil {
		return fmt.Errorf("updating loan: %w", conflictIfBusy(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("loan %s: %w", l.ID, model.ErrConflict)
	}

	if tr.Item != nil {
		result, err = tx.ExecContext(ctx,
			`UPDATE items SET available_stock = ?, version = version + 1
			 WHERE id = ? AND version = ?`,
			tr.Item.AvailableStock, tr.Item.ID, tr.ItemVersion,
		)
		if err != nil {
			return fmt.Errorf("updating item stock: %w", conflictIfBusy(err))
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("item %s: %w", tr.Item.ID, model.ErrConflict)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transition: %w", conflictIfBusy(err))
	}
	return nil
}

// conflictIfBusy reports a lock timeout as a lost race so the caller retries.
func conflictIfBusy(err error) error {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", model.ErrConflict, err)
		}
	}
	return err
}
