// Package boltstore keeps the item catalog and loan records in a BoltDB file.
//
// Records are JSON documents using the same field names as the API. Bolt runs
// one read-write transaction at a time, so the version checks in
// CommitTransition only fail when a record changed after the caller read it.
package boltstore

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"

	"github.com/erazemk/izposoja/internal/model"
)

var (
	itemsBucket  = []byte("items")
	loansBucket  = []byte("loans")
	photosBucket = []byte("photos")
)

// Store is a BoltDB-backed catalog and loan store.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) a BoltDB database at path and ensures its buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{itemsBucket, loansBucket, photosBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateItem creates a new item with all of its stock available.
func (s *Store) CreateItem(_ context.Context, name, description string, totalStock int) (*model.Item, error) {
	if err := model.ValidateItem(name, totalStock); err != nil {
		return nil, err
	}

	item := &model.Item{
		ID:             uuid.NewString(),
		Name:           name,
		TotalStock:     totalStock,
		AvailableStock: totalStock,
		Description:    description,
		Version:        1,
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(itemsBucket), item.ID, item)
	})
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	return item, nil
}

// GetItem returns an item by ID.
func (s *Store) GetItem(_ context.Context, id string) (*model.Item, error) {
	var item *model.Item
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		item, err = getItem(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns all items ordered by name.
func (s *Store) ListItems(_ context.Context) ([]model.Item, error) {
	var items []model.Item
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(itemsBucket).ForEach(func(_, v []byte) error {
			var item model.Item
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	slices.SortFunc(items, func(a, b model.Item) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return items, nil
}

// UpdateItem updates an item's name, description and total stock, recomputing
// available stock from the approved loans on it.
func (s *Store) UpdateItem(_ context.Context, id, name, description string, totalStock int) (*model.Item, error) {
	if err := model.ValidateItem(name, totalStock); err != nil {
		return nil, err
	}

	var item *model.Item
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		item, err = getItem(tx, id)
		if err != nil {
			return err
		}

		approved, err := countLoans(tx, func(l *model.Loan) bool {
			return l.ItemID == id && l.Status == model.LoanApproved
		})
		if err != nil {
			return err
		}
		if totalStock < approved {
			return fmt.Errorf("total stock %d is below %d units on loan: %w", totalStock, approved, model.ErrItemInUse)
		}

		item.Name = name
		item.Description = description
		item.TotalStock = totalStock
		item.AvailableStock = totalStock - approved
		item.Version++
		return put(tx.Bucket(itemsBucket), id, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes an item and its photo. Fails while pending or approved
// loans reference it.
func (s *Store) DeleteItem(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := getItem(tx, id); err != nil {
			return err
		}

		open, err := countLoans(tx, func(l *model.Loan) bool {
			return l.ItemID == id && !l.Status.Terminal()
		})
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("cannot delete item %s with %d open loans: %w", id, open, model.ErrItemInUse)
		}

		if err := tx.Bucket(photosBucket).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(itemsBucket).Delete([]byte(id))
	})
}

// SetItemPhoto stores an item's photo.
func (s *Store) SetItemPhoto(_ context.Context, id string, photo []byte, mime string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		item, err := getItem(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Bucket(photosBucket).Put([]byte(id), photo); err != nil {
			return err
		}
		item.PhotoMime = mime
		return put(tx.Bucket(itemsBucket), id, item)
	})
}

// GetItemPhoto returns an item's photo and MIME type; nil data if it has none.
func (s *Store) GetItemPhoto(_ context.Context, id string) ([]byte, string, error) {
	var photo []byte
	var mime string
	err := s.db.View(func(tx *bolt.Tx) error {
		item, err := getItem(tx, id)
		if err != nil {
			return err
		}
		if v := tx.Bucket(photosBucket).Get([]byte(id)); v != nil {
			photo = bytes.Clone(v)
			mime = item.PhotoMime
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return photo, mime, nil
}

// CreateLoan records a new pending loan request.
func (s *Store) CreateLoan(_ context.Context, itemID, borrowerUID string, requestedAt time.Time) (*model.Loan, error) {
	loan := &model.Loan{
		ID:          uuid.NewString(),
		ItemID:      itemID,
		BorrowerUID: borrowerUID,
		Status:      model.LoanPending,
		RequestedAt: requestedAt.UTC(),
		Version:     1,
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(loansBucket), loan.ID, loan)
	})
	if err != nil {
		return nil, fmt.Errorf("creating loan: %w", err)
	}
	return loan, nil
}

// GetLoan returns a loan by ID.
func (s *Store) GetLoan(_ context.Context, id string) (*model.Loan, error) {
	var loan *model.Loan
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		loan, err = getLoan(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// LoansByStatus returns all loans in the given status.
func (s *Store) LoansByStatus(_ context.Context, status model.LoanStatus, order model.LoanOrder) ([]model.Loan, error) {
	return s.queryLoans(func(l *model.Loan) bool { return l.Status == status }, order)
}

// LoansByBorrower returns all loans requested by borrowerUID.
func (s *Store) LoansByBorrower(_ context.Context, borrowerUID string, order model.LoanOrder) ([]model.Loan, error) {
	return s.queryLoans(func(l *model.Loan) bool { return l.BorrowerUID == borrowerUID }, order)
}

// CountLoans returns the number of loans in the given status.
func (s *Store) CountLoans(_ context.Context, status model.LoanStatus) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		n, err = countLoans(tx, func(l *model.Loan) bool { return l.Status == status })
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("counting loans: %w", err)
	}
	return n, nil
}

// CommitTransition writes the loan and the optional item of tr if neither has
// changed since the versions recorded in tr.
func (s *Store) CommitTransition(_ context.Context, tr model.Transition) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		loan, err := getLoan(tx, tr.Loan.ID)
		if err != nil {
			return err
		}
		if loan.Version != tr.LoanVersion {
			return fmt.Errorf("loan %s: %w", loan.ID, model.ErrConflict)
		}

		if tr.Item != nil {
			item, err := getItem(tx, tr.Item.ID)
			if err != nil {
				return err
			}
			if item.Version != tr.ItemVersion {
				return fmt.Errorf("item %s: %w", item.ID, model.ErrConflict)
			}
			item.AvailableStock = tr.Item.AvailableStock
			item.Version++
			if err := put(tx.Bucket(itemsBucket), item.ID, item); err != nil {
				return err
			}
		}

		next := tr.Loan
		next.Version = loan.Version + 1
		return put(tx.Bucket(loansBucket), next.ID, &next)
	})
}

func (s *Store) queryLoans(match func(*model.Loan) bool, order model.LoanOrder) ([]model.Loan, error) {
	var loans []model.Loan
	err := s.db.View(func(tx *bolt.Tx) error {
		return eachLoan(tx, func(l *model.Loan) error {
			if match(l) {
				loans = append(loans, *l)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("querying loans: %w", err)
	}

	slices.SortFunc(loans, func(a, b model.Loan) int {
		c := cmp.Or(a.Time(order.Field).Compare(b.Time(order.Field)), cmp.Compare(a.ID, b.ID))
		if order.Descending {
			return -c
		}
		return c
	})
	return loans, nil
}

func getItem(tx *bolt.Tx, id string) (*model.Item, error) {
	v := tx.Bucket(itemsBucket).Get([]byte(id))
	if v == nil {
		return nil, fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	item := &model.Item{}
	if err := json.Unmarshal(v, item); err != nil {
		return nil, fmt.Errorf("decoding item %s: %w", id, err)
	}
	return item, nil
}

func getLoan(tx *bolt.Tx, id string) (*model.Loan, error) {
	v := tx.Bucket(loansBucket).Get([]byte(id))
	if v == nil {
		return nil, fmt.Errorf("loan %s: %w", id, model.ErrNotFound)
	}
	loan := &model.Loan{}
	if err := json.Unmarshal(v, loan); err != nil {
		return nil, fmt.Errorf("decoding loan %s: %w", id, err)
	}
	return loan, nil
}

func eachLoan(tx *bolt.Tx, fn func(*model.Loan) error) error {
	return tx.Bucket(loansBucket).ForEach(func(k, v []byte) error {
		var l model.Loan
		if err := json.Unmarshal(v, &l); err != nil {
			return fmt.Errorf("decoding loan %s: %w", k, err)
		}
		return fn(&l)
	})
}

func countLoans(tx *bolt.Tx, match func(*model.Loan) bool) (int, error) {
	n := 0
	err := eachLoan(tx, func(l *model.Loan) error {
		if match(l) {
			n++
		}
		return nil
	})
	return n, err
}

func put(b *bolt.Bucket, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(id), data)
}
