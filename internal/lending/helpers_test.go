package lending

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/boltstore"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// mapDirectory is an in-memory identity directory.
type mapDirectory map[string]string

func (d mapDirectory) LookupUser(_ context.Context, uid string) (*model.User, error) {
	name, ok := d[uid]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &model.User{ID: uid, Username: name, Role: model.RoleStudent}, nil
}

type backend struct {
	name string
	open func(t *testing.T) Store
}

var backends = []backend{
	{"sqlite", func(t *testing.T) Store {
		return &store.SQLite{DB: db.NewTestDB(t)}
	}},
	{"bolt", func(t *testing.T) Store {
		s, err := boltstore.Open(filepath.Join(t.TempDir(), "loans.bolt"))
		if err != nil {
			t.Fatalf("opening bolt store: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	}},
}

// forEachBackend runs fn against a fresh service on every store backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, svc *Service, clock *fakeClock)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			clock := newFakeClock()
			svc := NewService(b.open(t), mapDirectory{"u-alice": "alice", "u-bob": "bob"})
			svc.Now = clock.Now
			svc.RetryBackoff = time.Millisecond
			fn(t, svc, clock)
		})
	}
}

func mustCreateItem(t *testing.T, svc *Service, name string, total int) *model.Item {
	t.Helper()
	item, err := svc.CreateItem(context.Background(), name, "", total)
	if err != nil {
		t.Fatalf("CreateItem(%q): %v", name, err)
	}
	return item
}

func mustSubmit(t *testing.T, svc *Service, itemID, borrower string) string {
	t.Helper()
	id, err := svc.SubmitLoanRequest(context.Background(), itemID, borrower)
	if err != nil {
		t.Fatalf("SubmitLoanRequest: %v", err)
	}
	return id
}

func mustLoan(t *testing.T, svc *Service, id string) *model.Loan {
	t.Helper()
	loan, err := svc.GetLoan(context.Background(), id)
	if err != nil {
		t.Fatalf("GetLoan(%s): %v", id, err)
	}
	return loan
}

func available(t *testing.T, svc *Service, itemID string) int {
	t.Helper()
	item, err := svc.GetItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("GetItem(%s): %v", itemID, err)
	}
	return item.AvailableStock
}

// checkStockInvariant verifies that every item's available stock equals its
// total minus its approved loans and stays within [0, total].
func checkStockInvariant(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()

	items, err := svc.ListCatalog(ctx)
	if err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	active, err := svc.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}

	approved := make(map[string]int)
	for _, l := range active {
		approved[l.ItemID]++
	}
	for _, item := range items {
		if item.AvailableStock < 0 || item.AvailableStock > item.TotalStock {
			t.Errorf("item %s: available %d outside [0, %d]", item.Name, item.AvailableStock, item.TotalStock)
		}
		if want := item.TotalStock - approved[item.ID]; item.AvailableStock != want {
			t.Errorf("item %s: available %d, want total %d - approved %d = %d",
				item.Name, item.AvailableStock, item.TotalStock, approved[item.ID], want)
		}
	}
}
