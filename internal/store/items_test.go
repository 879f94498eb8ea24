package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "Laptop", "Dell XPS 15", 3)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Name != "Laptop" {
		t.Errorf("expected name 'Laptop', got %q", item.Name)
	}
	if item.AvailableStock != 3 || item.TotalStock != 3 {
		t.Errorf("expected 3/3 units, got %d/%d", item.AvailableStock, item.TotalStock)
	}

	got, err := GetItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Description != "Dell XPS 15" || got.Version != 1 {
		t.Errorf("unexpected item: %+v", got)
	}

	if _, err := GetItem(ctx, database, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListItemsSortedByName(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateItem(ctx, database, "Tripod", "", 1)
	CreateItem(ctx, database, "Camera", "", 2)

	items, err := ListItems(ctx, database)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Name != "Camera" || items[1].Name != "Tripod" {
		t.Errorf("expected items sorted by name, got %q, %q", items[0].Name, items[1].Name)
	}
}

func TestUpdateItemRecomputesAvailable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Projector", "", 2)
	loan, _ := CreateLoan(ctx, database, item.ID, "u1", time.Now())
	approve(t, database, loan, item)

	updated, err := UpdateItem(ctx, database, item.ID, "Projector HD", "1080p", 4)
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if updated.AvailableStock != 3 {
		t.Errorf("expected 3 available after growing to 4 with 1 loaned, got %d", updated.AvailableStock)
	}
	if updated.Version <= item.Version {
		t.Errorf("expected version to advance past %d, got %d", item.Version, updated.Version)
	}

	if _, err := UpdateItem(ctx, database, item.ID, "Projector HD", "", 0); !errors.Is(err, model.ErrItemInUse) {
		t.Errorf("expected ErrItemInUse when shrinking below loaned units, got %v", err)
	}
	if _, err := UpdateItem(ctx, database, "missing", "X", "", 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Delete Me", "", 1)
	CreateLoan(ctx, database, item.ID, "u1", time.Now())

	if err := DeleteItem(ctx, database, item.ID); !errors.Is(err, model.ErrItemInUse) {
		t.Fatalf("expected ErrItemInUse with a pending loan, got %v", err)
	}

	other, _ := CreateItem(ctx, database, "Free", "", 1)
	if err := DeleteItem(ctx, database, other.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, err := GetItem(ctx, database, other.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected deleted item to be gone, got %v", err)
	}
	if err := DeleteItem(ctx, database, other.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestItemPhoto(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Photo Item", "", 1)

	data, _, err := GetItemPhoto(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemPhoto: %v", err)
	}
	if data != nil {
		t.Errorf("expected no photo, got %d bytes", len(data))
	}

	if err := SetItemPhoto(ctx, database, item.ID, []byte("fake image data"), "image/jpeg"); err != nil {
		t.Fatalf("SetItemPhoto: %v", err)
	}

	data, mime, err := GetItemPhoto(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemPhoto: %v", err)
	}
	if string(data) != "fake image data" {
		t.Errorf("expected photo data, got %q", string(data))
	}
	if mime != "image/jpeg" {
		t.Errorf("expected mime 'image/jpeg', got %q", mime)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.PhotoMime != "image/jpeg" {
		t.Errorf("expected item to report photo mime, got %q", got.PhotoMime)
	}
}

func TestStockCheckConstraint(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Cable", "", 1)
	_, err := database.ExecContext(ctx, `UPDATE items SET available_stock = 2 WHERE id = ?`, item.ID)
	if err == nil {
		t.Fatal("expected available stock above total to be rejected")
	}
	_, err = database.ExecContext(ctx, `UPDATE items SET available_stock = -1 WHERE id = ?`, item.ID)
	if err == nil {
		t.Fatal("expected negative available stock to be rejected")
	}
}
