package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/izposoja/internal/model"
)

const itemColumns = `id, name, total_stock, available_stock, description, photo_mime, version`

// CreateItem creates a new item with all of its stock available.
func CreateItem(ctx context.Context, db *sql.DB, name, description string, totalStock int) (*model.Item, error) {
	if err := model.ValidateItem(name, totalStock); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, name, total_stock, available_stock, description) VALUES (?, ?, ?, ?, ?)`,
		id, name, totalStock, totalStock, description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items ordered by name.
func ListItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's name, description and total stock. Available
// stock is recomputed from the number of approved loans in the same statement,
// and the update is refused if fewer units would exist than are on loan.
func UpdateItem(ctx context.Context, db *sql.DB, id, name, description string, totalStock int) (*model.Item, error) {
	if err := model.ValidateItem(name, totalStock); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, total_stock = ?,
		        available_stock = ? - (SELECT COUNT(*) FROM loans WHERE item_id = items.id AND status = 'approved'),
		        version = version + 1
		 WHERE id = ?
		   AND ? >= (SELECT COUNT(*) FROM loans WHERE item_id = items.id AND status = 'approved')`,
		name, description, totalStock, totalStock, id, totalStock,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		if _, err := GetItem(ctx, db, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("total stock %d is below units on loan: %w", totalStock, model.ErrItemInUse)
	}

	return GetItem(ctx, db, id)
}

// DeleteItem removes an item. Fails while pending or approved loans reference it.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM items WHERE id = ?
		   AND NOT EXISTS (SELECT 1 FROM loans WHERE item_id = ? AND status IN ('pending', 'approved'))`,
		id, id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		if _, err := GetItem(ctx, db, id); err != nil {
			return err
		}
		return fmt.Errorf("cannot delete item %s: %w", id, model.ErrItemInUse)
	}
	return nil
}

// SetItemPhoto sets an item's photo data.
func SetItemPhoto(ctx context.Context, db *sql.DB, id string, photo []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET photo = ?, photo_mime = ? WHERE id = ?`,
		photo, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item photo: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// GetItemPhoto returns an item's photo data and MIME type. The data is nil if
// the item has no photo.
func GetItemPhoto(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM items WHERE id = ?`, id,
	).Scan(&photo, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item photo: %w", err)
	}
	return photo, mime.String, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*model.Item, error) {
	item := &model.Item{}
	var description, photoMime sql.NullString
	if err := row.Scan(&item.ID, &item.Name, &item.TotalStock, &item.AvailableStock,
		&description, &photoMime, &item.Version); err != nil {
		return nil, err
	}
	item.Description = description.String
	item.PhotoMime = photoMime.String
	return item, nil
}
