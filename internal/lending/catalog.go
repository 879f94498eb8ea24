package lending

import (
	"context"

	"github.com/erazemk/izposoja/internal/model"
)

// ListCatalog returns all items. Callers sort and filter as they need.
func (s *Service) ListCatalog(ctx context.Context) ([]model.Item, error) {
	return s.store.ListItems(ctx)
}

// GetItem returns a single item.
func (s *Service) GetItem(ctx context.Context, id string) (*model.Item, error) {
	return s.store.GetItem(ctx, id)
}

// CreateItem adds an item with all of its units available.
func (s *Service) CreateItem(ctx context.Context, name, description string, totalStock int) (*model.Item, error) {
	if err := model.ValidateItem(name, totalStock); err != nil {
		return nil, err
	}
	return s.store.CreateItem(ctx, name, description, totalStock)
}

// UpdateItem edits an item. Available stock follows from the new total and
// the loans currently approved; shrinking below that count fails with
// model.ErrItemInUse.
func (s *Service) UpdateItem(ctx context.Context, id, name, description string, totalStock int) (*model.Item, error) {
	if err := model.ValidateItem(name, totalStock); err != nil {
		return nil, err
	}
	return s.store.UpdateItem(ctx, id, name, description, totalStock)
}

// DeleteItem removes an item that has no pending or approved loans.
// Rejected and returned loans keep their now dangling reference.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	return s.store.DeleteItem(ctx, id)
}

// SetItemPhoto stores an already processed photo for an item.
func (s *Service) SetItemPhoto(ctx context.Context, id string, photo []byte, mime string) error {
	return s.store.SetItemPhoto(ctx, id, photo, mime)
}

// ItemPhoto returns an item's photo, or nil data if it has none.
func (s *Service) ItemPhoto(ctx context.Context, id string) ([]byte, string, error) {
	return s.store.GetItemPhoto(ctx, id)
}
