package menu

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	"github.com/roomezes/roomezes-backend/pkg/db"
	"github.com/roomezes/roomezes-backend/pkg/db/models"
	pkgerrors "github.com/roomezes/roomezes-backend/pkg/errors"
)

type itemStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, availableOnly bool) ([]models.MenuItem, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type vendorStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
}

// Service exposes menu reads for students and inventory updates for vendors.
type Service struct {
	items   itemStore
	vendors vendorStore
}

func NewService(items itemStore, vendors vendorStore) (*Service, error) {
	if items == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	return &Service{items: items, vendors: vendors}, nil
}

// Lookup returns the item as currently stored. Used by the cart to price additions.
func (s *Service) Lookup(ctx context.Context, itemID uuid.UUID) (*models.MenuItem, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	return item, nil
}

// ListVendorMenu returns the available items of an active vendor.
func (s *Service) ListVendorMenu(ctx context.Context, vendorID uuid.UUID) ([]ItemDTO, error) {
	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	if !vendor.IsActive {
		return []ItemDTO{}, nil
	}

	items, err := s.items.ListByVendor(ctx, vendorID, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu items")
	}
	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toItemDTO(item))
	}
	return out, nil
}

// UpdateItem changes price or availability of an item the session's vendor owns.
func (s *Service) UpdateItem(ctx context.Context, sc session.Context, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	if sc.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Price == nil && input.IsAvailable == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if input.Price != nil && input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative").
			WithDetails(map[string]any{"price": input.Price.String()})
	}

	item, err := s.Lookup(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !sc.IsVendor(item.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "item does not belong to vendor")
	}

	updates := map[string]any{}
	if input.Price != nil {
		price := input.Price.Round(2)
		updates["price"] = price
		item.Price = price
	}
	if input.IsAvailable != nil {
		updates["is_available"] = *input.IsAvailable
		item.IsAvailable = *input.IsAvailable
	}

	if err := s.items.Update(ctx, item.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update menu item")
	}

	dto := toItemDTO(*item)
	return &dto, nil
}
