package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	"github.com/roomezes/roomezes-backend/pkg/db/models"
	"github.com/roomezes/roomezes-backend/pkg/enums"
	pkgerrors "github.com/roomezes/roomezes-backend/pkg/errors"
)

type cartStore interface {
	Load(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, userID uuid.UUID, c *Cart) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type itemLookup interface {
	Lookup(ctx context.Context, itemID uuid.UUID) (*models.MenuItem, error)
}

// Service manages the signed-in user's cart.
type Service struct {
	store cartStore
	items itemLookup
}

// NewService builds a cart service backed by the provided store and menu lookup.
func NewService(store cartStore, items itemLookup) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if items == nil {
		return nil, fmt.Errorf("menu lookup required")
	}
	return &Service{store: store, items: items}, nil
}

// View is the API shape of a cart.
type View struct {
	VendorID *uuid.UUID     `json:"vendor_id,omitempty"`
	Items    []LineView     `json:"items"`
	Total    string         `json:"total"`
	Currency enums.Currency `json:"currency"`
}

type LineView struct {
	ItemID    uuid.UUID `json:"item_id"`
	Name      string    `json:"name"`
	UnitPrice string    `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	Subtotal  string    `json:"subtotal"`
}

func toView(c *Cart) *View {
	lines := c.Lines()
	view := &View{
		Items:    make([]LineView, 0, len(lines)),
		Total:    c.Total().StringFixed(2),
		Currency: enums.CurrencyINR,
	}
	if vendorID := c.VendorID(); vendorID != uuid.Nil {
		view.VendorID = &vendorID
	}
	for _, l := range lines {
		view.Items = append(view.Items, LineView{
			ItemID:    l.ItemID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal().StringFixed(2),
		})
	}
	return view
}

func (s *Service) Get(ctx context.Context, sc session.Context) (*View, error) {
	c, err := s.load(ctx, sc)
	if err != nil {
		return nil, err
	}
	return toView(c), nil
}

// AddItem adds one unit of a menu item. The item must be available and belong to the same
// vendor as everything already in the cart.
func (s *Service) AddItem(ctx context.Context, sc session.Context, itemID uuid.UUID) (*View, error) {
	c, err := s.load(ctx, sc)
	if err != nil {
		return nil, err
	}

	item, err := s.items.Lookup(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "menu item is not available").
			WithDetails(map[string]any{"item_id": itemID.String()})
	}
	if current := c.VendorID(); current != uuid.Nil && current != item.VendorID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart already holds items from another vendor")
	}

	c.Add(Item{ID: item.ID, VendorID: item.VendorID, Name: item.Name, UnitPrice: item.Price})
	return s.save(ctx, sc, c)
}

// SetQuantity sets a line's quantity; zero or less removes it.
func (s *Service) SetQuantity(ctx context.Context, sc session.Context, itemID uuid.UUID, qty int) (*View, error) {
	c, err := s.load(ctx, sc)
	if err != nil {
		return nil, err
	}
	c.SetQuantity(itemID, qty)
	return s.save(ctx, sc, c)
}

func (s *Service) RemoveItem(ctx context.Context, sc session.Context, itemID uuid.UUID) (*View, error) {
	c, err := s.load(ctx, sc)
	if err != nil {
		return nil, err
	}
	c.Remove(itemID)
	return s.save(ctx, sc, c)
}

func (s *Service) Clear(ctx context.Context, sc session.Context) error {
	if sc.IsZero() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.ClearUser(ctx, sc.UserID)
}

// Snapshot returns a copy of the user's lines for checkout.
func (s *Service) Snapshot(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c.Lines(), nil
}

// ClearUser empties the user's cart after a successful checkout.
func (s *Service) ClearUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *Service) load(ctx context.Context, sc session.Context) (*Cart, error) {
	if sc.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	c, err := s.store.Load(ctx, sc.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, sc session.Context, c *Cart) (*View, error) {
	if err := s.store.Save(ctx, sc.UserID, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return toView(c), nil
}
