package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	"github.com/roomezes/roomezes-backend/pkg/db"
	"github.com/roomezes/roomezes-backend/pkg/db/models"
	"github.com/roomezes/roomezes-backend/pkg/enums"
	pkgerrors "github.com/roomezes/roomezes-backend/pkg/errors"
	"github.com/roomezes/roomezes-backend/pkg/pagination"
)

// Service records paid orders and drives their fulfilment status.
type Service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Service{repo: repo, tx: tx}, nil
}

// Create writes the order and its line snapshot atomically with status pending. A second call
// for the same payment returns the order recorded by the first.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	order, err := buildOrder(input)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, order)
	})
	if err == nil {
		return order, nil
	}

	if db.IsUniqueViolation(err, "") {
		existing, findErr := s.repo.FindByPaymentID(ctx, input.PaymentID)
		if findErr == nil {
			if !sameOrder(existing, order) {
				return nil, pkgerrors.New(pkgerrors.CodeOrderPersistFailed, "payment already recorded against a different order").
					WithDetails(map[string]any{"paymentId": input.PaymentID, "existingOrderId": existing.ID.String()})
			}
			return existing, nil
		}
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
}

// sameOrder reports whether a stored order is the one a retried Create describes.
func sameOrder(existing, candidate *models.Order) bool {
	return existing.UserID == candidate.UserID &&
		existing.VendorID == candidate.VendorID &&
		existing.TotalPrice.Equal(candidate.TotalPrice)
}

func buildOrder(input CreateOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil || input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchaser and vendor are required")
	}
	if strings.TrimSpace(input.PaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	items := make([]models.OrderLineItem, 0, len(input.Lines))
	sum := decimal.Zero
	for i, line := range input.Lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"item": line.MenuItemID.String()})
		}
		if line.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative").
				WithDetails(map[string]any{"item": line.MenuItemID.String()})
		}
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		sum = sum.Add(lineTotal)
		items = append(items, models.OrderLineItem{
			Position:   i,
			MenuItemID: line.MenuItemID,
			Name:       line.Name,
			UnitPrice:  line.UnitPrice,
			Quantity:   line.Quantity,
			LineTotal:  lineTotal,
		})
	}

	if !input.Total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "order total must be positive")
	}
	if !sum.Equal(input.Total) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total does not match items").
			WithDetails(map[string]any{"total": input.Total.StringFixed(2), "items_total": sum.StringFixed(2)})
	}

	return &models.Order{
		UserID:         input.UserID,
		VendorID:       input.VendorID,
		TotalPrice:     input.Total,
		Currency:       enums.CurrencyINR,
		Status:         enums.OrderStatusPending,
		PaymentID:      input.PaymentID,
		GatewayOrderID: input.GatewayOrderID,
		Items:          items,
	}, nil
}

// Get returns an order visible to the purchaser, the owning vendor or an admin.
func (s *Service) Get(ctx context.Context, sc session.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != sc.UserID && !sc.IsVendor(order.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order not accessible")
	}
	dto := ToDTO(*order)
	return &dto, nil
}

// ListForUser pages through the purchaser's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, sc session.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if sc.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, sc.UserID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return toPage(rows, params.Limit), nil
}

// ListForVendor pages through orders placed with the given vendor.
func (s *Service) ListForVendor(ctx context.Context, sc session.Context, vendorID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if !sc.IsVendor(vendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor access required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByVendor(ctx, vendorID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return toPage(rows, params.Limit), nil
}

// UpdateStatus advances an order along pending, preparing, ready, completed, or cancels it.
func (s *Service) UpdateStatus(ctx context.Context, sc session.Context, id uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": string(next)})
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sc.IsVendor(order.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to vendor")
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
			WithDetails(map[string]any{"from": string(order.Status), "to": string(next)})
	}

	if err := s.repo.UpdateStatus(ctx, order.ID, order.Status, next); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order was updated by another request")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	order.Status = next
	dto := ToDTO(*order)
	return &dto, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func toPage(rows []models.Order, limit int) *OrderList {
	page := pagination.Trim(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	items := make([]OrderDTO, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, ToDTO(order))
	}
	return &OrderList{Items: items, NextCursor: page.NextCursor}
}
