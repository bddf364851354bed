package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roomezes/roomezes-backend/pkg/db/models"
	"github.com/roomezes/roomezes-backend/pkg/enums"
	"github.com/roomezes/roomezes-backend/pkg/pagination"
)

// LineInput is one cart line copied into a new order.
type LineInput struct {
	MenuItemID uuid.UUID
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
}

// CreateOrderInput carries everything needed to record a paid order.
type CreateOrderInput struct {
	UserID         uuid.UUID
	VendorID       uuid.UUID
	Lines          []LineInput
	Total          decimal.Decimal
	PaymentID      string
	GatewayOrderID string
}

// OrderDTO is the API shape of an order.
type OrderDTO struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"user_id"`
	VendorID       uuid.UUID         `json:"vendor_id"`
	Status         enums.OrderStatus `json:"status"`
	TotalPrice     string            `json:"total_price"`
	Currency       enums.Currency    `json:"currency"`
	PaymentID      string            `json:"payment_id"`
	GatewayOrderID string            `json:"gateway_order_id"`
	Items          []LineItemDTO     `json:"items"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type LineItemDTO struct {
	ItemID    uuid.UUID `json:"item"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Price     string    `json:"price"`
	LineTotal string    `json:"line_total"`
}

// OrderList is a page of orders.
type OrderList = pagination.Page[OrderDTO]

// ToDTO converts a stored order to its API shape.
func ToDTO(order models.Order) OrderDTO {
	items := make([]LineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemDTO{
			ItemID:    item.MenuItemID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal.StringFixed(2),
		})
	}
	return OrderDTO{
		ID:             order.ID,
		UserID:         order.UserID,
		VendorID:       order.VendorID,
		Status:         order.Status,
		TotalPrice:     order.TotalPrice.StringFixed(2),
		Currency:       order.Currency,
		PaymentID:      order.PaymentID,
		GatewayOrderID: order.GatewayOrderID,
		Items:          items,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}
