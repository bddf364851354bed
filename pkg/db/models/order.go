package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roomezes/roomezes-backend/pkg/enums"
)

// Order is written once per verified payment. Its line items are snapshots and never follow
// later cart or menu changes.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	VendorID       uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null"`
	TotalPrice     decimal.Decimal   `gorm:"column:total_price;type:numeric(12,2);not null"`
	Currency       enums.Currency    `gorm:"column:currency;type:text;not null;default:'INR'"`
	Status         enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentID      string            `gorm:"column:payment_id;not null"`
	GatewayOrderID string            `gorm:"column:gateway_order_id;not null"`
	Items          []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
