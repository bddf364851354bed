package menu

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roomezes/roomezes-backend/pkg/db/models"
)

// ItemDTO is the public shape of a menu item.
type ItemDTO struct {
	ID          uuid.UUID `json:"id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Price       string    `json:"price"`
	IsAvailable bool      `json:"is_available"`
}

// UpdateItemInput carries a partial inventory update. Nil fields are left untouched.
type UpdateItemInput struct {
	Price       *decimal.Decimal
	IsAvailable *bool
}

func toItemDTO(item models.MenuItem) ItemDTO {
	return ItemDTO{
		ID:          item.ID,
		VendorID:    item.VendorID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price.StringFixed(2),
		IsAvailable: item.IsAvailable,
	}
}
