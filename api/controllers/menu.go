package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roomezes/roomezes-backend/api/middleware"
	"github.com/roomezes/roomezes-backend/api/responses"
	"github.com/roomezes/roomezes-backend/api/validators"
	"github.com/roomezes/roomezes-backend/internal/menu"
	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	pkgerrors "github.com/roomezes/roomezes-backend/pkg/errors"
	"github.com/roomezes/roomezes-backend/pkg/logger"
)

type MenuService interface {
	ListVendorMenu(ctx context.Context, vendorID uuid.UUID) ([]menu.ItemDTO, error)
	UpdateItem(ctx context.Context, sc session.Context, itemID uuid.UUID, input menu.UpdateItemInput) (*menu.ItemDTO, error)
}

type updateMenuItemRequest struct {
	Price       *string `json:"price" validate:"omitempty,numeric"`
	IsAvailable *bool   `json:"is_available"`
}

func VendorMenu(svc MenuService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}

		vendorID, err := validators.ParseUUIDParam(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListVendorMenu(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// VendorMenuUpdate changes an item's price or availability. Prices already captured in carts are
// unaffected until the item is added again.
func VendorMenuUpdate(svc MenuService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateMenuItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := menu.UpdateItemInput{IsAvailable: payload.IsAvailable}
		if payload.Price != nil {
			price, err := decimal.NewFromString(*payload.Price)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
				return
			}
			input.Price = &price
		}

		dto, err := svc.UpdateItem(r.Context(), middleware.SessionFromContext(r.Context()), itemID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
