package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/roomezes/roomezes-backend/api/middleware"
	"github.com/roomezes/roomezes-backend/api/responses"
	"github.com/roomezes/roomezes-backend/api/validators"
	"github.com/roomezes/roomezes-backend/internal/orders"
	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	"github.com/roomezes/roomezes-backend/pkg/enums"
	pkgerrors "github.com/roomezes/roomezes-backend/pkg/errors"
	"github.com/roomezes/roomezes-backend/pkg/logger"
	"github.com/roomezes/roomezes-backend/pkg/pagination"
)

// OrdersService is the order read and vendor workflow surface.
type OrdersService interface {
	Get(ctx context.Context, sc session.Context, id uuid.UUID) (*orders.OrderDTO, error)
	ListForUser(ctx context.Context, sc session.Context, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error)
	ListForVendor(ctx context.Context, sc session.Context, vendorID uuid.UUID, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error)
	UpdateStatus(ctx context.Context, sc session.Context, id uuid.UUID, next enums.OrderStatus) (*orders.OrderDTO, error)
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=preparing ready completed cancelled"`
}

func OrderList(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, filters, err := parseOrderListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForUser(r.Context(), middleware.SessionFromContext(r.Context()), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func OrderDetail(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), middleware.SessionFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// VendorOrderList lists orders placed with the caller's vendor. Admins pick the vendor with
// the vendorId query parameter.
func VendorOrderList(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		sc := middleware.SessionFromContext(r.Context())
		vendorID, err := resolveVendorScope(r, sc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, filters, err := parseOrderListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForVendor(r.Context(), sc, vendorID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// VendorOrderUpdateStatus moves an order along pending, preparing, ready, completed.
func VendorOrderUpdateStatus(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateStatus(r.Context(), middleware.SessionFromContext(r.Context()), orderID, enums.OrderStatus(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func resolveVendorScope(r *http.Request, sc session.Context) (uuid.UUID, error) {
	if raw := strings.TrimSpace(r.URL.Query().Get("vendorId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid vendorId")
		}
		return id, nil
	}
	if sc.VendorID == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	return *sc.VendorID, nil
}

func parseOrderListQuery(r *http.Request) (pagination.Params, orders.ListFilters, error) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		return pagination.Params{}, orders.ListFilters{}, err
	}

	var filters orders.ListFilters
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return pagination.Params{}, orders.ListFilters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	return params, filters, nil
}
