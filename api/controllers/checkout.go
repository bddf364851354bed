package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/roomezes/roomezes-backend/api/middleware"
	"github.com/roomezes/roomezes-backend/api/responses"
	"github.com/roomezes/roomezes-backend/api/validators"
	"github.com/roomezes/roomezes-backend/internal/checkout"
	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	pkgerrors "github.com/roomezes/roomezes-backend/pkg/errors"
	"github.com/roomezes/roomezes-backend/pkg/logger"
	"github.com/roomezes/roomezes-backend/pkg/types"
)

// CheckoutService starts attempts and feeds them the payment UI's outcome.
type CheckoutService interface {
	Begin(ctx context.Context, sc session.Context, vendorID uuid.UUID) (*checkout.Intent, error)
	Resolve(ctx context.Context, sc session.Context, orderRef string, outcome checkout.Outcome) (*checkout.Result, error)
}

type beginCheckoutRequest struct {
	VendorID string `json:"vendorId" validate:"omitempty,uuid"`
}

type checkoutIntentResponse struct {
	KeyID           string `json:"keyId"`
	RazorpayOrderID string `json:"razorpayOrderId"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Description     string `json:"description"`
	Receipt         string `json:"receipt"`
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId" validate:"required"`
	RazorpayPaymentID string `json:"razorpayPaymentId" validate:"required"`
	RazorpaySignature string `json:"razorpaySignature" validate:"required"`
}

type verifyPaymentResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
}

type cancelPaymentRequest struct {
	RazorpayOrderID string `json:"razorpayOrderId" validate:"required"`
}

type paymentFailureRequest struct {
	RazorpayOrderID string `json:"razorpayOrderId" validate:"required"`
	Reason          string `json:"reason" validate:"max=500"`
}

// CheckoutBegin creates the gateway order for the caller's cart and returns what the client
// needs to open the payment UI.
func CheckoutBegin(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload beginCheckoutRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID := uuid.Nil
		if payload.VendorID != "" {
			vendorID = uuid.MustParse(payload.VendorID)
		}

		intent, err := svc.Begin(r.Context(), middleware.SessionFromContext(r.Context()), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusCreated, checkoutIntentResponse{
			KeyID:           intent.KeyID,
			RazorpayOrderID: intent.ExternalOrderRef,
			Amount:          intent.AmountMinor,
			Currency:        string(intent.Currency),
			Description:     intent.Description,
			Receipt:         intent.Receipt,
		})
	}
}

// CheckoutVerify accepts the signed confirmation from the payment UI. The response shape is
// the one the storefront client expects, not the standard envelope.
func CheckoutVerify(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPaymentRefs(ctx, payload.RazorpayOrderID, payload.RazorpayPaymentID)
		}

		// The refs and signature are used exactly as received; they are inputs to the HMAC check.
		result, err := svc.Resolve(ctx, middleware.SessionFromContext(ctx), payload.RazorpayOrderID, checkout.Confirmed(checkout.Confirmation{
			OrderRef:   payload.RazorpayOrderID,
			PaymentRef: payload.RazorpayPaymentID,
			Signature:  payload.RazorpaySignature,
		}))
		if err != nil {
			writeVerifyError(ctx, logg, w, err, payload.RazorpayPaymentID)
			return
		}

		responses.WriteJSON(w, http.StatusOK, verifyPaymentResponse{
			Success:   true,
			Message:   "Payment verified and order placed",
			OrderID:   result.OrderID.String(),
			PaymentID: result.PaymentID,
		})
	}
}

func writeVerifyError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error, paymentID string) {
	typed, meta := responses.Resolve(err)
	switch typed.Code() {
	case pkgerrors.CodePaymentVerificationFailed:
		responses.LogError(ctx, logg, err)
		responses.WriteJSON(w, meta.HTTPStatus, types.PaymentErrorBody{Error: meta.PublicMessage})
	case pkgerrors.CodeOrderPersistFailed:
		responses.LogError(ctx, logg, err)
		responses.WriteJSON(w, meta.HTTPStatus, types.PaymentErrorBody{
			Error:     meta.PublicMessage,
			Code:      string(typed.Code()),
			PaymentID: paymentID,
		})
	default:
		responses.WriteError(ctx, logg, w, err)
	}
}

// CheckoutCancel reports that the user dismissed the payment UI.
func CheckoutCancel(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload cancelPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		_, err := svc.Resolve(r.Context(), middleware.SessionFromContext(r.Context()), strings.TrimSpace(payload.RazorpayOrderID), checkout.Cancelled())
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodePaymentCancelled) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// CheckoutFailure reports a gateway-side payment failure. The reason is echoed back in the
// PAYMENT_FAILED error.
func CheckoutFailure(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload paymentFailureRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		_, err := svc.Resolve(r.Context(), middleware.SessionFromContext(r.Context()), strings.TrimSpace(payload.RazorpayOrderID), checkout.Failed(payload.Reason))
		if err == nil {
			err = pkgerrors.New(pkgerrors.CodeConflict, "checkout already completed")
		}
		responses.WriteError(r.Context(), logg, w, err)
	}
}
