package checkout

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roomezes/roomezes-backend/pkg/enums"
)

// Intent is the payment request registered with the gateway for one attempt. It lives only in
// memory for the duration of the attempt.
type Intent struct {
	Amount           decimal.Decimal
	AmountMinor      int64
	Currency         enums.Currency
	Description      string
	Receipt          string
	ExternalOrderRef string
	KeyID            string
	VendorID         uuid.UUID
}

// Confirmation is the signed payload the gateway's payment UI hands back to the client.
type Confirmation struct {
	OrderRef   string
	PaymentRef string
	Signature  string
}

// OutcomeKind enumerates how a payment UI session can end.
type OutcomeKind int

const (
	OutcomeConfirmed OutcomeKind = iota + 1
	OutcomeCancelled
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the eventual result of collecting a payment.
type Outcome struct {
	Kind         OutcomeKind
	Confirmation Confirmation
	Reason       string
}

func Confirmed(c Confirmation) Outcome {
	return Outcome{Kind: OutcomeConfirmed, Confirmation: c}
}

func Cancelled() Outcome {
	return Outcome{Kind: OutcomeCancelled}
}

// Failed reports a gateway-side payment failure with its human readable reason.
func Failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

// PaymentCollector hands the intent to the payment UI and yields exactly one Outcome.
type PaymentCollector interface {
	Collect(ctx context.Context, intent Intent) <-chan Outcome
}

// CollectorFunc adapts a function to PaymentCollector.
type CollectorFunc func(ctx context.Context, intent Intent) <-chan Outcome

func (f CollectorFunc) Collect(ctx context.Context, intent Intent) <-chan Outcome {
	return f(ctx, intent)
}
