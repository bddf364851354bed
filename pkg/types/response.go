package types

// SuccessEnvelope wraps every non-checkout success body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a typed error. Retryable tells clients whether the same request
// may succeed later, as when the payment gateway is briefly unavailable.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// PaymentErrorBody is the flat error body the payment client reads after a verify call.
// PaymentID is set only when money was captured but no order exists for it.
type PaymentErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
}
