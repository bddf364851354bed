package checkout

import (
	"errors"

	pkgerrors "github.com/roomezes/roomezes-backend/pkg/errors"
)

// Failure is returned by Run when an attempt stops short of Completed. Stage is the step that
// was running; Final is StateIdle for a user cancellation and StateFailed otherwise.
type Failure struct {
	Stage State
	Final State
	Err   *pkgerrors.Error
}

func (f *Failure) Error() string {
	return string(f.Stage) + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func fail(stage State, err *pkgerrors.Error) *Failure {
	return &Failure{Stage: stage, Final: StateFailed, Err: err}
}

// AsFailure extracts the attempt failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// outcomeLabel names the attempt result for metrics.
func outcomeLabel(err error) string {
	if err == nil {
		return "completed"
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodePaymentCancelled:
		return "cancelled"
	case pkgerrors.CodeInvalidAmount:
		return "invalid_amount"
	case pkgerrors.CodeGatewayUnavailable:
		return "gateway_unavailable"
	case pkgerrors.CodePaymentFailed:
		return "payment_failed"
	case pkgerrors.CodePaymentVerificationFailed:
		return "verification_failed"
	case pkgerrors.CodeOrderPersistFailed:
		return "persist_failed"
	default:
		return "error"
	}
}
