package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	"github.com/roomezes/roomezes-backend/pkg/enums"
	pkgerrors "github.com/roomezes/roomezes-backend/pkg/errors"
)

// scriptedRunner stands in for the orchestrator: it registers a numbered intent and reports
// whatever outcome arrives.
type scriptedRunner struct {
	mu       sync.Mutex
	n        int
	failWith error
	received chan Outcome
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{received: make(chan Outcome, 16)}
}

func (r *scriptedRunner) Run(ctx context.Context, req Request, collector PaymentCollector) (*Result, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.mu.Lock()
	r.n++
	ref := fmt.Sprintf("order_%d", r.n)
	r.mu.Unlock()

	out := <-collector.Collect(ctx, Intent{ExternalOrderRef: ref, AmountMinor: 14500, Currency: enums.CurrencyINR})
	r.received <- out
	if out.Kind == OutcomeConfirmed {
		return &Result{OrderID: uuid.New(), GatewayOrderID: ref, PaymentID: out.Confirmation.PaymentRef}, nil
	}
	return nil, &Failure{Stage: StateAwaitingPayment, Final: StateIdle, Err: pkgerrors.New(pkgerrors.CodePaymentCancelled, "payment cancelled")}
}

func (r *scriptedRunner) next(t *testing.T) Outcome {
	t.Helper()
	select {
	case out := <-r.received:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("attempt never received an outcome")
		return Outcome{}
	}
}

func student() session.Context {
	return session.Context{UserID: uuid.New(), Role: enums.UserRoleStudent, AccessID: uuid.NewString()}
}

func TestAttemptsBeginAndResolve(t *testing.T) {
	r := newScriptedRunner()
	a := newAttempts(r, time.Minute, nil, nil)
	sc := student()

	intent, err := a.Begin(context.Background(), sc, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, "order_1", intent.ExternalOrderRef)
	assert.Equal(t, int64(14500), intent.AmountMinor)

	result, err := a.Resolve(context.Background(), sc, "order_1", Confirmed(Confirmation{OrderRef: "order_1", PaymentRef: "pay_1", Signature: "sig"}))
	require.NoError(t, err)
	assert.Equal(t, "pay_1", result.PaymentID)

	_, err = a.Resolve(context.Background(), sc, "order_1", Cancelled())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestAttemptsResolveOwnership(t *testing.T) {
	r := newScriptedRunner()
	a := newAttempts(r, time.Minute, nil, nil)
	owner := student()

	intent, err := a.Begin(context.Background(), owner, uuid.Nil)
	require.NoError(t, err)

	_, err = a.Resolve(context.Background(), student(), intent.ExternalOrderRef, Cancelled())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = a.Resolve(context.Background(), owner, "order_unknown", Cancelled())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = a.Resolve(context.Background(), owner, intent.ExternalOrderRef, Cancelled())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentCancelled))
}

func TestAttemptsBeginAgainDiscardsPrevious(t *testing.T) {
	r := newScriptedRunner()
	a := newAttempts(r, time.Minute, nil, nil)
	sc := student()

	_, err := a.Begin(context.Background(), sc, uuid.Nil)
	require.NoError(t, err)
	second, err := a.Begin(context.Background(), sc, uuid.Nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCancelled, r.next(t).Kind)
	assert.Equal(t, "order_2", second.ExternalOrderRef)

	result, err := a.Resolve(context.Background(), sc, second.ExternalOrderRef, Confirmed(Confirmation{OrderRef: "order_2", PaymentRef: "pay_2"}))
	require.NoError(t, err)
	assert.Equal(t, "order_2", result.GatewayOrderID)
}

func TestAttemptsPaymentWindowExpiry(t *testing.T) {
	r := newScriptedRunner()
	a := newAttempts(r, 20*time.Millisecond, nil, nil)

	_, err := a.Begin(context.Background(), student(), uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, r.next(t).Kind)
}

func TestAttemptsCancelUser(t *testing.T) {
	r := newScriptedRunner()
	a := newAttempts(r, time.Minute, nil, nil)
	sc := student()

	assert.False(t, a.CancelUser(sc.UserID))
	_, err := a.Begin(context.Background(), sc, uuid.Nil)
	require.NoError(t, err)

	assert.True(t, a.CancelUser(sc.UserID))
	assert.Equal(t, OutcomeCancelled, r.next(t).Kind)
}

func TestAttemptsBeginSurfacesEarlyFailure(t *testing.T) {
	r := newScriptedRunner()
	r.failWith = fail(StateIntentRequested, pkgerrors.New(pkgerrors.CodeInvalidAmount, "cart total must be greater than zero"))
	a := newAttempts(r, time.Minute, nil, nil)

	_, err := a.Begin(context.Background(), student(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidAmount))

	_, err = a.Begin(context.Background(), session.Context{}, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestAttemptsShutdownCancelsLiveAttempts(t *testing.T) {
	r := newScriptedRunner()
	a := newAttempts(r, time.Minute, nil, nil)

	_, err := a.Begin(context.Background(), student(), uuid.Nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
	assert.Equal(t, OutcomeCancelled, r.next(t).Kind)

	_, err = a.Begin(context.Background(), student(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestAttemptsWithOrchestrator(t *testing.T) {
	h := newHarness(t)
	a := NewAttempts(h.orch, time.Minute, nil, nil)

	intent, err := a.Begin(context.Background(), h.sc, h.vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(14500), intent.AmountMinor)

	result, err := a.Resolve(context.Background(), h.sc, intent.ExternalOrderRef, signedConfirmation(*intent, "pay_E2E"))
	require.NoError(t, err)
	assert.Equal(t, "pay_E2E", result.PaymentID)
	assert.Equal(t, 0, h.carts.size())
}
