package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	pkgerrors "github.com/roomezes/roomezes-backend/pkg/errors"
	"github.com/roomezes/roomezes-backend/pkg/logger"
	"github.com/roomezes/roomezes-backend/pkg/metrics"
)

const defaultPaymentWindow = 15 * time.Minute

type runner interface {
	Run(ctx context.Context, req Request, collector PaymentCollector) (*Result, error)
}

// attempt is one in-flight Run waiting on the payment UI. It doubles as the Run's collector.
type attempt struct {
	userID   uuid.UUID
	ready    chan struct{}
	done     chan struct{}
	outcomes chan Outcome
	once     sync.Once

	intent Intent
	result *Result
	err    error
	timer  *time.Timer
}

func newAttempt(userID uuid.UUID) *attempt {
	return &attempt{
		userID:   userID,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		outcomes: make(chan Outcome, 1),
	}
}

// deliver hands an outcome to the waiting Run. Only the first call has any effect.
func (a *attempt) deliver(o Outcome) bool {
	delivered := false
	a.once.Do(func() {
		a.outcomes <- o
		delivered = true
	})
	return delivered
}

// Attempts bridges HTTP requests to running checkouts. Begin starts an attempt and returns the
// intent for the payment UI; Resolve feeds the UI's outcome back and waits for the result.
// A user has at most one live attempt.
type Attempts struct {
	orch    runner
	window  time.Duration
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics

	mu     sync.Mutex
	byUser map[uuid.UUID]*attempt
	byRef  map[string]*attempt
	closed bool
	wg     sync.WaitGroup
}

func NewAttempts(orch *Orchestrator, window time.Duration, m *metrics.CheckoutMetrics, logg *logger.Logger) *Attempts {
	return newAttempts(orch, window, m, logg)
}

func newAttempts(orch runner, window time.Duration, m *metrics.CheckoutMetrics, logg *logger.Logger) *Attempts {
	if window <= 0 {
		window = defaultPaymentWindow
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Attempts{
		orch:    orch,
		window:  window,
		logg:    logg,
		metrics: m,
		byUser:  make(map[uuid.UUID]*attempt),
		byRef:   make(map[string]*attempt),
	}
}

// Begin starts a new attempt for the session, cancelling any attempt the user already had
// waiting. It returns once the gateway intent exists or the attempt failed before reaching it.
func (a *Attempts) Begin(ctx context.Context, sc session.Context, vendorID uuid.UUID) (*Intent, error) {
	if sc.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	att := newAttempt(sc.UserID)
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout is shutting down")
	}
	prev := a.byUser[sc.UserID]
	a.byUser[sc.UserID] = att
	a.wg.Add(1)
	a.mu.Unlock()

	if prev != nil && prev.deliver(Cancelled()) {
		a.logg.Info(ctx, "previous checkout attempt discarded")
	}

	a.metrics.AttemptStarted()
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer a.wg.Done()
		att.result, att.err = a.orch.Run(runCtx, Request{Session: sc, VendorID: vendorID}, CollectorFunc(func(_ context.Context, intent Intent) <-chan Outcome {
			a.register(att, intent)
			return att.outcomes
		}))
		// unregister before waking waiters so a retried Resolve sees no attempt
		a.finish(att)
		close(att.done)
	}()

	select {
	case <-att.ready:
		intent := att.intent
		return &intent, nil
	case <-att.done:
		return nil, att.err
	case <-ctx.Done():
		att.deliver(Cancelled())
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentCancelled, ctx.Err(), "checkout request abandoned")
	}
}

func (a *Attempts) register(att *attempt, intent Intent) {
	a.mu.Lock()
	att.intent = intent
	a.byRef[intent.ExternalOrderRef] = att
	att.timer = time.AfterFunc(a.window, func() {
		if att.deliver(Cancelled()) {
			a.logg.Info(a.logg.WithPaymentRefs(context.Background(), intent.ExternalOrderRef, ""), "payment window expired")
		}
	})
	a.mu.Unlock()
	close(att.ready)
}

func (a *Attempts) finish(att *attempt) {
	a.mu.Lock()
	if a.byUser[att.userID] == att {
		delete(a.byUser, att.userID)
	}
	if ref := att.intent.ExternalOrderRef; ref != "" && a.byRef[ref] == att {
		delete(a.byRef, ref)
	}
	if att.timer != nil {
		att.timer.Stop()
	}
	a.mu.Unlock()
	a.metrics.AttemptEnded()
}

// Resolve delivers the payment UI's outcome for the attempt owning orderRef and waits for the
// attempt to finish. Only the first outcome for an attempt counts; later calls observe its result.
func (a *Attempts) Resolve(ctx context.Context, sc session.Context, orderRef string, outcome Outcome) (*Result, error) {
	if sc.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	a.mu.Lock()
	att := a.byRef[orderRef]
	a.mu.Unlock()
	if att == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "no checkout in progress for this order").
			WithDetails(map[string]any{"razorpayOrderId": orderRef})
	}
	if att.userID != sc.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout belongs to another user")
	}

	if !att.deliver(outcome) {
		a.logg.Warn(a.logg.WithPaymentRefs(ctx, orderRef, outcome.Confirmation.PaymentRef), "checkout outcome already delivered")
	}

	select {
	case <-att.done:
		return att.result, att.err
	case <-ctx.Done():
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "waiting for checkout result")
	}
}

// CancelUser cancels the user's waiting attempt. An attempt that already received its
// confirmation keeps running.
func (a *Attempts) CancelUser(userID uuid.UUID) bool {
	a.mu.Lock()
	att := a.byUser[userID]
	a.mu.Unlock()
	if att == nil {
		return false
	}
	return att.deliver(Cancelled())
}

// SubscribeTo cancels a user's attempt when their session signs out.
func (a *Attempts) SubscribeTo(m *session.Manager) func() {
	return m.Subscribe(func(ctx context.Context, evt session.Event) {
		if evt.Kind != session.EventSignedOut {
			return
		}
		if a.CancelUser(evt.Session.UserID) {
			a.logg.Info(ctx, "checkout attempt cancelled on sign-out")
		}
	})
}

// Shutdown stops accepting attempts, cancels those still waiting on payment and waits for
// running ones to finish.
func (a *Attempts) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	live := make([]*attempt, 0, len(a.byUser))
	for _, att := range a.byUser {
		live = append(live, att)
	}
	a.mu.Unlock()

	for _, att := range live {
		att.deliver(Cancelled())
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
