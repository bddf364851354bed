package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/roomezes/roomezes-backend/internal/cart"
	"github.com/roomezes/roomezes-backend/internal/orders"
	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	"github.com/roomezes/roomezes-backend/pkg/db"
	"github.com/roomezes/roomezes-backend/pkg/db/models"
	"github.com/roomezes/roomezes-backend/pkg/enums"
	pkgerrors "github.com/roomezes/roomezes-backend/pkg/errors"
	"github.com/roomezes/roomezes-backend/pkg/logger"
	"github.com/roomezes/roomezes-backend/pkg/metrics"
	"github.com/roomezes/roomezes-backend/pkg/razorpay"
	"github.com/roomezes/roomezes-backend/pkg/tracing"
)

const (
	gatewayName           = "razorpay"
	persistFailureMessage = "payment succeeded but order failed, contact support"
)

// CartSource is the cart view checkout needs.
type CartSource interface {
	Snapshot(ctx context.Context, userID uuid.UUID) ([]cart.Line, error)
	ClearUser(ctx context.Context, userID uuid.UUID) error
}

// Gateway registers payment intents and verifies confirmations.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
	VerifyPaymentSignature(orderRef, paymentRef, signature string) bool
}

type OrderWriter interface {
	Create(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
}

type VendorLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
}

// Request starts one attempt. VendorID is optional; when set the cart must belong to it.
type Request struct {
	Session  session.Context
	VendorID uuid.UUID
}

// Result describes a completed checkout.
type Result struct {
	OrderID        uuid.UUID
	PaymentID      string
	GatewayOrderID string
	Total          decimal.Decimal
}

// Deps wires the orchestrator. Hooks, Metrics, Tracer and Logger are optional.
type Deps struct {
	Carts    CartSource
	Gateway  Gateway
	Orders   OrderWriter
	Vendors  VendorLookup
	Hooks    *Runner
	Metrics  *metrics.CheckoutMetrics
	Tracer   oteltrace.Tracer
	Logger   *logger.Logger
	Currency enums.Currency
}

// Orchestrator runs checkout attempts from cart snapshot to persisted order.
type Orchestrator struct {
	carts    CartSource
	gateway  Gateway
	orders   OrderWriter
	vendors  VendorLookup
	hooks    *Runner
	metrics  *metrics.CheckoutMetrics
	tracer   oteltrace.Tracer
	logg     *logger.Logger
	currency enums.Currency
	now      func() time.Time
}

func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart source required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("order writer required")
	}
	if deps.Vendors == nil {
		return nil, fmt.Errorf("vendor lookup required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Tracer == nil {
		deps.Tracer = tracing.Tracer("roomezes/checkout")
	}
	if deps.Currency == "" {
		deps.Currency = enums.CurrencyINR
	}
	return &Orchestrator{
		carts:    deps.Carts,
		gateway:  deps.Gateway,
		orders:   deps.Orders,
		vendors:  deps.Vendors,
		hooks:    deps.Hooks,
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
		logg:     deps.Logger,
		currency: deps.Currency,
		now:      time.Now,
	}, nil
}

// Run drives one attempt through intent creation, payment collection, signature verification,
// persistence and completion. Steps run strictly in that order; any failure stops the attempt.
func (o *Orchestrator) Run(ctx context.Context, req Request, collector PaymentCollector) (*Result, error) {
	started := o.now()
	ctx, span := o.tracer.Start(ctx, "checkout.run")
	defer span.End()

	if req.Session.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if collector == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment collector required")
	}
	ctx = o.logg.WithUserID(ctx, req.Session.UserID.String())
	span.SetAttributes(attribute.String("user.id", req.Session.UserID.String()))

	m := newMachine()
	result, err := o.run(ctx, m, req, collector)

	o.metrics.ObserveAttempt(outcomeLabel(err), o.now().Sub(started))
	span.SetAttributes(attribute.String("checkout.state", string(m.State())))
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodePaymentCancelled) {
		tracing.RecordError(span, err)
	}
	return result, err
}

func (o *Orchestrator) run(ctx context.Context, m *machine, req Request, collector PaymentCollector) (*Result, error) {
	if err := m.advance(StateIntentRequested); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "start checkout")
	}
	lines, vendor, intent, err := o.createIntent(ctx, req)
	if err != nil {
		_ = m.advance(StateFailed)
		return nil, err
	}
	ctx = o.logg.WithPaymentRefs(ctx, intent.ExternalOrderRef, "")

	if err := m.advance(StateAwaitingPayment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "await payment")
	}
	confirmation, err := o.awaitPayment(ctx, intent, collector)
	if err != nil {
		if f, ok := AsFailure(err); ok && f.Final == StateIdle {
			// cancellation rewinds the attempt; the cart stays as it was
			_ = m.advance(StateIdle)
		} else {
			_ = m.advance(StateFailed)
		}
		return nil, err
	}
	ctx = o.logg.WithPaymentRefs(ctx, confirmation.OrderRef, confirmation.PaymentRef)

	if err := m.advance(StateVerifying); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify payment")
	}
	if err := o.verify(ctx, intent, confirmation); err != nil {
		_ = m.advance(StateFailed)
		return nil, err
	}

	if err := m.advance(StatePersisting); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
	}
	order, err := o.persist(ctx, req, intent, confirmation, lines)
	if err != nil {
		_ = m.advance(StateFailed)
		return nil, err
	}

	if err := m.advance(StateCompleted); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete checkout")
	}
	o.complete(ctx, req, order, vendor)

	return &Result{
		OrderID:        order.ID,
		PaymentID:      order.PaymentID,
		GatewayOrderID: order.GatewayOrderID,
		Total:          order.TotalPrice,
	}, nil
}

func (o *Orchestrator) createIntent(ctx context.Context, req Request) ([]cart.Line, *models.Vendor, Intent, error) {
	ctx, span := o.tracer.Start(ctx, "checkout.create_intent")
	defer span.End()

	lines, err := o.carts.Snapshot(ctx, req.Session.UserID)
	if err != nil {
		return nil, nil, Intent{}, fail(StateIntentRequested, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart"))
	}

	amount := decimal.Zero
	for _, l := range lines {
		amount = amount.Add(l.Subtotal())
	}
	if !amount.IsPositive() {
		return nil, nil, Intent{}, fail(StateIntentRequested, pkgerrors.New(pkgerrors.CodeInvalidAmount, "cart total must be greater than zero").
			WithDetails(map[string]any{"amount": amount.StringFixed(2)}))
	}

	vendorID := lines[0].VendorID
	for _, l := range lines[1:] {
		if l.VendorID != vendorID {
			return nil, nil, Intent{}, fail(StateIntentRequested, pkgerrors.New(pkgerrors.CodeValidation, "cart holds items from more than one vendor"))
		}
	}
	if req.VendorID != uuid.Nil && req.VendorID != vendorID {
		return nil, nil, Intent{}, fail(StateIntentRequested, pkgerrors.New(pkgerrors.CodeValidation, "cart does not belong to the requested vendor").
			WithDetails(map[string]any{"vendorId": req.VendorID.String()}))
	}

	vendor, err := o.vendors.FindByID(ctx, vendorID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil, Intent{}, fail(StateIntentRequested, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found"))
		}
		return nil, nil, Intent{}, fail(StateIntentRequested, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor"))
	}
	if !vendor.IsActive {
		return nil, nil, Intent{}, fail(StateIntentRequested, pkgerrors.New(pkgerrors.CodeStateConflict, "vendor is not accepting orders"))
	}

	amountMinor := amount.Mul(decimal.NewFromInt(o.currency.MinorUnits())).Round(0).IntPart()
	description := fmt.Sprintf("Roomezes order from %s", vendor.Name)
	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	span.SetAttributes(
		attribute.Int64("checkout.amount_minor", amountMinor),
		attribute.String("vendor.id", vendorID.String()),
	)

	callStarted := o.now()
	gatewayOrder, err := o.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:   amountMinor,
		Currency: o.currency.String(),
		Receipt:  receipt,
		Notes:    map[string]string{"description": description, "vendor_id": vendorID.String()},
	})
	o.metrics.ObserveGateway(gatewayName, err, o.now().Sub(callStarted))
	if err != nil {
		tracing.RecordError(span, err)
		o.logg.WarnErr(ctx, "payment intent creation failed", err)
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidAmount) {
			return nil, nil, Intent{}, fail(StateIntentRequested, pkgerrors.As(err))
		}
		return nil, nil, Intent{}, fail(StateIntentRequested, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "payment gateway unavailable"))
	}

	return lines, vendor, Intent{
		Amount:           amount,
		AmountMinor:      amountMinor,
		Currency:         o.currency,
		Description:      description,
		Receipt:          receipt,
		ExternalOrderRef: gatewayOrder.ID,
		KeyID:            o.gateway.KeyID(),
		VendorID:         vendorID,
	}, nil
}

func (o *Orchestrator) awaitPayment(ctx context.Context, intent Intent, collector PaymentCollector) (Confirmation, error) {
	ctx, span := o.tracer.Start(ctx, "checkout.await_payment")
	defer span.End()

	var outcome Outcome
	select {
	case out, ok := <-collector.Collect(ctx, intent):
		if !ok {
			out = Cancelled()
		}
		outcome = out
	case <-ctx.Done():
		outcome = Cancelled()
	}
	span.SetAttributes(attribute.String("checkout.outcome", outcome.Kind.String()))

	switch outcome.Kind {
	case OutcomeConfirmed:
		return outcome.Confirmation, nil
	case OutcomeFailed:
		reason := strings.TrimSpace(outcome.Reason)
		if reason == "" {
			reason = "payment failed"
		}
		o.logg.Warn(o.logg.WithField(ctx, "reason", reason), "payment failed at gateway")
		return Confirmation{}, fail(StateAwaitingPayment, pkgerrors.New(pkgerrors.CodePaymentFailed, reason).
			WithDetails(map[string]any{"reason": reason}))
	default:
		o.logg.Info(ctx, "payment cancelled by user")
		return Confirmation{}, &Failure{
			Stage: StateAwaitingPayment,
			Final: StateIdle,
			Err:   pkgerrors.New(pkgerrors.CodePaymentCancelled, "payment cancelled"),
		}
	}
}

func (o *Orchestrator) verify(ctx context.Context, intent Intent, c Confirmation) error {
	_, span := o.tracer.Start(ctx, "checkout.verify")
	defer span.End()

	valid := c.PaymentRef != "" &&
		c.OrderRef == intent.ExternalOrderRef &&
		o.gateway.VerifyPaymentSignature(c.OrderRef, c.PaymentRef, c.Signature)
	if valid {
		return nil
	}

	err := fail(StateVerifying, pkgerrors.New(pkgerrors.CodePaymentVerificationFailed, "payment signature mismatch"))
	tracing.RecordError(span, err)
	o.logg.Warn(o.logg.WithField(ctx, "expected_order_ref", intent.ExternalOrderRef), "payment signature verification failed, possible tampering")
	return err
}

func (o *Orchestrator) persist(ctx context.Context, req Request, intent Intent, c Confirmation, lines []cart.Line) (*models.Order, error) {
	ctx, span := o.tracer.Start(ctx, "checkout.persist")
	defer span.End()

	input := orders.CreateOrderInput{
		UserID:         req.Session.UserID,
		VendorID:       intent.VendorID,
		Total:          intent.Amount,
		PaymentID:      c.PaymentRef,
		GatewayOrderID: c.OrderRef,
		Lines:          make([]orders.LineInput, 0, len(lines)),
	}
	for _, l := range lines {
		input.Lines = append(input.Lines, orders.LineInput{
			MenuItemID: l.ItemID,
			Name:       l.Name,
			UnitPrice:  l.UnitPrice,
			Quantity:   l.Quantity,
		})
	}

	order, err := o.orders.Create(ctx, input)
	if err != nil {
		tracing.RecordError(span, err)
		o.logg.Error(ctx, "order persistence failed after captured payment", err)
		return nil, fail(StatePersisting, pkgerrors.Wrap(pkgerrors.CodeOrderPersistFailed, err, persistFailureMessage).
			WithDetails(map[string]any{"paymentId": c.PaymentRef}))
	}
	span.SetAttributes(attribute.String("order.id", order.ID.String()))
	return order, nil
}

func (o *Orchestrator) complete(ctx context.Context, req Request, order *models.Order, vendor *models.Vendor) {
	ctx = o.logg.WithField(ctx, "order_id", order.ID.String())
	if err := o.carts.ClearUser(ctx, req.Session.UserID); err != nil {
		o.logg.WarnErr(ctx, "failed to clear cart after checkout", err)
	}
	o.logg.Info(ctx, "checkout completed")

	o.hooks.Dispatch(ctx, PlacedOrder{
		Order:     *order,
		Vendor:    *vendor,
		Purchaser: req.Session,
		PlacedAt:  o.now(),
	})
}
