package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/roomezes/roomezes-backend/internal/cart"
	"github.com/roomezes/roomezes-backend/internal/orders"
	"github.com/roomezes/roomezes-backend/pkg/db/models"
	"github.com/roomezes/roomezes-backend/pkg/enums"
	"github.com/roomezes/roomezes-backend/pkg/razorpay"
)

const testSecret = "test_secret"

type fakeCarts struct {
	mu      sync.Mutex
	lines   []cart.Line
	cleared int
}

func (f *fakeCarts) Snapshot(_ context.Context, _ uuid.UUID) ([]cart.Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]cart.Line, len(f.lines))
	copy(out, f.lines)
	return out, nil
}

func (f *fakeCarts) ClearUser(_ context.Context, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = nil
	f.cleared++
	return nil
}

func (f *fakeCarts) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

type fakeGateway struct {
	mu       sync.Mutex
	orderID  string
	err      error
	requests []razorpay.CreateOrderRequest
	verifies int
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(_ context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &razorpay.Order{ID: g.orderID, Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderRef, paymentRef, signature string) bool {
	g.mu.Lock()
	g.verifies++
	g.mu.Unlock()
	return razorpay.VerifyPaymentSignature(testSecret, orderRef, paymentRef, signature)
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type fakeOrders struct {
	mu      sync.Mutex
	err     error
	created []orders.CreateOrderInput
}

func (f *fakeOrders) Create(_ context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, input)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{
		ID:             uuid.New(),
		UserID:         input.UserID,
		VendorID:       input.VendorID,
		TotalPrice:     input.Total,
		Currency:       enums.CurrencyINR,
		Status:         enums.OrderStatusPending,
		PaymentID:      input.PaymentID,
		GatewayOrderID: input.GatewayOrderID,
	}, nil
}

func (f *fakeOrders) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeVendors struct {
	vendor *models.Vendor
}

func (f fakeVendors) FindByID(_ context.Context, id uuid.UUID) (*models.Vendor, error) {
	if f.vendor == nil || f.vendor.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	v := *f.vendor
	return &v, nil
}

type recordingHook struct {
	name  string
	err   error
	panic bool
	mu    sync.Mutex
	seen  []PlacedOrder
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) Handle(_ context.Context, placed PlacedOrder) error {
	h.mu.Lock()
	h.seen = append(h.seen, placed)
	h.mu.Unlock()
	if h.panic {
		panic("boom")
	}
	return h.err
}

func (h *recordingHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

var errGatewayDown = errors.New("connection refused")

// scenarioLines is one Masala Dosa at 45 and two Idli at 50.
func scenarioLines(vendorID uuid.UUID) []cart.Line {
	return []cart.Line{
		{ItemID: uuid.New(), VendorID: vendorID, Name: "Masala Dosa", UnitPrice: decimal.RequireFromString("45"), Quantity: 1},
		{ItemID: uuid.New(), VendorID: vendorID, Name: "Idli", UnitPrice: decimal.RequireFromString("50"), Quantity: 2},
	}
}

// respond returns a collector that answers every intent with the outcome built by fn.
func respond(fn func(intent Intent) Outcome) PaymentCollector {
	return CollectorFunc(func(_ context.Context, intent Intent) <-chan Outcome {
		ch := make(chan Outcome, 1)
		ch <- fn(intent)
		return ch
	})
}

func signedConfirmation(intent Intent, paymentRef string) Outcome {
	return Confirmed(Confirmation{
		OrderRef:   intent.ExternalOrderRef,
		PaymentRef: paymentRef,
		Signature:  razorpay.Sign(testSecret, intent.ExternalOrderRef, paymentRef),
	})
}
