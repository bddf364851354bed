package notifications

import (
	"context"
	"strings"

	"github.com/roomezes/roomezes-backend/internal/checkout"
	"github.com/roomezes/roomezes-backend/pkg/logger"
	"github.com/roomezes/roomezes-backend/pkg/metrics"
	"github.com/roomezes/roomezes-backend/pkg/twilio"
)

// SMSSender delivers a text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (*twilio.Message, error)
}

// VendorDispatcher tells the vendor about a new order. Without an SMS sender or a vendor phone
// number the message is only logged.
type VendorDispatcher struct {
	sms     SMSSender
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

func NewVendorDispatcher(sms SMSSender, m *metrics.CheckoutMetrics, logg *logger.Logger) *VendorDispatcher {
	if logg == nil {
		logg = logger.Nop()
	}
	return &VendorDispatcher{sms: sms, metrics: m, logg: logg}
}

func (d *VendorDispatcher) Name() string { return "vendor_sms" }

func (d *VendorDispatcher) Handle(ctx context.Context, placed checkout.PlacedOrder) error {
	message := FormatVendorMessage(placed.Order, placed.Vendor, placed.PlacedAt)
	phone := ""
	if placed.Vendor.Phone != nil {
		phone = strings.TrimSpace(*placed.Vendor.Phone)
	}
	ctx = d.logg.WithFields(ctx, map[string]any{
		"phone":    phone,
		"order_id": placed.Order.ID.String(),
		"vendor":   placed.Vendor.Name,
	})

	if d.sms == nil || phone == "" {
		d.logg.Info(d.logg.WithField(ctx, "message", message), "vendor notification logged, sms not configured")
		d.metrics.IncNotification("log", nil)
		return nil
	}

	msg, err := d.sms.SendSMS(ctx, phone, message)
	d.metrics.IncNotification("sms", err)
	if err != nil {
		return err
	}
	d.logg.Info(d.logg.WithField(ctx, "message_sid", msg.SID), "vendor notified")
	return nil
}
