package notifications

import (
	"context"
	"strings"

	"github.com/roomezes/roomezes-backend/internal/checkout"
	"github.com/roomezes/roomezes-backend/pkg/logger"
	"github.com/roomezes/roomezes-backend/pkg/metrics"
	"github.com/roomezes/roomezes-backend/pkg/sendgrid"
)

type Mailer interface {
	Send(ctx context.Context, mail sendgrid.Mail) error
}

// ReceiptMailer emails the purchaser a receipt when both a mailer and an address exist.
type ReceiptMailer struct {
	mailer  Mailer
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

func NewReceiptMailer(mailer Mailer, m *metrics.CheckoutMetrics, logg *logger.Logger) *ReceiptMailer {
	if logg == nil {
		logg = logger.Nop()
	}
	return &ReceiptMailer{mailer: mailer, metrics: m, logg: logg}
}

func (r *ReceiptMailer) Name() string { return "email_receipt" }

func (r *ReceiptMailer) Handle(ctx context.Context, placed checkout.PlacedOrder) error {
	to := strings.TrimSpace(placed.Purchaser.Email)
	if r.mailer == nil || to == "" {
		r.logg.Debug(ctx, "receipt email skipped")
		return nil
	}

	err := r.mailer.Send(ctx, sendgrid.Mail{
		To:      to,
		Subject: "Your Roomezes order from " + placed.Vendor.Name,
		Text:    FormatReceipt(placed.Order, placed.Vendor, placed.PlacedAt),
	})
	r.metrics.IncNotification("email", err)
	return err
}
