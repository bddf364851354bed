package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/roomezes/roomezes-backend/pkg/db/models"
)

var campusZone = time.FixedZone("IST", 5*60*60+30*60)

const timestampLayout = "02 Jan 2006, 03:04 PM MST"

// FormatVendorMessage renders the order summary a vendor receives: every item with its
// quantity and line total, the grand total and when the order was placed.
func FormatVendorMessage(order models.Order, vendor models.Vendor, placedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New Roomezes order %s for %s\n", shortID(order), vendor.Name)
	writeLines(&b, order)
	fmt.Fprintf(&b, "Placed: %s", placedAt.In(campusZone).Format(timestampLayout))
	return b.String()
}

// FormatReceipt renders the purchaser's plain-text receipt.
func FormatReceipt(order models.Order, vendor models.Vendor, placedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for your order from %s.\n\n", vendor.Name)
	fmt.Fprintf(&b, "Order %s\n", shortID(order))
	writeLines(&b, order)
	fmt.Fprintf(&b, "Payment: %s\n", order.PaymentID)
	fmt.Fprintf(&b, "Placed: %s\n", placedAt.In(campusZone).Format(timestampLayout))
	return b.String()
}

func writeLines(b *strings.Builder, order models.Order) {
	currency := order.Currency.String()
	for _, item := range order.Items {
		fmt.Fprintf(b, "- %s x%d = %s %s\n", item.Name, item.Quantity, currency, item.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(b, "Total: %s %s\n", currency, order.TotalPrice.StringFixed(2))
}

func shortID(order models.Order) string {
	return "#" + strings.ToUpper(order.ID.String()[:8])
}
