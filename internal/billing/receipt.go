package billing

import (
	"strings"

	"github.com/avelar/supermarket-pos/internal/models"
)

// FormatReceipt renders a settled sale as the fixed-layout text block the
// receipt screen displays. The layout is a contract: header, one line per
// cart row in scan order, separator, discount lines only when a discount
// was applied, total and payment method, cash lines only for cash, and the
// closing thank-you line. Amounts are rounded to two decimals here and
// nowhere else.
func FormatReceipt(lines []Line, s *Settlement) string {
	var b strings.Builder
	b.WriteString("Supermarket Receipt\n")
	b.WriteString("----------------------\n")

	for _, line := range lines {
		b.WriteString(line.Name)
		b.WriteString(" - $")
		b.WriteString(line.Total().StringFixed(2))
		b.WriteString("\n")
	}

	b.WriteString("----------------------\n")

	if s.DiscountPercent.IsPositive() {
		b.WriteString("Discount: ")
		b.WriteString(s.DiscountPercent.String())
		b.WriteString("%\n")
		b.WriteString("Discounted Total: $")
		b.WriteString(s.DiscountedTotal.StringFixed(2))
		b.WriteString("\n")
	}

	b.WriteString("Total: $")
	b.WriteString(s.Subtotal.StringFixed(2))
	b.WriteString("\n")
	b.WriteString("Payment Method: ")
	b.WriteString(s.PaymentMethod)
	b.WriteString("\n")

	if s.PaymentMethod == models.PaymentCash {
		b.WriteString("Cash Paid: $")
		b.WriteString(s.Tendered.StringFixed(2))
		b.WriteString("\n")
		b.WriteString("Change: $")
		b.WriteString(s.Change.StringFixed(2))
		b.WriteString("\n")
	}

	b.WriteString("Thank you for shopping with us!")
	return b.String()
}
