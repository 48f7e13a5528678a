package billing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/avelar/supermarket-pos/internal/models"
)

var oneHundred = decimal.NewFromInt(100)

// ParseDiscount turns raw operator input into an effective discount percent.
// Empty, non-numeric or out-of-range input is silently treated as no
// discount so a typo never blocks the billing flow.
func ParseDiscount(input string) decimal.Decimal {
	input = strings.TrimSpace(input)
	if input == "" {
		return decimal.Zero
	}

	pct, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Zero
	}

	return NormalizeDiscount(pct)
}

// NormalizeDiscount maps anything outside [0,100] to zero. A discount can
// only ever lower the total, never raise it or make it negative.
func NormalizeDiscount(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() || pct.GreaterThan(oneHundred) {
		return decimal.Zero
	}
	return pct
}

// DiscountedTotal applies a percentage discount to the subtotal:
// subtotal * (1 - pct/100), computed in decimal throughout.
func DiscountedTotal(subtotal, pct decimal.Decimal) decimal.Decimal {
	pct = NormalizeDiscount(pct)
	return subtotal.Sub(subtotal.Mul(pct).Div(oneHundred))
}

// Settlement is the pricing outcome for one payment attempt.
type Settlement struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountedTotal decimal.Decimal `json:"discounted_total"`
	PaymentMethod   string          `json:"payment_method"`
	Tendered        decimal.Decimal `json:"tendered"`
	Change          decimal.Decimal `json:"change"`
}

// Settle decides whether a payment covers the discounted total and computes
// the change. Non-cash methods settle for the exact discounted amount; the
// tendered argument only matters for cash. Pure function, no persistence.
func Settle(subtotal, discountPercent decimal.Decimal, method string, tendered decimal.Decimal) (*Settlement, error) {
	if !models.ValidPaymentMethod(method) {
		return nil, ErrInvalidPaymentMethod
	}

	pct := NormalizeDiscount(discountPercent)
	discounted := DiscountedTotal(subtotal, pct)

	if method != models.PaymentCash {
		tendered = discounted
	}

	if tendered.LessThan(discounted) {
		return nil, ErrInsufficientPayment
	}

	return &Settlement{
		Subtotal:        subtotal,
		DiscountPercent: pct,
		DiscountedTotal: discounted,
		PaymentMethod:   method,
		Tendered:        tendered,
		Change:          tendered.Sub(discounted),
	}, nil
}
