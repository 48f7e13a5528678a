package billing

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/avelar/supermarket-pos/internal/models"
	"github.com/avelar/supermarket-pos/internal/store"
)

type CheckoutResult struct {
	Sale       *models.Sale `json:"sale"`
	Settlement *Settlement  `json:"settlement"`
	Receipt    string       `json:"receipt"`
}

// Checkout runs the full payment flow for a cart: price it, settle the
// payment, durably record the sale with its stock decrements, and render
// the receipt. The cart is cleared only after the sale has committed; any
// failure (insufficient payment, stock drained by another terminal, storage
// error) leaves the cart untouched so the operator can retry.
func Checkout(ctx context.Context, db *sql.DB, cart *Cart, discountPercent decimal.Decimal, method string, tendered decimal.Decimal) (*CheckoutResult, error) {
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	settlement, err := Settle(cart.Subtotal(), discountPercent, method, tendered)
	if err != nil {
		return nil, err
	}

	lines := cart.Lines()
	req := store.RecordSaleRequest{
		TotalAmount:   settlement.DiscountedTotal,
		PaymentMethod: settlement.PaymentMethod,
	}
	for _, line := range lines {
		req.Items = append(req.Items, store.SaleItemRequest{
			ProductCode: line.ProductCode,
			Name:        line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}

	sale, err := store.RecordSale(ctx, db, req)
	if err != nil {
		return nil, err
	}

	receipt := FormatReceipt(lines, settlement)
	cart.Clear()

	return &CheckoutResult{
		Sale:       sale,
		Settlement: settlement,
		Receipt:    receipt,
	}, nil
}
