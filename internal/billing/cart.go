package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avelar/supermarket-pos/internal/database"
	"github.com/avelar/supermarket-pos/internal/models"
)

// Catalog resolves a scanned product code against current price and stock.
type Catalog interface {
	FindByCode(ctx context.Context, code string) (*models.Product, error)
}

// CatalogFunc adapts a plain lookup function to the Catalog interface.
type CatalogFunc func(ctx context.Context, code string) (*models.Product, error)

func (f CatalogFunc) FindByCode(ctx context.Context, code string) (*models.Product, error) {
	return f(ctx, code)
}

// Line is one cart row. Name and unit price are snapshots taken when the
// line was added; catalog edits after that point do not change the bill.
type Line struct {
	ProductCode string          `json:"product_code"`
	Name        string          `json:"name"`
	Category    string          `json:"category,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the line items of one checkout session. It lives in memory
// only; stock is not touched until settlement. A cart is driven by a single
// terminal session, so it does no locking of its own.
type Cart struct {
	lines []Line
}

func NewCart() *Cart {
	return &Cart{}
}

// AddItem looks the code up in the catalog and appends it to the cart,
// merging into the existing line when the code was already scanned. A
// non-positive quantity means "one", matching a bare scan. The merged
// quantity is validated against current stock; on failure the cart is left
// exactly as it was.
func (c *Cart) AddItem(ctx context.Context, catalog Catalog, code string, quantity int) (*Line, error) {
	if quantity <= 0 {
		quantity = 1
	}

	product, err := catalog.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	requested := quantity
	existing := c.find(code)
	if existing >= 0 {
		requested += c.lines[existing].Quantity
	}

	if requested > product.Quantity {
		return nil, fmt.Errorf("%w: only %d units of %q available", database.ErrOutOfStock, product.Quantity, code)
	}

	if existing >= 0 {
		c.lines[existing].Quantity = requested
		return &c.lines[existing], nil
	}

	c.lines = append(c.lines, Line{
		ProductCode: product.Code,
		Name:        product.Name,
		Category:    product.Category,
		UnitPrice:   product.Price,
		Quantity:    quantity,
	})
	return &c.lines[len(c.lines)-1], nil
}

// UpdateQuantity sets a line's quantity after re-fetching the product, so
// the check runs against live stock rather than whatever was true at scan
// time. The snapshot price is kept.
func (c *Cart) UpdateQuantity(ctx context.Context, catalog Catalog, code string, quantity int) (*Line, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	idx := c.find(code)
	if idx < 0 {
		return nil, ErrLineNotFound
	}

	product, err := catalog.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if quantity > product.Quantity {
		return nil, fmt.Errorf("%w: only %d units of %q available", database.ErrOutOfStock, product.Quantity, code)
	}

	c.lines[idx].Quantity = quantity
	return &c.lines[idx], nil
}

func (c *Cart) RemoveItem(code string) error {
	idx := c.find(code)
	if idx < 0 {
		return ErrLineNotFound
	}

	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	return nil
}

// Subtotal is the exact pre-discount sum of quantity times unit price.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Total())
	}
	return total
}

// Lines returns the cart rows in scan order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) find(code string) int {
	for i, line := range c.lines {
		if line.ProductCode == code {
			return i
		}
	}
	return -1
}
