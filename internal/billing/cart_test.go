package billing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelar/supermarket-pos/internal/database"
	"github.com/avelar/supermarket-pos/internal/models"
)

type fakeCatalog map[string]*models.Product

func (f fakeCatalog) FindByCode(_ context.Context, code string) (*models.Product, error) {
	product, ok := f[code]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	clone := *product
	return &clone, nil
}

func testCatalog() fakeCatalog {
	return fakeCatalog{
		"P1001": {Code: "P1001", Name: "Milk", Category: "Dairy", Price: decimal.RequireFromString("2.50"), Quantity: 3},
		"P1002": {Code: "P1002", Name: "Bread", Category: "Bakery", Price: decimal.RequireFromString("3.00"), Quantity: 10},
	}
}

func TestAddItemDefaultsToOne(t *testing.T) {
	cart := NewCart()
	catalog := testCatalog()

	line, err := cart.AddItem(context.Background(), catalog, "P1001", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, "Milk", line.Name)
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("2.50")))
}

func TestAddItemSnapshotsPrice(t *testing.T) {
	cart := NewCart()
	catalog := testCatalog()

	_, err := cart.AddItem(context.Background(), catalog, "P1002", 2)
	require.NoError(t, err)

	// A later catalog price change must not alter the quoted line.
	catalog["P1002"].Price = decimal.RequireFromString("99.00")

	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.RequireFromString("3.00")))
	assert.True(t, cart.Subtotal().Equal(decimal.RequireFromString("6.00")))
}

func TestAddItemMergesDuplicateCodes(t *testing.T) {
	cart := NewCart()
	catalog := testCatalog()
	ctx := context.Background()

	_, err := cart.AddItem(ctx, catalog, "P1001", 1)
	require.NoError(t, err)
	line, err := cart.AddItem(ctx, catalog, "P1001", 2)
	require.NoError(t, err)

	assert.Equal(t, 1, cart.Len())
	assert.Equal(t, 3, line.Quantity)
}

func TestAddItemOutOfStockLeavesCartUnchanged(t *testing.T) {
	cart := NewCart()
	catalog := testCatalog()

	_, err := cart.AddItem(context.Background(), catalog, "P1001", 5)
	require.ErrorIs(t, err, database.ErrOutOfStock)

	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.Subtotal().IsZero())
}

func TestAddItemMergedQuantityValidatedAgainstStock(t *testing.T) {
	cart := NewCart()
	catalog := testCatalog()
	ctx := context.Background()

	_, err := cart.AddItem(ctx, catalog, "P1001", 2)
	require.NoError(t, err)

	_, err = cart.AddItem(ctx, catalog, "P1001", 2)
	require.ErrorIs(t, err, database.ErrOutOfStock)

	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAddItemUnknownCode(t *testing.T) {
	cart := NewCart()

	_, err := cart.AddItem(context.Background(), testCatalog(), "NOPE", 1)
	require.ErrorIs(t, err, database.ErrProductNotFound)
	assert.True(t, cart.IsEmpty())
}

func TestUpdateQuantityChecksLiveStock(t *testing.T) {
	cart := NewCart()
	catalog := testCatalog()
	ctx := context.Background()

	_, err := cart.AddItem(ctx, catalog, "P1002", 2)
	require.NoError(t, err)

	// Another terminal drains the shelf between scan and edit.
	catalog["P1002"].Quantity = 4

	_, err = cart.UpdateQuantity(ctx, catalog, "P1002", 5)
	require.ErrorIs(t, err, database.ErrOutOfStock)

	line, err := cart.UpdateQuantity(ctx, catalog, "P1002", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, line.Quantity)
}

func TestUpdateQuantityValidation(t *testing.T) {
	cart := NewCart()
	catalog := testCatalog()
	ctx := context.Background()

	_, err := cart.UpdateQuantity(ctx, catalog, "P1001", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = cart.UpdateQuantity(ctx, catalog, "P1001", 1)
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestRemoveItem(t *testing.T) {
	cart := NewCart()
	catalog := testCatalog()
	ctx := context.Background()

	_, err := cart.AddItem(ctx, catalog, "P1001", 1)
	require.NoError(t, err)
	_, err = cart.AddItem(ctx, catalog, "P1002", 1)
	require.NoError(t, err)

	require.NoError(t, cart.RemoveItem("P1001"))
	assert.ErrorIs(t, cart.RemoveItem("P1001"), ErrLineNotFound)

	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "P1002", lines[0].ProductCode)
}

func TestSubtotalIsExactSum(t *testing.T) {
	cart := NewCart()
	catalog := testCatalog()
	ctx := context.Background()

	_, err := cart.AddItem(ctx, catalog, "P1001", 2)
	require.NoError(t, err)
	_, err = cart.AddItem(ctx, catalog, "P1002", 1)
	require.NoError(t, err)

	assert.True(t, cart.Subtotal().Equal(decimal.RequireFromString("8.00")),
		"subtotal = %s", cart.Subtotal())
}

func TestClear(t *testing.T) {
	cart := NewCart()

	_, err := cart.AddItem(context.Background(), testCatalog(), "P1001", 1)
	require.NoError(t, err)

	cart.Clear()
	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.Subtotal().IsZero())
}
