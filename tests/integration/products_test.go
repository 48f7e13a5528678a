package integration

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/avelar/supermarket-pos/internal/database"
	"github.com/avelar/supermarket-pos/internal/store"
)

func TestProductLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, "P1001", "Milk", "Dairy", decimal.RequireFromString("2.50"), 30)
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	if product.ID == 0 {
		t.Error("Product ID should not be 0")
	}

	found, err := store.FindProductByCode(ctx, db, "P1001")
	if err != nil {
		t.Fatalf("Find product: %v", err)
	}
	if !found.Price.Equal(decimal.RequireFromString("2.50")) {
		t.Errorf("Expected price 2.50, got %s", found.Price)
	}

	_, err = store.FindProductByCode(ctx, db, "MISSING")
	if err != database.ErrProductNotFound {
		t.Errorf("Expected product not found, got: %v", err)
	}

	_, err = store.CreateProduct(ctx, db, "P1001", "Milk 2", "Dairy", decimal.RequireFromString("2.60"), 5)
	if err != database.ErrDuplicateProductCode {
		t.Errorf("Expected duplicate code error, got: %v", err)
	}

	updated, err := store.UpdateProduct(ctx, db, "P1001", "Whole Milk", "Dairy", decimal.RequireFromString("2.75"), 25)
	if err != nil {
		t.Fatalf("Update product: %v", err)
	}
	if updated.Name != "Whole Milk" || updated.Quantity != 25 {
		t.Errorf("Unexpected updated product: %+v", updated)
	}

	if err := store.DeleteProduct(ctx, db, "P1001"); err != nil {
		t.Fatalf("Delete product: %v", err)
	}
	if err := store.DeleteProduct(ctx, db, "P1001"); err != database.ErrProductNotFound {
		t.Errorf("Expected product not found on second delete, got: %v", err)
	}
}

func TestListLowStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := store.CreateProduct(ctx, db, "LOW-001", "Eggs", "Dairy", decimal.RequireFromString("4.20"), 3)
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	_, err = store.CreateProduct(ctx, db, "OK-001", "Rice", "Pantry", decimal.RequireFromString("8.00"), 50)
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	low, err := store.ListLowStock(ctx, db, 10)
	if err != nil {
		t.Fatalf("List low stock: %v", err)
	}
	if len(low) != 1 || low[0].Code != "LOW-001" {
		t.Errorf("Expected only LOW-001 below threshold, got %+v", low)
	}
}

func TestConcurrentStockDecrement(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, "DEC-001", "Soda", "Drinks", decimal.RequireFromString("1.50"), 10)
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	concurrency := 5
	var wg sync.WaitGroup
	errors := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
				if _, err := store.LockProductForSale(ctx, tx, product.Code, 2); err != nil {
					return err
				}

				return store.DecrementStock(ctx, tx, product.Code, 2)
			})

			if err != nil {
				errors <- err
			}
		}()
	}

	wg.Wait()
	close(errors)

	successCount := concurrency
	for err := range errors {
		if err != nil {
			successCount--
		}
	}

	finalProduct, err := store.FindProductByCode(ctx, db, product.Code)
	if err != nil {
		t.Fatalf("Find product: %v", err)
	}

	expectedStock := 10 - (successCount * 2)
	if finalProduct.Quantity != expectedStock {
		t.Errorf("Expected stock %d, got %d", expectedStock, finalProduct.Quantity)
	}
	if finalProduct.Quantity < 0 {
		t.Errorf("Stock went negative: %d", finalProduct.Quantity)
	}
}
