package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avelar/supermarket-pos/internal/database"
	"github.com/avelar/supermarket-pos/internal/models"
)

const productColumns = `id, product_code, name, category, price, quantity, created_at, updated_at`

func scanProduct(row *sql.Row) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.Code,
		&product.Name,
		&product.Category,
		&product.Price,
		&product.Quantity,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// FindProductByCode resolves a scanned product code to the current catalog
// row. Not-found is a normal outcome the billing flow branches on.
func FindProductByCode(ctx context.Context, db *sql.DB, code string) (*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE product_code = $1`

	product, err := scanProduct(db.QueryRowContext(ctx, query, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product %q: %w", code, err)
	}

	return product, nil
}

func CreateProduct(ctx context.Context, db *sql.DB, code, name, category string, price decimal.Decimal, quantity int) (*models.Product, error) {
	query := `
		INSERT INTO products (product_code, name, category, price, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query, code, name, category, price, quantity))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrDuplicateProductCode
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func UpdateProduct(ctx context.Context, db *sql.DB, code, name, category string, price decimal.Decimal, quantity int) (*models.Product, error) {
	query := `
		UPDATE products
		SET name = $1, category = $2, price = $3, quantity = $4, updated_at = NOW()
		WHERE product_code = $5
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query, name, category, price, quantity, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product %q: %w", code, err)
	}

	return product, nil
}

func DeleteProduct(ctx context.Context, db *sql.DB, code string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE product_code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete product %q: %w", code, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

// LockProductForSale locks the product row for the settlement transaction
// and verifies the requested quantity is still in stock.
func LockProductForSale(ctx context.Context, tx *sql.Tx, code string, quantity int) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE product_code = $1
		FOR UPDATE`

	err := tx.QueryRowContext(ctx, query, code).Scan(
		&product.ID,
		&product.Code,
		&product.Name,
		&product.Category,
		&product.Price,
		&product.Quantity,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product %q: %w", code, err)
	}

	if product.Quantity < quantity {
		return nil, database.ErrOutOfStock
	}

	return product, nil
}

// DecrementStock is the compare-and-decrement half of settlement: the WHERE
// guard keeps concurrent checkouts from driving stock negative.
func DecrementStock(ctx context.Context, tx *sql.Tx, code string, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET quantity = quantity - $1,
		     updated_at = NOW()
		 WHERE product_code = $2
		   AND quantity >= $1`,
		quantity, code)
	if err != nil {
		return fmt.Errorf("decrement stock for %q: %w", code, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOutOfStock
	}

	return nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY product_code
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// ListLowStock backs the inventory screen: everything at or below the
// restock threshold, emptiest first.
func ListLowStock(ctx context.Context, db *sql.DB, threshold int) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE quantity <= $1
		ORDER BY quantity, product_code`

	rows, err := db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]models.Product, error) {
	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.Code,
			&product.Name,
			&product.Category,
			&product.Price,
			&product.Quantity,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
