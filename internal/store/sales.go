package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avelar/supermarket-pos/internal/database"
	"github.com/avelar/supermarket-pos/internal/models"
)

type RecordSaleRequest struct {
	TotalAmount   decimal.Decimal
	PaymentMethod string
	Items         []SaleItemRequest
}

// SaleItemRequest carries the cart-time snapshot of a line: the unit price
// is the price the operator quoted, not whatever the catalog says now.
type SaleItemRequest struct {
	ProductCode string
	Name        string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// RecordSale settles a checkout: one sale row, one snapshot row per line,
// and a guarded stock decrement per line, all inside a single serializable
// transaction. Either everything lands or nothing does; serialization
// conflicts with concurrent terminals are retried.
func RecordSale(ctx context.Context, db *sql.DB, req RecordSaleRequest) (*models.Sale, error) {
	var sale *models.Sale

	err := database.WithRetry(ctx, db, database.SettlementTxOptions(), func(tx *sql.Tx) error {
		for _, item := range req.Items {
			if _, err := LockProductForSale(ctx, tx, item.ProductCode, item.Quantity); err != nil {
				return err
			}
		}

		sale = &models.Sale{
			TotalAmount:   req.TotalAmount,
			PaymentMethod: req.PaymentMethod,
		}
		err := tx.QueryRowContext(ctx,
			`INSERT INTO sales (sale_date, total_amount, payment_method)
			 VALUES (NOW(), $1, $2)
			 RETURNING id, sale_date`,
			req.TotalAmount, req.PaymentMethod).Scan(&sale.ID, &sale.SaleDate)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		for _, item := range req.Items {
			subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

			var saleItem models.SaleItem
			err := tx.QueryRowContext(ctx,
				`INSERT INTO sale_items (sale_id, product_code, name, quantity, unit_price, subtotal)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 RETURNING id`,
				sale.ID, item.ProductCode, item.Name, item.Quantity, item.UnitPrice, subtotal).Scan(&saleItem.ID)
			if err != nil {
				return fmt.Errorf("insert sale item: %w", err)
			}

			saleItem.SaleID = sale.ID
			saleItem.ProductCode = item.ProductCode
			saleItem.Name = item.Name
			saleItem.Quantity = item.Quantity
			saleItem.UnitPrice = item.UnitPrice
			saleItem.Subtotal = subtotal
			sale.Items = append(sale.Items, saleItem)
		}

		for _, item := range req.Items {
			if err := DecrementStock(ctx, tx, item.ProductCode, item.Quantity); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return sale, nil
}

func GetSale(ctx context.Context, db *sql.DB, id int64) (*models.Sale, error) {
	sale := &models.Sale{}

	query := `
		SELECT id, sale_date, total_amount, payment_method
		FROM sales
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&sale.ID,
		&sale.SaleDate,
		&sale.TotalAmount,
		&sale.PaymentMethod,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrSaleNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	itemsQuery := `
		SELECT id, sale_id, product_code, name, quantity, unit_price, subtotal
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id`

	rows, err := db.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get sale items: %w", err)
	}
	defer rows.Close()

	var items []models.SaleItem
	for rows.Next() {
		var item models.SaleItem
		err := rows.Scan(
			&item.ID,
			&item.SaleID,
			&item.ProductCode,
			&item.Name,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	sale.Items = items

	return sale, nil
}

// TotalIncome sums every recorded sale, the figure behind the dashboard's
// total-income screen. An empty sales table reports zero.
func TotalIncome(ctx context.Context, db *sql.DB) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM sales`).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total income: %w", err)
	}

	return total, nil
}

func ListSalesCursor(ctx context.Context, db *sql.DB, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT id, sale_date, total_amount, payment_method
		FROM sales
		WHERE (sale_date, id) < ($1, $2)
		ORDER BY sale_date DESC, id DESC
		LIMIT $3`

	rows, err := db.QueryContext(ctx, query, cursorData.SaleDate, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []models.Sale
	for rows.Next() {
		var sale models.Sale
		err := rows.Scan(
			&sale.ID,
			&sale.SaleDate,
			&sale.TotalAmount,
			&sale.PaymentMethod,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(sales) > limit
	if hasMore {
		sales = sales[:limit]
	}

	var nextCursor string
	if hasMore && len(sales) > 0 {
		lastSale := sales[len(sales)-1]
		nextCursor = EncodeCursor(SaleCursor{
			SaleDate: lastSale.SaleDate,
			ID:       lastSale.ID,
		})
	}

	return &CursorPage{
		Items:      sales,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
