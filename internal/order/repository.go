package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/stock-ledger/internal/catalog"
	"github.com/vasiliy-maslov/stock-ledger/internal/db"
	"github.com/vasiliy-maslov/stock-ledger/internal/sales"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNotEditable   = errors.New("order items can only be edited while pending")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrFinalPriceRequired = errors.New("final price is required to mark the order as sold")
)

type Repository interface {
	Create(ctx context.Context, o *Order, items []NewItem) error
	GetByID(ctx context.Context, id, createdBy uuid.UUID) (*Order, error)
	ListByCreator(ctx context.Context, createdBy uuid.UUID) ([]Order, error)
	ReplaceItems(ctx context.Context, id, createdBy uuid.UUID, items []NewItem) (*Order, error)
	MarkSold(ctx context.Context, id, createdBy uuid.UUID, finalPrice *decimal.Decimal) (*Order, []sales.SaleRecord, error)
	Cancel(ctx context.Context, id, createdBy uuid.UUID) (*Order, error)
	Delete(ctx context.Context, id, createdBy uuid.UUID) error
}

type postgresRepository struct {
	pool     *pgxpool.Pool
	products catalog.Repository
	sales    sales.Repository
}

func NewRepository(pool *pgxpool.Pool, products catalog.Repository, salesRepo sales.Repository) Repository {
	return &postgresRepository{pool: pool, products: products, sales: salesRepo}
}

// runTx wraps fn in a transaction. Any error (or panic) rolls back every
// write fn made, including stock adjustments.
func (r *postgresRepository) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("repository: failed to rollback after panic")
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error().Err(rbErr).Msg("repository: failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit transaction: %w", err)
	}
	return nil
}

// insertItems snapshots each product, deducts its stock, and writes the
// order_items rows. Returns the sum of line totals.
func (r *postgresRepository) insertItems(ctx context.Context, tx pgx.Tx, o *Order, items []NewItem) (decimal.Decimal, error) {
	total := decimal.Zero
	o.Items = make([]Item, 0, len(items))

	for _, in := range items {
		var productName string
		var categoryName *string
		var catalogPrice decimal.Decimal

		err := tx.QueryRow(ctx, `
			SELECT p.name, p.price, c.name
			FROM products p
			LEFT JOIN categories c ON p.category_id = c.id
			WHERE p.id = $1
		`, in.ProductID).Scan(&productName, &catalogPrice, &categoryName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return decimal.Zero, fmt.Errorf("product %s: %w", in.ProductID, catalog.ErrProductNotFound)
			}
			return decimal.Zero, fmt.Errorf("repository: failed to snapshot product %s: %w", in.ProductID, err)
		}

		if err := r.products.AdjustQuantity(ctx, tx, in.ProductID, -in.Quantity); err != nil {
			if errors.Is(err, catalog.ErrInsufficientStock) {
				return decimal.Zero, fmt.Errorf("product %s: %w", productName, catalog.ErrInsufficientStock)
			}
			return decimal.Zero, err
		}

		unitPrice := catalogPrice
		if in.UnitPrice != nil {
			unitPrice = *in.UnitPrice
		}
		totalPrice := unitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
		total = total.Add(totalPrice)

		itemID, err := uuid.NewV4()
		if err != nil {
			return decimal.Zero, fmt.Errorf("repository: failed to generate item id: %w", err)
		}

		item := Item{
			ID:           itemID,
			OrderID:      o.ID,
			ProductID:    &in.ProductID,
			ProductName:  productName,
			CategoryName: categoryName,
			Quantity:     in.Quantity,
			UnitPrice:    unitPrice,
			TotalPrice:   totalPrice,
			CreatedAt:    time.Now().UTC(),
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, category_name, quantity, unit_price, total_price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, item.ID, item.OrderID, item.ProductID, item.ProductName, item.CategoryName,
			item.Quantity, item.UnitPrice, item.TotalPrice, item.CreatedAt)
		if err != nil {
			return decimal.Zero, fmt.Errorf("repository: failed to insert order item: %w", err)
		}

		o.Items = append(o.Items, item)
	}

	return total, nil
}

// restoreItems reverses the creation-time deduction for every line that
// still references a live product. Quantity captured on the item drives the
// restoration; negotiated prices never affect stock math.
func (r *postgresRepository) restoreItems(ctx context.Context, tx pgx.Tx, items []Item) error {
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		if err := r.products.AdjustQuantity(ctx, tx, *item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				// Product deleted since the order was placed; nothing to restore.
				continue
			}
			return err
		}
	}
	return nil
}

func (r *postgresRepository) Create(ctx context.Context, o *Order, items []NewItem) error {
	orderID, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate order id: %w", err)
	}
	o.ID = orderID
	o.Status = StatusPending
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	return r.runTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, customer_name, customer_phone, customer_email, delivery_address, delivery_date, status, total_amount, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, o.ID, o.CustomerName, o.CustomerPhone, o.CustomerEmail, o.DeliveryAddress, o.DeliveryDate,
			string(o.Status), decimal.Zero, o.CreatedBy, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order: %w", err)
		}

		total, err := r.insertItems(ctx, tx, o, items)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE orders SET total_amount = $1 WHERE id = $2`, total, o.ID)
		if err != nil {
			return fmt.Errorf("repository: failed to set order total: %w", err)
		}
		o.TotalAmount = total
		return nil
	})
}

const orderColumns = `
	id, customer_name, customer_phone, customer_email, delivery_address, delivery_date,
	status, total_amount, final_price, created_by, created_at, updated_at`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(
		&o.ID, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail, &o.DeliveryAddress, &o.DeliveryDate,
		&o.Status, &o.TotalAmount, &o.FinalPrice, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
}

func (r *postgresRepository) loadItems(ctx context.Context, q db.Querier, orderIDs []uuid.UUID) (map[uuid.UUID][]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, category_name, quantity, unit_price, total_price, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	itemsByOrder := make(map[uuid.UUID][]Item)
	for rows.Next() {
		var item Item
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.CategoryName,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}
	return itemsByOrder, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id, createdBy uuid.UUID) (*Order, error) {
	var o Order
	err := scanOrder(r.pool.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1 AND created_by = $2`, id, createdBy), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	itemsByOrder, err := r.loadItems(ctx, r.pool, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = itemsByOrder[o.ID]
	if o.Items == nil {
		o.Items = make([]Item, 0)
	}
	return &o, nil
}

func (r *postgresRepository) ListByCreator(ctx context.Context, createdBy uuid.UUID) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+orderColumns+` FROM orders WHERE created_by = $1 ORDER BY created_at DESC`, createdBy)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	var orderIDs []uuid.UUID
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		o.Items = make([]Item, 0)
		orders = append(orders, o)
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return orders, nil
	}

	itemsByOrder, err := r.loadItems(ctx, r.pool, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if items, ok := itemsByOrder[orders[i].ID]; ok {
			orders[i].Items = items
		}
	}
	return orders, nil
}

// fetchForUpdate locks the order row for the remainder of the transaction so
// two concurrent transitions on the same order serialize.
func (r *postgresRepository) fetchForUpdate(ctx context.Context, tx pgx.Tx, id, createdBy uuid.UUID) (*Order, error) {
	var o Order
	err := scanOrder(tx.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1 AND created_by = $2 FOR UPDATE`, id, createdBy), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to lock order %s: %w", id, err)
	}

	itemsByOrder, err := r.loadItems(ctx, tx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = itemsByOrder[o.ID]
	if o.Items == nil {
		o.Items = make([]Item, 0)
	}
	return &o, nil
}

func (r *postgresRepository) ReplaceItems(ctx context.Context, id, createdBy uuid.UUID, items []NewItem) (*Order, error) {
	var result *Order

	err := r.runTx(ctx, func(tx pgx.Tx) error {
		o, err := r.fetchForUpdate(ctx, tx, id, createdBy)
		if err != nil {
			return err
		}
		if o.Status != StatusPending {
			return ErrOrderNotEditable
		}

		if err := r.restoreItems(ctx, tx, o.Items); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
			return fmt.Errorf("repository: failed to delete order items: %w", err)
		}

		total, err := r.insertItems(ctx, tx, o, items)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `UPDATE orders SET total_amount = $1, updated_at = $2 WHERE id = $3`, total, now, o.ID); err != nil {
			return fmt.Errorf("repository: failed to update order total: %w", err)
		}
		o.TotalAmount = total
		o.UpdatedAt = now

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepository) MarkSold(ctx context.Context, id, createdBy uuid.UUID, finalPrice *decimal.Decimal) (*Order, []sales.SaleRecord, error) {
	var resultOrder *Order
	var records []sales.SaleRecord

	err := r.runTx(ctx, func(tx pgx.Tx) error {
		o, err := r.fetchForUpdate(ctx, tx, id, createdBy)
		if err != nil {
			return err
		}
		if o.Status != StatusPending {
			return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, o.Status)
		}

		var settled decimal.Decimal
		switch {
		case finalPrice != nil:
			settled = *finalPrice
		case o.TotalAmount.IsPositive():
			settled = o.TotalAmount
		default:
			return ErrFinalPriceRequired
		}

		now := time.Now().UTC()
		_, err = tx.Exec(ctx, `UPDATE orders SET status = $1, final_price = $2, updated_at = $3 WHERE id = $4`,
			string(StatusSold), settled, now, o.ID)
		if err != nil {
			return fmt.Errorf("repository: failed to mark order sold: %w", err)
		}

		itemTotals := make([]decimal.Decimal, len(o.Items))
		for i, item := range o.Items {
			itemTotals[i] = item.TotalPrice
		}
		attributed := distributeSettlement(itemTotals, o.TotalAmount, settled)

		records = make([]sales.SaleRecord, 0, len(o.Items))
		for i, item := range o.Items {
			rec := sales.SaleRecord{
				OrderID:      &o.ID,
				ProductID:    item.ProductID,
				ProductName:  item.ProductName,
				CategoryName: item.CategoryName,
				CustomerName: o.CustomerName,
				FinalPrice:   attributed[i],
				SaleDate:     now,
				CreatedBy:    o.CreatedBy,
			}
			if err := r.sales.Record(ctx, tx, &rec); err != nil {
				return err
			}
			records = append(records, rec)
		}

		o.Status = StatusSold
		o.FinalPrice = &settled
		o.UpdatedAt = now
		resultOrder = o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return resultOrder, records, nil
}

func (r *postgresRepository) Cancel(ctx context.Context, id, createdBy uuid.UUID) (*Order, error) {
	var result *Order

	err := r.runTx(ctx, func(tx pgx.Tx) error {
		o, err := r.fetchForUpdate(ctx, tx, id, createdBy)
		if err != nil {
			return err
		}
		if o.Status != StatusPending {
			return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, o.Status)
		}

		if err := r.restoreItems(ctx, tx, o.Items); err != nil {
			return err
		}

		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
			string(StatusCancelled), now, o.ID); err != nil {
			return fmt.Errorf("repository: failed to cancel order: %w", err)
		}

		o.Status = StatusCancelled
		o.UpdatedAt = now
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete is an administrative hard delete. It does not reverse stock.
func (r *postgresRepository) Delete(ctx context.Context, id, createdBy uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND created_by = $2`, id, createdBy)
	if err != nil {
		return fmt.Errorf("repository: failed to delete order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
