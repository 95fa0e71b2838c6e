package postgres

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/backoffice/internal/apperr"
	"github.com/xenking/backoffice/internal/domain/analytics"
	"github.com/xenking/backoffice/internal/domain/order"
)

const orderColumns = `id, order_number, table_number, customer_name, items, status,
	total_amount, created_at, updated_at`

const (
	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	setOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1 RETURNING ` + orderColumns

	sumQuantitiesSQL = `SELECT line->>'menuItem', SUM((line->>'quantity')::int)
		FROM orders, jsonb_array_elements(items) AS line
		GROUP BY 1`

	orderNumberConstraint = "orders_order_number_key"
)

var (
	_ order.Repository     = (*OrderRepository)(nil)
	_ analytics.Repository = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository and analytics.Repository.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts o. The lines are stored as a JSONB array. A clash on the
// order number yields order.ErrDuplicateNumber.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	_, err = r.pool.Exec(ctx, insertOrderSQL,
		o.ID, o.Number, o.TableNumber, o.CustomerName, items, string(o.Status),
		o.TotalAmount, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, orderNumberConstraint) {
			return order.ErrDuplicateNumber
		}
		return apperr.Storage(err, "insert order")
	}
	return nil
}

// GetByID returns one order or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, apperr.Storage(err, "get order")
	}
	return collectOrder(rows)
}

// List returns a window of orders, newest first.
func (r *OrderRepository) List(ctx context.Context, q order.ListQuery) ([]order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if q.Status != nil {
		args = append(args, string(*q.Status))
		query += ` WHERE status = $1`
	}
	args = append(args, q.Limit, q.Offset)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) +
		` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, apperr.Storage(err, "scan orders")
	}
	return orders, nil
}

// Count returns the number of orders, optionally with the given status.
func (r *OrderRepository) Count(ctx context.Context, status *order.Status) (int, error) {
	var (
		n   int
		err error
	)
	if status == nil {
		err = r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&n)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE status = $1`, string(*status)).Scan(&n)
	}
	if err != nil {
		return 0, apperr.Storage(err, "count orders")
	}
	return n, nil
}

// SetStatus updates status and updated_at in one statement.
func (r *OrderRepository) SetStatus(ctx context.Context, id string, status order.Status, at time.Time) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, setOrderStatusSQL, id, string(status), at)
	if err != nil {
		return nil, apperr.Storage(err, "set order status")
	}
	return collectOrder(rows)
}

// SumQuantities totals ordered quantities per menu item over every order.
func (r *OrderRepository) SumQuantities(ctx context.Context) ([]analytics.ItemTotal, error) {
	rows, err := r.pool.Query(ctx, sumQuantitiesSQL)
	if err != nil {
		return nil, apperr.Storage(err, "sum quantities")
	}
	totals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (analytics.ItemTotal, error) {
		var (
			t   analytics.ItemTotal
			qty int64
		)
		err := row.Scan(&t.MenuItemID, &qty)
		t.Quantity = int(qty)
		return t, err
	})
	if err != nil {
		return nil, apperr.Storage(err, "scan quantities")
	}
	return totals, nil
}

func collectOrder(rows pgx.Rows) (*order.Order, error) {
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, apperr.Storage(err, "scan order")
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.TableNumber, &o.CustomerName, &o.Items, &status,
		&o.TotalAmount, &o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}
