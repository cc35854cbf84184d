package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/repository"
)

type OrderRepo struct {
	DB DBTX
}

const orderColumns = `id, user_id, created_at, updated_at, total_amount, status,
	shipping_street, shipping_city, shipping_state, shipping_zip, shipping_country,
	payment_method, payment_status, notes`

const createOrder = `-- name: CreateOrder
INSERT INTO orders (id, user_id, created_at, updated_at, total_amount, status,
	shipping_street, shipping_city, shipping_state, shipping_zip, shipping_country,
	payment_method, payment_status, notes)
VALUES ($1, $2, $3, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + orderColumns

const createOrderItem = `-- name: CreateOrderItem
INSERT INTO order_items (order_id, position, medicine_id, quantity, price)
VALUES ($1, $2, $3, $4, $5)
`

// Create order with its items. Should be called in transaction
// Defaults: status pending, payment method cod, payment status pending
func (r *OrderRepo) CreateOrder(ctx context.Context, o models.Order) (models.Order, error) {
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = models.PaymentMethodCOD
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = models.PaymentStatusPending
	}

	a := o.ShippingAddress
	rows, _ := r.DB.Query(ctx, createOrder,
		uuid.New(), o.UserID, time.Now(), o.TotalAmount, o.Status,
		a.Street, a.City, a.State, a.ZipCode, a.Country,
		o.PaymentMethod, o.PaymentStatus, o.Notes,
	)
	created, err := pgx.CollectOneRow(rows, rowToOrder)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	for i, item := range o.Items {
		_, err := r.DB.Exec(ctx, createOrderItem, created.ID, i, item.MedicineID, item.Quantity, item.Price)
		if err != nil {
			return created, fmt.Errorf("db error: %w", err)
		}
	}
	created.Items = o.Items

	return created, nil
}

const getOrder = `-- name: GetOrder
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
`

func (r *OrderRepo) GetOrder(ctx context.Context, id uuid.UUID) (models.Order, error) {
	rows, _ := r.DB.Query(ctx, getOrder, id)
	o, err := pgx.CollectOneRow(rows, rowToOrder)
	if err != nil {
		return o, notFoundOr(err, apperrors.ErrOrderNotFound)
	}

	orders := []models.Order{o}
	if err := r.fillItems(ctx, orders); err != nil {
		return o, err
	}
	return orders[0], nil
}

const listOrders = `-- name: ListOrders
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::uuid IS NULL OR user_id = $1)
	AND ($2::text = '' OR status = $2)
	AND ($3::text = '' OR payment_status = $3)
ORDER BY created_at DESC
`

func (r *OrderRepo) ListOrders(ctx context.Context, f repository.OrderFilter) ([]models.Order, error) {
	rows, _ := r.DB.Query(ctx, listOrders, f.UserID, f.Status, f.PaymentStatus)
	orders, err := pgx.CollectRows(rows, rowToOrder)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := r.fillItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

const updateOrderStatus = `-- name: UpdateOrderStatus
UPDATE orders SET
	status = $2,
	updated_at = NOW()
WHERE id = $1
RETURNING ` + orderColumns

func (r *OrderRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (models.Order, error) {
	rows, _ := r.DB.Query(ctx, updateOrderStatus, id, status)
	o, err := pgx.CollectOneRow(rows, rowToOrder)
	if err != nil {
		return o, notFoundOr(err, apperrors.ErrOrderNotFound)
	}

	orders := []models.Order{o}
	if err := r.fillItems(ctx, orders); err != nil {
		return o, err
	}
	return orders[0], nil
}

const countOrders = `-- name: CountOrders
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE status = $1)
FROM orders
`

func (r *OrderRepo) CountOrders(ctx context.Context) (int, int, error) {
	var total, pending int
	err := r.DB.QueryRow(ctx, countOrders, models.OrderStatusPending).Scan(&total, &pending)
	if err != nil {
		return 0, 0, fmt.Errorf("db error: %w", err)
	}
	return total, pending, nil
}

const listOrderItems = `-- name: ListOrderItems
SELECT order_id, medicine_id, quantity, price FROM order_items
WHERE order_id = ANY($1)
ORDER BY order_id, position
`

func (r *OrderRepo) fillItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, _ := r.DB.Query(ctx, listOrderItems, ids)
	type itemRow struct {
		orderID uuid.UUID
		item    models.OrderItem
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (itemRow, error) {
		var ir itemRow
		err := row.Scan(&ir.orderID, &ir.item.MedicineID, &ir.item.Quantity, &ir.item.Price)
		return ir, err
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for _, ir := range items {
		i := index[ir.orderID]
		orders[i].Items = append(orders[i].Items, ir.item)
	}
	return nil
}

func rowToOrder(row pgx.CollectableRow) (models.Order, error) {
	var o models.Order
	a := &o.ShippingAddress
	err := row.Scan(
		&o.ID, &o.UserID, &o.CreatedAt, &o.UpdatedAt, &o.TotalAmount, &o.Status,
		&a.Street, &a.City, &a.State, &a.ZipCode, &a.Country,
		&o.PaymentMethod, &o.PaymentStatus, &o.Notes,
	)
	return o, err
}
