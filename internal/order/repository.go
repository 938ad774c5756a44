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
	"github.com/vasiliy-maslov/grocery-shop/internal/db"
)

var ErrOrderNotFound = errors.New("order not found")

type Repository interface {
	BeginTx(ctx context.Context) (db.Tx, error)
	InsertOrder(ctx context.Context, q db.Querier, order *Order) error
	InsertItem(ctx context.Context, q db.Querier, item *OrderItem) error
	UpdateTotal(ctx context.Context, q db.Querier, orderID uuid.UUID, total decimal.Decimal) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrdersByPhone(ctx context.Context, phone string) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error
	InsertPayment(ctx context.Context, payment *Payment) error
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) BeginTx(ctx context.Context) (db.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (r *postgresRepository) InsertOrder(ctx context.Context, q db.Querier, orderInput *Order) error {
	if orderInput.ID == uuid.Nil {
		genID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
		orderInput.ID = genID
	}

	orderInput.UpdatedAt = orderInput.PlacedAt

	query := `
		INSERT INTO orders (id, customer_id, address_id, total_amount, payment_method, status, placed_at, scheduled_for, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := q.Exec(ctx, query,
		orderInput.ID,
		orderInput.CustomerID,
		orderInput.AddressID,
		orderInput.TotalAmount,
		orderInput.PaymentMethod,
		string(orderInput.Status),
		orderInput.PlacedAt,
		orderInput.ScheduledFor,
		orderInput.Notes,
		orderInput.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	return nil
}

func (r *postgresRepository) InsertItem(ctx context.Context, q db.Querier, item *OrderItem) error {
	if item.ID == uuid.Nil {
		genID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order item ID: %w", err)
		}
		item.ID = genID
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := q.Exec(ctx, query,
		item.ID,
		item.OrderID,
		item.ProductID,
		item.Quantity,
		item.UnitPrice,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order item for order %s: %w", item.OrderID, err)
	}

	return nil
}

func (r *postgresRepository) UpdateTotal(ctx context.Context, q db.Querier, orderID uuid.UUID, total decimal.Decimal) error {
	query := `
		UPDATE orders
		SET total_amount = $1, updated_at = $2
		WHERE id = $3
	`

	cmdTag, err := q.Exec(ctx, query, total, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to update total for order %s: %w", orderID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

const orderColumns = `id, customer_id, address_id, total_amount, payment_method, status, placed_at, scheduled_for, notes, updated_at`

func (r *postgresRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`

	var order Order
	err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&order.ID,
		&order.CustomerID,
		&order.AddressID,
		&order.TotalAmount,
		&order.PaymentMethod,
		&order.Status,
		&order.PlacedAt,
		&order.ScheduledFor,
		&order.Notes,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", orderID, err)
	}

	items, err := r.listItems(ctx, []uuid.UUID{orderID})
	if err != nil {
		return nil, err
	}
	order.Items = items

	payments, err := r.ListPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Payments = payments

	return &order, nil
}

func (r *postgresRepository) ListOrdersByPhone(ctx context.Context, phone string) ([]Order, error) {
	query := `
		SELECT o.id, o.customer_id, o.address_id, o.total_amount, o.payment_method, o.status, o.placed_at, o.scheduled_for, o.notes, o.updated_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE c.phone = $1
		ORDER BY o.placed_at DESC
	`

	orderRows, err := r.pool.Query(ctx, query, phone)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for phone %s: %w", phone, err)
	}
	defer orderRows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for orderRows.Next() {
		var order Order
		err := orderRows.Scan(
			&order.ID,
			&order.CustomerID,
			&order.AddressID,
			&order.TotalAmount,
			&order.PaymentMethod,
			&order.Status,
			&order.PlacedAt,
			&order.ScheduledFor,
			&order.Notes,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for phone %s: %w", phone, err)
		}
		order.Items = make([]OrderItem, 0)
		ordersMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err = orderRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders for phone %s: %w", phone, err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	items, err := r.listItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if order, ok := ordersMap[items[i].OrderID]; ok {
			order.Items = append(order.Items, items[i])
		}
	}

	resultOrders := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		if order, ok := ordersMap[id]; ok {
			resultOrders = append(resultOrders, *order)
		}
	}

	return resultOrders, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	cmdTag, err := r.pool.Exec(ctx, query, string(newStatus), time.Now().UTC(), orderID)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Str("new_status", string(newStatus)).Msg("repository: failed to update order status")
		return fmt.Errorf("repository: failed to update status for order %s: %w", orderID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		log.Warn().Stringer("order_id", orderID).Str("new_status", string(newStatus)).Msg("repository: order not found for status update")
		return ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) InsertPayment(ctx context.Context, payment *Payment) error {
	if payment.ID == uuid.Nil {
		genID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate payment ID: %w", err)
		}
		payment.ID = genID
	}
	payment.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO payments (id, order_id, provider, provider_payment_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.Provider,
		payment.ProviderPaymentID,
		payment.Amount,
		payment.Status,
		payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert payment for order %s: %w", payment.OrderID, err)
	}

	return nil
}

func (r *postgresRepository) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	query := `
		SELECT id, order_id, provider, provider_payment_id, amount, status, created_at
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query payments for order %s: %w", orderID, err)
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		var payment Payment
		err := rows.Scan(
			&payment.ID,
			&payment.OrderID,
			&payment.Provider,
			&payment.ProviderPaymentID,
			&payment.Amount,
			&payment.Status,
			&payment.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan payment for order %s: %w", orderID, err)
		}
		payments = append(payments, payment)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating payments for order %s: %w", orderID, err)
	}

	return payments, nil
}

func (r *postgresRepository) listItems(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}

	return items, nil
}
