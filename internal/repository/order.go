package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/chowline/internal/models"
	"github.com/rookgm/chowline/internal/repository/postgres"
)

const (
	insertOrderQuery = `
						INSERT INTO orders (id, number, customer_name, customer_phone, order_type, delivery_address,
							subtotal, tax, delivery_fee, total, status, estimated_ready_at, instructions)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
						RETURNING created_at, updated_at
`
	insertOrderItemQuery = `
						INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price, line_total, customizations)
						VALUES ($1, $2, $3, $4, $5, $6, $7)
						RETURNING id
`
	selectOrderByIDQuery = `
						SELECT id, number, customer_name, customer_phone, order_type, delivery_address,
							subtotal, tax, delivery_fee, total, status, estimated_ready_at, actual_ready_at,
							instructions, created_at, updated_at
						FROM orders
						WHERE id = $1
`
	selectOrderItemsQuery = `
						SELECT id, order_id, menu_item_id, name, quantity, unit_price, line_total, customizations
						FROM order_items
						WHERE order_id = $1
						ORDER BY id
`
	selectActiveOrdersQuery = `
						SELECT id, number, customer_name, customer_phone, order_type, delivery_address,
							subtotal, tax, delivery_fee, total, status, estimated_ready_at, actual_ready_at,
							instructions, created_at, updated_at
						FROM orders
						WHERE status IN ('PENDING', 'CONFIRMED', 'PREPARING', 'READY')
						ORDER BY created_at
`
	countActiveOrdersQuery = `
						SELECT count(*) FROM orders
						WHERE status IN ('CONFIRMED', 'PREPARING')
`
	updateOrderStatusQuery = `
						UPDATE orders
						SET status = $3, actual_ready_at = COALESCE($4, actual_ready_at), updated_at = now()
						WHERE id = $1 AND status = $2
`
	cancelOrderQuery = `
						UPDATE orders
						SET status = 'CANCELLED', instructions = $3, updated_at = now()
						WHERE id = $1 AND status = $2
`
	updateEstimatedReadyQuery = `
						UPDATE orders
						SET estimated_ready_at = $2, updated_at = now()
						WHERE id = $1 AND status IN ('CONFIRMED', 'PREPARING')
`
)

// OrderRepository implements the workflow's OrderRepository interface
type OrderRepository struct {
	db *postgres.DB
}

// NewOrderRepository creates new OrderRepository instance
func NewOrderRepository(db *postgres.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder inserts order header and all items in one transaction.
// A partially written order (header without items) is never observable.
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	err := or.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertOrderQuery,
			order.ID, order.Number, order.CustomerName, order.CustomerPhone, order.Type, order.DeliveryAddress,
			order.Subtotal, order.Tax, order.DeliveryFee, order.Total, order.Status, order.EstimatedReady,
			order.Instructions,
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return err
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			err = tx.QueryRow(ctx, insertOrderItemQuery,
				item.OrderID, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice, item.LineTotal,
				item.Customizations,
			).Scan(&item.ID)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if errCode := or.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return nil, models.ErrConflictData
		}
		return nil, err
	}

	return order, nil
}

// GetOrderByID returns order with its items
func (or *OrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order := models.Order{}
	err := or.db.QueryRow(ctx, selectOrderByIDQuery, id).Scan(
		&order.ID, &order.Number, &order.CustomerName, &order.CustomerPhone, &order.Type, &order.DeliveryAddress,
		&order.Subtotal, &order.Tax, &order.DeliveryFee, &order.Total, &order.Status, &order.EstimatedReady,
		&order.ActualReady, &order.Instructions, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}

	items, err := or.getOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (or *OrderRepository) getOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := or.db.Query(ctx, selectOrderItemsQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}

	for rows.Next() {
		item := models.OrderItem{}
		err = rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name, &item.Quantity,
			&item.UnitPrice, &item.LineTotal, &item.Customizations)
		if err != nil {
			continue
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// ListActiveOrders returns non-terminal orders, oldest first
func (or *OrderRepository) ListActiveOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, selectActiveOrdersQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}

	for rows.Next() {
		order := models.Order{}
		err = rows.Scan(
			&order.ID, &order.Number, &order.CustomerName, &order.CustomerPhone, &order.Type, &order.DeliveryAddress,
			&order.Subtotal, &order.Tax, &order.DeliveryFee, &order.Total, &order.Status, &order.EstimatedReady,
			&order.ActualReady, &order.Instructions, &order.CreatedAt, &order.UpdatedAt,
		)
		if err != nil {
			continue
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := or.getOrderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

// CountActive counts orders currently occupying the kitchen queue.
// Deliberately read outside any creation transaction: two concurrent
// creates may observe the same count. The resulting estimate is
// advisory, not a scheduling guarantee.
func (or *OrderRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := or.db.QueryRow(ctx, countActiveOrdersQuery).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// UpdateOrderStatus moves order from one status to another. The previous
// status is part of the WHERE clause, so a concurrent transition that
// got there first makes this a conflict, not a silent overwrite.
func (or *OrderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, actualReady *time.Time) error {
	cmd, err := or.db.Exec(ctx, updateOrderStatusQuery, id, from, to, actualReady)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrConflict
	}

	return nil
}

// CancelOrder cancels order and replaces its instructions text
func (or *OrderRepository) CancelOrder(ctx context.Context, id uuid.UUID, from models.OrderStatus, instructions string) error {
	cmd, err := or.db.Exec(ctx, cancelOrderQuery, id, from, instructions)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrConflict
	}

	return nil
}

// UpdateEstimatedReady adjusts the estimate while the order is still in
// the kitchen (CONFIRMED or PREPARING)
func (or *OrderRepository) UpdateEstimatedReady(ctx context.Context, id uuid.UUID, readyAt time.Time) error {
	cmd, err := or.db.Exec(ctx, updateEstimatedReadyQuery, id, readyAt)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrConflict
	}

	return nil
}
