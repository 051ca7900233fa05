package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/lib/pq"
)

var ErrOrderNotFound = errors.New("order not found")

// SalesSummary is the aggregate behind the admin dashboard.
type SalesSummary struct {
	OrderCount   int64             `json:"order_count"`
	RevenueCents int64             `json:"revenue_cents"`
	TopProducts  []TopProductEntry `json:"top_products"`
}

type TopProductEntry struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitsSold   int64  `json:"units_sold"`
}

// OrderStorage describes access to orders and order_items. Creation runs
// only inside the confirmation transaction.
type OrderStorage interface {
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (*models.Order, error)
	CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error
	GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	GetSalesSummary(ctx context.Context, since time.Time) (*SalesSummary, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. On the orders.payment_session_id index this is the signal that
// a concurrent confirmation won the race.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (*models.Order, error) {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, address_id, payment_session_id, status, total_cents, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id, created_at`,
		order.UserID, order.AddressID, order.PaymentSessionID, order.Status, order.TotalCents,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		// unique violations bubble up untouched so the service can fall
		// back to the existing order
		if IsUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPriceCents,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

func (r *orderRepository) GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	order := &models.Order{}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, address_id, payment_session_id, status, total_cents, created_at
		 FROM orders WHERE payment_session_id = $1`, sessionID)
	if err := row.Scan(&order.ID, &order.UserID, &order.AddressID, &order.PaymentSessionID, &order.Status, &order.TotalCents, &order.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	items, err := r.getOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := `
		SELECT id, user_id, address_id, payment_session_id, status, total_cents, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.UserID, &order.AddressID, &order.PaymentSessionID, &order.Status, &order.TotalCents, &order.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, order := range orders {
		items, err := r.getOrderItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (r *orderRepository) getOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price_cents
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *orderRepository) GetSalesSummary(ctx context.Context, since time.Time) (*SalesSummary, error) {
	summary := &SalesSummary{}
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_cents), 0) FROM orders WHERE status = $1 AND created_at >= $2`,
		models.StatusConfirmed, since)
	if err := row.Scan(&summary.OrderCount, &summary.RevenueCents); err != nil {
		return nil, fmt.Errorf("failed to query sales summary: %w", err)
	}

	query := `
		SELECT oi.product_id, p.name, SUM(oi.quantity) AS units
		FROM order_items oi
		JOIN orders o ON oi.order_id = o.id
		JOIN products p ON oi.product_id = p.id
		WHERE o.status = $1 AND o.created_at >= $2
		GROUP BY oi.product_id, p.name
		ORDER BY units DESC
		LIMIT 10`
	rows, err := r.db.QueryContext(ctx, query, models.StatusConfirmed, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry TopProductEntry
		if err := rows.Scan(&entry.ProductID, &entry.ProductName, &entry.UnitsSold); err != nil {
			return nil, fmt.Errorf("failed to scan top product: %w", err)
		}
		summary.TopProducts = append(summary.TopProducts, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summary, nil
}
