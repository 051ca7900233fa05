package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dulcehogar/shop/internal/domain/models"
)

var ErrCartItemNotFound = errors.New("cart item not found")

// CartStorage describes access to the cart_items table. The Tx variants run
// inside the confirmation transaction.
type CartStorage interface {
	GetCartItems(ctx context.Context, userID int64) ([]*models.CartItem, error)
	GetCartItemsTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error)
	// UpsertCartItem inserts the (user, product) row or adds qty to the
	// existing quantity, returning the resulting quantity.
	UpsertCartItem(ctx context.Context, userID, productID int64, qty int) (int, error)
	DeleteCartItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
	ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

const cartItemColumns = "id, user_id, product_id, quantity, created_at"

func (r *cartRepository) GetCartItems(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	query := fmt.Sprintf("SELECT %s FROM cart_items WHERE user_id = $1 ORDER BY created_at", cartItemColumns)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()
	return scanCartItems(rows)
}

func (r *cartRepository) GetCartItemsTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error) {
	query := fmt.Sprintf("SELECT %s FROM cart_items WHERE user_id = $1 ORDER BY created_at", cartItemColumns)
	rows, err := tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()
	return scanCartItems(rows)
}

func scanCartItems(rows *sql.Rows) ([]*models.CartItem, error) {
	var items []*models.CartItem
	for rows.Next() {
		item := &models.CartItem{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) UpsertCartItem(ctx context.Context, userID, productID int64, qty int) (int, error) {
	var quantity int
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		 RETURNING quantity`,
		userID, productID, qty,
	).Scan(&quantity)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return quantity, nil
}

func (r *cartRepository) DeleteCartItem(ctx context.Context, userID, productID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) ClearCart(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (r *cartRepository) ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
