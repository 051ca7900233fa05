package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dulcehogar/shop/internal/domain/models"
)

var ErrFavoriteNotFound = errors.New("favorite not found")

type FavoriteStorage interface {
	GetFavoritesByUserID(ctx context.Context, userID int64) ([]*models.Favorite, error)
	// AddFavorite is idempotent, adding an existing pair is a no-op.
	AddFavorite(ctx context.Context, userID, productID int64) error
	RemoveFavorite(ctx context.Context, userID, productID int64) error
}

type favoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) FavoriteStorage {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) GetFavoritesByUserID(ctx context.Context, userID int64) ([]*models.Favorite, error) {
	query := `
		SELECT id, user_id, product_id, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var favorites []*models.Favorite
	for rows.Next() {
		fav := &models.Favorite{}
		if err := rows.Scan(&fav.ID, &fav.UserID, &fav.ProductID, &fav.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		favorites = append(favorites, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return favorites, nil
}

func (r *favoriteRepository) AddFavorite(ctx context.Context, userID, productID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, product_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, product_id) DO NOTHING`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (r *favoriteRepository) RemoveFavorite(ctx context.Context, userID, productID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}
