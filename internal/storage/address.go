package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dulcehogar/shop/internal/domain/models"
)

var ErrAddressNotFound = errors.New("address not found")

type AddressStorage interface {
	GetAddressesByUserID(ctx context.Context, userID int64) ([]*models.Address, error)
	// GetAddressByID is scoped to the owner; a foreign address id reads as
	// not found.
	GetAddressByID(ctx context.Context, userID, addressID int64) (*models.Address, error)
	CreateAddress(ctx context.Context, addr *models.Address) (*models.Address, error)
	DeleteAddress(ctx context.Context, userID, addressID int64) error
}

type addressRepository struct {
	db *sql.DB
}

func NewAddressRepository(db *sql.DB) AddressStorage {
	return &addressRepository{db: db}
}

func (r *addressRepository) GetAddressesByUserID(ctx context.Context, userID int64) ([]*models.Address, error) {
	query := `
		SELECT id, user_id, recipient, street, city, postal_code, created_at
		FROM addresses
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var addrs []*models.Address
	for rows.Next() {
		addr := &models.Address{}
		if err := rows.Scan(&addr.ID, &addr.UserID, &addr.Recipient, &addr.Street, &addr.City, &addr.PostalCode, &addr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addrs = append(addrs, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return addrs, nil
}

func (r *addressRepository) GetAddressByID(ctx context.Context, userID, addressID int64) (*models.Address, error) {
	addr := &models.Address{}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, recipient, street, city, postal_code, created_at
		 FROM addresses WHERE id = $1 AND user_id = $2`, addressID, userID)
	if err := row.Scan(&addr.ID, &addr.UserID, &addr.Recipient, &addr.Street, &addr.City, &addr.PostalCode, &addr.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	return addr, nil
}

func (r *addressRepository) CreateAddress(ctx context.Context, addr *models.Address) (*models.Address, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO addresses (user_id, recipient, street, city, postal_code)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		addr.UserID, addr.Recipient, addr.Street, addr.City, addr.PostalCode,
	).Scan(&addr.ID, &addr.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}
	return addr, nil
}

func (r *addressRepository) DeleteAddress(ctx context.Context, userID, addressID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM addresses WHERE id = $1 AND user_id = $2", addressID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAddressNotFound
	}
	return nil
}
