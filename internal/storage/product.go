package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/lib/pq"
)

var (
	ErrProductNotFound = errors.New("product not found")
	// ErrNotEnoughStock is returned by DecrementStockTx when the guarded
	// update would take the stock below zero.
	ErrNotEnoughStock = errors.New("not enough stock")
)

// ProductFilter narrows ListProducts. Zero values mean "no filter".
type ProductFilter struct {
	CategoryID int64
	BrandID    int64
	OnlyActive bool
}

// ProductStorage describes access to the products table. The Tx variants
// run inside the caller's transaction; LockProductByIDTx additionally takes
// a row lock so concurrent confirmations serialize per product.
type ProductStorage interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, error)
	SaveProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	SetProductActive(ctx context.Context, id int64, active bool) error
	LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
	DecrementStockTx(ctx context.Context, tx *sql.Tx, id int64, qty int) error
	DeactivateIfOutOfStockTx(ctx context.Context, tx *sql.Tx, id int64) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p := &models.Product{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, price_cents, stock, active, category_id, brand_id, created_at FROM products WHERE id = $1", id)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Active, &p.CategoryID, &p.BrandID, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if err := r.loadImages(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, error) {
	query := `
		SELECT id, name, description, price_cents, stock, active, category_id, brand_id, created_at
		FROM products
		WHERE ($1 = 0 OR category_id = $1)
		  AND ($2 = 0 OR brand_id = $2)
		  AND (NOT $3 OR active)
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, filter.CategoryID, filter.BrandID, filter.OnlyActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Active, &p.CategoryID, &p.BrandID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, p := range products {
		if err := r.loadImages(ctx, p); err != nil {
			return nil, err
		}
	}
	return products, nil
}

// SaveProduct inserts the product when ID is zero, updates it otherwise.
func (r *productRepository) SaveProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.ID == 0 {
		err := r.db.QueryRowContext(ctx,
			`INSERT INTO products (name, description, price_cents, stock, active, category_id, brand_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
			p.Name, p.Description, p.PriceCents, p.Stock, p.Active, p.CategoryID, p.BrandID,
		).Scan(&p.ID, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert product: %w", err)
		}
		return p, nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = $1, description = $2, price_cents = $3, stock = $4, active = $5, category_id = $6, brand_id = $7
		 WHERE id = $8`,
		p.Name, p.Description, p.PriceCents, p.Stock, p.Active, p.CategoryID, p.BrandID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (r *productRepository) SetProductActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE products SET active = $1 WHERE id = $2", active, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// LockProductByIDTx reads the product under FOR UPDATE so the stock the
// caller validates against cannot change until the transaction ends.
func (r *productRepository) LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	p := &models.Product{}
	row := tx.QueryRowContext(ctx,
		"SELECT id, name, description, price_cents, stock, active, category_id, brand_id, created_at FROM products WHERE id = $1 FOR UPDATE", id)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Active, &p.CategoryID, &p.BrandID, &p.CreatedAt); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "55P03" { // lock not available
				return nil, fmt.Errorf("product row is locked, please try again: %w", err)
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// DecrementStockTx subtracts qty, refusing to go below zero. The WHERE guard
// is the final authority even under concurrent confirmations.
func (r *productRepository) DecrementStockTx(ctx context.Context, tx *sql.Tx, id int64, qty int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1", qty, id)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotEnoughStock
	}
	return nil
}

// DeactivateIfOutOfStockTx flips the active flag off once the stock hits
// zero, keeping the "no active product without stock" rule.
func (r *productRepository) DeactivateIfOutOfStockTx(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE products SET active = FALSE WHERE id = $1 AND stock = 0", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	return nil
}

func (r *productRepository) loadImages(ctx context.Context, p *models.Product) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT url FROM product_images WHERE product_id = $1 ORDER BY position", p.ID)
	if err != nil {
		return fmt.Errorf("failed to query product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return fmt.Errorf("failed to scan product image: %w", err)
		}
		p.ImageURLs = append(p.ImageURLs, url)
	}
	return rows.Err()
}
