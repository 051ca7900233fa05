package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dulcehogar/shop/internal/domain/models"
)

// CatalogStorage covers the small lookup tables behind the catalog filters.
type CatalogStorage interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	ListBrands(ctx context.Context) ([]*models.Brand, error)
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	CreateBrand(ctx context.Context, name string) (*models.Brand, error)
}

type catalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) CatalogStorage {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *catalogRepository) ListBrands(ctx context.Context) ([]*models.Brand, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM brands ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query brands: %w", err)
	}
	defer rows.Close()

	var brands []*models.Brand
	for rows.Next() {
		b := &models.Brand{}
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func (r *catalogRepository) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	c := &models.Category{Name: name}
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO categories (name) VALUES ($1) RETURNING id", name).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

func (r *catalogRepository) CreateBrand(ctx context.Context, name string) (*models.Brand, error) {
	b := &models.Brand{Name: name}
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO brands (name) VALUES ($1) RETURNING id", name).Scan(&b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}
	return b, nil
}
