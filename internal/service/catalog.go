package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/dulcehogar/shop/internal/storage"
)

type CatalogService interface {
	ListProducts(ctx context.Context, filter storage.ProductFilter) ([]*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	ListBrands(ctx context.Context) ([]*models.Brand, error)
	// SaveProduct creates or updates a product, enforcing that a product
	// with zero stock cannot be active.
	SaveProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	SetProductActive(ctx context.Context, id int64, active bool) error
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	CreateBrand(ctx context.Context, name string) (*models.Brand, error)
	SalesSummary(ctx context.Context, since time.Time) (*storage.SalesSummary, error)
}

type catalogService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
	catalogRepo storage.CatalogStorage
	orderRepo   storage.OrderStorage
}

func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage, catalogRepo storage.CatalogStorage, orderRepo storage.OrderStorage) CatalogService {
	return &catalogService{
		log:         log,
		productRepo: productRepo,
		catalogRepo: catalogRepo,
		orderRepo:   orderRepo,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProducts"
	products, err := s.productRepo.ListProducts(ctx, filter)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list products: %w", op, err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.CatalogService.GetProduct"
	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		s.log.Error("failed to get product", slog.String("op", op), slog.Int64("productID", id), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	return product, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	const op = "service.CatalogService.ListCategories"
	categories, err := s.catalogRepo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return categories, nil
}

func (s *catalogService) ListBrands(ctx context.Context) ([]*models.Brand, error) {
	const op = "service.CatalogService.ListBrands"
	brands, err := s.catalogRepo.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return brands, nil
}

func (s *catalogService) SaveProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	const op = "service.CatalogService.SaveProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", p.ID))

	if p.Active && p.Stock == 0 {
		logger.Warn("rejected active product with zero stock")
		return nil, fmt.Errorf("%s: %w", op, ErrActiveWithoutStock)
	}
	if p.PriceCents < 0 || p.Stock < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPayload)
	}

	saved, err := s.productRepo.SaveProduct(ctx, p)
	if err != nil {
		logger.Error("failed to save product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to save product: %w", op, err)
	}
	logger.Info("product saved", slog.Int64("productID", saved.ID))
	return saved, nil
}

func (s *catalogService) SetProductActive(ctx context.Context, id int64, active bool) error {
	const op = "service.CatalogService.SetProductActive"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", id))

	if active {
		product, err := s.productRepo.GetProductByID(ctx, id)
		if err != nil {
			logger.Error("failed to get product", slog.Any("error", err))
			return fmt.Errorf("%s: failed to get product: %w", op, err)
		}
		if product.Stock == 0 {
			logger.Warn("rejected activation with zero stock")
			return fmt.Errorf("%s: %w", op, ErrActiveWithoutStock)
		}
	}

	if err := s.productRepo.SetProductActive(ctx, id, active); err != nil {
		logger.Error("failed to set product active", slog.Any("error", err))
		return fmt.Errorf("%s: failed to set product active: %w", op, err)
	}
	return nil
}

func (s *catalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	const op = "service.CatalogService.CreateCategory"
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPayload)
	}
	category, err := s.catalogRepo.CreateCategory(ctx, name)
	if err != nil {
		s.log.Error("failed to create category", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create category: %w", op, err)
	}
	return category, nil
}

func (s *catalogService) CreateBrand(ctx context.Context, name string) (*models.Brand, error) {
	const op = "service.CatalogService.CreateBrand"
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPayload)
	}
	brand, err := s.catalogRepo.CreateBrand(ctx, name)
	if err != nil {
		s.log.Error("failed to create brand", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create brand: %w", op, err)
	}
	return brand, nil
}

func (s *catalogService) SalesSummary(ctx context.Context, since time.Time) (*storage.SalesSummary, error) {
	const op = "service.CatalogService.SalesSummary"
	summary, err := s.orderRepo.GetSalesSummary(ctx, since)
	if err != nil {
		s.log.Error("failed to get sales summary", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get sales summary: %w", op, err)
	}
	return summary, nil
}
