package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/dulcehogar/shop/internal/storage"
)

type FavoriteService interface {
	ListFavorites(ctx context.Context, userID int64) ([]*models.Product, error)
	AddFavorite(ctx context.Context, userID, productID int64) error
	RemoveFavorite(ctx context.Context, userID, productID int64) error
}

type favoriteService struct {
	log          *slog.Logger
	favoriteRepo storage.FavoriteStorage
	productRepo  storage.ProductStorage
}

func NewFavoriteService(log *slog.Logger, favoriteRepo storage.FavoriteStorage, productRepo storage.ProductStorage) FavoriteService {
	return &favoriteService{
		log:          log,
		favoriteRepo: favoriteRepo,
		productRepo:  productRepo,
	}
}

// ListFavorites returns the favored products themselves, not the join rows.
func (s *favoriteService) ListFavorites(ctx context.Context, userID int64) ([]*models.Product, error) {
	const op = "service.FavoriteService.ListFavorites"

	favorites, err := s.favoriteRepo.GetFavoritesByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to list favorites", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list favorites: %w", op, err)
	}

	var products []*models.Product
	for _, fav := range favorites {
		product, err := s.productRepo.GetProductByID(ctx, fav.ProductID)
		if err != nil {
			s.log.Error("failed to get product", slog.String("op", op), slog.Int64("productID", fav.ProductID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get product %d: %w", op, fav.ProductID, err)
		}
		products = append(products, product)
	}
	return products, nil
}

func (s *favoriteService) AddFavorite(ctx context.Context, userID, productID int64) error {
	const op = "service.FavoriteService.AddFavorite"

	// reject unknown products early, the FK error is less friendly
	if _, err := s.productRepo.GetProductByID(ctx, productID); err != nil {
		return fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	if err := s.favoriteRepo.AddFavorite(ctx, userID, productID); err != nil {
		s.log.Error("failed to add favorite", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: failed to add favorite: %w", op, err)
	}
	return nil
}

func (s *favoriteService) RemoveFavorite(ctx context.Context, userID, productID int64) error {
	const op = "service.FavoriteService.RemoveFavorite"
	if err := s.favoriteRepo.RemoveFavorite(ctx, userID, productID); err != nil {
		s.log.Error("failed to remove favorite", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: failed to remove favorite: %w", op, err)
	}
	return nil
}
