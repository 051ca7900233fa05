package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/dulcehogar/shop/internal/storage"
)

// CartView is the aggregated cart as served to the client.
type CartView struct {
	Lines      []models.CartLine `json:"lines"`
	TotalCents int64             `json:"total_cents"`
}

type CartService interface {
	GetCart(ctx context.Context, userID int64) (*CartView, error)
	AddToCart(ctx context.Context, userID, productID int64, qty int) error
	RemoveFromCart(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

type cartService struct {
	log         *slog.Logger
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage, productRepo storage.ProductStorage) CartService {
	return &cartService{
		log:         log,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart joins cart rows with their current product snapshots. Subtotals
// use the current price; prices are only frozen at confirmation time.
func (s *cartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	const op = "service.CartService.GetCart"

	items, err := s.cartRepo.GetCartItems(ctx, userID)
	if err != nil {
		s.log.Error("failed to get cart items", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get cart items: %w", op, err)
	}

	view := &CartView{}
	for _, item := range items {
		product, err := s.productRepo.GetProductByID(ctx, item.ProductID)
		if err != nil {
			s.log.Error("failed to get product", slog.String("op", op), slog.Int64("productID", item.ProductID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get product %d: %w", op, item.ProductID, err)
		}
		subtotal := product.PriceCents * int64(item.Quantity)
		view.Lines = append(view.Lines, models.CartLine{
			Product:       *product,
			Quantity:      item.Quantity,
			SubtotalCents: subtotal,
		})
		view.TotalCents += subtotal
	}
	return view, nil
}

// AddToCart upserts the (user, product) row, summing quantities. The stock
// check here is advisory; the confirmation transaction re-checks under lock.
// A request that would push the summed quantity past the stock is rejected,
// not clamped.
func (s *cartService) AddToCart(ctx context.Context, userID, productID int64, qty int) error {
	const op = "service.CartService.AddToCart"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID), slog.Int("qty", qty))

	if qty <= 0 {
		return fmt.Errorf("%s: %w", op, ErrInvalidPayload)
	}

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		logger.Error("failed to get product", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	if !product.Active {
		logger.Warn("product is not active")
		return fmt.Errorf("%s: %w", op, ErrInvalidPayload)
	}

	// current quantity in the cart counts against the stock too
	existing := 0
	items, err := s.cartRepo.GetCartItems(ctx, userID)
	if err != nil {
		logger.Error("failed to get cart items", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get cart items: %w", op, err)
	}
	for _, item := range items {
		if item.ProductID == productID {
			existing = item.Quantity
			break
		}
	}

	if err := ensureAvailable(product, existing+qty); err != nil {
		logger.Warn("stock insufficient", slog.Int("available", product.Stock))
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.cartRepo.UpsertCartItem(ctx, userID, productID, qty); err != nil {
		logger.Error("failed to upsert cart item", slog.Any("error", err))
		return fmt.Errorf("%s: failed to upsert cart item: %w", op, err)
	}

	logger.Info("product added to cart")
	return nil
}

func (s *cartService) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	const op = "service.CartService.RemoveFromCart"
	if err := s.cartRepo.DeleteCartItem(ctx, userID, productID); err != nil {
		s.log.Error("failed to remove cart item", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: failed to remove cart item: %w", op, err)
	}
	return nil
}

func (s *cartService) ClearCart(ctx context.Context, userID int64) error {
	const op = "service.CartService.ClearCart"
	if err := s.cartRepo.ClearCart(ctx, userID); err != nil {
		s.log.Error("failed to clear cart", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: failed to clear cart: %w", op, err)
	}
	return nil
}
