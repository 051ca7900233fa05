package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/dulcehogar/shop/internal/payment"
	"github.com/dulcehogar/shop/internal/storage"
)

// CheckoutResult carries the provider session the client is redirected to.
type CheckoutResult struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

type CheckoutService interface {
	// StartCheckout creates a hosted-checkout session for the user's cart,
	// or for a single product when direct is set. The session id it returns
	// is the idempotency key of the later confirmation call.
	StartCheckout(ctx context.Context, userID, addressID int64, direct *models.DirectPurchase) (*CheckoutResult, error)
}

type checkoutService struct {
	log         *slog.Logger
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
	addressRepo storage.AddressStorage
	provider    payment.Provider
	successURL  string
}

func NewCheckoutService(
	log *slog.Logger,
	cartRepo storage.CartStorage,
	productRepo storage.ProductStorage,
	addressRepo storage.AddressStorage,
	provider payment.Provider,
	successURL string,
) CheckoutService {
	return &checkoutService{
		log:         log,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		addressRepo: addressRepo,
		provider:    provider,
		successURL:  successURL,
	}
}

func (s *checkoutService) StartCheckout(ctx context.Context, userID, addressID int64, direct *models.DirectPurchase) (*CheckoutResult, error) {
	const op = "service.CheckoutService.StartCheckout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("starting checkout")

	if _, err := s.addressRepo.GetAddressByID(ctx, userID, addressID); err != nil {
		if errors.Is(err, storage.ErrAddressNotFound) {
			return nil, fmt.Errorf("%s: address %d: %w", op, addressID, ErrInvalidPayload)
		}
		logger.Error("failed to get address", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get address: %w", op, err)
	}

	var lines []models.LineItem
	if direct != nil {
		if direct.ProductID <= 0 || direct.Quantity <= 0 {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidPayload)
		}
		lines = []models.LineItem{{ProductID: direct.ProductID, Quantity: direct.Quantity}}
	} else {
		cartItems, err := s.cartRepo.GetCartItems(ctx, userID)
		if err != nil {
			logger.Error("failed to get cart items", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get cart items: %w", op, err)
		}
		if len(cartItems) == 0 {
			return nil, fmt.Errorf("%s: empty cart: %w", op, ErrInvalidPayload)
		}
		for _, ci := range cartItems {
			lines = append(lines, models.LineItem{ProductID: ci.ProductID, Quantity: ci.Quantity})
		}
	}

	// advisory stock check so obviously doomed checkouts fail before the
	// provider redirect; confirmation re-checks under lock
	sessionItems := make([]payment.SessionItem, 0, len(lines))
	for _, line := range lines {
		product, err := s.productRepo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				return nil, fmt.Errorf("%s: product %d: %w", op, line.ProductID, ErrInvalidPayload)
			}
			logger.Error("failed to get product", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
		}
		if err := ensureAvailable(product, line.Quantity); err != nil {
			logger.Warn("stock insufficient at checkout start", slog.Int64("productID", product.ID))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sessionItems = append(sessionItems, payment.SessionItem{
			Name:           product.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: product.PriceCents,
		})
	}

	session, err := s.provider.CreateSession(ctx, sessionItems, s.successURL)
	if err != nil {
		logger.Error("failed to create payment session", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create payment session: %w", op, err)
	}

	logger.Info("checkout session created", slog.String("sessionID", session.ID))
	return &CheckoutResult{SessionID: session.ID, CheckoutURL: session.CheckoutURL}, nil
}
