package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dulcehogar/shop/internal/cache"
	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/dulcehogar/shop/internal/invoice"
	"github.com/dulcehogar/shop/internal/messaging"
	"github.com/dulcehogar/shop/internal/payment"
	"github.com/dulcehogar/shop/internal/storage"
)

// sessionCacheOp is the cache namespace for completed payment sessions, so
// repeated confirmations skip the provider round trip.
const sessionCacheOp = "session"

// ConfirmResult is what a confirmation call returns. AlreadyProcessed marks
// the idempotent path: the order existed before this call and nothing was
// touched.
type ConfirmResult struct {
	Order            *models.Order `json:"order"`
	LineCount        int           `json:"line_count"`
	InvoiceTriggered bool          `json:"invoice_triggered"`
	AlreadyProcessed bool          `json:"already_processed"`
}

type OrderService interface {
	// ConfirmOrder turns a completed payment session into exactly one order.
	// direct is nil for cart checkouts.
	ConfirmOrder(ctx context.Context, userID int64, sessionID string, addressID int64, direct *models.DirectPurchase) (*ConfirmResult, error)
	ListOrders(ctx context.Context, userID int64) ([]*models.Order, error)
}

type orderService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	productRepo storage.ProductStorage
	cartRepo    storage.CartStorage
	addressRepo storage.AddressStorage
	provider    payment.Provider
	publisher   messaging.Publisher
	cache       cache.Cache
	ordersTopic string
	sessionTTL  time.Duration
}

func NewOrderService(
	log *slog.Logger,
	db *sql.DB,
	orderRepo storage.OrderStorage,
	productRepo storage.ProductStorage,
	cartRepo storage.CartStorage,
	addressRepo storage.AddressStorage,
	provider payment.Provider,
	publisher messaging.Publisher,
	c cache.Cache,
	ordersTopic string,
	sessionTTL time.Duration,
) OrderService {
	return &orderService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		addressRepo: addressRepo,
		provider:    provider,
		publisher:   publisher,
		cache:       c,
		ordersTopic: ordersTopic,
		sessionTTL:  sessionTTL,
	}
}

// confirmLine is a resolved line item with its price and stock frozen
// under row lock.
type confirmLine struct {
	productID      int64
	quantity       int
	unitPriceCents int64
	stock          int
}

// ConfirmOrder executes the confirmation workflow as one transaction:
// idempotency check, line resolution, stock validation under row locks,
// order + item insert, guarded stock decrement, cart clear. The success
// page fires this call on every mount, so duplicate and concurrent calls
// for the same session must all resolve to the same single order.
func (s *orderService) ConfirmOrder(ctx context.Context, userID int64, sessionID string, addressID int64, direct *models.DirectPurchase) (*ConfirmResult, error) {
	const op = "service.OrderService.ConfirmOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("sessionID", sessionID))
	logger.Info("starting order confirmation")

	if sessionID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPayload)
	}

	// fast idempotency path, no transaction needed
	if existing, err := s.orderRepo.GetOrderBySessionID(ctx, sessionID); err == nil {
		// sessions are private to their buyer
		if existing.UserID != userID {
			logger.Warn("session belongs to another user", slog.Int64("ownerID", existing.UserID))
			return nil, fmt.Errorf("%s: session %s: %w", op, sessionID, ErrInvalidPayload)
		}
		logger.Info("session already processed, returning existing order", slog.Int64("orderID", existing.ID))
		return s.existingResult(ctx, existing), nil
	} else if !errors.Is(err, storage.ErrOrderNotFound) {
		logger.Error("failed to look up order by session", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to look up order: %w", op, err)
	}

	if err := s.ensureSessionCompleted(ctx, sessionID); err != nil {
		logger.Warn("payment session not completed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// the address must belong to the buyer
	address, err := s.addressRepo.GetAddressByID(ctx, userID, addressID)
	if err != nil {
		if errors.Is(err, storage.ErrAddressNotFound) {
			return nil, fmt.Errorf("%s: address %d: %w", op, addressID, ErrInvalidPayload)
		}
		logger.Error("failed to get address", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get address: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	items, source, err := s.resolveLineItems(ctx, tx, userID, direct)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		// an empty cart can mean a concurrent confirmation of this same
		// session already committed and cleared it
		if errors.Is(err, ErrInvalidPayload) {
			if res, ok := s.adoptExisting(ctx, userID, sessionID); ok {
				logger.Info("duplicate confirmation, returning existing order", slog.Int64("orderID", res.Order.ID))
				return res, nil
			}
		}
		logger.Error("failed to resolve line items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// lock in product id order so concurrent confirmations cannot deadlock
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	var lines []confirmLine
	var total int64
	for _, item := range items {
		product, err := s.productRepo.LockProductByIDTx(ctx, tx, item.ProductID)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			if errors.Is(err, storage.ErrProductNotFound) {
				return nil, fmt.Errorf("%s: product %d: %w", op, item.ProductID, ErrInvalidPayload)
			}
			logger.Error("failed to lock product", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to lock product: %w", op, err)
		}
		if err := ensureAvailable(product, item.Quantity); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			// waiting on the row lock may have handed the stock to a
			// concurrent confirmation of this same session
			if res, ok := s.adoptExisting(ctx, userID, sessionID); ok {
				logger.Info("duplicate confirmation, returning existing order", slog.Int64("orderID", res.Order.ID))
				return res, nil
			}
			logger.Warn("stock insufficient", slog.Int64("productID", product.ID), slog.Int("available", product.Stock))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		lines = append(lines, confirmLine{
			productID:      product.ID,
			quantity:       item.Quantity,
			unitPriceCents: product.PriceCents,
			stock:          product.Stock,
		})
		total += product.PriceCents * int64(item.Quantity)
	}

	order := &models.Order{
		UserID:           userID,
		AddressID:        address.ID,
		PaymentSessionID: sessionID,
		Status:           models.StatusConfirmed,
		TotalCents:       total,
	}
	order, err = s.orderRepo.CreateOrderTx(ctx, tx, order)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		// a concurrent confirmation won the insert race; their order is the order
		if storage.IsUniqueViolation(err) {
			logger.Info("lost confirmation race, returning existing order")
			existing, readErr := s.orderRepo.GetOrderBySessionID(ctx, sessionID)
			if readErr != nil {
				logger.Error("failed to re-read existing order", slog.Any("error", readErr))
				return nil, fmt.Errorf("%s: failed to re-read existing order: %w", op, readErr)
			}
			if existing.UserID != userID {
				logger.Warn("session belongs to another user", slog.Int64("ownerID", existing.UserID))
				return nil, fmt.Errorf("%s: session %s: %w", op, sessionID, ErrInvalidPayload)
			}
			return s.existingResult(ctx, existing), nil
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	for _, line := range lines {
		orderItem := &models.OrderItem{
			OrderID:        order.ID,
			ProductID:      line.productID,
			Quantity:       line.quantity,
			UnitPriceCents: line.unitPriceCents,
		}
		if err := s.orderRepo.CreateOrderItemTx(ctx, tx, orderItem); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to create order item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create order item: %w", op, err)
		}
		order.Items = append(order.Items, *orderItem)

		if err := s.productRepo.DecrementStockTx(ctx, tx, line.productID, line.quantity); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			if errors.Is(err, storage.ErrNotEnoughStock) {
				return nil, fmt.Errorf("%s: %w", op, &StockInsufficientError{
					ProductID: line.productID,
					Requested: line.quantity,
					Available: line.stock,
				})
			}
			logger.Error("failed to decrement stock", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to decrement stock: %w", op, err)
		}
		if err := s.productRepo.DeactivateIfOutOfStockTx(ctx, tx, line.productID); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to deactivate product", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to deactivate product: %w", op, err)
		}
	}

	if source == models.CartCheckout {
		if err := s.cartRepo.ClearCartTx(ctx, tx, userID); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to clear cart", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to clear cart: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	// post-commit: a publish failure never touches the committed order
	invoiceTriggered := true
	event := messaging.OrderConfirmedEvent{
		OrderID:          order.ID,
		UserID:           userID,
		PaymentSessionID: sessionID,
		TotalCents:       order.TotalCents,
		LineCount:        len(lines),
	}
	if err := s.publisher.PublishEvent(ctx, s.ordersTopic, sessionID, event); err != nil {
		logger.Warn("failed to publish order-confirmed event, invoice will lag", slog.Any("error", err))
		invoiceTriggered = false
	}

	logger.Info("order confirmed", slog.Int64("orderID", order.ID), slog.Int("lineCount", len(lines)), slog.Int64("totalCents", order.TotalCents))
	return &ConfirmResult{
		Order:            order,
		LineCount:        len(lines),
		InvoiceTriggered: invoiceTriggered,
	}, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderService.ListOrders"
	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	return orders, nil
}

// existingResult builds the idempotent answer for an already-confirmed
// session. The publish after the original commit may have failed, so when
// no invoice exists yet the event goes out again; the worker keeps the
// first invoice it generated, duplicates are no-ops.
func (s *orderService) existingResult(ctx context.Context, order *models.Order) *ConfirmResult {
	res := &ConfirmResult{
		Order:            order,
		LineCount:        len(order.Items),
		InvoiceTriggered: true,
		AlreadyProcessed: true,
	}

	key := s.cache.GenerateKey(invoice.CacheOp, order.PaymentSessionID)
	url, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("failed to read invoice cache", slog.Any("error", err))
		return res
	}
	if url != "" {
		return res
	}

	event := messaging.OrderConfirmedEvent{
		OrderID:          order.ID,
		UserID:           order.UserID,
		PaymentSessionID: order.PaymentSessionID,
		TotalCents:       order.TotalCents,
		LineCount:        len(order.Items),
	}
	if err := s.publisher.PublishEvent(ctx, s.ordersTopic, order.PaymentSessionID, event); err != nil {
		s.log.Warn("failed to re-publish order-confirmed event, invoice will lag", slog.Any("error", err))
		res.InvoiceTriggered = false
	}
	return res
}

// adoptExisting resolves a duplicate confirmation that failed mid-flight:
// when the session already has a committed order for this buyer, that
// order is the answer, not the failure the duplicate ran into.
func (s *orderService) adoptExisting(ctx context.Context, userID int64, sessionID string) (*ConfirmResult, bool) {
	existing, err := s.orderRepo.GetOrderBySessionID(ctx, sessionID)
	if err != nil || existing.UserID != userID {
		return nil, false
	}
	return s.existingResult(ctx, existing), true
}

// ensureSessionCompleted asks the provider whether the session finished
// paying, caching positives so repeated confirmations stay cheap. Only
// "completed" is cached; a pending answer is re-asked next time.
func (s *orderService) ensureSessionCompleted(ctx context.Context, sessionID string) error {
	key := s.cache.GenerateKey(sessionCacheOp, sessionID)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached == payment.StatusCompleted {
		return nil
	}

	status, err := s.provider.GetSessionStatus(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to query payment provider: %w", err)
	}
	if status != payment.StatusCompleted {
		return ErrPaymentNotCompleted
	}

	if err := s.cache.Set(ctx, key, payment.StatusCompleted, s.sessionTTL); err != nil {
		// cache trouble only costs an extra provider call next time
		s.log.Warn("failed to cache session status", slog.Any("error", err))
	}
	return nil
}

// resolveLineItems materializes the checkout variant: the fixed direct
// payload when present, the user's cart rows otherwise.
func (s *orderService) resolveLineItems(ctx context.Context, tx *sql.Tx, userID int64, direct *models.DirectPurchase) ([]models.LineItem, models.CheckoutSource, error) {
	if direct != nil {
		if direct.ProductID <= 0 || direct.Quantity <= 0 {
			return nil, models.DirectCheckout, ErrInvalidPayload
		}
		return []models.LineItem{{ProductID: direct.ProductID, Quantity: direct.Quantity}}, models.DirectCheckout, nil
	}

	cartItems, err := s.cartRepo.GetCartItemsTx(ctx, tx, userID)
	if err != nil {
		return nil, models.CartCheckout, fmt.Errorf("failed to get cart items: %w", err)
	}
	if len(cartItems) == 0 {
		return nil, models.CartCheckout, ErrInvalidPayload
	}

	items := make([]models.LineItem, 0, len(cartItems))
	for _, ci := range cartItems {
		items = append(items, models.LineItem{ProductID: ci.ProductID, Quantity: ci.Quantity})
	}
	return items, models.CartCheckout, nil
}
