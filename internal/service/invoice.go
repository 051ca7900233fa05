package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dulcehogar/shop/internal/cache"
	"github.com/dulcehogar/shop/internal/invoice"
	"github.com/dulcehogar/shop/internal/storage"
)

type InvoiceService interface {
	// GetInvoiceURL returns the invoice URL for the session once the worker
	// has produced it, ErrInvoicePending until then. Safe to poll.
	GetInvoiceURL(ctx context.Context, userID int64, sessionID string) (string, error)
}

type invoiceService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
	cache     cache.Cache
}

func NewInvoiceService(log *slog.Logger, orderRepo storage.OrderStorage, c cache.Cache) InvoiceService {
	return &invoiceService{
		log:       log,
		orderRepo: orderRepo,
		cache:     c,
	}
}

func (s *invoiceService) GetInvoiceURL(ctx context.Context, userID int64, sessionID string) (string, error) {
	const op = "service.InvoiceService.GetInvoiceURL"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("sessionID", sessionID))

	order, err := s.orderRepo.GetOrderBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	// invoices are only visible to the buyer
	if order.UserID != userID {
		return "", fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
	}

	key := s.cache.GenerateKey(invoice.CacheOp, sessionID)
	url, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Error("failed to read invoice cache", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to read invoice cache: %w", op, err)
	}
	if url == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvoicePending)
	}
	return url, nil
}
