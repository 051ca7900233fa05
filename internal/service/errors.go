package service

import (
	"errors"
	"fmt"

	"github.com/dulcehogar/shop/internal/domain/models"
)

var (
	// ErrPaymentNotCompleted means the provider has not reported the session
	// as paid yet; the caller should retry shortly.
	ErrPaymentNotCompleted = errors.New("payment session not completed")
	// ErrInvalidPayload covers malformed or inconsistent checkout data
	// (unknown product, foreign address, empty cart).
	ErrInvalidPayload = errors.New("invalid checkout payload")
	// ErrInvoicePending means the invoice is not generated yet; polling is
	// expected, the order itself stands.
	ErrInvoicePending = errors.New("invoice not available yet")
	// ErrActiveWithoutStock guards the admin rule that a product with zero
	// stock cannot be listed as active.
	ErrActiveWithoutStock = errors.New("product cannot be active with zero stock")
)

// StockInsufficientError names the offending product and what was actually
// available. It aborts the whole operation it occurs in.
type StockInsufficientError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *StockInsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// ensureAvailable is the stock guard shared by cart adds (advisory) and the
// confirmation transaction (authoritative, under row lock).
func ensureAvailable(p *models.Product, requested int) error {
	if requested > p.Stock {
		return &StockInsufficientError{
			ProductID: p.ID,
			Requested: requested,
			Available: p.Stock,
		}
	}
	return nil
}
