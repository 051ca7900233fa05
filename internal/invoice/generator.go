package invoice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dulcehogar/shop/internal/cache"
	"github.com/dulcehogar/shop/internal/messaging"
	"github.com/google/uuid"
)

// CacheOp is the cache key namespace for invoice URLs. The invoice endpoint
// reads the same keys when clients poll.
const CacheOp = "invoice"

// Generator turns order-confirmed events into invoice documents and caches
// the resulting URL by payment session id.
type Generator struct {
	log     *slog.Logger
	cache   cache.Cache
	baseURL string
	ttl     time.Duration
}

func NewGenerator(log *slog.Logger, c cache.Cache, baseURL string, ttl time.Duration) *Generator {
	return &Generator{
		log:     log,
		cache:   c,
		baseURL: baseURL,
		ttl:     ttl,
	}
}

// Handle is the message handler for the orders topic. Re-deliveries are
// harmless: an already-cached invoice URL wins.
func (g *Generator) Handle(ctx context.Context, payload []byte) error {
	const op = "invoice.Generator.Handle"

	var event messaging.OrderConfirmedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%s: failed to unmarshal event: %w", op, err)
	}
	logger := g.log.With(slog.String("op", op), slog.String("sessionID", event.PaymentSessionID), slog.Int64("orderID", event.OrderID))

	key := g.cache.GenerateKey(CacheOp, event.PaymentSessionID)
	existing, err := g.cache.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("%s: failed to check existing invoice: %w", op, err)
	}
	if existing != "" {
		logger.Info("invoice already generated, skipping")
		return nil
	}

	invoiceNumber := uuid.NewString()
	url := fmt.Sprintf("%s/invoices/%s.pdf", g.baseURL, invoiceNumber)

	if err := g.cache.Set(ctx, key, url, g.ttl); err != nil {
		return fmt.Errorf("%s: failed to store invoice url: %w", op, err)
	}

	logger.Info("invoice generated", slog.String("invoiceNumber", invoiceNumber))
	return nil
}
