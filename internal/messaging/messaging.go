package messaging

import "context"

// Publisher publishes domain events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber consumes a topic, one handler call per message.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error)
}

// OrderConfirmedEvent is published on the orders topic after a confirmation
// transaction commits. The invoice worker consumes it.
type OrderConfirmedEvent struct {
	OrderID          int64  `json:"order_id"`
	UserID           int64  `json:"user_id"`
	PaymentSessionID string `json:"payment_session_id"`
	TotalCents       int64  `json:"total_cents"`
	LineCount        int    `json:"line_count"`
}
