package models

import "time"

// Order statuses. Orders are created directly in StatusConfirmed, the
// payment already happened at the provider.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Order is created exactly once per completed payment session;
// PaymentSessionID is the idempotency key (unique column).
type Order struct {
	ID               int64       `json:"id"`
	UserID           int64       `json:"user_id"`
	AddressID        int64       `json:"address_id"`
	PaymentSessionID string      `json:"payment_session_id"`
	Status           string      `json:"status"`
	TotalCents       int64       `json:"total_cents"`
	Items            []OrderItem `json:"items,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// OrderItem captures the unit price at confirmation time, so historical
// orders do not move with later price edits.
type OrderItem struct {
	ID             int64  `json:"id"`
	OrderID        int64  `json:"order_id"`
	ProductID      int64  `json:"product_id"`
	ProductName    string `json:"product_name,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}
