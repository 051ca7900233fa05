package models

import "time"

// Address is a delivery address owned by a user. Orders reference the
// address chosen at checkout.
type Address struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Recipient  string    `json:"recipient"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	CreatedAt  time.Time `json:"created_at"`
}
