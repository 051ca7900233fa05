package models

import "time"

// CartItem is one (user, product) row of a cart. The pair is unique,
// adding the same product again sums the quantity.
type CartItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLine is a cart item joined with its product snapshot, as returned
// to the client. Subtotal is derived from the current product price.
type CartLine struct {
	Product       Product `json:"product"`
	Quantity      int     `json:"quantity"`
	SubtotalCents int64   `json:"subtotal_cents"`
}

// Favorite marks a product on a user's wishlist, independent of the cart.
type Favorite struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}
