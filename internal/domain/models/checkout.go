package models

// CheckoutSource tells where the line items of a checkout come from.
type CheckoutSource string

const (
	// CartCheckout takes the user's current cart rows as line items and
	// clears the cart on successful confirmation.
	CartCheckout CheckoutSource = "cart"
	// DirectCheckout buys a single product from its page, bypassing the
	// cart. Nothing is cleared afterwards.
	DirectCheckout CheckoutSource = "direct"
)

// DirectPurchase is the fixed (product, quantity) payload of a direct
// checkout. It is resolved once at the start of confirmation.
type DirectPurchase struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// LineItem is one (product, quantity) pair of a checkout, either read
// from the cart or taken from a DirectPurchase.
type LineItem struct {
	ProductID int64
	Quantity  int
}
