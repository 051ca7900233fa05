package models

import "time"

// Product is a catalog entry. Prices are stored in cents.
// Invariant: Stock never goes below zero; a product with zero stock
// cannot be active.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	Active      bool      `json:"active"`
	CategoryID  *int64    `json:"category_id,omitempty"`
	BrandID     *int64    `json:"brand_id,omitempty"`
	ImageURLs   []string  `json:"image_urls,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Category groups products (refrigeration, laundry, kitchen, ...).
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Brand is a product manufacturer.
type Brand struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
