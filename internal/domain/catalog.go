package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxPhotoBytes is the hard cap on a stored product photo.
const MaxPhotoBytes = 1_000_000

// Product represents a product in the catalog. Photo bytes are never
// serialized with the record; they are served through the photo
// subresource endpoint.
type Product struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Slug             string    `json:"slug" db:"slug"`
	Description      string    `json:"description" db:"description"`
	Price            float64   `json:"price" db:"price"`
	CategoryID       uuid.UUID `json:"category_id" db:"category_id"`
	Category         *Category `json:"category,omitempty" db:"-"`
	Quantity         int       `json:"quantity" db:"quantity"`
	Shipping         bool      `json:"shipping" db:"shipping"`
	Photo            []byte    `json:"-" db:"photo"`
	PhotoContentType string    `json:"-" db:"photo_content_type"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Category is a reference record owned by an external category service.
// This service only reads it to resolve product categories.
type Category struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
	Slug string    `json:"slug" db:"slug"`
}

// CartItem is one purchased line item as submitted by the client at
// checkout. Price and quantity are captured values, not re-validated
// against current catalog state. Quantity may be omitted; the checkout
// total counts such lines once.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Name      string    `json:"name"`
	Price     float64   `json:"price" validate:"gte=0"`
	Quantity  int       `json:"quantity" validate:"gte=0"`
}

// PaymentResult is the gateway's answer to a sale request.
type PaymentResult struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
}

// Order is written exactly once, after the gateway confirms a sale.
// It is never updated or deleted.
type Order struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	BuyerID   uuid.UUID     `json:"buyer_id" db:"buyer_id"`
	Cart      []CartItem    `json:"cart" db:"cart"`
	Payment   PaymentResult `json:"payment" db:"payment"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}
