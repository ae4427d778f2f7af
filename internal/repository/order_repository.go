package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"cartworks/internal/domain"
)

// OrderRepository persists orders. Orders are write-once: they are
// created after a confirmed payment and never updated or deleted.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts an order as a single statement. The cart and gateway
// result are stored as JSONB payloads.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	cart, err := json.Marshal(order.Cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	payment, err := json.Marshal(order.Payment)
	if err != nil {
		return fmt.Errorf("failed to encode payment result: %w", err)
	}

	query := `
		INSERT INTO orders (id, buyer_id, cart, payment, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.BuyerID,
		cart,
		payment,
		order.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}
