package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cartworks/internal/domain"
	"cartworks/internal/payment"
	"cartworks/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart = errors.New("cart must contain at least one item")
)

// PaymentService bridges checkout requests to the payment gateway and
// records the resulting order. Products and prices are taken from the
// submitted cart as-is; stock is never decremented here.
type PaymentService interface {
	ClientToken(ctx context.Context) (string, error)
	Checkout(ctx context.Context, buyerID uuid.UUID, nonce string, cart []domain.CartItem) (*domain.Order, error)
}

type paymentService struct {
	gateway   payment.Gateway
	orderRepo repository.OrderRepository
}

// NewPaymentService creates a new instance of PaymentService
func NewPaymentService(gateway payment.Gateway, orderRepo repository.OrderRepository) PaymentService {
	return &paymentService{
		gateway:   gateway,
		orderRepo: orderRepo,
	}
}

// ClientToken requests a one-time client token from the gateway and
// returns it verbatim. Gateway failures are surfaced without retry.
func (s *paymentService) ClientToken(ctx context.Context) (string, error) {
	return s.gateway.GenerateClientToken(ctx)
}

// Checkout submits a sale for the cart total and, only when the gateway
// confirms it, writes the order. The total is the sum of price times
// quantity per line item. The call is not idempotent: resubmitting the
// same nonce and cart creates another order if the gateway accepts it.
func (s *paymentService) Checkout(ctx context.Context, buyerID uuid.UUID, nonce string, cart []domain.CartItem) (*domain.Order, error) {
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	total := CartTotal(cart)

	result, err := s.gateway.Sale(ctx, total, nonce)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		Cart:      cart,
		Payment:   *result,
		CreatedAt: time.Now(),
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to record order: %w", err)
	}

	return order, nil
}

// CartTotal sums price times quantity across the cart. Line items with
// a quantity below one are counted once.
func CartTotal(cart []domain.CartItem) float64 {
	var total float64
	for _, item := range cart {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		total += item.Price * float64(qty)
	}
	return total
}
