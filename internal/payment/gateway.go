package payment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"cartworks/internal/config"
	"cartworks/internal/domain"

	braintree "github.com/braintree-go/braintree-go"
)

// ErrGateway marks failures reported by the payment gateway. Callers
// map it to an upstream-failure status; the gateway detail is logged,
// not echoed.
var ErrGateway = errors.New("payment gateway error")

// Gateway abstracts the external payment processor. Exactly one of
// result or error is produced by each call; there are no retries.
type Gateway interface {
	GenerateClientToken(ctx context.Context) (string, error)
	Sale(ctx context.Context, amount float64, nonce string) (*domain.PaymentResult, error)
}

type braintreeGateway struct {
	bt *braintree.Braintree
}

// NewBraintreeGateway builds a Braintree-backed Gateway from the
// configured credentials.
func NewBraintreeGateway(cfg config.BraintreeConfig) Gateway {
	env := braintree.Sandbox
	if cfg.Environment == "production" {
		env = braintree.Production
	}

	return &braintreeGateway{
		bt: braintree.New(env, cfg.MerchantID, cfg.PublicKey, cfg.PrivateKey),
	}
}

// GenerateClientToken requests a one-time client token and returns it
// verbatim.
func (g *braintreeGateway) GenerateClientToken(ctx context.Context) (string, error) {
	token, err := g.bt.ClientToken().Generate(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return token, nil
}

// Sale submits a sale transaction for immediate settlement.
func (g *braintreeGateway) Sale(ctx context.Context, amount float64, nonce string) (*domain.PaymentResult, error) {
	cents := int64(math.Round(amount * 100))

	tx, err := g.bt.Transaction().Create(ctx, &braintree.TransactionRequest{
		Type:               "sale",
		Amount:             braintree.NewDecimal(cents, 2),
		PaymentMethodNonce: nonce,
		Options: &braintree.TransactionOptions{
			SubmitForSettlement: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	return &domain.PaymentResult{
		TransactionID: tx.Id,
		Status:        string(tx.Status),
		Amount:        amount,
	}, nil
}
