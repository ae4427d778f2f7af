package transport

import (
	"errors"
	"net/http"

	"cartworks/internal/domain"
	"cartworks/internal/middleware"
	"cartworks/internal/payment"
	"cartworks/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenResponse carries the gateway client token.
type TokenResponse struct {
	ClientToken string `json:"client_token"`
}

// PaymentRequest is the checkout payload: a payment method nonce from
// the client-side gateway form plus the submitted cart.
type PaymentRequest struct {
	Nonce string            `json:"nonce" validate:"required"`
	Cart  []domain.CartItem `json:"cart" validate:"required,min=1,dive"`
}

// PaymentHandler handles HTTP requests for checkout
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// RegisterRoutes registers the payment routes. Token issuance is
// public; payment submission requires a signed-in buyer.
func (h *PaymentHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/braintree/token", h.Token)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/braintree/payment", h.Submit)
	})
}

// Token issues a one-time client token from the gateway
func (h *PaymentHandler) Token(w http.ResponseWriter, r *http.Request) {
	token, err := h.paymentService.ClientToken(r.Context())
	if err != nil {
		h.logger.Error("Client token generation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadGateway, "payment gateway unavailable")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, TokenResponse{ClientToken: token})
}

// Submit charges the cart total through the gateway and records the
// order on success
func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Payment validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	buyerIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	buyerID, err := uuid.Parse(buyerIDStr)
	if err != nil {
		h.logger.Error("Invalid buyer id in token", zap.String("buyer_id", buyerIDStr))
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	order, err := h.paymentService.Checkout(r.Context(), buyerID, req.Nonce, req.Cart)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, payment.ErrGateway) {
			h.logger.Error("Gateway rejected payment", zap.Error(err))
			middleware.RespondWithError(w, http.StatusBadGateway, "payment failed")
			return
		}

		h.logger.Error("Checkout failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to process payment")
		return
	}

	h.logger.Info("Payment settled",
		zap.String("order_id", order.ID.String()),
		zap.String("transaction_id", order.Payment.TransactionID),
		zap.Float64("amount", order.Payment.Amount),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}
