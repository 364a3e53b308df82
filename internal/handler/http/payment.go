package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rookgm/chowline/internal/models"
)

type PaymentService interface {
	// Initialize creates the provider-side payment object and the payment row
	Initialize(ctx context.Context, orderID uuid.UUID, method models.PaymentMethod, amount int64) (*models.PaymentInit, error)
	// ApplyWebhookEvent reconciles one verified provider event
	ApplyWebhookEvent(ctx context.Context, event *models.WebhookEvent) error
	// Verify returns current payment state, polling the provider when non-terminal
	Verify(ctx context.Context, reference string) (*models.Payment, error)
	// Refund refunds a completed payment, full or partial
	Refund(ctx context.Context, paymentID uuid.UUID, amount int64) (*models.Payment, error)
}

// PaymentHandler represents HTTP handler for payment-related requests
type PaymentHandler struct {
	svc PaymentService
}

// NewPaymentHandler creates new PaymentHandler instance
func NewPaymentHandler(svc PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

type paymentResponse struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Method    string `json:"method"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	CreatedAt string `json:"created_at"`
}

func newPaymentResponse(payment *models.Payment) paymentResponse {
	return paymentResponse{
		ID:        payment.ID.String(),
		OrderID:   payment.OrderID.String(),
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Method:    string(payment.Method),
		Status:    string(payment.Status),
		Reference: payment.Reference,
		CreatedAt: payment.CreatedAt.Format(time.RFC3339),
	}
}

type initializePaymentRequest struct {
	OrderID string `json:"order_id"`
	Method  string `json:"method"`
	Amount  int64  `json:"amount"`
}

type initializePaymentResponse struct {
	Payment      paymentResponse `json:"payment"`
	ClientHandle string          `json:"client_handle"`
}

// InitializePayment creates a payment for an order
// 201 — payment initialized
// 400 — malformed request
// 404 — order does not exist
// 422 — order not payable, amount mismatch or payment already in flight
// 502 — provider failure, safe to retry
func (ph *PaymentHandler) InitializePayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req initializePaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		init, err := ph.svc.Initialize(r.Context(), orderID, models.PaymentMethod(req.Method), req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, initializePaymentResponse{
			Payment:      newPaymentResponse(init.Payment),
			ClientHandle: init.ClientHandle,
		})
	}
}

// VerifyPayment returns the payment's current state, reconciling against
// the provider when a webhook may have been missed
// 200 — payment state returned
// 404 — unknown reference
// 502 — provider poll failed
func (ph *PaymentHandler) VerifyPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := chi.URLParam(r, "reference")
		if reference == "" {
			http.Error(w, "missing reference", http.StatusBadRequest)
			return
		}

		payment, err := ph.svc.Verify(r.Context(), reference)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newPaymentResponse(payment))
	}
}

type refundPaymentRequest struct {
	Amount int64 `json:"amount,omitempty"`
}

// RefundPayment refunds a completed payment; no amount means full refund
// 200 — refund executed
// 404 — payment does not exist
// 422 — payment not refundable
// 502 — provider failure; a timeout is ambiguous and needs re-verification
func (ph *PaymentHandler) RefundPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid payment id", http.StatusBadRequest)
			return
		}

		var req refundPaymentRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			defer r.Body.Close()
		}

		payment, err := ph.svc.Refund(r.Context(), id, req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newPaymentResponse(payment))
	}
}
