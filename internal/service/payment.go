package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/chowline/internal/models"
	"github.com/rookgm/chowline/internal/provider"
	"go.uber.org/zap"
)

// PaymentRepository is interface for interacting with payment-related data
type PaymentRepository interface {
	// CreatePayment inserts new payment row
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	// GetPaymentByID returns payment by id
	GetPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	// GetPaymentByExternalID returns payment by the provider-assigned id
	GetPaymentByExternalID(ctx context.Context, externalID string) (*models.Payment, error)
	// GetPaymentByReference returns payment by the internal reference
	GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	// HasActivePayment reports whether order has a payment in PENDING or PROCESSING
	HasActivePayment(ctx context.Context, orderID uuid.UUID) (bool, error)
	// ListStuckPayments returns non-terminal payments untouched since before cutoff
	ListStuckPayments(ctx context.Context, cutoff time.Time) ([]models.Payment, error)
	// CompletePayment atomically records the event, completes the payment and
	// confirms the order when it is still pending
	CompletePayment(ctx context.Context, eventID string, paymentID, orderID uuid.UUID) (bool, error)
	// FailPayment atomically records the event and fails the payment
	FailPayment(ctx context.Context, eventID string, paymentID uuid.UUID, kind models.EventKind) error
	// MarkProcessing atomically records the event and moves the payment to PROCESSING
	MarkProcessing(ctx context.Context, eventID string, paymentID uuid.UUID) error
	// MarkRefunded moves the payment COMPLETED -> REFUNDED
	MarkRefunded(ctx context.Context, paymentID uuid.UUID) error
}

// OrderReader loads orders for payment checks and notifications
type OrderReader interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// PaymentService creates provider-side payment objects and applies
// webhook-driven state changes idempotently.
type PaymentService struct {
	repo      PaymentRepository
	orders    OrderReader
	providers map[models.PaymentMethod]provider.Provider
	notifier  Notifier
	currency  string
	logger    *zap.Logger
}

// NewPaymentService creates new PaymentService instance
func NewPaymentService(repo PaymentRepository, orders OrderReader, providers map[models.PaymentMethod]provider.Provider, notifier Notifier, currency string, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		repo:      repo,
		orders:    orders,
		providers: providers,
		notifier:  notifier,
		currency:  currency,
		logger:    logger,
	}
}

// newPaymentReference generates a short human-shareable payment reference
func newPaymentReference() string {
	u := uuid.New()
	return "PAY-" + strings.ToUpper(hex.EncodeToString(u[:6]))
}

// Initialize creates the provider-side payment object and persists the
// payment row. The provider call sits outside any local transaction: the
// row is written only after the call succeeds, so a provider failure or
// timeout leaves nothing behind and the caller may retry.
func (ps *PaymentService) Initialize(ctx context.Context, orderID uuid.UUID, method models.PaymentMethod, amount int64) (*models.PaymentInit, error) {
	prov, ok := ps.providers[method]
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment method %q", models.ErrValidation, method)
	}

	order, err := ps.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusPending {
		return nil, models.ErrNotPayable
	}
	// defense against client-side tampering
	if amount != order.Total {
		return nil, models.ErrAmountMismatch
	}

	active, err := ps.repo.HasActivePayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, models.ErrPaymentInFlight
	}

	reference := newPaymentReference()

	intent, err := prov.CreateIntent(ctx, amount, ps.currency, reference)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:         uuid.New(),
		OrderID:    orderID,
		Amount:     amount,
		Currency:   ps.currency,
		Method:     method,
		Status:     models.PaymentStatusPending,
		ExternalID: intent.ExternalID,
		Reference:  reference,
		Metadata:   []byte("{}"),
	}

	payment, err = ps.repo.CreatePayment(ctx, payment)
	if err != nil {
		return nil, err
	}

	ps.logger.Info("payment initialized",
		zap.String("reference", reference),
		zap.String("method", string(method)),
		zap.String("order", orderID.String()))

	return &models.PaymentInit{
		Payment:      payment,
		ClientHandle: intent.ClientHandle,
	}, nil
}

// ApplyWebhookEvent reconciles one verified provider event. Replays,
// unknown references and out-of-order deliveries all resolve to a nil
// return so the webhook handler can ack and stop redelivery.
func (ps *PaymentService) ApplyWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	payment, err := ps.repo.GetPaymentByExternalID(ctx, event.ExternalID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// the two systems are out of sync, redelivery will not help
			ps.logger.Warn("webhook for unknown payment, discarding",
				zap.String("event", event.EventID),
				zap.String("external_id", event.ExternalID))
			return nil
		}
		return err
	}

	return ps.applyKind(ctx, payment, event.Kind, event.EventID)
}

// applyKind advances the payment if its current status is compatible with
// kind, otherwise no-ops. Events carry no ordering guarantee, so every
// transition is "if currently compatible, advance" rather than requiring
// a strict predecessor.
func (ps *PaymentService) applyKind(ctx context.Context, payment *models.Payment, kind models.EventKind, eventID string) error {
	log := ps.logger.With(
		zap.String("event", eventID),
		zap.String("kind", string(kind)),
		zap.String("reference", payment.Reference),
		zap.String("payment_status", string(payment.Status)))

	switch kind {
	case models.EventSucceeded:
		switch payment.Status {
		case models.PaymentStatusCompleted, models.PaymentStatusRefunded:
			log.Debug("success event replay, no-op")
			return nil
		case models.PaymentStatusFailed:
			log.Warn("success event for failed payment, discrepancy ignored")
			return nil
		}

		confirmed, err := ps.repo.CompletePayment(ctx, eventID, payment.ID, payment.OrderID)
		if err != nil {
			if errors.Is(err, models.ErrConflict) {
				// replay of the same event id or a lost race with its twin
				log.Debug("success event already applied")
				return nil
			}
			return err
		}

		log.Info("payment completed")

		if confirmed {
			ps.notifyOrder(ctx, payment.OrderID)
		}

	case models.EventFailed, models.EventCancelled:
		if payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusProcessing {
			log.Debug("failure event for settled payment, no-op")
			return nil
		}

		// order stays PENDING so the customer may retry with a new payment
		if err := ps.repo.FailPayment(ctx, eventID, payment.ID, kind); err != nil {
			if errors.Is(err, models.ErrConflict) {
				log.Debug("failure event already applied")
				return nil
			}
			return err
		}

		log.Info("payment failed")

	case models.EventApproved:
		if payment.Status != models.PaymentStatusPending {
			log.Debug("approval event out of order, no-op")
			return nil
		}

		if err := ps.repo.MarkProcessing(ctx, eventID, payment.ID); err != nil {
			if errors.Is(err, models.ErrConflict) {
				log.Debug("approval event already applied")
				return nil
			}
			return err
		}

		log.Info("payment approved")

	case models.EventPending:
		log.Debug("payment still pending at provider")
	}

	return nil
}

// Verify returns the payment's current state, polling the provider once
// when the payment is not yet terminal. Covers webhooks that were never
// delivered.
func (ps *PaymentService) Verify(ctx context.Context, reference string) (*models.Payment, error) {
	payment, err := ps.repo.GetPaymentByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if payment.Status.IsTerminal() {
		return payment, nil
	}

	prov, ok := ps.providers[payment.Method]
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment method %q", models.ErrValidation, payment.Method)
	}

	kind, err := prov.GetStatus(ctx, payment.ExternalID)
	if err != nil {
		return nil, err
	}

	if err := ps.applyKind(ctx, payment, kind, "poll-"+uuid.NewString()); err != nil {
		return nil, err
	}

	return ps.repo.GetPaymentByReference(ctx, reference)
}

// Refund refunds a completed payment. The provider executes first; local
// state is updated only after provider confirmation, so we never claim a
// refund happened when it did not. A full refund moves the payment to
// REFUNDED, a partial one leaves it COMPLETED.
func (ps *PaymentService) Refund(ctx context.Context, paymentID uuid.UUID, amount int64) (*models.Payment, error) {
	payment, err := ps.repo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != models.PaymentStatusCompleted {
		return nil, models.ErrNotRefundable
	}

	if amount <= 0 {
		amount = payment.Amount
	}
	if amount > payment.Amount {
		return nil, fmt.Errorf("%w: refund amount exceeds payment amount", models.ErrValidation)
	}

	prov, ok := ps.providers[payment.Method]
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment method %q", models.ErrValidation, payment.Method)
	}

	if err := prov.Refund(ctx, payment.ExternalID, amount, payment.Currency); err != nil {
		return nil, err
	}

	if amount == payment.Amount {
		if err := ps.repo.MarkRefunded(ctx, paymentID); err != nil {
			return nil, err
		}
	}

	ps.logger.Info("payment refunded",
		zap.String("reference", payment.Reference),
		zap.Int64("amount", amount),
		zap.Bool("full", amount == payment.Amount))

	return ps.repo.GetPaymentByID(ctx, paymentID)
}

// GetStuckPayments writes references of payments needing re-verification
// to the channel for the verify worker.
func (ps *PaymentService) GetStuckPayments(ctx context.Context, grace time.Duration, refCh chan<- string) error {
	payments, err := ps.repo.ListStuckPayments(ctx, time.Now().Add(-grace))
	if err != nil {
		return err
	}

	for _, payment := range payments {
		refCh <- payment.Reference
	}

	return nil
}

// ReconcilePending re-verifies payments from the channel against the provider
func (ps *PaymentService) ReconcilePending(ctx context.Context, refCh <-chan string) {
	for {
		select {
		case <-ctx.Done():
			ps.logger.Debug("payment reconciliation is done")
			return
		case reference, ok := <-refCh:
			if !ok {
				return
			}

			ps.logger.Debug("re-verifying payment", zap.String("reference", reference))
			if _, err := ps.Verify(ctx, reference); err != nil {
				ps.logger.Error("payment verification error",
					zap.String("reference", reference),
					zap.Error(err))
			}
		}
	}
}

// notifyOrder broadcasts the order's new state, best-effort
func (ps *PaymentService) notifyOrder(ctx context.Context, orderID uuid.UUID) {
	order, err := ps.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		ps.logger.Warn("load order for notification", zap.String("order", orderID.String()), zap.Error(err))
		return
	}

	if err := ps.notifier.Publish(ctx, order); err != nil {
		ps.logger.Warn("publish order notification",
			zap.String("order", order.Number),
			zap.String("status", string(order.Status)),
			zap.Error(err))
	}
}
