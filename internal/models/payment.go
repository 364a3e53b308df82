package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// payment method
const (
	PaymentMethodCard   = PaymentMethod("card")
	PaymentMethodPayPal = PaymentMethod("paypal")
)

type PaymentMethod string

// payment status
const (
	PaymentStatusPending    = PaymentStatus("PENDING")
	PaymentStatusProcessing = PaymentStatus("PROCESSING")
	PaymentStatusCompleted  = PaymentStatus("COMPLETED")
	PaymentStatusFailed     = PaymentStatus("FAILED")
	PaymentStatusRefunded   = PaymentStatus("REFUNDED")
)

type PaymentStatus string

// IsTerminal reports whether no webhook event may move the payment further.
// REFUNDED is reached only through an explicit refund call.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusRefunded
}

// Payment is one attempt to collect funds for an order.
// Amount is in minor currency units and equals the order total at creation.
type Payment struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Amount     int64
	Currency   string
	Method     PaymentMethod
	Status     PaymentStatus
	ExternalID string
	Reference  string
	Metadata   json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PaymentInit is returned to the client after initializing a payment.
// ClientHandle is whatever the provider hands out for completing the
// payment on the client side (a client secret, an approval URL).
type PaymentInit struct {
	Payment      *Payment
	ClientHandle string
}

// canonical webhook event kinds, provider-specific names are adapted to
// this set before reconciliation
const (
	EventApproved  = EventKind("approved")
	EventSucceeded = EventKind("succeeded")
	EventFailed    = EventKind("failed")
	EventCancelled = EventKind("cancelled")
	// EventPending is reported by provider polls only, never by webhooks
	EventPending = EventKind("pending")
)

type EventKind string

// WebhookEvent is a verified, provider-agnostic payment event.
type WebhookEvent struct {
	EventID    string
	ExternalID string
	Kind       EventKind
	RawPayload json.RawMessage
}
