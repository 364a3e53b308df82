package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/rookgm/chowline/internal/models"
)

// Intent is the provider-side payment object created before the customer
// completes payment. ClientHandle carries whatever the client needs to
// finish the flow (a client secret, an approval URL).
type Intent struct {
	ExternalID   string
	ClientHandle string
}

// Provider is one external payment rail.
type Provider interface {
	Name() string
	// CreateIntent creates the provider-side payment object. Amount is in minor units.
	CreateIntent(ctx context.Context, amount int64, currency, reference string) (*Intent, error)
	// GetStatus polls the provider for the payment's current canonical state
	GetStatus(ctx context.Context, externalID string) (models.EventKind, error)
	// Refund executes a refund on the provider side. Amount is in minor units.
	Refund(ctx context.Context, externalID string, amount int64, currency string) error
	// VerifyWebhook checks the authenticity of an inbound webhook request
	VerifyWebhook(header http.Header, body []byte) error
	// ParseWebhook adapts a verified provider payload to the canonical event shape
	ParseWebhook(body []byte) (*models.WebhookEvent, error)
}

func signHMAC(secret, msg []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHMAC(secret, msg []byte, signature string) bool {
	return hmac.Equal([]byte(signHMAC(secret, msg)), []byte(signature))
}
