package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rookgm/chowline/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardSignature(secret string, ts time.Time, body []byte) string {
	unix := strconv.FormatInt(ts.Unix(), 10)
	signed := append([]byte(unix+"."), body...)
	return fmt.Sprintf("t=%s,v1=%s", unix, signHMAC([]byte(secret), signed))
}

func TestCardClient_VerifyWebhook(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)

	tests := []struct {
		name      string
		signature string
		wantErr   bool
	}{
		{
			name:      "valid_signature",
			signature: cardSignature(secret, time.Now(), body),
			wantErr:   false,
		},
		{
			name:      "wrong_secret",
			signature: cardSignature("whsec_other", time.Now(), body),
			wantErr:   true,
		},
		{
			name:      "stale_timestamp",
			signature: cardSignature(secret, time.Now().Add(-10*time.Minute), body),
			wantErr:   true,
		},
		{
			name:      "future_timestamp",
			signature: cardSignature(secret, time.Now().Add(10*time.Minute), body),
			wantErr:   true,
		},
		{
			name:      "missing_signature",
			signature: "",
			wantErr:   true,
		},
		{
			name:      "malformed_signature",
			signature: "garbage",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewCardClient("http://card.test", "key", secret)

			header := http.Header{}
			if tt.signature != "" {
				header.Set("X-Webhook-Signature", tt.signature)
			}

			err := client.VerifyWebhook(header, body)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCardClient_VerifyWebhook_BodyTamper(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"id":"evt_1","data":{"payment_id":"pi_1"}}`)
	sig := cardSignature(secret, time.Now(), body)

	client := NewCardClient("http://card.test", "key", secret)
	header := http.Header{}
	header.Set("X-Webhook-Signature", sig)

	tampered := []byte(`{"id":"evt_1","data":{"payment_id":"pi_2"}}`)
	assert.Error(t, client.VerifyWebhook(header, tampered))
}

func TestCardClient_ParseWebhook(t *testing.T) {
	client := NewCardClient("http://card.test", "key", "secret")

	tests := []struct {
		name    string
		body    string
		want    *models.WebhookEvent
		wantErr bool
	}{
		{
			name: "succeeded",
			body: `{"id":"evt_1","type":"payment.succeeded","data":{"payment_id":"pi_1"}}`,
			want: &models.WebhookEvent{EventID: "evt_1", ExternalID: "pi_1", Kind: models.EventSucceeded},
		},
		{
			name: "approved",
			body: `{"id":"evt_2","type":"payment.approved","data":{"payment_id":"pi_1"}}`,
			want: &models.WebhookEvent{EventID: "evt_2", ExternalID: "pi_1", Kind: models.EventApproved},
		},
		{
			name: "failed",
			body: `{"id":"evt_3","type":"payment.failed","data":{"payment_id":"pi_1"}}`,
			want: &models.WebhookEvent{EventID: "evt_3", ExternalID: "pi_1", Kind: models.EventFailed},
		},
		{
			name: "cancelled",
			body: `{"id":"evt_4","type":"payment.cancelled","data":{"payment_id":"pi_1"}}`,
			want: &models.WebhookEvent{EventID: "evt_4", ExternalID: "pi_1", Kind: models.EventCancelled},
		},
		{
			name:    "unknown_type",
			body:    `{"id":"evt_5","type":"payment.teleported","data":{"payment_id":"pi_1"}}`,
			wantErr: true,
		},
		{
			name:    "missing_payment_id",
			body:    `{"id":"evt_6","type":"payment.succeeded","data":{}}`,
			wantErr: true,
		},
		{
			name:    "not_json",
			body:    `<xml/>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.ParseWebhook([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrValidation)
				return
			}
			require.NoError(t, err)

			tt.want.RawPayload = []byte(tt.body)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseWebhook() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCardClient_CreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		req := cardIntentRequest{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(2700), req.Amount)
		assert.Equal(t, "USD", req.Currency)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(cardIntentResponse{
			ID:           "pi_123",
			ClientSecret: "pi_123_secret",
			Status:       "pending",
		})
	}))
	defer srv.Close()

	client := NewCardClient(srv.URL, "key", "secret")

	intent, err := client.CreateIntent(context.Background(), 2700, "USD", "PAY-ABC")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ExternalID)
	assert.Equal(t, "pi_123_secret", intent.ClientHandle)
}

func TestCardClient_CreateIntent_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewCardClient(srv.URL, "key", "secret")

	_, err := client.CreateIntent(context.Background(), 2700, "USD", "PAY-ABC")
	var provErr *models.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.True(t, provErr.Retryable)
	assert.False(t, provErr.Ambiguous)
}

func TestCardClient_GetStatus(t *testing.T) {
	tests := []struct {
		status string
		want   models.EventKind
	}{
		{"pending", models.EventPending},
		{"requires_confirmation", models.EventPending},
		{"processing", models.EventApproved},
		{"succeeded", models.EventSucceeded},
		{"failed", models.EventFailed},
		{"canceled", models.EventCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v1/payment_intents/pi_1", r.URL.Path)
				json.NewEncoder(w).Encode(cardIntentResponse{ID: "pi_1", Status: tt.status})
			}))
			defer srv.Close()

			client := NewCardClient(srv.URL, "key", "secret")

			kind, err := client.GetStatus(context.Background(), "pi_1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestCardClient_Refund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/refunds", r.URL.Path)

		req := cardRefundRequest{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "pi_1", req.PaymentIntent)
		assert.Equal(t, int64(1000), req.Amount)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewCardClient(srv.URL, "key", "secret")
	require.NoError(t, client.Refund(context.Background(), "pi_1", 1000, "USD"))
}
