package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rookgm/chowline/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorToDecimal(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{2700, "27.00"},
		{2705, "27.05"},
		{99, "0.99"},
		{100, "1.00"},
		{5, "0.05"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, minorToDecimal(tt.amount))
	}
}

func TestPayPalClient_VerifyWebhook(t *testing.T) {
	const webhookID = "wh_test"
	body := []byte(`{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED"}`)

	signedHeader := func(id, ts string, body []byte) http.Header {
		header := http.Header{}
		header.Set("Paypal-Transmission-Id", id)
		header.Set("Paypal-Transmission-Time", ts)
		header.Set("Paypal-Transmission-Sig", signHMAC([]byte(webhookID), append([]byte(id+"|"+ts+"|"), body...)))
		return header
	}

	client := NewPayPalClient("http://paypal.test", "key", webhookID)

	t.Run("valid_signature", func(t *testing.T) {
		header := signedHeader("tx-1", "2026-08-30T12:00:00Z", body)
		assert.NoError(t, client.VerifyWebhook(header, body))
	})

	t.Run("missing_headers", func(t *testing.T) {
		assert.Error(t, client.VerifyWebhook(http.Header{}, body))
	})

	t.Run("tampered_body", func(t *testing.T) {
		header := signedHeader("tx-1", "2026-08-30T12:00:00Z", body)
		assert.Error(t, client.VerifyWebhook(header, []byte(`{"id":"WH-2"}`)))
	})

	t.Run("wrong_webhook_id", func(t *testing.T) {
		other := NewPayPalClient("http://paypal.test", "key", "wh_other")
		header := signedHeader("tx-1", "2026-08-30T12:00:00Z", body)
		assert.Error(t, other.VerifyWebhook(header, body))
	})
}

func TestPayPalClient_ParseWebhook(t *testing.T) {
	client := NewPayPalClient("http://paypal.test", "key", "wh_test")

	tests := []struct {
		name           string
		body           string
		wantKind       models.EventKind
		wantExternalID string
		wantErr        bool
	}{
		{
			name:           "capture_completed_uses_related_order_id",
			body:           `{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"cap_1","supplementary_data":{"related_ids":{"order_id":"ord_1"}}}}`,
			wantKind:       models.EventSucceeded,
			wantExternalID: "ord_1",
		},
		{
			name:           "order_approved_falls_back_to_resource_id",
			body:           `{"id":"WH-2","event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"ord_1"}}`,
			wantKind:       models.EventApproved,
			wantExternalID: "ord_1",
		},
		{
			name:           "capture_denied",
			body:           `{"id":"WH-3","event_type":"PAYMENT.CAPTURE.DENIED","resource":{"id":"cap_1","supplementary_data":{"related_ids":{"order_id":"ord_1"}}}}`,
			wantKind:       models.EventFailed,
			wantExternalID: "ord_1",
		},
		{
			name:           "capture_reversed",
			body:           `{"id":"WH-4","event_type":"PAYMENT.CAPTURE.REVERSED","resource":{"id":"cap_1","supplementary_data":{"related_ids":{"order_id":"ord_1"}}}}`,
			wantKind:       models.EventCancelled,
			wantExternalID: "ord_1",
		},
		{
			name:    "unknown_event_type",
			body:    `{"id":"WH-5","event_type":"BILLING.PLAN.CREATED","resource":{"id":"ord_1"}}`,
			wantErr: true,
		},
		{
			name:    "missing_identifiers",
			body:    `{"event_type":"CHECKOUT.ORDER.APPROVED","resource":{}}`,
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
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantExternalID, got.ExternalID)
		})
	}
}

func TestPayPalClient_CreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/checkout/orders", r.URL.Path)

		req := paypalOrderRequest{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "CAPTURE", req.Intent)
		require.Len(t, req.PurchaseUnits, 1)
		assert.Equal(t, "27.00", req.PurchaseUnits[0].Amount.Value)
		assert.Equal(t, "USD", req.PurchaseUnits[0].Amount.CurrencyCode)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(paypalOrderResponse{
			ID:     "ord_1",
			Status: "CREATED",
			Links: []paypalLink{
				{Href: "https://paypal.test/self", Rel: "self"},
				{Href: "https://paypal.test/approve", Rel: "approve"},
			},
		})
	}))
	defer srv.Close()

	client := NewPayPalClient(srv.URL, "key", "wh_test")

	intent, err := client.CreateIntent(context.Background(), 2700, "USD", "PAY-ABC")
	require.NoError(t, err)
	assert.Equal(t, "ord_1", intent.ExternalID)
	assert.Equal(t, "https://paypal.test/approve", intent.ClientHandle)
}

func TestPayPalClient_GetStatus(t *testing.T) {
	tests := []struct {
		status string
		want   models.EventKind
	}{
		{"CREATED", models.EventPending},
		{"PAYER_ACTION_REQUIRED", models.EventPending},
		{"APPROVED", models.EventApproved},
		{"COMPLETED", models.EventSucceeded},
		{"VOIDED", models.EventCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v2/checkout/orders/ord_1", r.URL.Path)
				json.NewEncoder(w).Encode(paypalOrderResponse{ID: "ord_1", Status: tt.status})
			}))
			defer srv.Close()

			client := NewPayPalClient(srv.URL, "key", "wh_test")

			kind, err := client.GetStatus(context.Background(), "ord_1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}
