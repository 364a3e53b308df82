package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rookgm/chowline/internal/models"
)

const paypalProviderName = "paypal"

// PayPalClient talks to the PayPal checkout API over HTTP.
type PayPalClient struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	webhookID []byte
}

// NewPayPalClient creates new PayPalClient instance
func NewPayPalClient(baseURL, apiKey, webhookID string) *PayPalClient {
	return &PayPalClient{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:   baseURL,
		apiKey:    apiKey,
		webhookID: []byte(webhookID),
	}
}

func (p *PayPalClient) Name() string {
	return paypalProviderName
}

// minorToDecimal renders minor units the way PayPal wants amounts ("27.00")
func minorToDecimal(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id"`
	Amount      paypalAmount `json:"amount"`
}

type paypalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrderResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []paypalLink `json:"links"`
}

func (p *PayPalClient) paypalError(op string, err error, statusCode int, ambiguousOnTimeout bool) error {
	retryable := statusCode >= http.StatusInternalServerError
	ambiguous := false
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		retryable = true
		ambiguous = ambiguousOnTimeout
	}
	if err == nil {
		err = fmt.Errorf("unexpected status %d", statusCode)
	}
	return &models.ProviderError{
		Provider:  paypalProviderName,
		Op:        op,
		Retryable: retryable,
		Ambiguous: ambiguous,
		Err:       err,
	}
}

// CreateIntent creates a PayPal checkout order. The approval link is the
// client handle the customer is redirected to.
func (p *PayPalClient) CreateIntent(ctx context.Context, amount int64, currency, reference string) (*Intent, error) {
	body, err := json.Marshal(paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: reference,
			Amount:      paypalAmount{CurrencyCode: currency, Value: minorToDecimal(amount)},
		}},
	})
	if err != nil {
		return nil, err
	}

	u, err := url.JoinPath(p.baseURL, "v2", "checkout", "orders")
	if err != nil {
		return nil, err
	}

	resp, err := p.do(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, p.paypalError("create order", err, 0, false)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, p.paypalError("create order", nil, resp.StatusCode, false)
	}

	orderResp := paypalOrderResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return nil, err
	}

	approveURL := ""
	for _, link := range orderResp.Links {
		if link.Rel == "approve" {
			approveURL = link.Href
			break
		}
	}

	return &Intent{
		ExternalID:   orderResp.ID,
		ClientHandle: approveURL,
	}, nil
}

// GetStatus polls the checkout order and maps its status onto the canonical kinds
func (p *PayPalClient) GetStatus(ctx context.Context, externalID string) (models.EventKind, error) {
	u, err := url.JoinPath(p.baseURL, "v2", "checkout", "orders", externalID)
	if err != nil {
		return "", err
	}

	resp, err := p.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", p.paypalError("get status", err, 0, false)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", p.paypalError("get status", nil, resp.StatusCode, false)
	}

	orderResp := paypalOrderResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return "", err
	}

	return paypalKind(orderResp.Status)
}

type paypalRefundRequest struct {
	Amount paypalAmount `json:"amount"`
}

// Refund refunds the capture behind the checkout order. A timeout is
// ambiguous and must be re-verified by the caller.
func (p *PayPalClient) Refund(ctx context.Context, externalID string, amount int64, currency string) error {
	body, err := json.Marshal(paypalRefundRequest{
		Amount: paypalAmount{CurrencyCode: currency, Value: minorToDecimal(amount)},
	})
	if err != nil {
		return err
	}

	u, err := url.JoinPath(p.baseURL, "v2", "payments", "captures", externalID, "refund")
	if err != nil {
		return err
	}

	resp, err := p.do(ctx, http.MethodPost, u, body)
	if err != nil {
		return p.paypalError("refund", err, 0, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return p.paypalError("refund", nil, resp.StatusCode, false)
	}

	return nil
}

// VerifyWebhook checks the transmission signature headers. Every inbound
// event must pass this gate before reconciliation, same as the card rail.
func (p *PayPalClient) VerifyWebhook(header http.Header, body []byte) error {
	transmissionID := header.Get("Paypal-Transmission-Id")
	transmissionTime := header.Get("Paypal-Transmission-Time")
	transmissionSig := header.Get("Paypal-Transmission-Sig")
	if transmissionID == "" || transmissionTime == "" || transmissionSig == "" {
		return errors.New("missing transmission signature headers")
	}

	signed := append([]byte(transmissionID+"|"+transmissionTime+"|"), body...)
	if !verifyHMAC(p.webhookID, signed, transmissionSig) {
		return errors.New("transmission signature mismatch")
	}

	return nil
}

type paypalWebhookPayload struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID                string `json:"id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

// ParseWebhook adapts a PayPal event to the canonical shape
func (p *PayPalClient) ParseWebhook(body []byte) (*models.WebhookEvent, error) {
	payload := paypalWebhookPayload{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook payload", models.ErrValidation)
	}

	externalID := payload.Resource.SupplementaryData.RelatedIDs.OrderID
	if externalID == "" {
		externalID = payload.Resource.ID
	}
	if payload.ID == "" || externalID == "" {
		return nil, fmt.Errorf("%w: webhook payload missing identifiers", models.ErrValidation)
	}

	var kind models.EventKind
	switch payload.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		kind = models.EventApproved
	case "PAYMENT.CAPTURE.COMPLETED":
		kind = models.EventSucceeded
	case "PAYMENT.CAPTURE.DENIED":
		kind = models.EventFailed
	case "CHECKOUT.ORDER.VOIDED", "PAYMENT.CAPTURE.REVERSED":
		kind = models.EventCancelled
	default:
		return nil, fmt.Errorf("%w: unknown webhook event type %q", models.ErrValidation, payload.EventType)
	}

	return &models.WebhookEvent{
		EventID:    payload.ID,
		ExternalID: externalID,
		Kind:       kind,
		RawPayload: body,
	}, nil
}

func (p *PayPalClient) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	return p.client.Do(req)
}

func paypalKind(status string) (models.EventKind, error) {
	switch status {
	case "CREATED", "SAVED", "PAYER_ACTION_REQUIRED":
		return models.EventPending, nil
	case "APPROVED":
		return models.EventApproved, nil
	case "COMPLETED":
		return models.EventSucceeded, nil
	case "VOIDED":
		return models.EventCancelled, nil
	default:
		return "", fmt.Errorf("unknown paypal order status %q", status)
	}
}
