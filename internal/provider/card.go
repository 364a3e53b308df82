package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rookgm/chowline/internal/models"
)

const (
	cardProviderName = "card"

	// maximum age of a webhook signature timestamp
	cardSignatureTolerance = 5 * time.Minute
)

// CardClient talks to the card rail over HTTP.
type CardClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	secret  []byte
}

// NewCardClient creates new CardClient instance
func NewCardClient(baseURL, apiKey, webhookSecret string) *CardClient {
	return &CardClient{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		secret:  []byte(webhookSecret),
	}
}

func (c *CardClient) Name() string {
	return cardProviderName
}

type cardIntentRequest struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

type cardIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type cardRefundRequest struct {
	PaymentIntent string `json:"payment_intent"`
	Amount        int64  `json:"amount"`
}

// cardError wraps an HTTP failure of the card rail. 5xx and timeouts
// are retryable; ambiguity is decided by the caller's operation.
func (c *CardClient) cardError(op string, err error, statusCode int, ambiguousOnTimeout bool) error {
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
		Provider:  cardProviderName,
		Op:        op,
		Retryable: retryable,
		Ambiguous: ambiguous,
		Err:       err,
	}
}

// CreateIntent creates a payment intent on the card rail
func (c *CardClient) CreateIntent(ctx context.Context, amount int64, currency, reference string) (*Intent, error) {
	body, err := json.Marshal(cardIntentRequest{Amount: amount, Currency: currency, Reference: reference})
	if err != nil {
		return nil, err
	}

	u, err := url.JoinPath(c.baseURL, "v1", "payment_intents")
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, c.cardError("create intent", err, 0, false)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.cardError("create intent", nil, resp.StatusCode, false)
	}

	intentResp := cardIntentResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&intentResp); err != nil {
		return nil, err
	}

	return &Intent{
		ExternalID:   intentResp.ID,
		ClientHandle: intentResp.ClientSecret,
	}, nil
}

// GetStatus polls the intent and maps its status onto the canonical kinds
func (c *CardClient) GetStatus(ctx context.Context, externalID string) (models.EventKind, error) {
	u, err := url.JoinPath(c.baseURL, "v1", "payment_intents", externalID)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", c.cardError("get status", err, 0, false)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.cardError("get status", nil, resp.StatusCode, false)
	}

	intentResp := cardIntentResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&intentResp); err != nil {
		return "", err
	}

	return cardKind(intentResp.Status)
}

// Refund refunds an intent. A timeout here is ambiguous: the rail may or
// may not have applied the refund, and the caller must re-verify.
func (c *CardClient) Refund(ctx context.Context, externalID string, amount int64, currency string) error {
	body, err := json.Marshal(cardRefundRequest{PaymentIntent: externalID, Amount: amount})
	if err != nil {
		return err
	}

	u, err := url.JoinPath(c.baseURL, "v1", "refunds")
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, u, body)
	if err != nil {
		return c.cardError("refund", err, 0, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.cardError("refund", nil, resp.StatusCode, false)
	}

	return nil
}

// VerifyWebhook checks the X-Webhook-Signature header:
// "t=<unix>,v1=<hex hmac-sha256 of "<unix>.<body>">".
func (c *CardClient) VerifyWebhook(header http.Header, body []byte) error {
	sig := header.Get("X-Webhook-Signature")
	if sig == "" {
		return errors.New("missing webhook signature")
	}

	var ts, v1 string
	for _, part := range strings.Split(sig, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			v1 = v
		}
	}
	if ts == "" || v1 == "" {
		return errors.New("malformed webhook signature")
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errors.New("malformed webhook signature timestamp")
	}
	if age := time.Since(time.Unix(unix, 0)); math.Abs(age.Seconds()) > cardSignatureTolerance.Seconds() {
		return errors.New("webhook signature timestamp out of tolerance")
	}

	signed := append([]byte(ts+"."), body...)
	if !verifyHMAC(c.secret, signed, v1) {
		return errors.New("webhook signature mismatch")
	}

	return nil
}

type cardWebhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		PaymentID string `json:"payment_id"`
	} `json:"data"`
}

// ParseWebhook adapts a card rail event to the canonical shape
func (c *CardClient) ParseWebhook(body []byte) (*models.WebhookEvent, error) {
	payload := cardWebhookPayload{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook payload", models.ErrValidation)
	}
	if payload.ID == "" || payload.Data.PaymentID == "" {
		return nil, fmt.Errorf("%w: webhook payload missing identifiers", models.ErrValidation)
	}

	var kind models.EventKind
	switch payload.Type {
	case "payment.approved":
		kind = models.EventApproved
	case "payment.succeeded":
		kind = models.EventSucceeded
	case "payment.failed":
		kind = models.EventFailed
	case "payment.cancelled":
		kind = models.EventCancelled
	default:
		return nil, fmt.Errorf("%w: unknown webhook event type %q", models.ErrValidation, payload.Type)
	}

	return &models.WebhookEvent{
		EventID:    payload.ID,
		ExternalID: payload.Data.PaymentID,
		Kind:       kind,
		RawPayload: body,
	}, nil
}

func (c *CardClient) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.client.Do(req)
}

func cardKind(status string) (models.EventKind, error) {
	switch status {
	case "pending", "requires_payment_method", "requires_confirmation":
		return models.EventPending, nil
	case "processing":
		return models.EventApproved, nil
	case "succeeded":
		return models.EventSucceeded, nil
	case "failed":
		return models.EventFailed, nil
	case "canceled":
		return models.EventCancelled, nil
	default:
		return "", fmt.Errorf("unknown card payment status %q", status)
	}
}
