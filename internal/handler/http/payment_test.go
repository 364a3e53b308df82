package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/rookgm/chowline/internal/handler/http/mocks"
	"github.com/rookgm/chowline/internal/models"
	"github.com/stretchr/testify/assert"
)

func samplePayment() *models.Payment {
	return &models.Payment{
		ID:         uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		OrderID:    uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Amount:     2700,
		Currency:   "USD",
		Method:     models.PaymentMethodCard,
		Status:     models.PaymentStatusPending,
		ExternalID: "pi_1",
		Reference:  "PAY-AB12CD34EF56",
		CreatedAt:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestPaymentHandler_InitializePayment(t *testing.T) {
	payment := samplePayment()
	validBody := fmt.Sprintf(`{"order_id": "%s", "method": "card", "amount": 2700}`, payment.OrderID)

	tests := []struct {
		name           string
		body           string
		setup          func(t *testing.T) *mocks.MockPaymentService
		wantStatusCode int
	}{
		{
			// 201 — payment initialized
			name: "valid_request_return_201",
			body: validBody,
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Initialize(gomock.Any(), payment.OrderID, models.PaymentMethodCard, int64(2700)).
					Return(&models.PaymentInit{Payment: payment, ClientHandle: "pi_1_secret"}, nil).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			// 400 — malformed body
			name: "malformed_body_return_400",
			body: "{not json",
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Initialize(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 404 — order does not exist
			name: "unknown_order_return_404",
			body: validBody,
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Initialize(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, models.ErrOrderNotFound).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			// 422 — amount does not match the order total
			name: "amount_mismatch_return_422",
			body: validBody,
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Initialize(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, models.ErrAmountMismatch).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			// 422 — another payment is already in flight
			name: "payment_in_flight_return_422",
			body: validBody,
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Initialize(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, models.ErrPaymentInFlight).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			// 502 — provider failure, safe to retry
			name: "provider_failure_return_502",
			body: validBody,
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Initialize(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, &models.ProviderError{Provider: "card", Op: "create intent", Retryable: true, Err: fmt.Errorf("unexpected status 503")}).
					AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/payments/initialize", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler := NewPaymentHandler(tt.setup(t))
			h := handler.InitializePayment()
			h(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
		})
	}
}

func TestPaymentHandler_VerifyPayment(t *testing.T) {
	payment := samplePayment()

	tests := []struct {
		name           string
		reference      string
		setup          func(t *testing.T) *mocks.MockPaymentService
		wantStatusCode int
	}{
		{
			// 200 — payment state returned
			name:      "valid_request_return_200",
			reference: payment.Reference,
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Verify(gomock.Any(), payment.Reference).Return(payment, nil).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusOK,
		},
		{
			// 404 — unknown reference
			name:      "unknown_reference_return_404",
			reference: "PAY-NOPE",
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil, models.ErrPaymentNotFound).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			// 502 — provider poll failed
			name:      "provider_poll_failed_return_502",
			reference: payment.Reference,
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Verify(gomock.Any(), gomock.Any()).
					Return(nil, &models.ProviderError{Provider: "card", Op: "get status", Retryable: true, Err: fmt.Errorf("unexpected status 500")}).
					AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/payments/verify/"+tt.reference, nil)
			req = withURLParam(req, "reference", tt.reference)
			w := httptest.NewRecorder()

			handler := NewPaymentHandler(tt.setup(t))
			h := handler.VerifyPayment()
			h(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
		})
	}
}

func TestPaymentHandler_RefundPayment(t *testing.T) {
	payment := samplePayment()

	tests := []struct {
		name           string
		body           string
		setup          func(t *testing.T) *mocks.MockPaymentService
		wantStatusCode int
	}{
		{
			// 200 — full refund, no body means full amount
			name: "full_refund_return_200",
			body: "",
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				refunded := *payment
				refunded.Status = models.PaymentStatusRefunded

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Refund(gomock.Any(), payment.ID, int64(0)).Return(&refunded, nil).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusOK,
		},
		{
			// 200 — partial refund
			name: "partial_refund_return_200",
			body: `{"amount": 1000}`,
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Refund(gomock.Any(), payment.ID, int64(1000)).Return(payment, nil).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusOK,
		},
		{
			// 422 — payment is not in a refundable state
			name: "not_refundable_return_422",
			body: "",
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Refund(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, models.ErrNotRefundable).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			// 502 — ambiguous provider timeout, needs re-verification
			name: "ambiguous_timeout_return_502",
			body: "",
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().Refund(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, &models.ProviderError{Provider: "card", Op: "refund", Retryable: true, Ambiguous: true, Err: fmt.Errorf("context deadline exceeded")}).
					AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := fmt.Sprintf("/api/payments/%s/refund", payment.ID)
			req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(tt.body))
			req = withURLParam(req, "id", payment.ID.String())
			w := httptest.NewRecorder()

			handler := NewPaymentHandler(tt.setup(t))
			h := handler.RefundPayment()
			h(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
		})
	}
}
