package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/rookgm/chowline/internal/handler/http/mocks"
	"github.com/rookgm/chowline/internal/models"
	"github.com/rookgm/chowline/internal/provider"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// stubProvider scripts the verify/parse gate in front of the reconciler
type stubProvider struct {
	verifyErr error
	parseErr  error
	event     *models.WebhookEvent
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) CreateIntent(_ context.Context, _ int64, _, _ string) (*provider.Intent, error) {
	return nil, errors.New("not implemented")
}

func (s *stubProvider) GetStatus(_ context.Context, _ string) (models.EventKind, error) {
	return "", errors.New("not implemented")
}

func (s *stubProvider) Refund(_ context.Context, _ string, _ int64, _ string) error {
	return errors.New("not implemented")
}

func (s *stubProvider) VerifyWebhook(_ http.Header, _ []byte) error { return s.verifyErr }

func (s *stubProvider) ParseWebhook(_ []byte) (*models.WebhookEvent, error) {
	if s.parseErr != nil {
		return nil, s.parseErr
	}
	return s.event, nil
}

func TestWebhookHandler_HandleWebhook(t *testing.T) {
	event := &models.WebhookEvent{
		EventID:    "evt-1",
		ExternalID: "pi_1",
		Kind:       models.EventSucceeded,
	}

	tests := []struct {
		name           string
		providerName   string
		prov           *stubProvider
		setup          func(t *testing.T) *mocks.MockPaymentService
		wantStatusCode int
	}{
		{
			// 200 — event verified, parsed and applied
			name:         "valid_event_return_200",
			providerName: "card",
			prov:         &stubProvider{event: event},
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().ApplyWebhookEvent(gomock.Any(), event).Return(nil).Times(1)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
		},
		{
			// 200 — replays resolve to nil inside the service, still acked
			name:         "replayed_event_return_200",
			providerName: "card",
			prov:         &stubProvider{event: event},
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().ApplyWebhookEvent(gomock.Any(), event).Return(nil).Times(1)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
		},
		{
			// 404 — provider name not registered
			name:         "unknown_provider_return_404",
			providerName: "crypto",
			prov:         &stubProvider{event: event},
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().ApplyWebhookEvent(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			// 400 — signature does not verify, nothing is applied
			name:         "bad_signature_return_400",
			providerName: "card",
			prov:         &stubProvider{verifyErr: errors.New("signature mismatch")},
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().ApplyWebhookEvent(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 400 — payload does not parse
			name:         "malformed_payload_return_400",
			providerName: "card",
			prov:         &stubProvider{parseErr: models.ErrValidation},
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().ApplyWebhookEvent(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 500 — apply failed, provider should redeliver
			name:         "apply_failure_return_500",
			providerName: "card",
			prov:         &stubProvider{event: event},
			setup: func(t *testing.T) *mocks.MockPaymentService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentService(ctrl)
				svcMock.EXPECT().ApplyWebhookEvent(gomock.Any(), event).Return(errors.New("db down")).Times(1)
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost,
				"/api/payments/webhooks/"+tt.providerName,
				strings.NewReader(`{"id":"evt-1"}`))
			req = withURLParam(req, "provider", tt.providerName)
			w := httptest.NewRecorder()

			handler := NewWebhookHandler(tt.setup(t), map[string]provider.Provider{"card": tt.prov}, zap.NewNop())
			h := handler.HandleWebhook()
			h(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
		})
	}
}
