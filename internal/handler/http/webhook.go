package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rookgm/chowline/internal/provider"
	"go.uber.org/zap"
)

// WebhookHandler receives payment provider webhooks.
type WebhookHandler struct {
	svc       PaymentService
	providers map[string]provider.Provider
	logger    *zap.Logger
}

// NewWebhookHandler creates new WebhookHandler instance
func NewWebhookHandler(svc PaymentService, providers map[string]provider.Provider, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		svc:       svc,
		providers: providers,
		logger:    logger,
	}
}

// HandleWebhook verifies, parses and applies one provider event.
// Verified, parseable events are always acked with 200 — including
// no-ops and unknown references — so the provider stops redelivering.
// Only signature failures and malformed payloads are rejected.
// 200 — event applied or deliberately ignored
// 400 — unverifiable signature or malformed payload
// 404 — unknown provider
// 500 — event could not be applied, provider will redeliver
func (wh *WebhookHandler) HandleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerName := chi.URLParam(r, "provider")
		prov, ok := wh.providers[providerName]
		if !ok {
			http.Error(w, "unknown provider", http.StatusNotFound)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if err := prov.VerifyWebhook(r.Header, body); err != nil {
			wh.logger.Warn("webhook verification failed",
				zap.String("provider", providerName),
				zap.Error(err))
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}

		event, err := prov.ParseWebhook(body)
		if err != nil {
			wh.logger.Warn("webhook parse failed",
				zap.String("provider", providerName),
				zap.Error(err))
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}

		if err := wh.svc.ApplyWebhookEvent(r.Context(), event); err != nil {
			wh.logger.Error("webhook apply failed",
				zap.String("provider", providerName),
				zap.String("event", event.EventID),
				zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
