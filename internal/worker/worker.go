package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type PaymentService interface {
	ReconcilePending(ctx context.Context, refCh <-chan string)
	GetStuckPayments(ctx context.Context, grace time.Duration, refCh chan<- string) error
}

// PaymentVerifier periodically re-verifies payments that never received a
// terminal webhook.
type PaymentVerifier struct {
	svc      PaymentService
	interval time.Duration
	grace    time.Duration
	logger   *zap.Logger
}

// NewPaymentVerifier creates new payment verifier
func NewPaymentVerifier(svc PaymentService, interval, grace time.Duration, logger *zap.Logger) *PaymentVerifier {
	return &PaymentVerifier{
		svc:      svc,
		interval: interval,
		grace:    grace,
		logger:   logger,
	}
}

// ProcessPayments runs the verification sweep until ctx is cancelled
func (pv *PaymentVerifier) ProcessPayments(ctx context.Context) {
	refs := make(chan string, 10)

	go pv.svc.ReconcilePending(ctx, refs)

	ticker := time.NewTicker(pv.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			pv.logger.Debug("payment verifier is done")
			return
		case <-ticker.C:
			if err := pv.svc.GetStuckPayments(ctx, pv.grace, refs); err != nil {
				pv.logger.Error("error listing payments for verification", zap.Error(err))
			}
		}
	}
}
