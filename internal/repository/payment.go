package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/chowline/internal/models"
	"github.com/rookgm/chowline/internal/repository/postgres"
)

const (
	insertPaymentQuery = `
						INSERT INTO payments (id, order_id, amount, currency, method, status, external_id, reference, metadata)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
						RETURNING created_at, updated_at
`
	selectPaymentColumns = `id, order_id, amount, currency, method, status, external_id, reference, metadata, created_at, updated_at`

	selectPaymentByIDQuery = `
						SELECT ` + selectPaymentColumns + ` FROM payments
						WHERE id = $1
`
	selectPaymentByExternalIDQuery = `
						SELECT ` + selectPaymentColumns + ` FROM payments
						WHERE external_id = $1
`
	selectPaymentByReferenceQuery = `
						SELECT ` + selectPaymentColumns + ` FROM payments
						WHERE reference = $1
`
	countActivePaymentsQuery = `
						SELECT count(*) FROM payments
						WHERE order_id = $1 AND status IN ('PENDING', 'PROCESSING')
`
	selectStuckPaymentsQuery = `
						SELECT ` + selectPaymentColumns + ` FROM payments
						WHERE status IN ('PENDING', 'PROCESSING') AND updated_at < $1
						ORDER BY updated_at
`
	insertPaymentEventQuery = `
						INSERT INTO payment_events (event_id, payment_id, kind)
						VALUES ($1, $2, $3)
`
	completePaymentQuery = `
						UPDATE payments
						SET status = 'COMPLETED', updated_at = now()
						WHERE id = $1 AND status IN ('PENDING', 'PROCESSING')
`
	failPaymentQuery = `
						UPDATE payments
						SET status = 'FAILED', updated_at = now()
						WHERE id = $1 AND status IN ('PENDING', 'PROCESSING')
`
	processingPaymentQuery = `
						UPDATE payments
						SET status = 'PROCESSING', updated_at = now()
						WHERE id = $1 AND status = 'PENDING'
`
	refundPaymentQuery = `
						UPDATE payments
						SET status = 'REFUNDED', updated_at = now()
						WHERE id = $1 AND status = 'COMPLETED'
`
	selectOrderStatusForUpdateQuery = `
						SELECT status FROM orders
						WHERE id = $1
						FOR UPDATE
`
	confirmOrderQuery = `
						UPDATE orders
						SET status = 'CONFIRMED', updated_at = now()
						WHERE id = $1
`
)

// PaymentRepository implements the reconciler's PaymentRepository interface
type PaymentRepository struct {
	db *postgres.DB
}

// NewPaymentRepository creates new PaymentRepository instance
func NewPaymentRepository(db *postgres.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreatePayment inserts new payment row
func (pr *PaymentRepository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	err := pr.db.QueryRow(ctx, insertPaymentQuery,
		payment.ID, payment.OrderID, payment.Amount, payment.Currency, payment.Method, payment.Status,
		payment.ExternalID, payment.Reference, payment.Metadata,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if errCode := pr.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return nil, models.ErrConflictData
		}
		return nil, err
	}

	return payment, nil
}

func (pr *PaymentRepository) scanPayment(row pgx.Row) (*models.Payment, error) {
	payment := models.Payment{}
	err := row.Scan(&payment.ID, &payment.OrderID, &payment.Amount, &payment.Currency, &payment.Method,
		&payment.Status, &payment.ExternalID, &payment.Reference, &payment.Metadata,
		&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// GetPaymentByID returns payment by id
func (pr *PaymentRepository) GetPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return pr.scanPayment(pr.db.QueryRow(ctx, selectPaymentByIDQuery, id))
}

// GetPaymentByExternalID returns payment by the provider-assigned id
func (pr *PaymentRepository) GetPaymentByExternalID(ctx context.Context, externalID string) (*models.Payment, error) {
	return pr.scanPayment(pr.db.QueryRow(ctx, selectPaymentByExternalIDQuery, externalID))
}

// GetPaymentByReference returns payment by the internal reference
func (pr *PaymentRepository) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	return pr.scanPayment(pr.db.QueryRow(ctx, selectPaymentByReferenceQuery, reference))
}

// HasActivePayment reports whether order already has a payment in
// PENDING or PROCESSING
func (pr *PaymentRepository) HasActivePayment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var n int
	if err := pr.db.QueryRow(ctx, countActivePaymentsQuery, orderID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListStuckPayments returns non-terminal payments not touched since before cutoff
func (pr *PaymentRepository) ListStuckPayments(ctx context.Context, cutoff time.Time) ([]models.Payment, error) {
	rows, err := pr.db.Query(ctx, selectStuckPaymentsQuery, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []models.Payment{}

	for rows.Next() {
		payment := models.Payment{}
		err = rows.Scan(&payment.ID, &payment.OrderID, &payment.Amount, &payment.Currency, &payment.Method,
			&payment.Status, &payment.ExternalID, &payment.Reference, &payment.Metadata,
			&payment.CreatedAt, &payment.UpdatedAt)
		if err != nil {
			continue
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

// recordEvent inserts the event row inside tx. A duplicate event id is
// reported as models.ErrConflictData, which callers treat as a replay.
func (pr *PaymentRepository) recordEvent(ctx context.Context, tx pgx.Tx, eventID string, paymentID uuid.UUID, kind models.EventKind) error {
	if _, err := tx.Exec(ctx, insertPaymentEventQuery, eventID, paymentID, kind); err != nil {
		if errCode := pr.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return models.ErrConflictData
		}
		return err
	}
	return nil
}

// CompletePayment records the event, moves payment to COMPLETED and, when
// the order is still PENDING, confirms it. All in one transaction, so two
// concurrently delivered copies of the same success event cannot both
// apply: the loser hits either the event unique key or the status guard.
// Returns whether the order was confirmed by this call.
func (pr *PaymentRepository) CompletePayment(ctx context.Context, eventID string, paymentID, orderID uuid.UUID) (bool, error) {
	confirmed := false
	err := pr.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := pr.recordEvent(ctx, tx, eventID, paymentID, models.EventSucceeded); err != nil {
			return err
		}

		cmd, err := tx.Exec(ctx, completePaymentQuery, paymentID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return models.ErrConflict
		}

		var status models.OrderStatus
		if err := tx.QueryRow(ctx, selectOrderStatusForUpdateQuery, orderID).Scan(&status); err != nil {
			return err
		}
		if status == models.OrderStatusPending {
			if _, err := tx.Exec(ctx, confirmOrderQuery, orderID); err != nil {
				return err
			}
			confirmed = true
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return confirmed, nil
}

// FailPayment records the event and moves payment to FAILED. The order is
// left untouched so the customer may retry with a new payment.
func (pr *PaymentRepository) FailPayment(ctx context.Context, eventID string, paymentID uuid.UUID, kind models.EventKind) error {
	return pr.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := pr.recordEvent(ctx, tx, eventID, paymentID, kind); err != nil {
			return err
		}

		cmd, err := tx.Exec(ctx, failPaymentQuery, paymentID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return models.ErrConflict
		}

		return nil
	})
}

// MarkProcessing records the event and moves payment PENDING -> PROCESSING
func (pr *PaymentRepository) MarkProcessing(ctx context.Context, eventID string, paymentID uuid.UUID) error {
	return pr.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := pr.recordEvent(ctx, tx, eventID, paymentID, models.EventApproved); err != nil {
			return err
		}

		cmd, err := tx.Exec(ctx, processingPaymentQuery, paymentID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return models.ErrConflict
		}

		return nil
	})
}

// MarkRefunded moves payment COMPLETED -> REFUNDED
func (pr *PaymentRepository) MarkRefunded(ctx context.Context, paymentID uuid.UUID) error {
	cmd, err := pr.db.Exec(ctx, refundPaymentQuery, paymentID)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrConflict
	}

	return nil
}
