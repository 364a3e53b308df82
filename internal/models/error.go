package models

import (
	"errors"
	"fmt"
)

// error categories, handlers map these to HTTP statuses
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrBusinessLogic = errors.New("business rule violation")
	ErrConflict      = errors.New("concurrent modification conflict")
)

var (
	ErrEmptyItems      = fmt.Errorf("%w: order has no items", ErrValidation)
	ErrInvalidQuantity = fmt.Errorf("%w: item quantity must be at least 1", ErrValidation)
	ErrUnknownItem     = fmt.Errorf("%w: unknown menu item", ErrValidation)
	ErrInvalidStatus   = fmt.Errorf("%w: unknown order status", ErrValidation)
	ErrMissingAddress  = fmt.Errorf("%w: delivery order requires an address", ErrValidation)

	ErrOrderNotFound   = fmt.Errorf("%w: order", ErrNotFound)
	ErrPaymentNotFound = fmt.Errorf("%w: payment", ErrNotFound)
	ErrDataNotFound    = fmt.Errorf("%w: data", ErrNotFound)

	ErrItemUnavailable   = fmt.Errorf("%w: item is unavailable", ErrBusinessLogic)
	ErrBelowMinimum      = fmt.Errorf("%w: order is below the minimum amount", ErrBusinessLogic)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrBusinessLogic)
	ErrNotCancellable    = fmt.Errorf("%w: order can no longer be cancelled", ErrBusinessLogic)
	ErrEtaLocked         = fmt.Errorf("%w: ready time can no longer be adjusted", ErrBusinessLogic)
	ErrNotPayable        = fmt.Errorf("%w: order is not payable", ErrBusinessLogic)
	ErrAmountMismatch    = fmt.Errorf("%w: amount does not match the order total", ErrBusinessLogic)
	ErrPaymentInFlight   = fmt.Errorf("%w: order already has an active payment", ErrBusinessLogic)
	ErrNotRefundable     = fmt.Errorf("%w: payment is not refundable", ErrBusinessLogic)

	ErrConflictData = fmt.Errorf("%w: data conflicts with existing data", ErrConflict)

	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrInternalError      = errors.New("internal error")
)

// ProviderError is a failure of the external payment rail.
// Ambiguous means the provider may or may not have applied the operation
// (a refund timeout); the caller must re-verify before drawing conclusions.
type ProviderError struct {
	Provider  string
	Op        string
	Retryable bool
	Ambiguous bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
