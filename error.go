package ledgerxgo

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInternalServer         = errors.New("internal server error")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrForbidden              = errors.New("forbidden")
	ErrTooBusy                = errors.New("service too busy")
)

type ErrBadRequest struct {
	Fields map[string]string `json:"fields"`
}

func (e ErrBadRequest) Error() string {
	return fmt.Sprintf("missing/invalid params: %v", e.Fields)
}

type ErrNotFound struct {
	Kind string `json:"kind,omitempty"`
	ID   int64  `json:"id"`
}

func (e ErrNotFound) Error() string {
	if e.Kind == "" {
		return "record not found"
	}
	return fmt.Sprintf("%s `%d` not found", e.Kind, e.ID)
}

// ErrInvalidAmount is returned for zero, negative, over-precise amounts and,
// when the overdraft guard is on, for debits exceeding the balance.
type ErrInvalidAmount struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func (e ErrInvalidAmount) Error() string {
	return fmt.Sprintf("invalid amount %s: %s", e.Amount.String(), e.Reason)
}

// ErrTransient means the operation did not commit and may be retried.
type ErrTransient struct {
	Err error
}

func (e ErrTransient) Error() string {
	return fmt.Sprintf("transient failure: %v", e.Err)
}

func (e ErrTransient) Unwrap() error {
	return e.Err
}

type ErrSinkFailure struct {
	OperationID int64
	Err         error
}

func (e ErrSinkFailure) Error() string {
	return fmt.Sprintf("notification for operation `%d` failed: %v", e.OperationID, e.Err)
}

func (e ErrSinkFailure) Unwrap() error {
	return e.Err
}

// isClientError reports errors caused by the request rather than the service.
func isClientError(err error) bool {
	return errors.As(err, &ErrNotFound{}) ||
		errors.As(err, &ErrBadRequest{}) ||
		errors.As(err, &ErrInvalidAmount{}) ||
		errors.Is(err, ErrForbidden)
}
