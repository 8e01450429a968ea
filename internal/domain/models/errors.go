package models

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the ledger and its stores.
// The HTTP layer maps these to status codes with errors.Is.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrSelfTrade           = errors.New("account cannot settle its own trade")
	ErrAlreadySettled      = errors.New("trade already settled")
	ErrCannotCancelSettled = errors.New("settled trade cannot be cancelled")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrTradeNotFound       = errors.New("trade not found")
	ErrNotTradeOwner       = errors.New("only the proposer can cancel a trade")
)

// ValidationError reports a rejected input field. It unwraps to ErrInvalidArgument.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// InvalidField builds a ValidationError.
func InvalidField(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrorKind returns a stable snake_case label for err, used in metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrSelfTrade):
		return "self_trade"
	case errors.Is(err, ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, ErrCannotCancelSettled):
		return "cannot_cancel_settled"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrAccountExists):
		return "account_exists"
	case errors.Is(err, ErrTradeNotFound):
		return "trade_not_found"
	case errors.Is(err, ErrNotTradeOwner):
		return "not_trade_owner"
	default:
		return "internal"
	}
}
