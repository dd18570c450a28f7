// Package apperr defines the closed set of failure kinds surfaced by the
// exchange core. Callers match on Kind, never on message text.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	InvalidAmount Kind = iota + 1
	InsufficientFunds
	WalletNotFound
	WalletAlreadyExists
	UnsupportedCurrency
	RateUnavailable
	TradeFailed
	SameCurrency
	TransactionNotFound
)

func (k Kind) String() string {
	switch k {
	case InvalidAmount:
		return "InvalidAmount"
	case InsufficientFunds:
		return "InsufficientFunds"
	case WalletNotFound:
		return "WalletNotFound"
	case WalletAlreadyExists:
		return "WalletAlreadyExists"
	case UnsupportedCurrency:
		return "UnsupportedCurrency"
	case RateUnavailable:
		return "RateUnavailable"
	case TradeFailed:
		return "TradeFailed"
	case SameCurrency:
		return "SameCurrency"
	case TransactionNotFound:
		return "TransactionNotFound"
	default:
		return "Unknown"
	}
}

// Code is the snake_case identifier written into JSON error bodies.
func (k Kind) Code() string {
	switch k {
	case InvalidAmount:
		return "invalid_amount"
	case InsufficientFunds:
		return "insufficient_funds"
	case WalletNotFound:
		return "wallet_not_found"
	case WalletAlreadyExists:
		return "wallet_already_exists"
	case UnsupportedCurrency:
		return "unsupported_currency"
	case RateUnavailable:
		return "rate_unavailable"
	case TradeFailed:
		return "trade_failed"
	case SameCurrency:
		return "same_currency"
	case TransactionNotFound:
		return "transaction_not_found"
	default:
		return "internal_error"
	}
}

func (k Kind) HTTPStatus() int {
	switch k {
	case InvalidAmount, InsufficientFunds, UnsupportedCurrency, SameCurrency:
		return http.StatusBadRequest
	case WalletNotFound, TransactionNotFound:
		return http.StatusNotFound
	case WalletAlreadyExists:
		return http.StatusConflict
	case RateUnavailable:
		return http.StatusServiceUnavailable
	case TradeFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Internal reports whether the kind signals a server-side fault rather than
// a condition the caller can correct.
func (k Kind) Internal() bool {
	return k.HTTPStatus() >= http.StatusInternalServerError
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return 0, false
}

func Is(err error, kind Kind) bool {
	got, ok := KindOf(err)
	return ok && got == kind
}
