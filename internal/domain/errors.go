package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a TradingError
type ErrorKind string

const (
	ErrorKindMissingPrice ErrorKind = "MISSING_PRICE"
	ErrorKindPersistence  ErrorKind = "PERSISTENCE"
	ErrorKindMalformed    ErrorKind = "MALFORMED_DATA"
)

// Sentinels for errors.Is matching against a TradingError kind
var (
	ErrMissingPrice  = errors.New("missing price")
	ErrPersistence   = errors.New("persistence failure")
	ErrMalformedData = errors.New("malformed data")
)

// TradingError is the single error type returned across the engine boundary.
// It carries a kind, a human readable message and an optional cause.
type TradingError struct {
	Kind    ErrorKind
	Symbol  string // set for symbol scoped failures
	Message string
	Err     error
}

// Error implements the error interface
func (e *TradingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause
func (e *TradingError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
// A malformed data error is also a persistence error.
func (e *TradingError) Is(target error) bool {
	switch target {
	case ErrMissingPrice:
		return e.Kind == ErrorKindMissingPrice
	case ErrPersistence:
		return e.Kind == ErrorKindPersistence || e.Kind == ErrorKindMalformed
	case ErrMalformedData:
		return e.Kind == ErrorKindMalformed
	}
	return false
}

// NewMissingPriceError reports that no quote is available for symbol
func NewMissingPriceError(symbol string) *TradingError {
	return &TradingError{
		Kind:    ErrorKindMissingPrice,
		Symbol:  symbol,
		Message: fmt.Sprintf("no price found for symbol %s", symbol),
	}
}

// NewPersistenceError wraps a failed read or write against the data store
func NewPersistenceError(message string, err error) *TradingError {
	return &TradingError{
		Kind:    ErrorKindPersistence,
		Message: message,
		Err:     err,
	}
}

// NewMalformedDataError wraps stored data that does not parse into valid records
func NewMalformedDataError(message string, err error) *TradingError {
	return &TradingError{
		Kind:    ErrorKindMalformed,
		Message: message,
		Err:     err,
	}
}

// AsTradingError returns err as a *TradingError, wrapping anything else as a
// persistence failure with the given context message.
func AsTradingError(err error, message string) *TradingError {
	if err == nil {
		return nil
	}
	var tradingErr *TradingError
	if errors.As(err, &tradingErr) {
		return tradingErr
	}
	return NewPersistenceError(message, err)
}
