package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradingError_Is(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name          string
		err           error
		isMissing     bool
		isPersistence bool
		isMalformed   bool
	}{
		{
			name:      "Missing price",
			err:       NewMissingPriceError("AAPL"),
			isMissing: true,
		},
		{
			name:          "Persistence",
			err:           NewPersistenceError("failed to append trade", cause),
			isPersistence: true,
		},
		{
			name:          "Malformed data is also a persistence error",
			err:           NewMalformedDataError("failed to decode trades", cause),
			isPersistence: true,
			isMalformed:   true,
		},
		{
			name:          "Wrapped trading error keeps its kind",
			err:           fmt.Errorf("pass failed: %w", NewMalformedDataError("bad row", cause)),
			isPersistence: true,
			isMalformed:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isMissing, errors.Is(tt.err, ErrMissingPrice))
			assert.Equal(t, tt.isPersistence, errors.Is(tt.err, ErrPersistence))
			assert.Equal(t, tt.isMalformed, errors.Is(tt.err, ErrMalformedData))
		})
	}
}

func TestTradingError_MessageAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewPersistenceError("failed to list trades", cause)

	assert.Equal(t, "failed to list trades: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	missing := NewMissingPriceError("GOOG")
	assert.Equal(t, "no price found for symbol GOOG", missing.Error())
	assert.Equal(t, "GOOG", missing.Symbol)
}

func TestAsTradingError(t *testing.T) {
	assert.Nil(t, AsTradingError(nil, "ignored"))

	missing := NewMissingPriceError("AAPL")
	assert.Same(t, missing, AsTradingError(fmt.Errorf("wrapped: %w", missing), "ignored"))

	foreign := errors.New("boom")
	wrapped := AsTradingError(foreign, "trading pass failed")
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrorKindPersistence, wrapped.Kind)
	assert.ErrorIs(t, wrapped, foreign)
}
