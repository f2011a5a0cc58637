package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrExtraction", ErrExtraction},
		{"ErrInvalidConfig", ErrInvalidConfig},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrModelMismatch", ErrModelMismatch},
		{"ErrIngestion", ErrIngestion},
		{"ErrPersistence", ErrPersistence},
		{"ErrNotReady", ErrNotReady},
		{"ErrClosed", ErrClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrors_DoubleWrap tests that both sentinels survive a double %w wrap
func TestErrors_DoubleWrap(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrIngestion, ErrDimensionMismatch)

	assert.True(t, errors.Is(err, ErrIngestion))
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.False(t, errors.Is(err, ErrPersistence))
}

func TestErrors_Distinct(t *testing.T) {
	assert.False(t, errors.Is(ErrExtraction, ErrUnsupportedType))
	assert.False(t, errors.Is(ErrDimensionMismatch, ErrModelMismatch))
	assert.Equal(t, "unsupported type", ErrUnsupportedType.Error())
}
