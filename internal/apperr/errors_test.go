package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"validation", Validation("bad body"), http.StatusBadRequest},
		{"not found", NotFound("item_not_found"), http.StatusNotFound},
		{"conflict", Conflict("sales order already cancelled"), http.StatusConflict},
		{"bad request", BadRequest("negative_stock_not_allowed", ""), http.StatusBadRequest},
		{"invariant", Invariant("inventory_balance_missing"), http.StatusInternalServerError},
		{"retryable", Retryable("deadlock"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestFrom(t *testing.T) {
	t.Run("keeps wrapped app errors", func(t *testing.T) {
		orig := Conflict("invoice is void")
		got := From(fmt.Errorf("add payment: %w", orig))
		require.Same(t, orig, got)
	})

	t.Run("deadline is retryable", func(t *testing.T) {
		got := From(fmt.Errorf("query: %w", context.DeadlineExceeded))
		assert.True(t, got.Retryable())
		assert.ErrorIs(t, got, context.DeadlineExceeded)
	})

	t.Run("unknown errors are opaque internal", func(t *testing.T) {
		got := From(errors.New("connection reset"))
		assert.Equal(t, KindInternal, got.Kind)
		assert.Equal(t, "internal_error", got.Code)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, From(nil))
	})
}

func TestDefaultMessage(t *testing.T) {
	err := NotFound("item_not_found")
	assert.Equal(t, "item_not_found", err.Message)
	assert.Equal(t, "item_not_found", err.Error())
	assert.True(t, IsKind(fmt.Errorf("x: %w", err), KindNotFound))
}
