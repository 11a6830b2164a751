package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetworkError_AggregatesAttempts(t *testing.T) {
	err := NewNetworkError("/api/orders", []*AttemptError{
		{URL: "https://primary/api/orders", Err: context.DeadlineExceeded},
		{URL: "http://localhost:3000/api/orders", Status: http.StatusBadGateway},
	})

	msg := err.Error()
	assert.Contains(t, msg, "failed to fetch /api/orders from all available endpoints")
	assert.Contains(t, msg, "https://primary/api/orders")
	assert.Contains(t, msg, "502 Bad Gateway")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, err.Unwrap(), 2)
}

func TestNetworkError_NoAttempts(t *testing.T) {
	err := NewNetworkError("/api/products", nil)
	assert.Equal(t, "failed to fetch /api/products: no endpoints configured", err.Error())
	assert.NotContains(t, err.Error(), "<nil>")
	assert.Empty(t, err.Unwrap())
	assert.Empty(t, err.ServerMessage())
}

func TestNetworkError_ServerMessage(t *testing.T) {
	err := NewNetworkError("/api/orders", []*AttemptError{
		{URL: "a", Status: 400, Message: "Total mismatch"},
		{URL: "b", Err: errors.New("connection refused")},
	})
	assert.Equal(t, "Total mismatch", err.ServerMessage())
	assert.Equal(t, "❌ Network error: Total mismatch", UserMessage(err))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", Validation("cart", "Your cart is empty! 🛒"), "Your cart is empty! 🛒"},
		{"wrapped validation", fmt.Errorf("checkout: %w", Validation("phone", "bad phone")), "bad phone"},
		{"rejection", &BackendRejection{Message: "X"}, "❌ Order failed: X"},
		{"rejection without message", &BackendRejection{}, "❌ Order failed: Please try again."},
		{"network", NewNetworkError("/p", []*AttemptError{{URL: "a", Err: errors.New("boom")}}), "❌ Network error. Please check your connection."},
		{"other", errors.New("disk full"), "❌ disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(Validation("x", "y")))
	assert.False(t, IsValidation(&BackendRejection{}))
}
