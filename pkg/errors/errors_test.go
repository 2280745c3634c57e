package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"unauthorized", Unauthorized(nil), http.StatusUnauthorized},
		{"schedule", NewSchedule(KeyClosedDay, map[string]string{"day": "sunday"}), http.StatusBadRequest},
		{"conflict", NewConflict("abc"), http.StatusConflict},
		{"illegal transition", NewIllegalTransition("fulfilled", "start_processing", false), http.StatusConflict},
		{"persistence fk", NewPersistence(KeyChooseProvider, http.StatusBadRequest, nil), http.StatusBadRequest},
		{"persistence generic", NewPersistence(KeyBookingFailed, http.StatusInternalServerError, nil), http.StatusInternalServerError},
		{"not found", NewNotFound("ticket", nil), http.StatusNotFound},
		{"forbidden", NewForbidden("", nil, nil), http.StatusForbidden},
		{"bad request", NewBadRequest("invalid request body", nil), http.StatusBadRequest},
		{"internal", NewInternal(nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestLocalize(t *testing.T) {
	params := map[string]string{"open": "09:00", "close": "17:00"}

	en := Localize(KeyOutsideHours, "en", params)
	assert.Contains(t, en, "09:00–17:00")

	ar := Localize(KeyOutsideHours, "ar-EG", params)
	assert.Contains(t, ar, "09:00–17:00")
	assert.NotEqual(t, en, ar)

	assert.Equal(t, en, Localize(KeyOutsideHours, "fr", params))
	assert.Equal(t, "unknown.key", Localize("unknown.key", "en", nil))
}

func TestAsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("failed to create booking: %w", NewConflict("first-id"))

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, ErrConflict, appErr.Code)
	assert.Equal(t, "first-id", appErr.ExistingID)
	assert.True(t, HasCode(err, ErrConflict))
	assert.False(t, HasCode(err, ErrSchedule))
}

func TestIllegalTransitionRetryable(t *testing.T) {
	stale := NewIllegalTransition("ready", "collect", true)
	assert.True(t, stale.Retryable)
	assert.Equal(t, KeyStaleTicket, stale.Key)

	illegal := NewIllegalTransition("fulfilled", "start_processing", false)
	assert.False(t, illegal.Retryable)
	assert.Contains(t, illegal.Message, "fulfilled")
}
