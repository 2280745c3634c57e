package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Status                int    `json:"status"`
	Code                  int    `json:"code"`
	Key                   string `json:"key"`
	Message               string `json:"message"`
	ExistingAppointmentID string `json:"existing_appointment_id,omitempty"`
	Retryable             bool   `json:"retryable,omitempty"`
	TraceID               string `json:"trace_id,omitempty"`
}

// ErrorHandler renders the last error attached by a handler. Messages are
// localized for the caller.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		traceID := c.GetString(ContextRequestID)
		appErr := toAppError(c.Errors.Last().Err)
		status := appErr.StatusCode()

		var event *zerolog.Event
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else {
			event = log.Warn()
		}
		event.
			Err(c.Errors.Last().Err).
			Str("trace_id", traceID).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Str("key", appErr.Key).
			Msg("Request error")

		c.JSON(status, ErrorResponse{
			Status:                status,
			Code:                  int(appErr.Code),
			Key:                   appErr.Key,
			Message:               appErr.Localized(LocaleFromContext(c)),
			ExistingAppointmentID: appErr.ExistingID,
			Retryable:             appErr.Retryable,
			TraceID:               traceID,
		})
	}
}

func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperrors.NewValidation(apperrors.KeyInvalidRequest,
			map[string]string{"detail": describeValidation(verrs[0])}, err)
	}
	return apperrors.NewInternal(err)
}
