package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

// Recovery handles panics and logs them appropriately
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("stack", string(debug.Stack())).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Str("request_id", c.GetString(ContextRequestID)).
					Msg("Request panic recovered")

				locale := LocaleFromContext(c)
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Status:  http.StatusInternalServerError,
					Code:    int(apperrors.ErrInternal),
					Key:     apperrors.KeyInternal,
					Message: apperrors.Localize(apperrors.KeyInternal, locale, nil),
					TraceID: c.GetString(ContextRequestID),
				})
			}
		}()
		c.Next()
	}
}
