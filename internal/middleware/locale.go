package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

const ContextLocale = "locale"

// Locale picks the response locale from Accept-Language, falling back to
// fallback. Only catalog locales are kept.
func Locale(fallback string) gin.HandlerFunc {
	fallback = apperrors.NormalizeLocale(fallback)
	return func(c *gin.Context) {
		locale := fallback
		if header := c.GetHeader("Accept-Language"); header != "" {
			first := strings.TrimSpace(strings.SplitN(header, ",", 2)[0])
			first = strings.SplitN(first, ";", 2)[0]
			locale = apperrors.NormalizeLocale(first)
		}
		c.Set(ContextLocale, locale)
		c.Next()
	}
}

// LocaleFromContext returns the request locale, or the default.
func LocaleFromContext(c *gin.Context) string {
	if l := c.GetString(ContextLocale); l != "" {
		return l
	}
	return apperrors.DefaultLocale
}
