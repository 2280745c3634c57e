package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/care-booking/internal/model"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

const ContextActor = "actor"

// TokenValidator turns a bearer token into the calling actor.
type TokenValidator interface {
	Validate(token string) (model.Actor, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and stores the actor in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abortWith(c, apperrors.Unauthorized(nil))
			return
		}

		actor, err := m.tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			abortWith(c, apperrors.Unauthorized(err))
			return
		}

		c.Set(ContextActor, actor)
		if actor.Locale != "" && c.GetHeader("Accept-Language") == "" {
			c.Set(ContextLocale, apperrors.NormalizeLocale(actor.Locale))
		}
		c.Next()
	}
}

// RequireRole rejects actors whose role is not listed.
func RequireRole(roles ...model.ActorRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			abortWith(c, apperrors.Unauthorized(nil))
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		abortWith(c, apperrors.NewForbidden("", nil, nil))
	}
}

// ActorFromContext returns the authenticated actor.
func ActorFromContext(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}

func abortWith(c *gin.Context, err *apperrors.AppError) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(err.StatusCode(), ErrorResponse{
		Status:  err.StatusCode(),
		Code:    int(err.Code),
		Key:     err.Key,
		Message: err.Localized(LocaleFromContext(c)),
		TraceID: c.GetString(ContextRequestID),
	})
}
