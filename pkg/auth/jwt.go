package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the caller identity. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role       string `json:"role"`
	ProviderID string `json:"provider_id,omitempty"`
	Locale     string `json:"locale,omitempty"`
}

// TokenManager issues and validates HMAC signed access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (m *TokenManager) Generate(actor model.Actor, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Role:   string(actor.Role),
		Locale: actor.Locale,
	}
	if actor.ProviderID != nil {
		claims.ProviderID = actor.ProviderID.String()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Validate parses the token and returns the actor it names.
func (m *TokenManager) Validate(tokenString string) (model.Actor, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return model.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Actor{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	actor := model.Actor{
		UserID: userID,
		Role:   model.ActorRole(claims.Role),
		Locale: claims.Locale,
	}
	if actor.Role == "" {
		actor.Role = model.RolePatient
	}
	if claims.ProviderID != "" {
		pid, err := uuid.Parse(claims.ProviderID)
		if err != nil {
			return model.Actor{}, fmt.Errorf("%w: provider_id is not a uuid", ErrInvalidToken)
		}
		actor.ProviderID = &pid
	}
	return actor, nil
}
