package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// --- Context Keys ---

// contextKey is a custom type used for context keys to avoid collisions.
type contextKey string

const (
	SessionIDKey contextKey = "sessionID"
)

// --- JWT Claims ---

// WidgetClaims includes standard JWT claims plus the widget session binding.
// The token proves ownership of one session and nothing else; visitor
// identity lives inside the session, never in this token.
type WidgetClaims struct {
	SessionID uuid.UUID `json:"session_id"`
	jwt.RegisteredClaims
}

// NewWidgetToken generates the bearer token handed to the widget when its
// session is created. Expiry should track the session store TTL.
func NewWidgetToken(sessionID uuid.UUID, jwtSecret string, expiration time.Duration) (string, error) {
	claims := WidgetClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "aldercrest-web",
			Subject:   sessionID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", fmt.Errorf("signing widget token: %w", err)
	}
	return signedToken, nil
}

// ParseWidgetToken validates the signed token and returns its claims.
// Signature scheme is pinned to HMAC so a forged token with alg=none or an
// RSA header fails before the claims are looked at.
func ParseWidgetToken(tokenString, jwtSecret string) (*WidgetClaims, error) {
	claims := &WidgetClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.SessionID == uuid.Nil {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
