package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func TestWidgetTokenRoundTrip(t *testing.T) {
	sessionID := uuid.New()

	token, err := NewWidgetToken(sessionID, testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseWidgetToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, sessionID, claims.SessionID)
	require.Equal(t, sessionID.String(), claims.Subject)
	require.Equal(t, "aldercrest-web", claims.Issuer)
}

func TestParseWidgetTokenRejectsExpired(t *testing.T) {
	token, err := NewWidgetToken(uuid.New(), testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseWidgetToken(token, testSecret)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseWidgetTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewWidgetToken(uuid.New(), testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseWidgetToken(token, "a-completely-different-secret-value")
	require.Error(t, err)
}

func TestParseWidgetTokenRejectsGarbage(t *testing.T) {
	_, err := ParseWidgetToken("not-a-jwt", testSecret)
	require.Error(t, err)
}

func TestParseWidgetTokenRejectsMissingSessionID(t *testing.T) {
	// A token signed with our secret but carrying no session binding must
	// not authenticate.
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := raw.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseWidgetToken(token, testSecret)
	require.Error(t, err)
}

func TestSessionIDContextRoundTrip(t *testing.T) {
	id := uuid.New()
	ctx := WithSessionID(context.Background(), id)

	got, ok := GetSessionIDFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, id, got)

	_, ok = GetSessionIDFromContext(context.Background())
	require.False(t, ok)
}
