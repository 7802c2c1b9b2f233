package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// ErrInvalidCredential is returned when a sign-in credential fails
// verification (bad signature, wrong audience, expired).
var ErrInvalidCredential = errors.New("invalid sign-in credential")

// VerifiedIdentity is the subset of ID-token claims the chat uses: a display
// name and avatar for the transcript, and the email the assistance API
// contacts the visitor on.
type VerifiedIdentity struct {
	Subject    string
	Email      string
	GivenName  string
	PictureURL string
}

// CredentialVerifier checks a sign-in credential and extracts the visitor's
// identity. It is an interface so handler tests can verify without Google.
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (*VerifiedIdentity, error)
}

// GoogleVerifier validates Google ID tokens against the site's OAuth client
// ID. Tokens minted for any other audience are rejected.
type GoogleVerifier struct {
	clientID string
}

var _ CredentialVerifier = (*GoogleVerifier)(nil)

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

func (g *GoogleVerifier) Verify(ctx context.Context, credential string) (*VerifiedIdentity, error) {
	payload, err := idtoken.Validate(ctx, credential, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	name := claimString(payload.Claims, "given_name")
	if name == "" {
		name = claimString(payload.Claims, "name")
	}

	return &VerifiedIdentity{
		Subject:    payload.Subject,
		Email:      claimString(payload.Claims, "email"),
		GivenName:  name,
		PictureURL: claimString(payload.Claims, "picture"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	v, ok := claims[key].(string)
	if !ok {
		return ""
	}
	return v
}

// DisabledVerifier rejects every credential. It stands in when no OAuth
// client ID is configured: idtoken.Validate with an empty audience would
// accept tokens minted for any application, so sign-in is refused outright
// instead.
type DisabledVerifier struct{}

var _ CredentialVerifier = DisabledVerifier{}

func (DisabledVerifier) Verify(context.Context, string) (*VerifiedIdentity, error) {
	return nil, fmt.Errorf("%w: sign-in is not configured", ErrInvalidCredential)
}
