package auth

import "context"

// Identity is who the caller is according to the identity provider or the
// session token. Email is the stable user key.
type Identity struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	// Subject is the provider's user id for provider identities and the
	// internal user id for session identities.
	Subject string `json:"-"`
}

// Verifier turns a provider ID token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (Identity, error)
}
