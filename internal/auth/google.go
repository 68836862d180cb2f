package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

const ProviderGoogle = "google"

var (
	ErrEmailNotVerified = errors.New("google account email is not verified")
	ErrNoIDToken        = errors.New("token response carries no id_token")
)

// ValidateFunc matches idtoken.Validate.
type ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleVerifier checks Google-signed ID tokens issued for clientID.
type GoogleVerifier struct {
	clientID string
	validate ValidateFunc
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

// NewGoogleVerifierWith uses validate in place of idtoken.Validate.
func NewGoogleVerifierWith(clientID string, validate ValidateFunc) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: validate}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	payload, err := v.validate(ctx, idToken, v.clientID)
	if err != nil {
		return Identity{}, fmt.Errorf("validating google id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return Identity{}, errors.New("google id token has no email claim")
	}
	if verified, _ := payload.Claims["email_verified"].(bool); !verified {
		return Identity{}, ErrEmailNotVerified
	}

	id := Identity{Email: email, Subject: payload.Subject}
	id.Name, _ = payload.Claims["name"].(string)
	id.Picture, _ = payload.Claims["picture"].(string)
	return id, nil
}

// OAuthFlow runs Google's authorization code flow for browser logins.
type OAuthFlow struct {
	config   *oauth2.Config
	verifier Verifier
}

func NewOAuthFlow(clientID, clientSecret, redirectURL string, verifier Verifier) *OAuthFlow {
	return &OAuthFlow{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		verifier: verifier,
	}
}

// AuthCodeURL is where the browser is sent to consent.
func (f *OAuthFlow) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for tokens and verifies the ID token
// that comes with them.
func (f *OAuthFlow) Exchange(ctx context.Context, code string) (Identity, error) {
	tok, err := f.config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchanging authorization code: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return Identity{}, ErrNoIDToken
	}
	return f.verifier.Verify(ctx, raw)
}
