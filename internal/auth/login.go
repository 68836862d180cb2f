package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tiermaster/backend/internal/apperr"
	"github.com/tiermaster/backend/internal/models"
)

type UserStore interface {
	Upsert(ctx context.Context, u models.User) (models.User, error)
	ByEmail(ctx context.Context, email string) (models.User, error)
}

// Service registers users on login and issues their session tokens.
type Service struct {
	verifier Verifier
	oauth    *OAuthFlow
	users    UserStore
	issuer   *Issuer
}

func NewService(verifier Verifier, oauth *OAuthFlow, users UserStore, issuer *Issuer) *Service {
	return &Service{verifier: verifier, oauth: oauth, users: users, issuer: issuer}
}

// Issuer exposes the session token issuer for the middleware.
func (s *Service) Issuer() *Issuer { return s.issuer }

// OAuth returns the code flow, nil when no client secret is configured.
func (s *Service) OAuth() *OAuthFlow { return s.oauth }

// LoginWithIDToken handles a Google ID token obtained by the frontend.
func (s *Service) LoginWithIDToken(ctx context.Context, idToken string) (models.AuthResponse, error) {
	id, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		slog.InfoContext(ctx, "google id token rejected", "error", err)
		return models.AuthResponse{}, apperr.Wrap(err, apperr.KindUnauthenticated, apperr.CodeUnauthenticated,
			"google sign-in could not be verified")
	}
	return s.login(ctx, id)
}

// LoginWithCode completes the browser code flow.
func (s *Service) LoginWithCode(ctx context.Context, code string) (models.AuthResponse, error) {
	if s.oauth == nil {
		return models.AuthResponse{}, apperr.New(apperr.KindInvalid, apperr.CodeInvalidRequest, "oauth login is not configured")
	}
	id, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.InfoContext(ctx, "oauth code exchange failed", "error", err)
		return models.AuthResponse{}, apperr.Wrap(err, apperr.KindUnauthenticated, apperr.CodeUnauthenticated,
			"google sign-in could not be completed")
	}
	return s.login(ctx, id)
}

func (s *Service) login(ctx context.Context, id Identity) (models.AuthResponse, error) {
	user, err := s.users.Upsert(ctx, models.User{
		Email:        id.Email,
		Name:         id.Name,
		ProfileImage: id.Picture,
		ProviderID:   id.Subject,
		ProviderType: ProviderGoogle,
	})
	if err != nil {
		return models.AuthResponse{}, apperr.Store(err)
	}
	token, err := s.issuer.Issue(user)
	if err != nil {
		return models.AuthResponse{}, apperr.Store(err)
	}
	slog.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return models.AuthResponse{Token: token, User: user}, nil
}

// Me loads the account behind an authenticated identity.
func (s *Service) Me(ctx context.Context, email string) (models.User, error) {
	if email == "" {
		return models.User{}, apperr.Unauthenticated()
	}
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.User{}, apperr.New(apperr.KindNotFound, apperr.CodeUserNotFound, "user not found")
		}
		return models.User{}, apperr.Store(err)
	}
	return user, nil
}
