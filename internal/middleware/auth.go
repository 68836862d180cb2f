// Package middleware provides the gin middleware of the API: identity
// resolution from session tokens, access gates, request ids, request logging
// and latency metrics.
//
// Identify never rejects a request. Routes that need a caller add
// RequireIdentity, and moderation routes add RequireTier on top.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tiermaster/backend/internal/apperr"
	"github.com/tiermaster/backend/internal/auth"
	"github.com/tiermaster/backend/internal/models"
)

const identityKey = "tiermaster_identity"

// TokenParser validates session tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type UserReader interface {
	ByEmail(ctx context.Context, email string) (models.User, error)
}

// SetIdentity stores the caller identity in the gin context.
func SetIdentity(c *gin.Context, id *auth.Identity) {
	c.Set(identityKey, id)
}

// GetIdentity returns the caller identity, or nil for anonymous requests.
func GetIdentity(c *gin.Context) *auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(*auth.Identity); ok {
			return id
		}
	}
	return nil
}

// Email returns the caller's email, empty for anonymous requests.
func Email(c *gin.Context) string {
	if id := GetIdentity(c); id != nil {
		return id.Email
	}
	return ""
}

// Identify resolves the session token from the Authorization header, falling
// back to the session cookie. Invalid or missing tokens leave the request
// anonymous.
func Identify(parser TokenParser, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" && cookieName != "" {
			token, _ = c.Cookie(cookieName)
		}
		if token != "" {
			if claims, err := parser.Parse(token); err == nil {
				id := claims.Identity()
				SetIdentity(c, &id)
			}
		}
		c.Next()
	}
}

// RequireIdentity rejects anonymous requests with 401.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetIdentity(c) == nil {
			abort(c, http.StatusUnauthorized, apperr.Unauthenticated())
			return
		}
		c.Next()
	}
}

// RequireTier lets through callers whose subscription tier is in allowed.
// An empty allowed list admits every authenticated caller. The tier is read
// from the store on each request so plan changes apply immediately.
func RequireTier(users UserReader, allowed []models.SubscriptionTier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := GetIdentity(c)
		if id == nil {
			abort(c, http.StatusUnauthorized, apperr.Unauthenticated())
			return
		}
		if len(allowed) == 0 {
			c.Next()
			return
		}

		user, err := users.ByEmail(c.Request.Context(), id.Email)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			abort(c, http.StatusInternalServerError, apperr.Store(err))
			return
		}
		if err != nil || !slices.Contains(allowed, models.ParseSubscriptionTier(string(user.Tier))) {
			abort(c, http.StatusForbidden, apperr.New(apperr.KindForbidden, apperr.CodeForbidden,
				"your account is not allowed to moderate"))
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, e *apperr.Error) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   e.Code,
		"message": e.Message,
	})
}

// extractBearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" when the header is missing or uses another scheme.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
