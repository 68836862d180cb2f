package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tiermaster/backend/internal/apperr"
	"github.com/tiermaster/backend/internal/auth"
	"github.com/tiermaster/backend/internal/middleware"
	"github.com/tiermaster/backend/internal/models"
)

const (
	oauthStateCookie = "tm_oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// CookieConfig controls the session cookie set on login.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

type AuthHandler struct {
	svc    *auth.Service
	cookie CookieConfig
}

func NewAuthHandler(svc *auth.Service, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie}
}

func (h *AuthHandler) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
}

// GoogleLogin handles POST /api/auth/google with an ID token obtained by the
// frontend.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var input models.GoogleLoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, apperr.CodeMissingFields, "idToken is required")
		return
	}

	resp, err := h.svc.LoginWithIDToken(c.Request.Context(), input.IDToken)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	h.setSession(c, resp.Token)
	c.JSON(http.StatusOK, resp)
}

// GoogleRedirect handles GET /api/auth/google/login by sending the browser
// to Google's consent page.
func (h *AuthHandler) GoogleRedirect(c *gin.Context) {
	flow := h.svc.OAuth()
	if flow == nil {
		respondError(c, apperr.New(apperr.KindNotFound, apperr.CodeInvalidRequest, "oauth login is not configured"), nil)
		return
	}
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, int(oauthStateTTL.Seconds()), "/", "", h.cookie.Secure, true)
	c.Redirect(http.StatusFound, flow.AuthCodeURL(state))
}

// GoogleCallback handles GET /api/auth/google/callback
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	want, err := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.cookie.Secure, true)
	if err != nil || want == "" || c.Query("state") != want {
		respondError(c, apperr.New(apperr.KindUnauthenticated, apperr.CodeUnauthenticated, "login state mismatch, please retry"), nil)
		return
	}
	code := c.Query("code")
	if code == "" {
		badRequest(c, apperr.CodeMissingFields, "code is required")
		return
	}

	resp, err := h.svc.LoginWithCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	h.setSession(c, resp.Token)
	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetMe returns the current authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, err := h.svc.Me(c.Request.Context(), middleware.Email(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, user)
}
