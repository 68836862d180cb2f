package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiermaster/backend/internal/apperr"
	"github.com/tiermaster/backend/internal/auth"
	"github.com/tiermaster/backend/internal/middleware"
	"github.com/tiermaster/backend/internal/models"
)

type UserHandler struct {
	svc *auth.Service
}

func NewUserHandler(svc *auth.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// GetInfo handles GET /api/user/info. A logged-in caller without an account
// row yet is described from their session with the free plan.
func (h *UserHandler) GetInfo(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		respondError(c, apperr.Unauthenticated(), nil)
		return
	}

	user, err := h.svc.Me(c.Request.Context(), id.Email)
	switch {
	case err == nil:
	case apperr.Is(err, apperr.CodeUserNotFound):
		user = models.User{Email: id.Email, Name: id.Name, ProfileImage: id.Picture, Tier: models.TierFree}
	default:
		respondError(c, err, nil)
		return
	}

	t := models.ParseSubscriptionTier(string(user.Tier))
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"tier":          t,
		"name":          user.Name,
		"email":         user.Email,
		"profile_image": user.ProfileImage,
		"created_at":    user.CreatedAt,
		"monthlyLimit":  t.MonthlySubmissionLimit(),
		"monthlyPrice":  t.MonthlyPrice(),
		"showAds":       t.ShowsAds(),
	})
}
