package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiermaster/backend/internal/apperr"
	"github.com/tiermaster/backend/internal/middleware"
	"github.com/tiermaster/backend/internal/models"
	"github.com/tiermaster/backend/internal/suggestion"
)

type SuggestionHandler struct {
	svc *suggestion.Service
}

func NewSuggestionHandler(svc *suggestion.Service) *SuggestionHandler {
	return &SuggestionHandler{svc: svc}
}

type submitRequest struct {
	Name        string `json:"name"`
	CategoryID  flexID `json:"categoryId"`
	Description string `json:"description"`
}

// Submit handles POST /api/submit
func (h *SuggestionHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, apperr.CodeMissingFields, "name and categoryId are required")
		return
	}

	who := suggestion.Submitter{Email: middleware.Email(c)}
	if id := middleware.GetIdentity(c); id != nil {
		who.Name = id.Name
	}
	sug, quota, err := h.svc.Submit(c.Request.Context(), who, models.SubmitSuggestionRequest{
		Name:        req.Name,
		CategoryID:  uint(req.CategoryID),
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err, statusOverrides{apperr.CodeCategoryNotFound: http.StatusBadRequest})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "suggestion received and awaiting review",
		"data":      sug,
		"remaining": quota.Remaining,
		"max":       quota.Max,
	})
}

// Remaining handles GET /api/submit/remaining
func (h *SuggestionHandler) Remaining(c *gin.Context) {
	quota, err := h.svc.Remaining(c.Request.Context(), middleware.Email(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"remaining": quota.Remaining,
		"max":       quota.Max,
		"used":      quota.Used,
		"tier":      quota.Tier,
	})
}
