package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tiermaster/backend/internal/apperr"
	"github.com/tiermaster/backend/internal/middleware"
	"github.com/tiermaster/backend/internal/models"
	"github.com/tiermaster/backend/internal/suggestion"
)

// AdminHandler serves the moderation and catalog maintenance routes. Access
// is gated by middleware.RequireTier on the route group.
type AdminHandler struct {
	suggestions *suggestion.Service
	items       ItemCreator
	maintenance Maintainer
}

func NewAdminHandler(suggestions *suggestion.Service, items ItemCreator, maintenance Maintainer) *AdminHandler {
	return &AdminHandler{suggestions: suggestions, items: items, maintenance: maintenance}
}

// ListSuggestions handles GET /api/admin/suggestions
func (h *AdminHandler) ListSuggestions(c *gin.Context) {
	list, err := h.suggestions.List(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "suggestions": list})
}

type processRequest struct {
	ID     flexID `json:"id"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// ProcessSuggestion handles POST /api/admin/process-suggestion
func (h *AdminHandler) ProcessSuggestion(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, apperr.CodeMissingFields, "id and action are required")
		return
	}

	out, err := h.suggestions.Process(c.Request.Context(), middleware.Email(c), suggestion.ProcessRequest{
		ID:     uint(req.ID),
		Action: req.Action,
		Reason: req.Reason,
	})
	if err != nil {
		respondError(c, err, statusOverrides{apperr.CodeAlreadyProcessed: http.StatusBadRequest})
		return
	}

	resp := gin.H{
		"success":    true,
		"message":    out.Message,
		"suggestion": out.Suggestion,
	}
	if out.Item != nil {
		resp["item"] = out.Item
	}
	c.JSON(http.StatusOK, resp)
}

type addItemRequest struct {
	Name       string `json:"name"`
	CategoryID flexID `json:"categoryId"`
}

// AddItem handles POST /api/admin/items. New items always start at zero
// votes.
func (h *AdminHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, apperr.CodeMissingFields, "name and categoryId are required")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || req.CategoryID == 0 {
		badRequest(c, apperr.CodeMissingFields, "name and categoryId are required")
		return
	}

	item, err := h.items.CreateItem(c.Request.Context(), name, uint(req.CategoryID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondError(c, apperr.New(apperr.KindNotFound, apperr.CodeCategoryNotFound, "category not found"), nil)
			return
		}
		respondError(c, apperr.Store(err), nil)
		return
	}
	slog.InfoContext(c.Request.Context(), "item added", "item_id", item.ID, "category_id", item.CategoryID, "actor", middleware.Email(c))
	c.JSON(http.StatusCreated, gin.H{"success": true, "item": item})
}

// Reset handles POST /api/admin/reset
func (h *AdminHandler) Reset(c *gin.Context) {
	if err := h.maintenance.Reset(c.Request.Context()); err != nil {
		respondError(c, apperr.Store(err), nil)
		return
	}
	slog.WarnContext(c.Request.Context(), "catalog reset via api", "actor", middleware.Email(c))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "catalog, votes and suggestions cleared"})
}

// Seed handles POST /api/admin/seed
func (h *AdminHandler) Seed(c *gin.Context) {
	res, err := h.maintenance.Seed(c.Request.Context())
	if err != nil {
		respondError(c, apperr.Store(err), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "inserted": res})
}
