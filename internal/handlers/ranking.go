package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiermaster/backend/internal/apperr"
	"github.com/tiermaster/backend/internal/middleware"
	"github.com/tiermaster/backend/internal/ranking"
)

type RankingHandler struct {
	svc *ranking.Service
}

func NewRankingHandler(svc *ranking.Service) *RankingHandler {
	return &RankingHandler{svc: svc}
}

// GetRanking handles GET /api/ranking?categoryId=
func (h *RankingHandler) GetRanking(c *gin.Context) {
	categoryID, ok := parseID(c.Query("categoryId"))
	if !ok {
		badRequest(c, apperr.CodeMissingFields, "categoryId is required")
		return
	}
	board, err := h.svc.CategoryBoard(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, board)
}

// PopularTiers handles GET /api/home/popular-tiers
func (h *RankingHandler) PopularTiers(c *gin.Context) {
	boards, err := h.svc.PopularTiers(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"popularTiers": boards})
}

// GetItem handles GET /api/items/:id
func (h *RankingHandler) GetItem(c *gin.Context) {
	itemID, ok := parseID(c.Param("id"))
	if !ok {
		badRequest(c, apperr.CodeInvalidRequest, "item id must be a positive integer")
		return
	}
	detail, err := h.svc.ItemDetail(c.Request.Context(), itemID, middleware.Email(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetCategories handles GET /api/categories
func (h *RankingHandler) GetCategories(c *gin.Context) {
	listing, err := h.svc.Catalog(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, listing)
}
