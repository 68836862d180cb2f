package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiermaster/backend/internal/apperr"
	"github.com/tiermaster/backend/internal/middleware"
	"github.com/tiermaster/backend/internal/voting"
)

type VoteHandler struct {
	svc *voting.Service
}

func NewVoteHandler(svc *voting.Service) *VoteHandler {
	return &VoteHandler{svc: svc}
}

type voteRequest struct {
	ItemID flexID `json:"itemId"`
}

type moveVoteRequest struct {
	FromItemID flexID `json:"fromItemId"`
	ToItemID   flexID `json:"toItemId"`
}

// Unknown users and items are reported as bad requests on the vote
// endpoints; only a missing vote is a 404.
var voteOverrides = statusOverrides{
	apperr.CodeUserNotFound: http.StatusBadRequest,
	apperr.CodeItemNotFound: http.StatusBadRequest,
}

func bindItemID(c *gin.Context) (uint, bool) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ItemID == 0 {
		if id, ok := parseID(c.Query("itemId")); ok {
			return id, true
		}
		badRequest(c, apperr.CodeMissingFields, "itemId is required")
		return 0, false
	}
	return uint(req.ItemID), true
}

// CastVote handles POST /api/vote
func (h *VoteHandler) CastVote(c *gin.Context) {
	itemID, ok := bindItemID(c)
	if !ok {
		return
	}
	if err := h.svc.Cast(c.Request.Context(), middleware.Email(c), itemID); err != nil {
		respondError(c, err, voteOverrides)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "itemId": itemID})
}

// RetractVote handles DELETE /api/vote
func (h *VoteHandler) RetractVote(c *gin.Context) {
	itemID, ok := bindItemID(c)
	if !ok {
		return
	}
	if err := h.svc.Retract(c.Request.Context(), middleware.Email(c), itemID); err != nil {
		respondError(c, err, voteOverrides)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "itemId": itemID})
}

// MoveVote handles PUT /api/vote
func (h *VoteHandler) MoveVote(c *gin.Context) {
	var req moveVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FromItemID == 0 || req.ToItemID == 0 {
		badRequest(c, apperr.CodeMissingFields, "fromItemId and toItemId are required")
		return
	}
	from, to := uint(req.FromItemID), uint(req.ToItemID)
	if err := h.svc.Move(c.Request.Context(), middleware.Email(c), from, to); err != nil {
		respondError(c, err, voteOverrides)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "fromItemId": from, "itemId": to})
}

// ListVotes handles GET /api/vote
func (h *VoteHandler) ListVotes(c *gin.Context) {
	ids, err := h.svc.ListUserVotes(c.Request.Context(), middleware.Email(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "itemIds": ids})
}
