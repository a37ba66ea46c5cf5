package handlers

import (
	"net/http"

	"github.com/jdamiba/twitter-clone/api/middleware"
	"github.com/jdamiba/twitter-clone/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users  *services.UserService
	ledger *services.LedgerService
}

func NewUserHandler(users *services.UserService, ledger *services.LedgerService) *UserHandler {
	return &UserHandler{users: users, ledger: ledger}
}

// UpsertUser - вызов провайдера идентификации при создании/изменении пользователя
func (h *UserHandler) UpsertUser(c *gin.Context) {
	var req services.UserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	user, err := h.users.UpsertUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	profile, err := h.users.GetUser(c.Request.Context(), c.Param("id"), middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) ToggleFollow(c *gin.Context) {
	res, err := h.ledger.ToggleFollow(c.Request.Context(), middleware.ViewerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *UserHandler) FollowStatus(c *gin.Context) {
	following, err := h.ledger.IsFollowing(c.Request.Context(), middleware.ViewerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.FollowResult{Following: following})
}

// ListFollowing - id пользователей, на которых подписан зритель
func (h *UserHandler) ListFollowing(c *gin.Context) {
	ids, err := h.users.ListFollowing(c.Request.Context(), middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": ids})
}
