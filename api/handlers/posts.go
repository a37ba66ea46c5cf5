package handlers

import (
	"net/http"

	"github.com/jdamiba/twitter-clone/api/middleware"
	"github.com/jdamiba/twitter-clone/services"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts  *services.PostService
	ledger *services.LedgerService
}

func NewPostHandler(posts *services.PostService, ledger *services.LedgerService) *PostHandler {
	return &PostHandler{posts: posts, ledger: ledger}
}

type createPostRequest struct {
	Content   string `json:"content"`
	ReplyToID *int64 `json:"reply_to_id"`
}

type editPostRequest struct {
	Content string `json:"content"`
}

// CreatePost создает новый пост или ответ
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), middleware.ViewerID(c), req.Content, req.ReplyToID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	postID, ok := parseID(c, "id")
	if !ok {
		return
	}
	post, err := h.posts.GetPost(c.Request.Context(), postID, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// EditPost меняет текст собственного поста
func (h *PostHandler) EditPost(c *gin.Context) {
	postID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req editPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	post, err := h.posts.EditPost(c.Request.Context(), middleware.ViewerID(c), postID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	postID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.posts.DeletePost(c.Request.Context(), middleware.ViewerID(c), postID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// ToggleLike ставит или снимает лайк, в ответе состояние после операции
func (h *PostHandler) ToggleLike(c *gin.Context) {
	postID, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.ledger.ToggleLike(c.Request.Context(), middleware.ViewerID(c), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
