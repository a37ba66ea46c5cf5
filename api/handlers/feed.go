package handlers

import (
	"net/http"

	"github.com/jdamiba/twitter-clone/api/middleware"
	"github.com/jdamiba/twitter-clone/services"

	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	feed *services.FeedService
}

func NewFeedHandler(feed *services.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

func (h *FeedHandler) list(c *gin.Context, q services.FeedQuery) {
	q.ViewerID = middleware.ViewerID(c)
	q.Page = parsePage(c)
	page, err := h.feed.ListFeed(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Following - лента зрителя: его посты и посты тех, на кого он подписан
func (h *FeedHandler) Following(c *gin.Context) {
	h.list(c, services.FeedQuery{Mode: services.FeedFollowing})
}

func (h *FeedHandler) Explore(c *gin.Context) {
	h.list(c, services.FeedQuery{Mode: services.FeedGlobal})
}

// Liked - посты, лайкнутые user_id (по умолчанию самим зрителем)
func (h *FeedHandler) Liked(c *gin.Context) {
	h.list(c, services.FeedQuery{Mode: services.FeedLiked, TargetID: c.Query("user_id")})
}

func (h *FeedHandler) UserPosts(c *gin.Context) {
	h.list(c, services.FeedQuery{Mode: services.FeedAuthor, TargetID: c.Param("id")})
}

func (h *FeedHandler) Search(c *gin.Context) {
	h.list(c, services.FeedQuery{Mode: services.FeedSearch, Query: c.Query("q")})
}
