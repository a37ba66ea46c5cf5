package routes

import (
	"time"

	"github.com/jdamiba/twitter-clone/api/handlers"
	"github.com/jdamiba/twitter-clone/api/middleware"
	"github.com/jdamiba/twitter-clone/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const ServiceName = "feed"

// Deps - сервисы и настройки, из которых собирается роутер
type Deps struct {
	Posts             *services.PostService
	Feed              *services.FeedService
	Ledger            *services.LedgerService
	Users             *services.UserService
	Identity          middleware.IdentityConfig
	ProvisioningToken string
	RequestTimeout    time.Duration
}

// NewRouter собирает gin.Engine со всеми middleware, API и /metrics
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.PrometheusMiddleware(ServiceName))
	router.Use(middleware.RequestTimeout(ServiceName, deps.RequestTimeout))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	PublicApi(router, deps)
	return router
}

func PublicApi(router *gin.Engine, deps Deps) *gin.RouterGroup {
	postHandler := handlers.NewPostHandler(deps.Posts, deps.Ledger)
	feedHandler := handlers.NewFeedHandler(deps.Feed)
	userHandler := handlers.NewUserHandler(deps.Users, deps.Ledger)

	internal := router.Group("/api/v1/internal")
	internal.Use(middleware.ProvisioningAuth(deps.ProvisioningToken))
	{
		internal.POST("/users", userHandler.UpsertUser)
	}

	publicEndpoints := router.Group("/api/v1")
	publicEndpoints.Use(middleware.IdentityMiddleware(deps.Identity))
	{
		// Ленты
		publicEndpoints.GET("/posts/explore", feedHandler.Explore)
		publicEndpoints.GET("/posts/liked", feedHandler.Liked)
		publicEndpoints.GET("/posts/search", feedHandler.Search)
		publicEndpoints.GET("/posts/:id", postHandler.GetPost)
		publicEndpoints.GET("/users/:id", userHandler.GetUser)
		publicEndpoints.GET("/users/:id/posts", feedHandler.UserPosts)
		publicEndpoints.GET("/users/:id/follow-status", userHandler.FollowStatus)
	}

	authorized := publicEndpoints.Group("")
	authorized.Use(middleware.RequireAuth())
	{
		authorized.GET("/posts", feedHandler.Following)
		authorized.POST("/posts", postHandler.CreatePost)
		authorized.PUT("/posts/:id", postHandler.EditPost)
		authorized.DELETE("/posts/:id", postHandler.DeletePost)
		authorized.POST("/posts/:id/like", postHandler.ToggleLike)

		// Подписки
		authorized.GET("/users/following", userHandler.ListFollowing)
		authorized.POST("/users/:id/follow", userHandler.ToggleFollow)
	}
	return publicEndpoints
}
