package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"slideforge/internal/mcp"
	"slideforge/internal/service"
	"slideforge/internal/ws"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Auth          *service.AuthService
	AuthHandler   *AuthHandler
	Presentations *PresentationHandler
	Credits       *CreditHandler
	Brainstorm    *BrainstormHandler
	MCP           *mcp.Handler
	Hub           *ws.Hub
	Logger        *zap.Logger
}

// NewRouter builds the Gin engine with all routes mounted.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ZapLoggingMiddleware(deps.Logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	deps.MCP.RegisterRoutes(router)

	apiGroup := router.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", deps.AuthHandler.register)
			authGroup.POST("/login", deps.AuthHandler.login)
		}

		protected := apiGroup.Group("")
		protected.Use(AuthMiddleware(deps.Auth))
		{
			protected.GET("/ws", func(c *gin.Context) {
				userID, ok := userIDFromContext(c)
				if !ok {
					c.AbortWithStatus(http.StatusUnauthorized)
					return
				}
				deps.Hub.ServeWS(c.Writer, c.Request, userID)
			})

			presentations := protected.Group("/presentations")
			{
				presentations.POST("", deps.Presentations.create)
				presentations.GET("", deps.Presentations.list)
				presentations.GET("/:id", deps.Presentations.get)
				presentations.PUT("/:id", deps.Presentations.save)
				presentations.DELETE("/:id", deps.Presentations.delete)
				presentations.PUT("/:id/reorder", deps.Presentations.reorderSlides)
			}

			protected.POST("/generate-slide", deps.Presentations.generateSlide)
			protected.POST("/generate-image", deps.Presentations.generateImage)

			slides := protected.Group("/slides")
			{
				slides.PUT("/:slideId", deps.Presentations.updateSlide)
				slides.POST("/:slideId/regenerate", deps.Presentations.regenerateSlide)
				slides.POST("/:slideId/image", deps.Presentations.requestImage)
			}

			keys := protected.Group("/keys")
			{
				keys.POST("", deps.AuthHandler.createAPIKey)
				keys.GET("", deps.AuthHandler.listAPIKeys)
				keys.DELETE("/:id", deps.AuthHandler.revokeAPIKey)
			}

			credits := protected.Group("/credits")
			{
				credits.GET("", deps.Credits.balance)
				credits.GET("/history", deps.Credits.history)
			}

			brainstormGroup := protected.Group("/brainstorm")
			{
				brainstormGroup.POST("", deps.Brainstorm.start)
				brainstormGroup.GET("/:id", deps.Brainstorm.get)
				brainstormGroup.POST("/:id/chat", deps.Brainstorm.chat)
				brainstormGroup.POST("/:id/ideas", deps.Brainstorm.extractIdeas)
				brainstormGroup.POST("/:id/presentation", deps.Brainstorm.createPresentation)
			}
		}
	}

	return router
}
