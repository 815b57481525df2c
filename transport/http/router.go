package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/midnight-labs/pincade/internal/observability"
	"github.com/midnight-labs/pincade/ports"
	"github.com/midnight-labs/pincade/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, gameService *service.GameService, store ports.Store) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), observability.RecoverMiddleware())

	handlers := NewHandlers(authService, gameService)

	// Readiness is gated on the credential store: if it is unreachable
	// the whole system fails closed.
	router.GET("/healthz", func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/login", handlers.Login)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	// Public game routes
	router.GET("/leaderboard", handlers.Leaderboard)

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.POST("/logout-all", handlers.LogoutAll)
		api.POST("/rounds", handlers.StartRound)
		api.GET("/rounds/:id", handlers.GetRound)
		api.POST("/rounds/:id/guess", handlers.Guess)
		api.GET("/score", handlers.ChainScore)
		api.GET("/reward", handlers.Reward)
	}

	return router
}
