package routes

import (
	"aegis/controllers"
	"aegis/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// SetupAuthRoutes registers the public authentication endpoints.
func SetupAuthRoutes(router *gin.RouterGroup, controller *controllers.AuthController, redisClient *redis.Client) {
	auth := router.Group("/auth")
	auth.Use(middleware.AuthRateLimit(redisClient))
	{
		auth.POST("/register", controller.Register)
		auth.POST("/login", controller.Login)
		auth.POST("/refresh", controller.Refresh)
	}
}
