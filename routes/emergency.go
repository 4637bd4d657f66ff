package routes

import (
	"aegis/controllers"
	"aegis/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// SetupEmergencyRoutes registers the emergency lifecycle endpoints.
func SetupEmergencyRoutes(router *gin.RouterGroup, controller *controllers.EmergencyController, redisClient *redis.Client) {
	emergency := router.Group("/emergency")
	{
		emergency.POST("/trigger", middleware.EmergencyRateLimit(redisClient), controller.Trigger)
		emergency.GET("/history", controller.History)
		emergency.GET("/analytics/stats", controller.Analytics)
		emergency.GET("/:id/status", controller.GetStatus)
		emergency.PUT("/:id/resolve", controller.Resolve)
		emergency.POST("/:id/step-complete", controller.CompleteStep)
	}
}
