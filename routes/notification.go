package routes

import (
	"aegis/controllers"
	"aegis/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// SetupNotificationRoutes registers the notification dispatch endpoints.
func SetupNotificationRoutes(router *gin.RouterGroup, controller *controllers.NotificationController, redisClient *redis.Client) {
	notify := router.Group("/notify")
	notify.Use(middleware.NotifyRateLimit(redisClient))
	{
		notify.POST("/sms", controller.SendSMS)
		notify.POST("/push", controller.SendPush)
		notify.GET("/status/:emergencyId", controller.GetStatus)
		notify.POST("/retry/:emergencyId", controller.Retry)
	}
}
