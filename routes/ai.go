package routes

import (
	"aegis/controllers"

	"github.com/gin-gonic/gin"
)

// SetupAIRoutes registers the direct AI analysis endpoints.
func SetupAIRoutes(router *gin.RouterGroup, controller *controllers.AIController) {
	ai := router.Group("/ai")
	{
		ai.POST("/classify", controller.Classify)
		ai.POST("/guidance", controller.Guidance)
		ai.POST("/analyze", controller.Analyze)
	}
}
