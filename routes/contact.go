package routes

import (
	"aegis/controllers"

	"github.com/gin-gonic/gin"
)

// SetupContactRoutes registers the trusted-contact CRUD endpoints.
func SetupContactRoutes(router *gin.RouterGroup, controller *controllers.ContactController) {
	contacts := router.Group("/contacts")
	{
		contacts.POST("", controller.Create)
		contacts.GET("", controller.List)
		contacts.PUT("/:id", controller.Update)
		contacts.DELETE("/:id", controller.Delete)
	}
}
