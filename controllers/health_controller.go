package controllers

import (
	"fmt"
	"net/http"
	"time"

	"aegis/database"
	"aegis/utils"

	"github.com/gin-gonic/gin"
)

type HealthController struct {
	startTime time.Time
	version   string
}

func NewHealthController(version string) *HealthController {
	return &HealthController{
		startTime: time.Now(),
		version:   version,
	}
}

// Check handles GET /health
func (hc *HealthController) Check(c *gin.Context) {
	dbHealth := database.HealthCheck()

	services := map[string]string{
		"database": fmt.Sprintf("%v", dbHealth["status"]),
	}

	uptime := time.Since(hc.startTime).Round(time.Second).String()
	response := utils.HealthCheckResponse(services, hc.version, uptime)

	statusCode := http.StatusOK
	if response.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
