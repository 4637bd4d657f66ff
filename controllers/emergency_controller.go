package controllers

import (
	"strconv"

	"aegis/middleware"
	"aegis/models"
	"aegis/services"
	"aegis/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type EmergencyController struct {
	emergencyService  *services.EmergencyService
	validationService *utils.ValidationService
}

func NewEmergencyController(emergencyService *services.EmergencyService, validationService *utils.ValidationService) *EmergencyController {
	return &EmergencyController{
		emergencyService:  emergencyService,
		validationService: validationService,
	}
}

// Trigger handles POST /emergency/trigger
func (ec *EmergencyController) Trigger(c *gin.Context) {
	var req models.TriggerEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if req.UserID == "" {
		if userID, ok := middleware.GetCurrentUserID(c); ok {
			req.UserID = userID
		}
	}

	if validationErrors := ec.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	response, err := ec.emergencyService.Trigger(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Failed to trigger emergency: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Emergency triggered successfully", response)
}

// GetStatus handles GET /emergency/:id/status
func (ec *EmergencyController) GetStatus(c *gin.Context) {
	emergencyID := c.Param("id")

	emergency, err := ec.emergencyService.GetStatus(c.Request.Context(), emergencyID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency retrieved successfully", emergency)
}

// Resolve handles PUT /emergency/:id/resolve
func (ec *EmergencyController) Resolve(c *gin.Context) {
	emergencyID := c.Param("id")

	var req models.ResolveEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	response, err := ec.emergencyService.Resolve(c.Request.Context(), emergencyID, req.ResolutionNotes)
	if err != nil {
		logrus.Errorf("Failed to resolve emergency %s: %v", emergencyID, err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency resolved successfully", response)
}

// CompleteStep handles POST /emergency/:id/step-complete
func (ec *EmergencyController) CompleteStep(c *gin.Context) {
	emergencyID := c.Param("id")

	var req models.CompleteStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if validationErrors := ec.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	response, err := ec.emergencyService.CompleteStep(c.Request.Context(), emergencyID, req.StepNumber)
	if err != nil {
		logrus.Errorf("Failed to complete step on emergency %s: %v", emergencyID, err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Step completed successfully", response)
}

// History handles GET /emergency/history
func (ec *EmergencyController) History(c *gin.Context) {
	var req models.EmergencyHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid query parameters")
		return
	}

	if req.UserID == "" {
		if userID, ok := middleware.GetCurrentUserID(c); ok {
			req.UserID = userID
		}
	}

	if validationErrors := ec.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	response, total, err := ec.emergencyService.History(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Failed to load emergency history: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	meta := utils.CreatePaginationMeta(page, limit, total)
	utils.SuccessResponseWithMeta(c, "Emergency history retrieved successfully", response, meta)
}

// Analytics handles GET /emergency/analytics/stats
func (ec *EmergencyController) Analytics(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		if current, ok := middleware.GetCurrentUserID(c); ok {
			userID = current
		}
	}
	if userID == "" {
		utils.BadRequestResponse(c, "userId is required")
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	analytics, err := ec.emergencyService.Analytics(c.Request.Context(), userID, days)
	if err != nil {
		logrus.Errorf("Failed to compute emergency analytics: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency analytics retrieved successfully", analytics)
}
