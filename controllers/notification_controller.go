package controllers

import (
	"aegis/models"
	"aegis/services"
	"aegis/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type NotificationController struct {
	notificationService *services.NotificationService
	validationService   *utils.ValidationService
}

func NewNotificationController(notificationService *services.NotificationService, validationService *utils.ValidationService) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
		validationService:   validationService,
	}
}

// SendSMS handles POST /notify/sms
func (nc *NotificationController) SendSMS(c *gin.Context) {
	var req models.SendSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if validationErrors := nc.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	summary, err := nc.notificationService.NotifyContactsSMS(c.Request.Context(), req.EmergencyID, req.Message)
	if err != nil {
		logrus.Errorf("Failed to send SMS notifications for emergency %s: %v", req.EmergencyID, err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "SMS notifications dispatched", summary)
}

// SendPush handles POST /notify/push
func (nc *NotificationController) SendPush(c *gin.Context) {
	var req models.SendPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if validationErrors := nc.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	summary, err := nc.notificationService.NotifyDevicesPush(c.Request.Context(), req.EmergencyID, req.Title, req.Body)
	if err != nil {
		logrus.Errorf("Failed to send push notifications for emergency %s: %v", req.EmergencyID, err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Push notifications dispatched", summary)
}

// GetStatus handles GET /notify/status/:emergencyId
func (nc *NotificationController) GetStatus(c *gin.Context) {
	emergencyID := c.Param("emergencyId")

	status, err := nc.notificationService.Status(c.Request.Context(), emergencyID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification status retrieved successfully", status)
}

// Retry handles POST /notify/retry/:emergencyId
func (nc *NotificationController) Retry(c *gin.Context) {
	emergencyID := c.Param("emergencyId")

	summary, err := nc.notificationService.Retry(c.Request.Context(), emergencyID)
	if err != nil {
		logrus.Errorf("Failed to retry notifications for emergency %s: %v", emergencyID, err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification retry completed", summary)
}
