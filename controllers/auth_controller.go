package controllers

import (
	"aegis/middleware"
	"aegis/models"
	"aegis/services"
	"aegis/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthController struct {
	authService       *services.AuthService
	validationService *utils.ValidationService
}

func NewAuthController(authService *services.AuthService, validationService *utils.ValidationService) *AuthController {
	return &AuthController{
		authService:       authService,
		validationService: validationService,
	}
}

// Register handles POST /auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if validationErrors := ac.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	response, err := ac.authService.Register(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Registration failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "User registered successfully", response)
}

// Login handles POST /auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if validationErrors := ac.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	response, err := ac.authService.Login(c.Request.Context(), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Login successful", response)
}

// Refresh handles POST /auth/refresh
func (ac *AuthController) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if validationErrors := ac.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	pair, err := ac.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Token refreshed successfully", pair)
}

// RegisterDevice handles POST /auth/device
func (ac *AuthController) RegisterDevice(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req models.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if validationErrors := ac.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := ac.authService.RegisterDevice(c.Request.Context(), userID, req.DeviceToken); err != nil {
		logrus.Errorf("Failed to register device token: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Device registered successfully", nil)
}
