package controllers

import (
	"aegis/models"
	"aegis/services"
	"aegis/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AIController struct {
	emergencyService      *services.EmergencyService
	classificationService *services.ClassificationService
	guidanceService       *services.GuidanceService
	validationService     *utils.ValidationService
}

func NewAIController(
	emergencyService *services.EmergencyService,
	classificationService *services.ClassificationService,
	guidanceService *services.GuidanceService,
	validationService *utils.ValidationService,
) *AIController {
	return &AIController{
		emergencyService:      emergencyService,
		classificationService: classificationService,
		guidanceService:       guidanceService,
		validationService:     validationService,
	}
}

// Classify handles POST /ai/classify. Unlike the trigger path, provider
// failures surface here as errors so callers can see the raw outcome.
func (ac *AIController) Classify(c *gin.Context) {
	var req models.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if validationErrors := ac.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	classification, err := ac.classificationService.Classify(c.Request.Context(), req.Text)
	if err != nil {
		logrus.Errorf("Classification failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency classified successfully", classification)
}

// Guidance handles POST /ai/guidance.
func (ac *AIController) Guidance(c *gin.Context) {
	var req models.GuidanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if validationErrors := ac.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	guidance, err := ac.guidanceService.Generate(
		c.Request.Context(),
		req.EmergencyType,
		req.DetectedType,
		services.FlattenContext(req.UserContext),
	)
	if err != nil {
		logrus.Errorf("Guidance generation failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Guidance generated successfully", guidance)
}

// Analyze handles POST /ai/analyze: classification plus guidance with the
// confidence gate applied, without creating a record.
func (ac *AIController) Analyze(c *gin.Context) {
	var req models.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if validationErrors := ac.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	response, err := ac.emergencyService.Analyze(c.Request.Context(), req.Text, services.FlattenContext(req.UserContext))
	if err != nil {
		logrus.Errorf("Analysis failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency analyzed successfully", response)
}
