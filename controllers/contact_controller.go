package controllers

import (
	"aegis/middleware"
	"aegis/models"
	"aegis/services"
	"aegis/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ContactController struct {
	contactService    *services.ContactService
	validationService *utils.ValidationService
}

func NewContactController(contactService *services.ContactService, validationService *utils.ValidationService) *ContactController {
	return &ContactController{
		contactService:    contactService,
		validationService: validationService,
	}
}

// Create handles POST /contacts
func (cc *ContactController) Create(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req models.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if validationErrors := cc.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	contact, err := cc.contactService.Create(c.Request.Context(), userID, req)
	if err != nil {
		logrus.Errorf("Failed to create contact: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Contact created successfully", contact)
}

// List handles GET /contacts
func (cc *ContactController) List(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	contacts, err := cc.contactService.GetByUser(c.Request.Context(), userID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Contacts retrieved successfully", contacts)
}

// Update handles PUT /contacts/:id
func (cc *ContactController) Update(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req models.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if validationErrors := cc.validationService.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	contact, err := cc.contactService.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		logrus.Errorf("Failed to update contact %s: %v", c.Param("id"), err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Contact updated successfully", contact)
}

// Delete handles DELETE /contacts/:id
func (cc *ContactController) Delete(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	if err := cc.contactService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		logrus.Errorf("Failed to delete contact %s: %v", c.Param("id"), err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Contact deleted successfully", nil)
}
