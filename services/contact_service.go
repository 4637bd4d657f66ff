package services

import (
	"context"

	"aegis/models"
	"aegis/repositories"
	"aegis/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContactService manages the trusted-contact list. The intake pipeline
// consumes contacts read-only; all mutation happens here.
type ContactService struct {
	repo *repositories.ContactRepository
}

func NewContactService(repo *repositories.ContactRepository) *ContactService {
	return &ContactService{
		repo: repo,
	}
}

func (cs *ContactService) Create(ctx context.Context, userIDHex string, req models.CreateContactRequest) (*models.Contact, error) {
	userID, err := primitive.ObjectIDFromHex(userIDHex)
	if err != nil {
		return nil, utils.NewValidationError("Invalid user ID")
	}

	priority := req.Priority
	if priority == 0 {
		priority = 3
	}

	contact := &models.Contact{
		UserID:       userID,
		Name:         req.Name,
		Phone:        FormatPhoneNumber(req.Phone),
		Email:        req.Email,
		Relationship: req.Relationship,
		Priority:     priority,
		IsActive:     true,
		Notes:        req.Notes,
	}

	if err := cs.repo.Create(ctx, contact); err != nil {
		return nil, utils.NewDatabaseError("create contact", err)
	}

	return contact, nil
}

func (cs *ContactService) GetByUser(ctx context.Context, userIDHex string) ([]models.Contact, error) {
	userID, err := primitive.ObjectIDFromHex(userIDHex)
	if err != nil {
		return nil, utils.NewValidationError("Invalid user ID")
	}

	contacts, err := cs.repo.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, utils.NewDatabaseError("list contacts", err)
	}

	return contacts, nil
}

func (cs *ContactService) Update(ctx context.Context, userIDHex, contactIDHex string, req models.UpdateContactRequest) (*models.Contact, error) {
	contact, err := cs.ownedContact(ctx, userIDHex, contactIDHex)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		contact.Name = req.Name
	}
	if req.Phone != "" {
		contact.Phone = FormatPhoneNumber(req.Phone)
	}
	if req.Email != "" {
		contact.Email = req.Email
	}
	if req.Relationship != "" {
		contact.Relationship = req.Relationship
	}
	if req.Priority != 0 {
		contact.Priority = req.Priority
	}
	if req.Notes != "" {
		contact.Notes = req.Notes
	}

	if err := cs.repo.Update(ctx, contact); err != nil {
		return nil, utils.NewDatabaseError("update contact", err)
	}

	return contact, nil
}

// Delete soft-deletes: the contact stays on past notification records but
// drops out of future dispatches.
func (cs *ContactService) Delete(ctx context.Context, userIDHex, contactIDHex string) error {
	contact, err := cs.ownedContact(ctx, userIDHex, contactIDHex)
	if err != nil {
		return err
	}

	if err := cs.repo.Deactivate(ctx, contact.ID); err != nil {
		return utils.NewDatabaseError("deactivate contact", err)
	}

	return nil
}

func (cs *ContactService) ownedContact(ctx context.Context, userIDHex, contactIDHex string) (*models.Contact, error) {
	contactID, err := primitive.ObjectIDFromHex(contactIDHex)
	if err != nil {
		return nil, utils.NewValidationError("Invalid contact ID")
	}

	contact, err := cs.repo.GetByID(ctx, contactID)
	if err != nil {
		return nil, utils.NewContactNotFoundError()
	}

	if contact.UserID.Hex() != userIDHex {
		return nil, utils.NewForbiddenError("Contact belongs to another user")
	}

	return contact, nil
}
