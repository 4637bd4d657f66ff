package repositories

import (
	"context"
	"time"

	"aegis/models"
	"aegis/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ContactRepository struct {
	collection *mongo.Collection
}

func NewContactRepository(database *mongo.Database) *ContactRepository {
	return &ContactRepository{
		collection: database.Collection("contacts"),
	}
}

func (cr *ContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	contact.ID = primitive.NewObjectID()
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = contact.CreatedAt

	_, err := cr.collection.InsertOne(ctx, contact)
	if err != nil {
		logrus.Errorf("Failed to create contact: %v", err)
		return err
	}

	return nil
}

func (cr *ContactRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Contact, error) {
	var contact models.Contact
	err := cr.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&contact)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewContactNotFoundError()
		}
		logrus.Errorf("Failed to get contact by ID: %v", err)
		return nil, err
	}

	return &contact, nil
}

// GetActiveByUser returns the user's active contacts ordered by ascending
// priority. Dispatch relies on this ordering.
func (cr *ContactRepository) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Contact, error) {
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "createdAt", Value: 1}})

	cursor, err := cr.collection.Find(ctx, bson.M{"userId": userID, "isActive": true}, opts)
	if err != nil {
		logrus.Errorf("Failed to list contacts for user %s: %v", userID.Hex(), err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var contacts []models.Contact
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, err
	}

	return contacts, nil
}

func (cr *ContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	contact.UpdatedAt = time.Now()

	result, err := cr.collection.ReplaceOne(ctx, bson.M{"_id": contact.ID}, contact)
	if err != nil {
		logrus.Errorf("Failed to update contact %s: %v", contact.ID.Hex(), err)
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewContactNotFoundError()
	}

	return nil
}

// Deactivate soft-deletes the contact so historical notification records
// keep a valid reference.
func (cr *ContactRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	result, err := cr.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
	)
	if err != nil {
		logrus.Errorf("Failed to deactivate contact %s: %v", id.Hex(), err)
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewContactNotFoundError()
	}

	return nil
}
