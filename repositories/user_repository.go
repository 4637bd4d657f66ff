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
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(database *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: database.Collection("users"),
	}
}

func (ur *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	if user.DeviceTokens == nil {
		user.DeviceTokens = []string{}
	}

	_, err := ur.collection.InsertOne(ctx, user)
	if err != nil {
		logrus.Errorf("Failed to create user: %v", err)
		return err
	}

	return nil
}

func (ur *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.NewValidationError("Invalid user ID")
	}

	var user models.User
	err = ur.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("User not found")
		}
		logrus.Errorf("Failed to get user by ID: %v", err)
		return nil, err
	}

	return &user, nil
}

func (ur *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := ur.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("User not found")
		}
		logrus.Errorf("Failed to get user by email: %v", err)
		return nil, err
	}

	return &user, nil
}

func (ur *UserRepository) UpdateLastSeen(ctx context.Context, id primitive.ObjectID) error {
	_, err := ur.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"lastSeen": time.Now(), "updatedAt": time.Now()}},
	)
	return err
}

// AddDeviceToken registers a push target, de-duplicated by $addToSet.
func (ur *UserRepository) AddDeviceToken(ctx context.Context, userIDHex, deviceToken string) error {
	objectID, err := primitive.ObjectIDFromHex(userIDHex)
	if err != nil {
		return utils.NewValidationError("Invalid user ID")
	}

	result, err := ur.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$addToSet": bson.M{"deviceTokens": deviceToken},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		logrus.Errorf("Failed to add device token for user %s: %v", userIDHex, err)
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("User not found")
	}

	return nil
}

// GetDeviceTokens returns the user's registered push targets.
func (ur *UserRepository) GetDeviceTokens(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	var user models.User
	err := ur.collection.FindOne(
		ctx,
		bson.M{"_id": userID},
	).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("User not found")
		}
		return nil, err
	}

	return user.DeviceTokens, nil
}
