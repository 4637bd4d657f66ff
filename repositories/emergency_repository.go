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

// EmergencyRepository persists the emergency aggregate. Every mutation is a
// single atomic update on one document, which serializes concurrent
// dispatch, retry and step completion per record.
type EmergencyRepository struct {
	collection *mongo.Collection
}

func NewEmergencyRepository(database *mongo.Database) *EmergencyRepository {
	return &EmergencyRepository{
		collection: database.Collection("emergencies"),
	}
}

func (er *EmergencyRepository) Create(ctx context.Context, emergency *models.Emergency) error {
	emergency.ID = primitive.NewObjectID()
	emergency.CreatedAt = time.Now()
	emergency.UpdatedAt = emergency.CreatedAt

	if emergency.Status == "" {
		emergency.Status = models.EmergencyStatusActive
	}
	if emergency.Notifications == nil {
		emergency.Notifications = []models.NotificationRecord{}
	}

	_, err := er.collection.InsertOne(ctx, emergency)
	if err != nil {
		logrus.Errorf("Failed to create emergency: %v", err)
		return err
	}

	return nil
}

func (er *EmergencyRepository) GetByID(ctx context.Context, id string) (*models.Emergency, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.NewValidationError("Invalid emergency ID")
	}

	var emergency models.Emergency
	err = er.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&emergency)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewEmergencyNotFoundError()
		}
		logrus.Errorf("Failed to get emergency by ID: %v", err)
		return nil, err
	}

	return &emergency, nil
}

// Resolve transitions the record out of active. The status guard in the
// filter makes the transition atomic: a second resolve matches nothing.
func (er *EmergencyRepository) Resolve(ctx context.Context, id string, resolvedAt time.Time, notes string, responseTime int64) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, utils.NewValidationError("Invalid emergency ID")
	}

	result, err := er.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID, "status": models.EmergencyStatusActive},
		bson.M{"$set": bson.M{
			"status":          models.EmergencyStatusResolved,
			"resolvedAt":      resolvedAt,
			"resolutionNotes": notes,
			"responseTime":    responseTime,
			"updatedAt":       time.Now(),
		}},
	)
	if err != nil {
		logrus.Errorf("Failed to resolve emergency %s: %v", id, err)
		return false, err
	}

	return result.MatchedCount > 0, nil
}

// CompleteStep sets the completion flag and timestamp on one instruction.
// The completed=false guard in the array filter keeps re-completion from
// moving the original timestamp.
func (er *EmergencyRepository) CompleteStep(ctx context.Context, id string, stepNumber int, completedAt time.Time) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, utils.NewValidationError("Invalid emergency ID")
	}

	arrayFilters := options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"step.stepNumber": stepNumber, "step.completed": false},
		},
	}

	result, err := er.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{
			"instructions.$[step].completed":   true,
			"instructions.$[step].completedAt": completedAt,
			"updatedAt":                        time.Now(),
		}},
		options.Update().SetArrayFilters(arrayFilters),
	)
	if err != nil {
		logrus.Errorf("Failed to complete step %d on emergency %s: %v", stepNumber, id, err)
		return false, err
	}

	return result.ModifiedCount > 0, nil
}

// AppendNotifications pushes a dispatch round onto the record in one
// write, preserving the caller's ordering.
func (er *EmergencyRepository) AppendNotifications(ctx context.Context, emergencyID string, records []models.NotificationRecord) error {
	if len(records) == 0 {
		return nil
	}

	objectID, err := primitive.ObjectIDFromHex(emergencyID)
	if err != nil {
		return utils.NewValidationError("Invalid emergency ID")
	}

	docs := make([]interface{}, len(records))
	for i, record := range records {
		docs[i] = record
	}

	result, err := er.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$push": bson.M{"notifications": bson.M{"$each": docs}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		logrus.Errorf("Failed to append notifications to emergency %s: %v", emergencyID, err)
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewEmergencyNotFoundError()
	}

	return nil
}

// IncrementRetryCount bumps one notification's retry count, guarded so the
// count can never pass the retry cap even under concurrent retries.
func (er *EmergencyRepository) IncrementRetryCount(ctx context.Context, emergencyID string, notificationID primitive.ObjectID) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(emergencyID)
	if err != nil {
		return false, utils.NewValidationError("Invalid emergency ID")
	}

	arrayFilters := options.ArrayFilters{
		Filters: []interface{}{
			bson.M{
				"notif._id":        notificationID,
				"notif.retryCount": bson.M{"$lt": models.MaxNotificationRetries},
			},
		},
	}

	result, err := er.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$inc": bson.M{"notifications.$[notif].retryCount": 1},
			"$set": bson.M{"updatedAt": time.Now()},
		},
		options.Update().SetArrayFilters(arrayFilters),
	)
	if err != nil {
		logrus.Errorf("Failed to increment retry count on emergency %s: %v", emergencyID, err)
		return false, err
	}

	return result.ModifiedCount > 0, nil
}

// UpdateNotificationResult overwrites status, message id and send time of
// one notification after a retry attempt.
func (er *EmergencyRepository) UpdateNotificationResult(ctx context.Context, emergencyID string, notificationID primitive.ObjectID, status, messageID string, sentAt time.Time) error {
	objectID, err := primitive.ObjectIDFromHex(emergencyID)
	if err != nil {
		return utils.NewValidationError("Invalid emergency ID")
	}

	arrayFilters := options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"notif._id": notificationID},
		},
	}

	_, err = er.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{
			"notifications.$[notif].status":    status,
			"notifications.$[notif].messageId": messageID,
			"notifications.$[notif].sentAt":    sentAt,
			"updatedAt":                        time.Now(),
		}},
		options.Update().SetArrayFilters(arrayFilters),
	)
	if err != nil {
		logrus.Errorf("Failed to update notification result on emergency %s: %v", emergencyID, err)
		return err
	}

	return nil
}

// List returns one page of matching records, newest first, plus the total
// match count.
func (er *EmergencyRepository) List(ctx context.Context, filter models.EmergencyFilter) ([]models.Emergency, int64, error) {
	query := bson.M{"userId": filter.UserID}

	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.StartDate != nil || filter.EndDate != nil {
		dateRange := bson.M{}
		if filter.StartDate != nil {
			dateRange["$gte"] = *filter.StartDate
		}
		if filter.EndDate != nil {
			dateRange["$lte"] = *filter.EndDate
		}
		query["createdAt"] = dateRange
	}

	total, err := er.collection.CountDocuments(ctx, query)
	if err != nil {
		logrus.Errorf("Failed to count emergencies: %v", err)
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	cursor, err := er.collection.Find(ctx, query, opts)
	if err != nil {
		logrus.Errorf("Failed to list emergencies: %v", err)
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var emergencies []models.Emergency
	if err := cursor.All(ctx, &emergencies); err != nil {
		return nil, 0, err
	}

	return emergencies, total, nil
}

// CountByStatus groups the user's records by lifecycle status.
func (er *EmergencyRepository) CountByStatus(ctx context.Context, userID primitive.ObjectID) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := er.collection.Aggregate(ctx, pipeline)
	if err != nil {
		logrus.Errorf("Failed to aggregate emergency counts: %v", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(results))
	for _, result := range results {
		counts[result.Status] = result.Count
	}

	return counts, nil
}

// FindSince loads the user's records created after the cutoff, oldest
// first, for analytics windows.
func (er *EmergencyRepository) FindSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]models.Emergency, error) {
	query := bson.M{
		"userId":    userID,
		"createdAt": bson.M{"$gte": since},
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := er.collection.Find(ctx, query, opts)
	if err != nil {
		logrus.Errorf("Failed to load emergencies since %s: %v", since, err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var emergencies []models.Emergency
	if err := cursor.All(ctx, &emergencies); err != nil {
		return nil, err
	}

	return emergencies, nil
}

// FindRetryCandidates returns ids of active emergencies that still carry
// failed or pending notifications under the retry cap. Consumed by the
// periodic retry worker.
func (er *EmergencyRepository) FindRetryCandidates(ctx context.Context, limit int) ([]string, error) {
	query := bson.M{
		"status": models.EmergencyStatusActive,
		"notifications": bson.M{"$elemMatch": bson.M{
			"status":     bson.M{"$in": []string{models.NotificationStatusFailed, models.NotificationStatusPending}},
			"retryCount": bson.M{"$lt": models.MaxNotificationRetries},
		}},
	}

	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetLimit(int64(limit))

	cursor, err := er.collection.Find(ctx, query, opts)
	if err != nil {
		logrus.Errorf("Failed to find retry candidates: %v", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID.Hex()
	}

	return ids, nil
}
