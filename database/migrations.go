package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          func(*mongo.Database) error
}

// migrationRecord tracks applied migrations
type migrationRecord struct {
	Version   int       `bson:"version"`
	AppliedAt time.Time `bson:"appliedAt"`
}

// migrations contains all database migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create users collection with indexes",
		Up:          createUsersCollection,
	},
	{
		Version:     2,
		Description: "Create contacts collection with indexes",
		Up:          createContactsCollection,
	},
	{
		Version:     3,
		Description: "Create emergencies collection with indexes",
		Up:          createEmergenciesCollection,
	},
}

// RunMigrations executes all pending migrations
func RunMigrations(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migrationsCol := db.Collection("migrations")

	currentVersion := getCurrentMigrationVersion(ctx, migrationsCol)
	logrus.Infof("Current migration version: %d", currentVersion)

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		logrus.Infof("Running migration %d: %s", migration.Version, migration.Description)

		if err := migration.Up(db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		_, err := migrationsCol.InsertOne(ctx, migrationRecord{
			Version:   migration.Version,
			AppliedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		logrus.Infof("Migration %d completed", migration.Version)
	}

	return nil
}

func getCurrentMigrationVersion(ctx context.Context, col *mongo.Collection) int {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})

	var record migrationRecord
	err := col.FindOne(ctx, bson.M{}, opts).Decode(&record)
	if err != nil {
		return 0
	}
	return record.Version
}

func createUsersCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("users")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

func createContactsCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("contacts")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "isActive", Value: 1},
				{Key: "priority", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "phone", Value: 1}},
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

func createEmergenciesCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("emergencies")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "type", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "notifications.status", Value: 1},
			},
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}
