package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contact relationships
const (
	RelationshipFamily    = "family"
	RelationshipFriend    = "friend"
	RelationshipDoctor    = "doctor"
	RelationshipColleague = "colleague"
	RelationshipNeighbor  = "neighbor"
	RelationshipOther     = "other"
)

// Contact is a trusted person notified during an emergency. Priority runs
// 1 to 5 with 1 highest; dispatch consumes contacts in ascending priority.
type Contact struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID       primitive.ObjectID `json:"userId" bson:"userId"`
	Name         string             `json:"name" bson:"name"`
	Phone        string             `json:"phone" bson:"phone"`
	Email        string             `json:"email,omitempty" bson:"email,omitempty"`
	Relationship string             `json:"relationship" bson:"relationship"`
	Priority     int                `json:"priority" bson:"priority"`
	IsActive     bool               `json:"isActive" bson:"isActive"`
	Notes        string             `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type CreateContactRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=100"`
	Phone        string `json:"phone" validate:"required,phone"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Relationship string `json:"relationship" validate:"required,oneof=family friend doctor colleague neighbor other"`
	Priority     int    `json:"priority,omitempty" validate:"omitempty,min=1,max=5"`
	Notes        string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type UpdateContactRequest struct {
	Name         string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,phone"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Relationship string `json:"relationship,omitempty" validate:"omitempty,oneof=family friend doctor colleague neighbor other"`
	Priority     int    `json:"priority,omitempty" validate:"omitempty,min=1,max=5"`
	Notes        string `json:"notes,omitempty" validate:"omitempty,max=500"`
}
