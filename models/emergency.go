package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Emergency categories
const (
	EmergencyTypeMedical         = "medical"
	EmergencyTypeFire            = "fire"
	EmergencyTypePolice          = "police"
	EmergencyTypeNaturalDisaster = "natural_disaster"
	EmergencyTypeAccident        = "accident"
	EmergencyTypeOther           = "other"
)

// Emergency lifecycle states
const (
	EmergencyStatusActive    = "active"
	EmergencyStatusResolved  = "resolved"
	EmergencyStatusCancelled = "cancelled"
	EmergencyStatusEscalated = "escalated"
)

// Severity levels
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Notification delivery states
const (
	NotificationStatusSent      = "sent"
	NotificationStatusDelivered = "delivered"
	NotificationStatusFailed    = "failed"
	NotificationStatusPending   = "pending"
)

// Notification methods
const (
	NotificationMethodSMS   = "sms"
	NotificationMethodPush  = "push"
	NotificationMethodEmail = "email"
)

// MaxNotificationRetries caps per-notification retry attempts.
const MaxNotificationRetries = 3

// Emergency is the aggregate root for one reported emergency. It embeds the
// AI analysis summary, the instruction checklist, and every notification
// attempt made on its behalf.
type Emergency struct {
	ID              primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	UserID          primitive.ObjectID   `json:"userId" bson:"userId"`
	Type            string               `json:"type" bson:"type"`
	Severity        string               `json:"severity" bson:"severity"`
	Status          string               `json:"status" bson:"status"`
	Description     string               `json:"description" bson:"description"`
	Location        *EmergencyLocation   `json:"location,omitempty" bson:"location,omitempty"`
	AIAnalysis      AIAnalysis           `json:"aiAnalysis" bson:"aiAnalysis"`
	Instructions    []InstructionStep    `json:"instructions" bson:"instructions"`
	Notifications   []NotificationRecord `json:"notifications" bson:"notifications"`
	ResolvedAt      *time.Time           `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	ResolutionNotes string               `json:"resolutionNotes,omitempty" bson:"resolutionNotes,omitempty"`
	ResponseTime    int64                `json:"responseTime,omitempty" bson:"responseTime,omitempty"`
	CreatedAt       time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// EmergencyLocation is the location snapshot captured at intake.
type EmergencyLocation struct {
	Latitude   float64   `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude  float64   `json:"longitude,omitempty" bson:"longitude,omitempty"`
	Address    string    `json:"address,omitempty" bson:"address,omitempty"`
	City       string    `json:"city,omitempty" bson:"city,omitempty"`
	State      string    `json:"state,omitempty" bson:"state,omitempty"`
	Country    string    `json:"country,omitempty" bson:"country,omitempty"`
	CapturedAt time.Time `json:"capturedAt" bson:"capturedAt"`
}

// AIAnalysis is the classification summary embedded on the record.
type AIAnalysis struct {
	DetectedType     string    `json:"detectedType" bson:"detectedType"`
	Confidence       float64   `json:"confidence" bson:"confidence"`
	RiskLevel        string    `json:"riskLevel" bson:"riskLevel"`
	Reasoning        string    `json:"reasoning" bson:"reasoning"`
	ImmediateActions []string  `json:"immediateActions" bson:"immediateActions"`
	UsedFallback     bool      `json:"usedFallback" bson:"usedFallback"`
	AnalyzedAt       time.Time `json:"analyzedAt" bson:"analyzedAt"`
}

// InstructionStep is one entry of the emergency checklist. StepNumbers are
// unique and contiguous starting at 1.
type InstructionStep struct {
	StepNumber    int        `json:"stepNumber" bson:"stepNumber"`
	Title         string     `json:"title" bson:"title"`
	Description   string     `json:"description" bson:"description"`
	EstimatedTime int        `json:"estimatedTime" bson:"estimatedTime"`
	Priority      string     `json:"priority" bson:"priority"`
	SafetyNote    string     `json:"safetyNote,omitempty" bson:"safetyNote,omitempty"`
	Completed     bool       `json:"completed" bson:"completed"`
	CompletedAt   *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	AIGenerated   bool       `json:"aiGenerated" bson:"aiGenerated"`
}

// NotificationRecord is one delivery attempt. The list on the record is
// append-only; retry mutates status, messageId, sentAt and retryCount in
// place.
type NotificationRecord struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id"`
	ContactID   *primitive.ObjectID `json:"contactId,omitempty" bson:"contactId,omitempty"`
	Method      string              `json:"method" bson:"method"`
	SentAt      time.Time           `json:"sentAt" bson:"sentAt"`
	Status      string              `json:"status" bson:"status"`
	Provider    string              `json:"provider" bson:"provider"`
	MessageID   string              `json:"messageId,omitempty" bson:"messageId,omitempty"`
	RetryCount  int                 `json:"retryCount" bson:"retryCount"`
	DeviceToken string              `json:"deviceToken,omitempty" bson:"deviceToken,omitempty"`

	// Contact is populated on the status surface only, never persisted.
	Contact *NotificationContact `json:"contact,omitempty" bson:"-"`
}

// NotificationContact is the contact summary attached to a notification
// record when the status endpoint resolves contact references.
type NotificationContact struct {
	ID           primitive.ObjectID `json:"id"`
	Name         string             `json:"name"`
	Phone        string             `json:"phone"`
	Relationship string             `json:"relationship"`
}

// IsTerminal reports whether the emergency reached a terminal state.
func (e *Emergency) IsTerminal() bool {
	return e.Status != EmergencyStatusActive
}

// CompletedSteps counts completed instruction steps.
func (e *Emergency) CompletedSteps() int {
	count := 0
	for _, step := range e.Instructions {
		if step.Completed {
			count++
		}
	}
	return count
}

// ValidEmergencyType reports whether t is one of the six categories.
func ValidEmergencyType(t string) bool {
	switch t {
	case EmergencyTypeMedical, EmergencyTypeFire, EmergencyTypePolice,
		EmergencyTypeNaturalDisaster, EmergencyTypeAccident, EmergencyTypeOther:
		return true
	}
	return false
}

// ValidSeverity reports whether s is a known severity level.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ==================== Requests ====================

type TriggerEmergencyRequest struct {
	UserID      string                  `json:"userId" validate:"required"`
	Text        string                  `json:"text" validate:"required,min=3"`
	Location    *TriggerLocationPayload `json:"location,omitempty"`
	UserContext map[string]string       `json:"userContext,omitempty"`
}

type TriggerLocationPayload struct {
	Latitude  float64 `json:"latitude" validate:"omitempty,coordinate"`
	Longitude float64 `json:"longitude" validate:"omitempty,coordinate"`
	Address   string  `json:"address,omitempty"`
	City      string  `json:"city,omitempty"`
	State     string  `json:"state,omitempty"`
	Country   string  `json:"country,omitempty"`
}

type ResolveEmergencyRequest struct {
	ResolutionNotes string `json:"resolutionNotes,omitempty"`
}

type CompleteStepRequest struct {
	StepNumber int `json:"stepNumber" validate:"required,min=1"`
}

type EmergencyHistoryRequest struct {
	UserID        string `form:"userId" validate:"required"`
	StartDate     string `form:"startDate"`
	EndDate       string `form:"endDate"`
	EmergencyType string `form:"emergencyType"`
	Status        string `form:"status"`
	Page          int    `form:"page"`
	Limit         int    `form:"limit"`
}

// EmergencyFilter narrows history queries. Empty or "all" selectors match
// everything.
type EmergencyFilter struct {
	UserID    primitive.ObjectID
	StartDate *time.Time
	EndDate   *time.Time
	Type      string
	Status    string
	Page      int
	Limit     int
}

// ==================== Responses ====================

type TriggerEmergencyResponse struct {
	Emergency     *Emergency      `json:"emergency"`
	AIAnalysis    AIAnalysisView  `json:"aiAnalysis"`
	ContactsCount int             `json:"contactsCount"`
	NextSteps     []string        `json:"nextSteps"`
}

type AIAnalysisView struct {
	Category     string  `json:"category"`
	DetectedType string  `json:"detectedType"`
	Confidence   float64 `json:"confidence"`
	RiskLevel    string  `json:"riskLevel"`
	UsedFallback bool    `json:"usedFallback"`
}

type ResolveEmergencyResponse struct {
	Emergency    *Emergency `json:"emergency"`
	ResponseTime int64      `json:"responseTime"`
	Duration     string     `json:"duration"`
}

type CompleteStepResponse struct {
	Step              InstructionStep `json:"step"`
	CompletedSteps    int             `json:"completedSteps"`
	TotalSteps        int             `json:"totalSteps"`
	AllStepsCompleted bool            `json:"allStepsCompleted"`
}

type EmergencyHistorySummary struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Resolved  int64 `json:"resolved"`
	Cancelled int64 `json:"cancelled"`
}

type EmergencyHistoryResponse struct {
	Emergencies []Emergency             `json:"emergencies"`
	Summary     EmergencyHistorySummary `json:"summary"`
}

// Analytics aggregates for GET /emergency/analytics/stats.
type EmergencyAnalytics struct {
	PeriodDays              int                              `json:"periodDays"`
	Overview                AnalyticsOverview                `json:"overview"`
	FrequencyByDay          map[string]int                   `json:"frequencyByDay"`
	TypeDistribution        map[string]TypeAnalytics         `json:"typeDistribution"`
	SeverityDistribution    map[string]int                   `json:"severityDistribution"`
	ResponseTimesBySeverity map[string]SeverityResponseTimes `json:"responseTimesBySeverity"`
	HourlyDistribution      map[int]int                      `json:"hourlyDistribution"`
}

type AnalyticsOverview struct {
	Total           int     `json:"total"`
	Active          int     `json:"active"`
	Resolved        int     `json:"resolved"`
	SuccessRate     float64 `json:"successRate"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	MinResponseTime int64   `json:"minResponseTime"`
	MaxResponseTime int64   `json:"maxResponseTime"`
}

// SeverityResponseTimes summarizes response times of resolved emergencies
// sharing one severity level.
type SeverityResponseTimes struct {
	Count           int     `json:"count"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	MinResponseTime int64   `json:"minResponseTime"`
	MaxResponseTime int64   `json:"maxResponseTime"`
}

type TypeAnalytics struct {
	Count           int     `json:"count"`
	ResolvedCount   int     `json:"resolvedCount"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	SuccessRate     float64 `json:"successRate"`
}
