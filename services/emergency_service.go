package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"aegis/models"
	"aegis/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmergencyStore is the persistence surface of the emergency aggregate.
// Mutations are single atomic document updates; Resolve and CompleteStep
// report whether the guarded update matched so callers can distinguish
// conflicts from missing records.
type EmergencyStore interface {
	Create(ctx context.Context, emergency *models.Emergency) error
	GetByID(ctx context.Context, id string) (*models.Emergency, error)
	Resolve(ctx context.Context, id string, resolvedAt time.Time, notes string, responseTime int64) (bool, error)
	CompleteStep(ctx context.Context, id string, stepNumber int, completedAt time.Time) (bool, error)
	List(ctx context.Context, filter models.EmergencyFilter) ([]models.Emergency, int64, error)
	CountByStatus(ctx context.Context, userID primitive.ObjectID) (map[string]int64, error)
	FindSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]models.Emergency, error)
}

// EventPublisher pushes realtime lifecycle events to connected clients.
type EventPublisher interface {
	Publish(userID, eventType string, payload interface{})
}

// EmergencyService orchestrates the intake pipeline: classification,
// guidance, the confidence gate, record creation and contact notification.
// Given valid input the creation path always succeeds, degrading to the
// safe default instead of failing the user mid-emergency.
type EmergencyService struct {
	store          EmergencyStore
	contacts       ContactReader
	classification *ClassificationService
	guidance       *GuidanceService
	notifications  *NotificationService
	events         EventPublisher
}

func NewEmergencyService(
	store EmergencyStore,
	contacts ContactReader,
	classification *ClassificationService,
	guidance *GuidanceService,
	notifications *NotificationService,
	events EventPublisher,
) *EmergencyService {
	return &EmergencyService{
		store:          store,
		contacts:       contacts,
		classification: classification,
		guidance:       guidance,
		notifications:  notifications,
		events:         events,
	}
}

var triggerNextSteps = []string{
	"Notifications queued for emergency contacts",
	"Follow the provided instructions",
	"Update status when situation changes",
}

// Trigger runs the full intake pipeline for a free-text report.
func (es *EmergencyService) Trigger(ctx context.Context, req models.TriggerEmergencyRequest) (*models.TriggerEmergencyResponse, error) {
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return nil, utils.NewValidationError("Invalid user ID")
	}

	classification, guidance, usedFallback := es.analyze(ctx, req.Text, FlattenContext(req.UserContext))

	now := time.Now()
	emergency := &models.Emergency{
		UserID:      userID,
		Type:        classification.Category,
		Severity:    classification.RiskLevel,
		Status:      models.EmergencyStatusActive,
		Description: req.Text,
		AIAnalysis: models.AIAnalysis{
			DetectedType:     classification.DetectedType,
			Confidence:       classification.Confidence,
			RiskLevel:        classification.RiskLevel,
			Reasoning:        classification.Reasoning,
			ImmediateActions: classification.ImmediateActions,
			UsedFallback:     usedFallback,
			AnalyzedAt:       now,
		},
		Instructions:  buildInstructions(guidance.Steps, !usedFallback),
		Notifications: []models.NotificationRecord{},
	}

	if req.Location != nil {
		emergency.Location = &models.EmergencyLocation{
			Latitude:   req.Location.Latitude,
			Longitude:  req.Location.Longitude,
			Address:    req.Location.Address,
			City:       req.Location.City,
			State:      req.Location.State,
			Country:    req.Location.Country,
			CapturedAt: now,
		}
	}

	// Persistence failure is the one fatal outcome of the trigger path.
	if err := es.store.Create(ctx, emergency); err != nil {
		return nil, utils.NewDatabaseError("create emergency", err)
	}

	contacts, err := es.contacts.GetActiveByUser(ctx, userID)
	if err != nil {
		logrus.Errorf("Failed to load contacts for user %s: %v", req.UserID, err)
		contacts = nil
	}

	// Delivery failures are recorded on the record, never surfaced as a
	// trigger failure.
	if len(contacts) > 0 {
		summary, err := es.notifications.DispatchSMS(ctx, emergency, contacts, BuildAlertMessage(emergency))
		if err != nil {
			logrus.Errorf("Notification dispatch failed for emergency %s: %v", emergency.ID.Hex(), err)
		} else {
			emergency.Notifications = summary.Records
		}
	}

	es.publish(req.UserID, "emergency_created", emergency)

	return &models.TriggerEmergencyResponse{
		Emergency: emergency,
		AIAnalysis: models.AIAnalysisView{
			Category:     classification.Category,
			DetectedType: classification.DetectedType,
			Confidence:   classification.Confidence,
			RiskLevel:    classification.RiskLevel,
			UsedFallback: usedFallback,
		},
		ContactsCount: len(contacts),
		NextSteps:     triggerNextSteps,
	}, nil
}

// analyze runs classification and guidance and applies the confidence
// gate. Provider failures of either stage funnel into the same safe
// default as low confidence.
func (es *EmergencyService) analyze(ctx context.Context, text, userContext string) (models.Classification, models.GuidanceBundle, bool) {
	aiFailed := false

	classification, err := es.classification.Classify(ctx, text)
	if err != nil {
		logrus.Warnf("Classification unavailable, using safe default: %v", err)
		fallback := DefaultClassification()
		classification = &fallback
		aiFailed = true
	}

	var guidance models.GuidanceBundle
	if aiFailed {
		guidance = DefaultGuidance()
	} else {
		bundle, err := es.guidance.Generate(ctx, classification.Category, classification.DetectedType, userContext)
		if err != nil {
			logrus.Warnf("Guidance unavailable, using safe default: %v", err)
			guidance = DefaultGuidance()
			aiFailed = true
		} else {
			guidance = *bundle
		}
	}

	gated := ApplyConfidenceGate(*classification, guidance)
	return gated.Classification, gated.Guidance, gated.UsedFallback || aiFailed
}

// Analyze exposes the gated classification+guidance pair without creating
// a record, for POST /ai/analyze.
func (es *EmergencyService) Analyze(ctx context.Context, text, userContext string) (*models.AnalyzeResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, utils.NewValidationError("Text input is required")
	}

	classification, guidance, usedFallback := es.analyze(ctx, text, userContext)

	return &models.AnalyzeResponse{
		Classification: classification,
		Guidance:       guidance,
		UsedFallback:   usedFallback,
	}, nil
}

// GetStatus loads the full record and resolves contact references on its
// notification list, so the status payload carries name/phone/relationship
// instead of bare contact IDs.
func (es *EmergencyService) GetStatus(ctx context.Context, id string) (*models.Emergency, error) {
	emergency, err := es.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	es.populateNotificationContacts(ctx, emergency)
	return emergency, nil
}

// populateNotificationContacts attaches contact summaries to SMS records.
// A contact deleted since dispatch leaves the bare reference in place.
func (es *EmergencyService) populateNotificationContacts(ctx context.Context, emergency *models.Emergency) {
	resolved := map[primitive.ObjectID]*models.NotificationContact{}

	for i, record := range emergency.Notifications {
		if record.ContactID == nil {
			continue
		}

		summary, seen := resolved[*record.ContactID]
		if !seen {
			contact, err := es.contacts.GetByID(ctx, *record.ContactID)
			if err == nil {
				summary = &models.NotificationContact{
					ID:           contact.ID,
					Name:         contact.Name,
					Phone:        contact.Phone,
					Relationship: contact.Relationship,
				}
			}
			resolved[*record.ContactID] = summary
		}

		emergency.Notifications[i].Contact = summary
	}
}

// Resolve transitions an active emergency to resolved. Not idempotent:
// resolving a record that already left the active state is a conflict and
// leaves resolution fields untouched.
func (es *EmergencyService) Resolve(ctx context.Context, id, notes string) (*models.ResolveEmergencyResponse, error) {
	emergency, err := es.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if emergency.Status == models.EmergencyStatusResolved {
		return nil, utils.NewAlreadyResolvedError()
	}
	if emergency.IsTerminal() {
		return nil, utils.NewConflictError(fmt.Sprintf("Emergency is %s and cannot be resolved", emergency.Status))
	}

	if notes == "" {
		notes = "Emergency resolved by user"
	}

	resolvedAt := time.Now()
	responseTime := int64(math.Floor(resolvedAt.Sub(emergency.CreatedAt).Seconds()))

	matched, err := es.store.Resolve(ctx, id, resolvedAt, notes, responseTime)
	if err != nil {
		return nil, utils.NewDatabaseError("resolve emergency", err)
	}
	if !matched {
		// Lost the race against a concurrent resolve.
		return nil, utils.NewAlreadyResolvedError()
	}

	emergency.Status = models.EmergencyStatusResolved
	emergency.ResolvedAt = &resolvedAt
	emergency.ResolutionNotes = notes
	emergency.ResponseTime = responseTime

	es.publish(emergency.UserID.Hex(), "emergency_resolved", emergency)

	return &models.ResolveEmergencyResponse{
		Emergency:    emergency,
		ResponseTime: responseTime,
		Duration:     FormatDuration(responseTime),
	}, nil
}

// CompleteStep marks an instruction step completed. Idempotent: completing
// an already-completed step keeps the original completion time and reports
// success.
func (es *EmergencyService) CompleteStep(ctx context.Context, id string, stepNumber int) (*models.CompleteStepResponse, error) {
	emergency, err := es.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stepIndex := -1
	for i, step := range emergency.Instructions {
		if step.StepNumber == stepNumber {
			stepIndex = i
			break
		}
	}
	if stepIndex == -1 {
		return nil, utils.NewStepNotFoundError()
	}

	step := emergency.Instructions[stepIndex]
	if !step.Completed {
		completedAt := time.Now()
		if _, err := es.store.CompleteStep(ctx, id, stepNumber, completedAt); err != nil {
			return nil, utils.NewDatabaseError("complete step", err)
		}
		step.Completed = true
		step.CompletedAt = &completedAt
		emergency.Instructions[stepIndex] = step
	}

	completed := emergency.CompletedSteps()
	total := len(emergency.Instructions)

	response := &models.CompleteStepResponse{
		Step:              step,
		CompletedSteps:    completed,
		TotalSteps:        total,
		AllStepsCompleted: completed == total,
	}

	es.publish(emergency.UserID.Hex(), "step_completed", response)

	return response, nil
}

// History returns the filtered, paginated record list plus summary counts.
func (es *EmergencyService) History(ctx context.Context, req models.EmergencyHistoryRequest) (*models.EmergencyHistoryResponse, int64, error) {
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return nil, 0, utils.NewValidationError("Invalid user ID")
	}

	filter := models.EmergencyFilter{
		UserID: userID,
		Type:   normalizeSelector(req.EmergencyType),
		Status: normalizeSelector(req.Status),
		Page:   req.Page,
		Limit:  req.Limit,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	if req.StartDate != "" {
		start, err := parseDate(req.StartDate)
		if err != nil {
			return nil, 0, utils.NewValidationError("Invalid start date")
		}
		filter.StartDate = &start
	}
	if req.EndDate != "" {
		end, err := parseDate(req.EndDate)
		if err != nil {
			return nil, 0, utils.NewValidationError("Invalid end date")
		}
		filter.EndDate = &end
	}

	emergencies, total, err := es.store.List(ctx, filter)
	if err != nil {
		return nil, 0, utils.NewDatabaseError("list emergencies", err)
	}

	counts, err := es.store.CountByStatus(ctx, userID)
	if err != nil {
		return nil, 0, utils.NewDatabaseError("count emergencies", err)
	}

	var summaryTotal int64
	for _, count := range counts {
		summaryTotal += count
	}

	return &models.EmergencyHistoryResponse{
		Emergencies: emergencies,
		Summary: models.EmergencyHistorySummary{
			Total:     summaryTotal,
			Active:    counts[models.EmergencyStatusActive],
			Resolved:  counts[models.EmergencyStatusResolved],
			Cancelled: counts[models.EmergencyStatusCancelled],
		},
	}, total, nil
}

// Analytics computes aggregate frequency, response-time, type and severity
// statistics over the user's records in the given window.
func (es *EmergencyService) Analytics(ctx context.Context, userIDHex string, days int) (*models.EmergencyAnalytics, error) {
	userID, err := primitive.ObjectIDFromHex(userIDHex)
	if err != nil {
		return nil, utils.NewValidationError("Invalid user ID")
	}

	if days < 1 || days > 365 {
		days = 30
	}

	since := time.Now().AddDate(0, 0, -days)
	emergencies, err := es.store.FindSince(ctx, userID, since)
	if err != nil {
		return nil, utils.NewDatabaseError("load analytics window", err)
	}

	return ComputeAnalytics(emergencies, days), nil
}

// ComputeAnalytics is the pure aggregation over a record window.
func ComputeAnalytics(emergencies []models.Emergency, days int) *models.EmergencyAnalytics {
	analytics := &models.EmergencyAnalytics{
		PeriodDays:              days,
		FrequencyByDay:          map[string]int{},
		TypeDistribution:        map[string]models.TypeAnalytics{},
		SeverityDistribution:    map[string]int{},
		ResponseTimesBySeverity: map[string]models.SeverityResponseTimes{},
		HourlyDistribution:      map[int]int{},
	}

	var responseTimes []int64
	typeResponseTimes := map[string][]int64{}
	severityResponseTimes := map[string][]int64{}
	typeCounts := map[string]int{}
	typeResolved := map[string]int{}

	for _, emergency := range emergencies {
		analytics.Overview.Total++
		if emergency.Status == models.EmergencyStatusActive {
			analytics.Overview.Active++
		}

		day := emergency.CreatedAt.Format("2006-01-02")
		analytics.FrequencyByDay[day]++
		analytics.SeverityDistribution[emergency.Severity]++
		analytics.HourlyDistribution[emergency.CreatedAt.Hour()]++
		typeCounts[emergency.Type]++

		if emergency.Status == models.EmergencyStatusResolved {
			analytics.Overview.Resolved++
			typeResolved[emergency.Type]++
			responseTimes = append(responseTimes, emergency.ResponseTime)
			typeResponseTimes[emergency.Type] = append(typeResponseTimes[emergency.Type], emergency.ResponseTime)
			severityResponseTimes[emergency.Severity] = append(severityResponseTimes[emergency.Severity], emergency.ResponseTime)
		}
	}

	if analytics.Overview.Total > 0 {
		analytics.Overview.SuccessRate = float64(analytics.Overview.Resolved) / float64(analytics.Overview.Total)
	}

	if len(responseTimes) > 0 {
		sort.Slice(responseTimes, func(i, j int) bool { return responseTimes[i] < responseTimes[j] })
		analytics.Overview.MinResponseTime = responseTimes[0]
		analytics.Overview.MaxResponseTime = responseTimes[len(responseTimes)-1]
		analytics.Overview.AvgResponseTime = average(responseTimes)
	}

	for severity, times := range severityResponseTimes {
		sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
		analytics.ResponseTimesBySeverity[severity] = models.SeverityResponseTimes{
			Count:           len(times),
			AvgResponseTime: average(times),
			MinResponseTime: times[0],
			MaxResponseTime: times[len(times)-1],
		}
	}

	for emergencyType, count := range typeCounts {
		entry := models.TypeAnalytics{
			Count:         count,
			ResolvedCount: typeResolved[emergencyType],
		}
		if times := typeResponseTimes[emergencyType]; len(times) > 0 {
			entry.AvgResponseTime = average(times)
		}
		if count > 0 {
			entry.SuccessRate = float64(entry.ResolvedCount) / float64(count)
		}
		analytics.TypeDistribution[emergencyType] = entry
	}

	return analytics
}

func average(values []int64) float64 {
	var sum int64
	for _, value := range values {
		sum += value
	}
	return float64(sum) / float64(len(values))
}

// FormatDuration renders whole seconds as "X minutes Y seconds".
func FormatDuration(seconds int64) string {
	minutes := seconds / 60
	remainder := seconds % 60
	return fmt.Sprintf("%d minutes %d seconds", minutes, remainder)
}

func buildInstructions(steps []models.GuidanceStep, aiGenerated bool) []models.InstructionStep {
	instructions := make([]models.InstructionStep, len(steps))
	for i, step := range steps {
		title := step.Title
		if title == "" {
			title = fmt.Sprintf("Step %d", i+1)
		}
		description := step.Description
		if description == "" {
			description = "Follow instructions carefully"
		}
		estimated := step.EstimatedTime
		if estimated <= 0 {
			estimated = 30
		}
		priority := step.Priority
		if !models.ValidSeverity(priority) {
			priority = models.SeverityMedium
		}

		instructions[i] = models.InstructionStep{
			StepNumber:    i + 1,
			Title:         title,
			Description:   description,
			EstimatedTime: estimated,
			Priority:      priority,
			SafetyNote:    step.SafetyNote,
			Completed:     false,
			AIGenerated:   aiGenerated,
		}
	}
	return instructions
}

func (es *EmergencyService) publish(userID, eventType string, payload interface{}) {
	if es.events == nil {
		return
	}
	es.events.Publish(userID, eventType, payload)
}

// FlattenContext renders a user context map as a stable "key: value" list
// for prompt embedding.
func FlattenContext(userContext map[string]string) string {
	if len(userContext) == 0 {
		return ""
	}

	keys := make([]string, 0, len(userContext))
	for key := range userContext {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, userContext[key]))
	}
	return strings.Join(parts, "; ")
}

func normalizeSelector(value string) string {
	if value == "all" {
		return ""
	}
	return value
}

func parseDate(value string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", value)
}
