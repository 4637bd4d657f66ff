package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aegis/models"
	"aegis/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// scriptedGenerator replays one response per call, for pipelines that hit
// the provider twice (classification then guidance).
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (sg *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	sg.mu.Lock()
	defer sg.mu.Unlock()

	call := sg.calls
	sg.calls++

	if call < len(sg.errs) && sg.errs[call] != nil {
		return "", sg.errs[call]
	}
	if call < len(sg.responses) {
		return sg.responses[call], nil
	}
	return "", errors.New("no scripted response")
}

func newTriggerService(store *fakeStore, contacts *fakeContacts, generator TextGenerator, publisher *fakePublisher) *EmergencyService {
	classification := NewClassificationService(generator)
	guidance := NewGuidanceService(generator, NewKnowledgeBase())
	notifications := NewNotificationService(store, contacts, &fakeDevices{}, &fakeSMS{}, &fakePush{}, 2)
	return NewEmergencyService(store, contacts, classification, guidance, notifications, publisher)
}

func TestTrigger(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active record with contiguous steps", func(t *testing.T) {
		store := newFakeStore()
		userID := primitive.NewObjectID()
		contacts := &fakeContacts{contacts: testContacts(userID)}
		publisher := &fakePublisher{}
		generator := &scriptedGenerator{responses: []string{validClassificationJSON, validGuidanceJSON}}

		service := newTriggerService(store, contacts, generator, publisher)

		response, err := service.Trigger(ctx, models.TriggerEmergencyRequest{
			UserID: userID.Hex(),
			Text:   "my father collapsed holding his chest",
		})
		require.NoError(t, err)

		emergency := response.Emergency
		assert.Equal(t, models.EmergencyStatusActive, emergency.Status)
		assert.Equal(t, models.EmergencyTypeMedical, emergency.Type)
		assert.False(t, emergency.ID.IsZero())

		require.Len(t, emergency.Instructions, 2)
		for i, step := range emergency.Instructions {
			assert.Equal(t, i+1, step.StepNumber)
			assert.True(t, step.AIGenerated)
			assert.False(t, step.Completed)
		}

		assert.Equal(t, 3, response.ContactsCount)
		assert.Len(t, emergency.Notifications, 3)
		assert.False(t, response.AIAnalysis.UsedFallback)
		assert.Equal(t, models.EmergencyTypeMedical, response.AIAnalysis.Category)
		assert.NotEmpty(t, response.NextSteps)
		assert.Contains(t, publisher.events, "emergency_created")
	})

	t.Run("provider failure degrades to the safe default", func(t *testing.T) {
		store := newFakeStore()
		userID := primitive.NewObjectID()
		publisher := &fakePublisher{}
		generator := &scriptedGenerator{errs: []error{errors.New("deadline exceeded")}}

		service := newTriggerService(store, &fakeContacts{}, generator, publisher)

		response, err := service.Trigger(ctx, models.TriggerEmergencyRequest{
			UserID: userID.Hex(),
			Text:   "something is wrong",
		})
		require.NoError(t, err)

		assert.True(t, response.AIAnalysis.UsedFallback)
		assert.Equal(t, models.EmergencyTypeOther, response.Emergency.Type)
		assert.Equal(t, "emergency", response.Emergency.AIAnalysis.DetectedType)

		require.NotEmpty(t, response.Emergency.Instructions)
		assert.False(t, response.Emergency.Instructions[0].AIGenerated)
		assert.Equal(t, "Call Emergency Services", response.Emergency.Instructions[0].Title)
	})

	t.Run("low confidence is routed to the safe default", func(t *testing.T) {
		store := newFakeStore()
		userID := primitive.NewObjectID()
		lowConfidence := `{
			"emergencyType": "medical",
			"detectedEmergencyType": "heart_attack",
			"confidenceScore": 0.4,
			"riskAssessment": "high"
		}`
		generator := &scriptedGenerator{responses: []string{lowConfidence, validGuidanceJSON}}

		service := newTriggerService(store, &fakeContacts{}, generator, &fakePublisher{})

		response, err := service.Trigger(ctx, models.TriggerEmergencyRequest{
			UserID: userID.Hex(),
			Text:   "not feeling great",
		})
		require.NoError(t, err)

		assert.True(t, response.AIAnalysis.UsedFallback)
		assert.Equal(t, models.EmergencyTypeOther, response.Emergency.Type)
		assert.Equal(t, 0.4, response.Emergency.AIAnalysis.Confidence)
	})

	t.Run("captures the reported location", func(t *testing.T) {
		store := newFakeStore()
		userID := primitive.NewObjectID()
		generator := &scriptedGenerator{responses: []string{validClassificationJSON, validGuidanceJSON}}

		service := newTriggerService(store, &fakeContacts{}, generator, &fakePublisher{})

		response, err := service.Trigger(ctx, models.TriggerEmergencyRequest{
			UserID: userID.Hex(),
			Text:   "chest pain",
			Location: &models.TriggerLocationPayload{
				Latitude:  40.7128,
				Longitude: -74.006,
				Address:   "42 Main St",
			},
		})
		require.NoError(t, err)

		require.NotNil(t, response.Emergency.Location)
		assert.Equal(t, "42 Main St", response.Emergency.Location.Address)
		assert.False(t, response.Emergency.Location.CapturedAt.IsZero())
	})

	t.Run("invalid user ID is a validation error", func(t *testing.T) {
		service := newTriggerService(newFakeStore(), &fakeContacts{}, &fakeGenerator{response: validClassificationJSON}, &fakePublisher{})

		_, err := service.Trigger(ctx, models.TriggerEmergencyRequest{UserID: "not-hex", Text: "help"})
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeValidation))
	})

	t.Run("persistence failure aborts the trigger", func(t *testing.T) {
		store := newFakeStore()
		store.createErr = errors.New("write concern failure")
		generator := &scriptedGenerator{responses: []string{validClassificationJSON, validGuidanceJSON}}

		service := newTriggerService(store, &fakeContacts{}, generator, &fakePublisher{})

		_, err := service.Trigger(ctx, models.TriggerEmergencyRequest{
			UserID: primitive.NewObjectID().Hex(),
			Text:   "help",
		})
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeDatabase))
	})

	t.Run("contact lookup failure does not fail the trigger", func(t *testing.T) {
		store := newFakeStore()
		generator := &scriptedGenerator{responses: []string{validClassificationJSON, validGuidanceJSON}}

		service := newTriggerService(store, &fakeContacts{err: errors.New("timeout")}, generator, &fakePublisher{})

		response, err := service.Trigger(ctx, models.TriggerEmergencyRequest{
			UserID: primitive.NewObjectID().Hex(),
			Text:   "help",
		})
		require.NoError(t, err)
		assert.Equal(t, 0, response.ContactsCount)
		assert.Empty(t, response.Emergency.Notifications)
	})
}

func TestGetStatus(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()

	contact := models.Contact{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		Name:         "Alice",
		Phone:        "+15550000001",
		Relationship: models.RelationshipFamily,
		Priority:     1,
	}

	t.Run("resolves contact references on notification records", func(t *testing.T) {
		store := newFakeStore()
		missingID := primitive.NewObjectID()
		emergency := &models.Emergency{
			ID:     primitive.NewObjectID(),
			UserID: userID,
			Status: models.EmergencyStatusActive,
			Notifications: []models.NotificationRecord{
				{ID: primitive.NewObjectID(), ContactID: &contact.ID, Method: models.NotificationMethodSMS, Status: models.NotificationStatusDelivered},
				{ID: primitive.NewObjectID(), ContactID: &missingID, Method: models.NotificationMethodSMS, Status: models.NotificationStatusFailed},
				{ID: primitive.NewObjectID(), Method: models.NotificationMethodPush, Status: models.NotificationStatusSent, DeviceToken: "token-a"},
			},
			CreatedAt: time.Now(),
		}
		store.put(emergency)

		service := newTriggerService(store, &fakeContacts{contacts: []models.Contact{contact}}, &fakeGenerator{}, &fakePublisher{})

		loaded, err := service.GetStatus(ctx, emergency.ID.Hex())
		require.NoError(t, err)

		require.NotNil(t, loaded.Notifications[0].Contact)
		assert.Equal(t, "Alice", loaded.Notifications[0].Contact.Name)
		assert.Equal(t, "+15550000001", loaded.Notifications[0].Contact.Phone)
		assert.Equal(t, models.RelationshipFamily, loaded.Notifications[0].Contact.Relationship)

		assert.Nil(t, loaded.Notifications[1].Contact)
		assert.Nil(t, loaded.Notifications[2].Contact)
	})

	t.Run("unknown emergency is not found", func(t *testing.T) {
		service := newTriggerService(newFakeStore(), &fakeContacts{}, &fakeGenerator{}, &fakePublisher{})

		_, err := service.GetStatus(ctx, primitive.NewObjectID().Hex())
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeNotFound))
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()

	seed := func(store *fakeStore, status string, age time.Duration) *models.Emergency {
		emergency := &models.Emergency{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			Type:      models.EmergencyTypeMedical,
			Status:    status,
			CreatedAt: time.Now().Add(-age),
		}
		store.put(emergency)
		return emergency
	}

	t.Run("resolves an active emergency", func(t *testing.T) {
		store := newFakeStore()
		publisher := &fakePublisher{}
		emergency := seed(store, models.EmergencyStatusActive, 90*time.Second)

		service := newTriggerService(store, &fakeContacts{}, &fakeGenerator{}, publisher)

		response, err := service.Resolve(ctx, emergency.ID.Hex(), "")
		require.NoError(t, err)

		assert.Equal(t, models.EmergencyStatusResolved, response.Emergency.Status)
		assert.Equal(t, "Emergency resolved by user", response.Emergency.ResolutionNotes)
		assert.GreaterOrEqual(t, response.ResponseTime, int64(90))
		assert.Less(t, response.ResponseTime, int64(95))
		assert.NotNil(t, response.Emergency.ResolvedAt)
		assert.Contains(t, publisher.events, "emergency_resolved")
	})

	t.Run("keeps caller supplied notes", func(t *testing.T) {
		store := newFakeStore()
		emergency := seed(store, models.EmergencyStatusActive, time.Minute)

		service := newTriggerService(store, &fakeContacts{}, &fakeGenerator{}, &fakePublisher{})

		response, err := service.Resolve(ctx, emergency.ID.Hex(), "ambulance arrived")
		require.NoError(t, err)
		assert.Equal(t, "ambulance arrived", response.Emergency.ResolutionNotes)
	})

	t.Run("second resolve is a conflict", func(t *testing.T) {
		store := newFakeStore()
		emergency := seed(store, models.EmergencyStatusActive, time.Minute)

		service := newTriggerService(store, &fakeContacts{}, &fakeGenerator{}, &fakePublisher{})

		_, err := service.Resolve(ctx, emergency.ID.Hex(), "")
		require.NoError(t, err)

		_, err = service.Resolve(ctx, emergency.ID.Hex(), "")
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeConflict))
	})

	t.Run("cancelled emergency cannot be resolved", func(t *testing.T) {
		store := newFakeStore()
		emergency := seed(store, models.EmergencyStatusCancelled, time.Minute)

		service := newTriggerService(store, &fakeContacts{}, &fakeGenerator{}, &fakePublisher{})

		_, err := service.Resolve(ctx, emergency.ID.Hex(), "")
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeConflict))
	})

	t.Run("unknown emergency is not found", func(t *testing.T) {
		service := newTriggerService(newFakeStore(), &fakeContacts{}, &fakeGenerator{}, &fakePublisher{})

		_, err := service.Resolve(ctx, primitive.NewObjectID().Hex(), "")
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeNotFound))
	})
}

func TestCompleteStep(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()

	seed := func(store *fakeStore) *models.Emergency {
		emergency := &models.Emergency{
			ID:     primitive.NewObjectID(),
			UserID: userID,
			Status: models.EmergencyStatusActive,
			Instructions: []models.InstructionStep{
				{StepNumber: 1, Title: "Call 911"},
				{StepNumber: 2, Title: "Start CPR"},
			},
			CreatedAt: time.Now(),
		}
		store.put(emergency)
		return emergency
	}

	t.Run("marks a step completed", func(t *testing.T) {
		store := newFakeStore()
		publisher := &fakePublisher{}
		emergency := seed(store)

		service := newTriggerService(store, &fakeContacts{}, &fakeGenerator{}, publisher)

		response, err := service.CompleteStep(ctx, emergency.ID.Hex(), 1)
		require.NoError(t, err)

		assert.True(t, response.Step.Completed)
		assert.NotNil(t, response.Step.CompletedAt)
		assert.Equal(t, 1, response.CompletedSteps)
		assert.Equal(t, 2, response.TotalSteps)
		assert.False(t, response.AllStepsCompleted)
		assert.Contains(t, publisher.events, "step_completed")
	})

	t.Run("repeat completion keeps the original timestamp", func(t *testing.T) {
		store := newFakeStore()
		emergency := seed(store)

		service := newTriggerService(store, &fakeContacts{}, &fakeGenerator{}, &fakePublisher{})

		first, err := service.CompleteStep(ctx, emergency.ID.Hex(), 1)
		require.NoError(t, err)
		firstCompletedAt := *first.Step.CompletedAt

		second, err := service.CompleteStep(ctx, emergency.ID.Hex(), 1)
		require.NoError(t, err)

		assert.True(t, second.Step.Completed)
		assert.Equal(t, firstCompletedAt, *second.Step.CompletedAt)
		assert.Equal(t, 1, second.CompletedSteps)
	})

	t.Run("completing the last step flips the aggregate flag", func(t *testing.T) {
		store := newFakeStore()
		emergency := seed(store)

		service := newTriggerService(store, &fakeContacts{}, &fakeGenerator{}, &fakePublisher{})

		_, err := service.CompleteStep(ctx, emergency.ID.Hex(), 1)
		require.NoError(t, err)

		response, err := service.CompleteStep(ctx, emergency.ID.Hex(), 2)
		require.NoError(t, err)
		assert.True(t, response.AllStepsCompleted)
	})

	t.Run("unknown step number is not found", func(t *testing.T) {
		store := newFakeStore()
		emergency := seed(store)

		service := newTriggerService(store, &fakeContacts{}, &fakeGenerator{}, &fakePublisher{})

		_, err := service.CompleteStep(ctx, emergency.ID.Hex(), 9)
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeNotFound))
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()

	seedHistory := func(store *fakeStore) {
		store.put(&models.Emergency{ID: primitive.NewObjectID(), UserID: userID, Type: models.EmergencyTypeMedical, Status: models.EmergencyStatusActive, CreatedAt: time.Now()})
		store.put(&models.Emergency{ID: primitive.NewObjectID(), UserID: userID, Type: models.EmergencyTypeFire, Status: models.EmergencyStatusResolved, CreatedAt: time.Now()})
		store.put(&models.Emergency{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Type: models.EmergencyTypeFire, Status: models.EmergencyStatusActive, CreatedAt: time.Now()})
	}

	t.Run("the all selector matches every record", func(t *testing.T) {
		store := newFakeStore()
		seedHistory(store)

		service := newTriggerService(store, &fakeContacts{}, &fakeGenerator{}, &fakePublisher{})

		response, total, err := service.History(ctx, models.EmergencyHistoryRequest{
			UserID:        userID.Hex(),
			EmergencyType: "all",
			Status:        "all",
			Page:          1,
			Limit:         20,
		})
		require.NoError(t, err)

		assert.Equal(t, int64(2), total)
		assert.Len(t, response.Emergencies, 2)
		assert.Equal(t, int64(2), response.Summary.Total)
		assert.Equal(t, int64(1), response.Summary.Active)
		assert.Equal(t, int64(1), response.Summary.Resolved)
	})

	t.Run("status selector narrows the result", func(t *testing.T) {
		store := newFakeStore()
		seedHistory(store)

		service := newTriggerService(store, &fakeContacts{}, &fakeGenerator{}, &fakePublisher{})

		response, _, err := service.History(ctx, models.EmergencyHistoryRequest{
			UserID: userID.Hex(),
			Status: models.EmergencyStatusResolved,
		})
		require.NoError(t, err)

		require.Len(t, response.Emergencies, 1)
		assert.Equal(t, models.EmergencyStatusResolved, response.Emergencies[0].Status)
	})

	t.Run("invalid dates are validation errors", func(t *testing.T) {
		service := newTriggerService(newFakeStore(), &fakeContacts{}, &fakeGenerator{}, &fakePublisher{})

		_, _, err := service.History(ctx, models.EmergencyHistoryRequest{
			UserID:    userID.Hex(),
			StartDate: "yesterday",
		})
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeValidation))
	})
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the gated pair without persisting", func(t *testing.T) {
		store := newFakeStore()
		generator := &scriptedGenerator{responses: []string{validClassificationJSON, validGuidanceJSON}}

		service := newTriggerService(store, &fakeContacts{}, generator, &fakePublisher{})

		response, err := service.Analyze(ctx, "chest pain", "")
		require.NoError(t, err)

		assert.False(t, response.UsedFallback)
		assert.Equal(t, models.EmergencyTypeMedical, response.Classification.Category)
		assert.NotEmpty(t, response.Guidance.Steps)
		assert.Empty(t, store.emergencies)
	})

	t.Run("rejects blank input", func(t *testing.T) {
		service := newTriggerService(newFakeStore(), &fakeContacts{}, &fakeGenerator{}, &fakePublisher{})

		_, err := service.Analyze(ctx, "  ", "")
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeValidation))
	})
}

func TestComputeAnalytics(t *testing.T) {
	base := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	emergencies := []models.Emergency{
		{Type: models.EmergencyTypeMedical, Severity: models.SeverityCritical, Status: models.EmergencyStatusResolved, ResponseTime: 60, CreatedAt: base},
		{Type: models.EmergencyTypeMedical, Severity: models.SeverityHigh, Status: models.EmergencyStatusResolved, ResponseTime: 120, CreatedAt: base.Add(2 * time.Hour)},
		{Type: models.EmergencyTypeFire, Severity: models.SeverityHigh, Status: models.EmergencyStatusActive, CreatedAt: base.Add(24 * time.Hour)},
	}

	analytics := ComputeAnalytics(emergencies, 30)

	assert.Equal(t, 30, analytics.PeriodDays)
	assert.Equal(t, 3, analytics.Overview.Total)
	assert.Equal(t, 1, analytics.Overview.Active)
	assert.Equal(t, 2, analytics.Overview.Resolved)
	assert.Equal(t, int64(60), analytics.Overview.MinResponseTime)
	assert.Equal(t, int64(120), analytics.Overview.MaxResponseTime)
	assert.Equal(t, 90.0, analytics.Overview.AvgResponseTime)

	medical := analytics.TypeDistribution[models.EmergencyTypeMedical]
	assert.Equal(t, 2, medical.Count)
	assert.Equal(t, 2, medical.ResolvedCount)
	assert.Equal(t, 1.0, medical.SuccessRate)
	assert.Equal(t, 90.0, medical.AvgResponseTime)

	fire := analytics.TypeDistribution[models.EmergencyTypeFire]
	assert.Equal(t, 0.0, fire.SuccessRate)

	assert.Equal(t, 2.0/3.0, analytics.Overview.SuccessRate)

	require.Len(t, analytics.ResponseTimesBySeverity, 2)
	critical := analytics.ResponseTimesBySeverity[models.SeverityCritical]
	assert.Equal(t, 1, critical.Count)
	assert.Equal(t, 60.0, critical.AvgResponseTime)
	assert.Equal(t, int64(60), critical.MinResponseTime)
	assert.Equal(t, int64(60), critical.MaxResponseTime)

	high := analytics.ResponseTimesBySeverity[models.SeverityHigh]
	assert.Equal(t, 1, high.Count)
	assert.Equal(t, int64(120), high.MinResponseTime)
	assert.Equal(t, int64(120), high.MaxResponseTime)

	assert.Equal(t, 2, analytics.SeverityDistribution[models.SeverityHigh])
	assert.Equal(t, 2, analytics.FrequencyByDay["2026-08-20"])
	assert.Equal(t, 1, analytics.FrequencyByDay["2026-08-21"])
	assert.Equal(t, 2, analytics.HourlyDistribution[14])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1 minutes 30 seconds", FormatDuration(90))
	assert.Equal(t, "0 minutes 59 seconds", FormatDuration(59))
	assert.Equal(t, "10 minutes 0 seconds", FormatDuration(600))
}

func TestFlattenContext(t *testing.T) {
	t.Run("renders keys in stable order", func(t *testing.T) {
		flattened := FlattenContext(map[string]string{
			"medication": "nitroglycerin",
			"age":        "67",
		})
		assert.Equal(t, "age: 67; medication: nitroglycerin", flattened)
	})

	t.Run("empty context renders empty", func(t *testing.T) {
		assert.Equal(t, "", FlattenContext(nil))
	})
}
