package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aegis/models"
	"aegis/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeGenerator returns a canned response or error and records the prompt.
type fakeGenerator struct {
	response string
	err      error

	mu      sync.Mutex
	prompts []string
}

func (fg *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	fg.mu.Lock()
	fg.prompts = append(fg.prompts, prompt)
	fg.mu.Unlock()

	if fg.err != nil {
		return "", fg.err
	}
	return fg.response, nil
}

// fakeStore is an in-memory emergency store satisfying both the emergency
// and notification persistence interfaces.
type fakeStore struct {
	mu          sync.Mutex
	emergencies map[string]*models.Emergency
	createErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		emergencies: make(map[string]*models.Emergency),
	}
}

func (fs *fakeStore) put(emergency *models.Emergency) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.emergencies[emergency.ID.Hex()] = emergency
}

func (fs *fakeStore) Create(ctx context.Context, emergency *models.Emergency) error {
	if fs.createErr != nil {
		return fs.createErr
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	emergency.ID = primitive.NewObjectID()
	emergency.CreatedAt = time.Now()
	emergency.UpdatedAt = emergency.CreatedAt
	if emergency.Status == "" {
		emergency.Status = models.EmergencyStatusActive
	}
	fs.emergencies[emergency.ID.Hex()] = emergency
	return nil
}

func (fs *fakeStore) GetByID(ctx context.Context, id string) (*models.Emergency, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	emergency, ok := fs.emergencies[id]
	if !ok {
		return nil, utils.NewEmergencyNotFoundError()
	}
	return emergency, nil
}

func (fs *fakeStore) Resolve(ctx context.Context, id string, resolvedAt time.Time, notes string, responseTime int64) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	emergency, ok := fs.emergencies[id]
	if !ok || emergency.Status != models.EmergencyStatusActive {
		return false, nil
	}

	emergency.Status = models.EmergencyStatusResolved
	emergency.ResolvedAt = &resolvedAt
	emergency.ResolutionNotes = notes
	emergency.ResponseTime = responseTime
	return true, nil
}

func (fs *fakeStore) CompleteStep(ctx context.Context, id string, stepNumber int, completedAt time.Time) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	emergency, ok := fs.emergencies[id]
	if !ok {
		return false, nil
	}

	for i, step := range emergency.Instructions {
		if step.StepNumber == stepNumber && !step.Completed {
			emergency.Instructions[i].Completed = true
			emergency.Instructions[i].CompletedAt = &completedAt
			return true, nil
		}
	}
	return false, nil
}

func (fs *fakeStore) List(ctx context.Context, filter models.EmergencyFilter) ([]models.Emergency, int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var matched []models.Emergency
	for _, emergency := range fs.emergencies {
		if emergency.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && emergency.Type != filter.Type {
			continue
		}
		if filter.Status != "" && emergency.Status != filter.Status {
			continue
		}
		matched = append(matched, *emergency)
	}
	return matched, int64(len(matched)), nil
}

func (fs *fakeStore) CountByStatus(ctx context.Context, userID primitive.ObjectID) (map[string]int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	counts := make(map[string]int64)
	for _, emergency := range fs.emergencies {
		if emergency.UserID == userID {
			counts[emergency.Status]++
		}
	}
	return counts, nil
}

func (fs *fakeStore) FindSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]models.Emergency, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var matched []models.Emergency
	for _, emergency := range fs.emergencies {
		if emergency.UserID == userID && !emergency.CreatedAt.Before(since) {
			matched = append(matched, *emergency)
		}
	}
	return matched, nil
}

func (fs *fakeStore) AppendNotifications(ctx context.Context, emergencyID string, records []models.NotificationRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	emergency, ok := fs.emergencies[emergencyID]
	if !ok {
		return utils.NewEmergencyNotFoundError()
	}
	emergency.Notifications = append(emergency.Notifications, records...)
	return nil
}

func (fs *fakeStore) IncrementRetryCount(ctx context.Context, emergencyID string, notificationID primitive.ObjectID) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	emergency, ok := fs.emergencies[emergencyID]
	if !ok {
		return false, nil
	}

	for i, record := range emergency.Notifications {
		if record.ID == notificationID && record.RetryCount < models.MaxNotificationRetries {
			emergency.Notifications[i].RetryCount++
			return true, nil
		}
	}
	return false, nil
}

func (fs *fakeStore) UpdateNotificationResult(ctx context.Context, emergencyID string, notificationID primitive.ObjectID, status, messageID string, sentAt time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	emergency, ok := fs.emergencies[emergencyID]
	if !ok {
		return utils.NewEmergencyNotFoundError()
	}

	for i, record := range emergency.Notifications {
		if record.ID == notificationID {
			emergency.Notifications[i].Status = status
			emergency.Notifications[i].MessageID = messageID
			emergency.Notifications[i].SentAt = sentAt
			return nil
		}
	}
	return nil
}

// fakeContacts satisfies ContactReader.
type fakeContacts struct {
	contacts []models.Contact
	err      error
}

func (fc *fakeContacts) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Contact, error) {
	if fc.err != nil {
		return nil, fc.err
	}
	return fc.contacts, nil
}

func (fc *fakeContacts) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Contact, error) {
	for i := range fc.contacts {
		if fc.contacts[i].ID == id {
			return &fc.contacts[i], nil
		}
	}
	return nil, utils.NewContactNotFoundError()
}

// fakeDevices satisfies DeviceTokenReader.
type fakeDevices struct {
	tokens []string
}

func (fd *fakeDevices) GetDeviceTokens(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	return fd.tokens, nil
}

// fakeSMS records every send and fails the recipients listed in failFor.
type fakeSMS struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
}

func (fk *fakeSMS) Send(ctx context.Context, to, message string) SendResult {
	fk.mu.Lock()
	fk.sent = append(fk.sent, to)
	fk.mu.Unlock()

	if fk.failFor[to] {
		return SendResult{
			Success:   false,
			MessageID: "failed_1",
			Provider:  models.ProviderSimulation,
			Status:    models.NotificationStatusFailed,
			Error:     "unreachable",
		}
	}
	return SendResult{
		Success:   true,
		MessageID: fmt.Sprintf("sms_%d", len(fk.sent)),
		Provider:  models.ProviderSimulation,
		Status:    models.NotificationStatusDelivered,
	}
}

// fakePush records every send and fails the tokens listed in failFor.
type fakePush struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
}

func (fk *fakePush) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) SendResult {
	fk.mu.Lock()
	fk.sent = append(fk.sent, deviceToken)
	fk.mu.Unlock()

	if fk.failFor[deviceToken] {
		return SendResult{
			Success:   false,
			MessageID: "failed_1",
			Provider:  models.ProviderSimulation,
			Status:    models.NotificationStatusFailed,
			Error:     "token rejected",
		}
	}
	return SendResult{
		Success:   true,
		MessageID: fmt.Sprintf("push_%d", len(fk.sent)),
		Provider:  models.ProviderSimulation,
		Status:    models.NotificationStatusSent,
	}
}

// fakePublisher collects published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (fp *fakePublisher) Publish(userID, eventType string, payload interface{}) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.events = append(fp.events, eventType)
}
