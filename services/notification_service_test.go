package services

import (
	"context"
	"testing"
	"time"

	"aegis/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func storedEmergency(store *fakeStore, userID primitive.ObjectID) *models.Emergency {
	emergency := &models.Emergency{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		Type:          models.EmergencyTypeMedical,
		Severity:      models.SeverityCritical,
		Status:        models.EmergencyStatusActive,
		Notifications: []models.NotificationRecord{},
		CreatedAt:     time.Now(),
	}
	store.put(emergency)
	return emergency
}

func testContacts(userID primitive.ObjectID) []models.Contact {
	return []models.Contact{
		{ID: primitive.NewObjectID(), UserID: userID, Name: "Carol", Phone: "+15550000003", Priority: 3},
		{ID: primitive.NewObjectID(), UserID: userID, Name: "Alice", Phone: "+15550000001", Priority: 1},
		{ID: primitive.NewObjectID(), UserID: userID, Name: "Bob", Phone: "+15550000002", Priority: 2},
	}
}

func TestDispatchSMS(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()

	t.Run("appends records in ascending priority order", func(t *testing.T) {
		store := newFakeStore()
		emergency := storedEmergency(store, userID)
		contacts := testContacts(userID)
		sms := &fakeSMS{}

		service := NewNotificationService(store, &fakeContacts{contacts: contacts}, &fakeDevices{}, sms, &fakePush{}, 2)

		summary, err := service.DispatchSMS(ctx, emergency, contacts, "alert")
		require.NoError(t, err)

		assert.Equal(t, 3, summary.Attempted)
		require.Len(t, emergency.Notifications, 3)

		// Alice (priority 1), Bob (2), Carol (3) regardless of input order.
		assert.Equal(t, contacts[1].ID, *emergency.Notifications[0].ContactID)
		assert.Equal(t, contacts[2].ID, *emergency.Notifications[1].ContactID)
		assert.Equal(t, contacts[0].ID, *emergency.Notifications[2].ContactID)
	})

	t.Run("failed sends are recorded, not dropped", func(t *testing.T) {
		store := newFakeStore()
		emergency := storedEmergency(store, userID)
		contacts := testContacts(userID)
		sms := &fakeSMS{failFor: map[string]bool{"+15550000002": true}}

		service := NewNotificationService(store, &fakeContacts{contacts: contacts}, &fakeDevices{}, sms, &fakePush{}, 2)

		summary, err := service.DispatchSMS(ctx, emergency, contacts, "alert")
		require.NoError(t, err)

		assert.Equal(t, 3, summary.Attempted)
		assert.Equal(t, 2, summary.Sent)
		assert.Equal(t, 1, summary.Failed)
		require.Len(t, emergency.Notifications, 3)
		assert.Equal(t, models.NotificationStatusFailed, emergency.Notifications[1].Status)
	})

	t.Run("every record starts with zero retries", func(t *testing.T) {
		store := newFakeStore()
		emergency := storedEmergency(store, userID)
		contacts := testContacts(userID)

		service := NewNotificationService(store, &fakeContacts{contacts: contacts}, &fakeDevices{}, &fakeSMS{}, &fakePush{}, 2)

		_, err := service.DispatchSMS(ctx, emergency, contacts, "alert")
		require.NoError(t, err)

		for _, record := range emergency.Notifications {
			assert.Equal(t, 0, record.RetryCount)
			assert.Equal(t, models.NotificationMethodSMS, record.Method)
		}
	})

	t.Run("no contacts means an empty summary", func(t *testing.T) {
		store := newFakeStore()
		emergency := storedEmergency(store, userID)

		service := NewNotificationService(store, &fakeContacts{}, &fakeDevices{}, &fakeSMS{}, &fakePush{}, 2)

		summary, err := service.DispatchSMS(ctx, emergency, nil, "alert")
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Attempted)
		assert.Empty(t, emergency.Notifications)
	})
}

func TestDispatchPush(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()

	t.Run("records carry the device token for retry", func(t *testing.T) {
		store := newFakeStore()
		emergency := storedEmergency(store, userID)
		push := &fakePush{}

		service := NewNotificationService(store, &fakeContacts{}, &fakeDevices{}, &fakeSMS{}, push, 2)

		summary, err := service.DispatchPush(ctx, emergency, []string{"token-a", "token-b"}, "EMERGENCY", "alert")
		require.NoError(t, err)

		assert.Equal(t, 2, summary.Attempted)
		require.Len(t, emergency.Notifications, 2)
		assert.Equal(t, "token-a", emergency.Notifications[0].DeviceToken)
		assert.Equal(t, "token-b", emergency.Notifications[1].DeviceToken)
		assert.Nil(t, emergency.Notifications[0].ContactID)
	})
}

func TestNotificationStatus(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()

	store := newFakeStore()
	emergency := storedEmergency(store, userID)
	emergency.Notifications = []models.NotificationRecord{
		{ID: primitive.NewObjectID(), Method: models.NotificationMethodSMS, Status: models.NotificationStatusDelivered, Provider: models.ProviderTwilio},
		{ID: primitive.NewObjectID(), Method: models.NotificationMethodSMS, Status: models.NotificationStatusFailed, Provider: models.ProviderTwilio},
		{ID: primitive.NewObjectID(), Method: models.NotificationMethodPush, Status: models.NotificationStatusSent, Provider: models.ProviderFirebase},
	}

	service := NewNotificationService(store, &fakeContacts{}, &fakeDevices{}, &fakeSMS{}, &fakePush{}, 2)

	status, err := service.Status(ctx, emergency.ID.Hex())
	require.NoError(t, err)

	assert.Equal(t, emergency.ID.Hex(), status.EmergencyID)
	assert.Equal(t, 3, status.Total)
	assert.Equal(t, 2, status.ByMethod[models.NotificationMethodSMS])
	assert.Equal(t, 1, status.ByMethod[models.NotificationMethodPush])
	assert.Equal(t, 1, status.ByStatus[models.NotificationStatusFailed])
	assert.Equal(t, 2, status.ByProvider[models.ProviderTwilio])
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()

	t.Run("retries failed records and updates their outcome", func(t *testing.T) {
		store := newFakeStore()
		emergency := storedEmergency(store, userID)
		contacts := testContacts(userID)
		contactID := contacts[0].ID
		emergency.Notifications = []models.NotificationRecord{
			{ID: primitive.NewObjectID(), ContactID: &contactID, Method: models.NotificationMethodSMS, Status: models.NotificationStatusFailed, Provider: models.ProviderSimulation},
		}

		sms := &fakeSMS{}
		service := NewNotificationService(store, &fakeContacts{contacts: contacts}, &fakeDevices{}, sms, &fakePush{}, 2)

		summary, err := service.Retry(ctx, emergency.ID.Hex())
		require.NoError(t, err)

		assert.Equal(t, 1, summary.TotalRetried)
		assert.Equal(t, 1, summary.Successful)
		assert.Equal(t, 0, summary.StillFailed)
		assert.Equal(t, 1, emergency.Notifications[0].RetryCount)
		assert.Equal(t, models.NotificationStatusDelivered, emergency.Notifications[0].Status)
		assert.Equal(t, []string{contacts[0].Phone}, sms.sent)
	})

	t.Run("retry count increments even when the resend fails", func(t *testing.T) {
		store := newFakeStore()
		emergency := storedEmergency(store, userID)
		contacts := testContacts(userID)
		contactID := contacts[0].ID
		emergency.Notifications = []models.NotificationRecord{
			{ID: primitive.NewObjectID(), ContactID: &contactID, Method: models.NotificationMethodSMS, Status: models.NotificationStatusFailed, Provider: models.ProviderSimulation},
		}

		sms := &fakeSMS{failFor: map[string]bool{contacts[0].Phone: true}}
		service := NewNotificationService(store, &fakeContacts{contacts: contacts}, &fakeDevices{}, sms, &fakePush{}, 2)

		summary, err := service.Retry(ctx, emergency.ID.Hex())
		require.NoError(t, err)

		assert.Equal(t, 1, summary.StillFailed)
		assert.Equal(t, 1, emergency.Notifications[0].RetryCount)
		assert.Equal(t, models.NotificationStatusFailed, emergency.Notifications[0].Status)
	})

	t.Run("records at the retry cap are skipped", func(t *testing.T) {
		store := newFakeStore()
		emergency := storedEmergency(store, userID)
		contacts := testContacts(userID)
		contactID := contacts[0].ID
		emergency.Notifications = []models.NotificationRecord{
			{ID: primitive.NewObjectID(), ContactID: &contactID, Method: models.NotificationMethodSMS, Status: models.NotificationStatusFailed, RetryCount: models.MaxNotificationRetries},
		}

		sms := &fakeSMS{}
		service := NewNotificationService(store, &fakeContacts{contacts: contacts}, &fakeDevices{}, sms, &fakePush{}, 2)

		summary, err := service.Retry(ctx, emergency.ID.Hex())
		require.NoError(t, err)

		assert.Equal(t, 0, summary.TotalRetried)
		assert.Empty(t, sms.sent)
		assert.Equal(t, models.MaxNotificationRetries, emergency.Notifications[0].RetryCount)
	})

	t.Run("delivered and sent records are not retried", func(t *testing.T) {
		store := newFakeStore()
		emergency := storedEmergency(store, userID)
		contacts := testContacts(userID)
		contactID := contacts[0].ID
		emergency.Notifications = []models.NotificationRecord{
			{ID: primitive.NewObjectID(), ContactID: &contactID, Method: models.NotificationMethodSMS, Status: models.NotificationStatusDelivered},
			{ID: primitive.NewObjectID(), ContactID: &contactID, Method: models.NotificationMethodSMS, Status: models.NotificationStatusSent},
		}

		sms := &fakeSMS{}
		service := NewNotificationService(store, &fakeContacts{contacts: contacts}, &fakeDevices{}, sms, &fakePush{}, 2)

		summary, err := service.Retry(ctx, emergency.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, 0, summary.TotalRetried)
		assert.Empty(t, sms.sent)
	})

	t.Run("push retries reuse the stored device token", func(t *testing.T) {
		store := newFakeStore()
		emergency := storedEmergency(store, userID)
		emergency.Notifications = []models.NotificationRecord{
			{ID: primitive.NewObjectID(), Method: models.NotificationMethodPush, Status: models.NotificationStatusFailed, DeviceToken: "token-x"},
		}

		push := &fakePush{}
		service := NewNotificationService(store, &fakeContacts{}, &fakeDevices{}, &fakeSMS{}, push, 2)

		summary, err := service.Retry(ctx, emergency.ID.Hex())
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Successful)
		assert.Equal(t, []string{"token-x"}, push.sent)
	})

	t.Run("pending records are eligible for retry", func(t *testing.T) {
		store := newFakeStore()
		emergency := storedEmergency(store, userID)
		contacts := testContacts(userID)
		contactID := contacts[0].ID
		emergency.Notifications = []models.NotificationRecord{
			{ID: primitive.NewObjectID(), ContactID: &contactID, Method: models.NotificationMethodSMS, Status: models.NotificationStatusPending},
		}

		service := NewNotificationService(store, &fakeContacts{contacts: contacts}, &fakeDevices{}, &fakeSMS{}, &fakePush{}, 2)

		summary, err := service.Retry(ctx, emergency.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.TotalRetried)
	})
}

func TestBuildAlertMessage(t *testing.T) {
	t.Run("includes the address when present", func(t *testing.T) {
		emergency := &models.Emergency{
			Type: models.EmergencyTypeNaturalDisaster,
			Location: &models.EmergencyLocation{
				Address: "42 Main St",
			},
		}

		message := BuildAlertMessage(emergency)
		assert.Contains(t, message, "natural disaster emergency")
		assert.Contains(t, message, "near 42 Main St")
	})

	t.Run("falls back to coordinates", func(t *testing.T) {
		emergency := &models.Emergency{
			Type: models.EmergencyTypeFire,
			Location: &models.EmergencyLocation{
				Latitude:  40.71280,
				Longitude: -74.00600,
			},
		}

		message := BuildAlertMessage(emergency)
		assert.Contains(t, message, "40.71280")
		assert.Contains(t, message, "-74.00600")
	})

	t.Run("omits location when absent", func(t *testing.T) {
		emergency := &models.Emergency{Type: models.EmergencyTypeMedical}

		message := BuildAlertMessage(emergency)
		assert.Contains(t, message, "A medical emergency has been reported.")
	})
}
