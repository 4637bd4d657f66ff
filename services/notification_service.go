package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"aegis/models"
	"aegis/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// NotificationStore is the slice of emergency persistence the dispatcher
// and tracker need. The notification list is the only mutable state they
// touch; every mutation is a single atomic document update so concurrent
// dispatch and retry cannot lose writes.
type NotificationStore interface {
	GetByID(ctx context.Context, id string) (*models.Emergency, error)
	AppendNotifications(ctx context.Context, emergencyID string, records []models.NotificationRecord) error
	IncrementRetryCount(ctx context.Context, emergencyID string, notificationID primitive.ObjectID) (bool, error)
	UpdateNotificationResult(ctx context.Context, emergencyID string, notificationID primitive.ObjectID, status, messageID string, sentAt time.Time) error
}

// ContactReader is the read-only view of the contacts collaborator.
type ContactReader interface {
	GetActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Contact, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Contact, error)
}

// DeviceTokenReader resolves the push targets registered for a user.
type DeviceTokenReader interface {
	GetDeviceTokens(ctx context.Context, userID primitive.ObjectID) ([]string, error)
}

// NotificationService fans alerts out to contacts and devices, aggregates
// per-emergency delivery status, and retries failed or pending sends with a
// hard cap of models.MaxNotificationRetries attempts per record.
type NotificationService struct {
	store         NotificationStore
	contacts      ContactReader
	devices       DeviceTokenReader
	sms           SMSSender
	push          PushSender
	maxConcurrent int
}

func NewNotificationService(store NotificationStore, contacts ContactReader, devices DeviceTokenReader, sms SMSSender, push PushSender, maxConcurrent int) *NotificationService {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &NotificationService{
		store:         store,
		contacts:      contacts,
		devices:       devices,
		sms:           sms,
		push:          push,
		maxConcurrent: maxConcurrent,
	}
}

// DispatchSMS sends the message to every contact with bounded concurrency.
// Each attempt yields exactly one NotificationRecord, failures included: a
// failed send must stay visible to the tracker and to retry. The append
// order follows ascending contact priority regardless of completion order.
func (ns *NotificationService) DispatchSMS(ctx context.Context, emergency *models.Emergency, contacts []models.Contact, message string) (*models.DispatchSummary, error) {
	if len(contacts) == 0 {
		return &models.DispatchSummary{}, nil
	}

	ordered := make([]models.Contact, len(contacts))
	copy(ordered, contacts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	results := make([]SendResult, len(ordered))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(ns.maxConcurrent)
	for i, contact := range ordered {
		i, contact := i, contact
		group.Go(func() error {
			results[i] = ns.sms.Send(groupCtx, contact.Phone, message)
			return nil
		})
	}
	// Sends never return errors; failures land in their result slot.
	_ = group.Wait()

	records := make([]models.NotificationRecord, len(ordered))
	now := time.Now()
	for i, contact := range ordered {
		contactID := contact.ID
		records[i] = models.NotificationRecord{
			ID:         primitive.NewObjectID(),
			ContactID:  &contactID,
			Method:     models.NotificationMethodSMS,
			SentAt:     now,
			Status:     results[i].Status,
			Provider:   results[i].Provider,
			MessageID:  results[i].MessageID,
			RetryCount: 0,
		}
	}

	if err := ns.store.AppendNotifications(ctx, emergency.ID.Hex(), records); err != nil {
		return nil, utils.NewDatabaseError("append notifications", err)
	}

	return summarizeDispatch(records), nil
}

// DispatchPush sends to every registered device token. Device pushes carry
// no contact reference.
func (ns *NotificationService) DispatchPush(ctx context.Context, emergency *models.Emergency, tokens []string, title, body string) (*models.DispatchSummary, error) {
	if len(tokens) == 0 {
		return &models.DispatchSummary{}, nil
	}

	data := map[string]string{
		"type":        "emergency",
		"emergencyId": emergency.ID.Hex(),
		"category":    emergency.Type,
		"severity":    emergency.Severity,
	}

	results := make([]SendResult, len(tokens))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(ns.maxConcurrent)
	for i, token := range tokens {
		i, token := i, token
		group.Go(func() error {
			results[i] = ns.push.Send(groupCtx, token, title, body, data)
			return nil
		})
	}
	_ = group.Wait()

	records := make([]models.NotificationRecord, len(tokens))
	now := time.Now()
	for i, token := range tokens {
		records[i] = models.NotificationRecord{
			ID:          primitive.NewObjectID(),
			Method:      models.NotificationMethodPush,
			SentAt:      now,
			Status:      results[i].Status,
			Provider:    results[i].Provider,
			MessageID:   results[i].MessageID,
			RetryCount:  0,
			DeviceToken: token,
		}
	}

	if err := ns.store.AppendNotifications(ctx, emergency.ID.Hex(), records); err != nil {
		return nil, utils.NewDatabaseError("append notifications", err)
	}

	return summarizeDispatch(records), nil
}

// NotifyContactsSMS is the manual re-send entry point for POST /notify/sms.
func (ns *NotificationService) NotifyContactsSMS(ctx context.Context, emergencyID, message string) (*models.DispatchSummary, error) {
	emergency, err := ns.store.GetByID(ctx, emergencyID)
	if err != nil {
		return nil, err
	}

	contacts, err := ns.contacts.GetActiveByUser(ctx, emergency.UserID)
	if err != nil {
		return nil, utils.NewDatabaseError("load contacts", err)
	}

	if message == "" {
		message = BuildAlertMessage(emergency)
	}

	return ns.DispatchSMS(ctx, emergency, contacts, message)
}

// NotifyDevicesPush is the manual re-send entry point for POST /notify/push.
func (ns *NotificationService) NotifyDevicesPush(ctx context.Context, emergencyID, title, body string) (*models.DispatchSummary, error) {
	emergency, err := ns.store.GetByID(ctx, emergencyID)
	if err != nil {
		return nil, err
	}

	tokens, err := ns.devices.GetDeviceTokens(ctx, emergency.UserID)
	if err != nil {
		return nil, utils.NewDatabaseError("load device tokens", err)
	}

	if title == "" {
		title = "EMERGENCY ALERT"
	}
	if body == "" {
		body = BuildAlertMessage(emergency)
	}

	return ns.DispatchPush(ctx, emergency, tokens, title, body)
}

// Status aggregates the record's notification list. Pure aggregation over
// the loaded document, no provider I/O.
func (ns *NotificationService) Status(ctx context.Context, emergencyID string) (*models.NotificationStatus, error) {
	emergency, err := ns.store.GetByID(ctx, emergencyID)
	if err != nil {
		return nil, err
	}

	status := AggregateNotifications(emergency.Notifications)
	status.EmergencyID = emergency.ID.Hex()
	return status, nil
}

// AggregateNotifications computes the by-method/by-status/by-provider
// counts for a notification list.
func AggregateNotifications(records []models.NotificationRecord) *models.NotificationStatus {
	status := &models.NotificationStatus{
		Total:      len(records),
		ByMethod:   map[string]int{},
		ByStatus:   map[string]int{},
		ByProvider: map[string]int{},
		Records:    records,
	}

	for _, record := range records {
		status.ByMethod[record.Method]++
		status.ByStatus[record.Status]++
		status.ByProvider[record.Provider]++
	}

	return status
}

// Retry re-sends every notification with status failed or pending whose
// retry budget is not exhausted. The count is incremented before the
// re-send so a crash mid-retry can never under-count attempts. A failed
// individual retry is recorded and the batch continues.
func (ns *NotificationService) Retry(ctx context.Context, emergencyID string) (*models.RetrySummary, error) {
	emergency, err := ns.store.GetByID(ctx, emergencyID)
	if err != nil {
		return nil, err
	}

	summary := &models.RetrySummary{
		EmergencyID: emergency.ID.Hex(),
		Outcomes:    []models.RetryOutcome{},
	}

	message := BuildAlertMessage(emergency)

	for _, record := range emergency.Notifications {
		if !retryEligible(record) {
			continue
		}

		incremented, err := ns.store.IncrementRetryCount(ctx, emergencyID, record.ID)
		if err != nil {
			logrus.Errorf("Failed to increment retry count for notification %s: %v", record.ID.Hex(), err)
			continue
		}
		if !incremented {
			// A concurrent retry exhausted the budget first.
			continue
		}

		result := ns.resend(ctx, emergency, record, message)

		sentAt := time.Now()
		if err := ns.store.UpdateNotificationResult(ctx, emergencyID, record.ID, result.Status, result.MessageID, sentAt); err != nil {
			logrus.Errorf("Failed to record retry result for notification %s: %v", record.ID.Hex(), err)
		}

		outcome := models.RetryOutcome{
			NotificationID: record.ID.Hex(),
			Method:         record.Method,
			RetryCount:     record.RetryCount + 1,
			Success:        result.Success,
			Status:         result.Status,
			MessageID:      result.MessageID,
			Error:          result.Error,
		}

		summary.TotalRetried++
		if result.Success {
			summary.Successful++
		} else {
			summary.StillFailed++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	return summary, nil
}

func retryEligible(record models.NotificationRecord) bool {
	if record.Status != models.NotificationStatusFailed && record.Status != models.NotificationStatusPending {
		return false
	}
	return record.RetryCount < models.MaxNotificationRetries
}

// resend re-invokes the channel adapter the record was originally sent
// through. SMS retries rebuild the alert message from the record; push
// retries reuse the stored device token.
func (ns *NotificationService) resend(ctx context.Context, emergency *models.Emergency, record models.NotificationRecord, message string) SendResult {
	switch record.Method {
	case models.NotificationMethodSMS:
		if record.ContactID == nil {
			return SendResult{
				Success:   false,
				MessageID: fmt.Sprintf("failed_%d", time.Now().UnixMilli()),
				Status:    models.NotificationStatusFailed,
				Provider:  record.Provider,
				Error:     "notification has no contact reference",
			}
		}
		contact, err := ns.contacts.GetByID(ctx, *record.ContactID)
		if err != nil {
			return SendResult{
				Success:   false,
				MessageID: fmt.Sprintf("failed_%d", time.Now().UnixMilli()),
				Status:    models.NotificationStatusFailed,
				Provider:  record.Provider,
				Error:     "contact not found",
			}
		}
		return ns.sms.Send(ctx, contact.Phone, message)

	case models.NotificationMethodPush:
		return ns.push.Send(ctx, record.DeviceToken, "EMERGENCY ALERT", message, map[string]string{
			"type":        "emergency",
			"emergencyId": emergency.ID.Hex(),
		})

	default:
		return SendResult{
			Success:   false,
			MessageID: fmt.Sprintf("failed_%d", time.Now().UnixMilli()),
			Status:    models.NotificationStatusFailed,
			Provider:  record.Provider,
			Error:     fmt.Sprintf("unsupported method %q", record.Method),
		}
	}
}

// BuildAlertMessage renders the SMS/push text for an emergency.
func BuildAlertMessage(emergency *models.Emergency) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "EMERGENCY ALERT: A %s emergency has been reported", formatCategory(emergency.Type))

	if emergency.Location != nil {
		if emergency.Location.Address != "" {
			fmt.Fprintf(&sb, " near %s", emergency.Location.Address)
		} else if emergency.Location.Latitude != 0 || emergency.Location.Longitude != 0 {
			fmt.Fprintf(&sb, " at %.5f, %.5f", emergency.Location.Latitude, emergency.Location.Longitude)
		}
	}

	sb.WriteString(". Please respond immediately or contact emergency services.")

	return sb.String()
}

func formatCategory(category string) string {
	return strings.ReplaceAll(category, "_", " ")
}

func summarizeDispatch(records []models.NotificationRecord) *models.DispatchSummary {
	summary := &models.DispatchSummary{
		Attempted: len(records),
		Records:   records,
	}
	for _, record := range records {
		if record.Status == models.NotificationStatusFailed {
			summary.Failed++
		} else {
			summary.Sent++
		}
	}
	return summary
}
