package models

// Notification providers
const (
	ProviderTwilio     = "twilio"
	ProviderFirebase   = "firebase"
	ProviderSimulation = "simulation"
)

type SendSMSRequest struct {
	EmergencyID string `json:"emergencyId" validate:"required"`
	Message     string `json:"message,omitempty" validate:"omitempty,max=1600"`
}

type SendPushRequest struct {
	EmergencyID string `json:"emergencyId" validate:"required"`
	Title       string `json:"title,omitempty" validate:"omitempty,max=100"`
	Body        string `json:"body,omitempty" validate:"omitempty,max=500"`
}

// DispatchSummary reports a single fan-out round.
type DispatchSummary struct {
	Attempted int                  `json:"attempted"`
	Sent      int                  `json:"sent"`
	Failed    int                  `json:"failed"`
	Records   []NotificationRecord `json:"records"`
}

// NotificationStatus is the aggregation over a record's notification list.
type NotificationStatus struct {
	EmergencyID string               `json:"emergencyId"`
	Total       int                  `json:"total"`
	ByMethod    map[string]int       `json:"byMethod"`
	ByStatus    map[string]int       `json:"byStatus"`
	ByProvider  map[string]int       `json:"byProvider"`
	Records     []NotificationRecord `json:"notifications"`
}

// RetryOutcome is the result of one retried notification.
type RetryOutcome struct {
	NotificationID string `json:"notificationId"`
	Method         string `json:"method"`
	RetryCount     int    `json:"retryCount"`
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	MessageID      string `json:"messageId,omitempty"`
	Error          string `json:"error,omitempty"`
}

// RetrySummary reports one retry batch.
type RetrySummary struct {
	EmergencyID  string         `json:"emergencyId"`
	TotalRetried int            `json:"totalRetried"`
	Successful   int            `json:"successful"`
	StillFailed  int            `json:"stillFailed"`
	Outcomes     []RetryOutcome `json:"outcomes"`
}
