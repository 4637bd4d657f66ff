package services

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"aegis/models"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SendResult is the outcome of one provider send attempt.
type SendResult struct {
	Success   bool
	MessageID string
	Provider  string
	Status    string
	Error     string
}

// SMSSender sends one SMS message. Implemented by the Twilio adapter and
// the simulation adapter; fakes implement it in tests.
type SMSSender interface {
	Send(ctx context.Context, to, message string) SendResult
}

const smsSendTimeout = 10 * time.Second

// SMSService sends through Twilio when credentials are configured and SMS
// is explicitly enabled, and through the simulation adapter otherwise. The
// simulation is for local development and tests, never a stand-in for a
// configured real provider.
type SMSService struct {
	client     *twilio.RestClient
	fromNumber string
	enabled    bool
}

func NewSMSService(accountSID, authToken, fromNumber string, enabled bool) *SMSService {
	service := &SMSService{
		fromNumber: fromNumber,
		enabled:    enabled && accountSID != "" && authToken != "",
	}

	if service.enabled {
		service.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		})
		logrus.Info("SMS service initialized with Twilio provider")
	} else {
		logrus.Info("SMS service running in simulation mode")
	}

	return service
}

func (ss *SMSService) Send(ctx context.Context, to, message string) SendResult {
	if !ss.enabled {
		return simulateSMS()
	}

	ctx, cancel := context.WithTimeout(ctx, smsSendTimeout)
	defer cancel()

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(FormatPhoneNumber(to))
	params.SetFrom(ss.fromNumber)
	params.SetBody(message)

	done := make(chan SendResult, 1)
	go func() {
		resp, err := ss.client.Api.CreateMessage(params)
		if err != nil {
			done <- SendResult{
				Success:   false,
				MessageID: fmt.Sprintf("failed_%d", time.Now().UnixMilli()),
				Provider:  models.ProviderTwilio,
				Status:    models.NotificationStatusFailed,
				Error:     err.Error(),
			}
			return
		}
		done <- SendResult{
			Success:   true,
			MessageID: *resp.Sid,
			Provider:  models.ProviderTwilio,
			Status:    models.NotificationStatusSent,
		}
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		return SendResult{
			Success:   false,
			MessageID: fmt.Sprintf("failed_%d", time.Now().UnixMilli()),
			Provider:  models.ProviderTwilio,
			Status:    models.NotificationStatusFailed,
			Error:     ctx.Err().Error(),
		}
	}
}

func simulateSMS() SendResult {
	if rand.Float64() > 0.1 {
		return SendResult{
			Success:   true,
			MessageID: fmt.Sprintf("sms_%d_%09d", time.Now().UnixMilli(), rand.Intn(1e9)),
			Provider:  models.ProviderSimulation,
			Status:    models.NotificationStatusDelivered,
		}
	}
	return SendResult{
		Success:   false,
		MessageID: fmt.Sprintf("failed_%d", time.Now().UnixMilli()),
		Provider:  models.ProviderSimulation,
		Status:    models.NotificationStatusFailed,
		Error:     "simulated delivery failure",
	}
}

var nonDigitPattern = regexp.MustCompile(`[^\d+]`)

// FormatPhoneNumber normalizes a phone number to E.164-ish form. Numbers
// without a country code get a leading +1.
func FormatPhoneNumber(phone string) string {
	cleaned := nonDigitPattern.ReplaceAllString(phone, "")

	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if len(cleaned) == 10 {
		return "+1" + cleaned
	}
	return "+" + cleaned
}
