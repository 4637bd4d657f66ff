package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"aegis/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// PushSender sends one push notification to a device token.
type PushSender interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) SendResult
}

const pushSendTimeout = 10 * time.Second

// PushService delivers via Firebase Cloud Messaging when credentials are
// configured and push is explicitly enabled, and via the simulation adapter
// otherwise.
type PushService struct {
	fcmClient *messaging.Client
	enabled   bool
}

func NewPushService(ctx context.Context, credentialsFile string, enabled bool) *PushService {
	service := &PushService{}

	if !enabled || credentialsFile == "" {
		logrus.Info("Push service running in simulation mode")
		return service
	}

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		logrus.Warnf("Failed to initialize Firebase, falling back to simulation: %v", err)
		return service
	}

	fcmClient, err := app.Messaging(ctx)
	if err != nil {
		logrus.Warnf("Failed to initialize FCM client, falling back to simulation: %v", err)
		return service
	}

	service.fcmClient = fcmClient
	service.enabled = true
	logrus.Info("Push service initialized with Firebase provider")

	return service
}

func (ps *PushService) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) SendResult {
	if !ps.enabled {
		return simulatePush()
	}

	ctx, cancel := context.WithTimeout(ctx, pushSendTimeout)
	defer cancel()

	message := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "emergency",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "emergency",
				},
			},
		},
	}

	response, err := ps.fcmClient.Send(ctx, message)
	if err != nil {
		return SendResult{
			Success:   false,
			MessageID: fmt.Sprintf("failed_%d", time.Now().UnixMilli()),
			Provider:  models.ProviderFirebase,
			Status:    models.NotificationStatusFailed,
			Error:     err.Error(),
		}
	}

	return SendResult{
		Success:   true,
		MessageID: response,
		Provider:  models.ProviderFirebase,
		Status:    models.NotificationStatusSent,
	}
}

func simulatePush() SendResult {
	if rand.Float64() > 0.15 {
		return SendResult{
			Success:   true,
			MessageID: fmt.Sprintf("push_%d_%09d", time.Now().UnixMilli(), rand.Intn(1e9)),
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
