package push

import (
	"context"
	"fmt"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/token"
)

type APNSProvider struct {
	client *apns2.Client
	topic  string
}

func NewAPNSProvider(keyFile, keyID, teamID, topic string, production bool) (*APNSProvider, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth key: %w", err)
	}

	tokenProvider := &token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	}

	client := apns2.NewTokenClient(tokenProvider)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSProvider{
		client: client,
		topic:  topic,
	}, nil
}

func (a *APNSProvider) Send(ctx context.Context, notification *Notification) error {
	apnsNotification := a.buildNotification(notification)

	response, err := a.client.PushWithContext(ctx, apnsNotification)
	if err != nil {
		return err
	}
	if !response.Sent() {
		return fmt.Errorf("APNS rejected notification: %s", response.Reason)
	}
	return nil
}

func (a *APNSProvider) buildNotification(notification *Notification) *apns2.Notification {
	aps := map[string]interface{}{
		"alert": map[string]interface{}{
			"title": notification.Title,
			"body":  notification.Body,
		},
	}
	if notification.Sound != "" {
		aps["sound"] = notification.Sound
	}
	if notification.Badge > 0 {
		aps["badge"] = notification.Badge
	}

	payload := map[string]interface{}{"aps": aps}
	for key, value := range notification.Data {
		payload[key] = value
	}

	result := &apns2.Notification{
		DeviceToken: notification.Token,
		Topic:       a.topic,
		Payload:     payload,
	}

	if notification.Priority == "high" {
		result.Priority = apns2.PriorityHigh
	} else {
		result.Priority = apns2.PriorityLow
	}
	if notification.TTLSeconds > 0 {
		result.Expiration = time.Now().Add(time.Duration(notification.TTLSeconds) * time.Second)
	}
	if notification.CollapseKey != "" {
		result.CollapseID = notification.CollapseKey
	}

	return result
}
