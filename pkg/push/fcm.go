package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMProvider struct {
	client *messaging.Client
}

func NewFCMProvider(credentialsFile string) (*FCMProvider, error) {
	ctx := context.Background()

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMProvider{client: client}, nil
}

func (f *FCMProvider) Send(ctx context.Context, notification *Notification) error {
	message := f.buildMessage(notification)
	message.Token = notification.Token

	_, err := f.client.Send(ctx, message)
	return err
}

func (f *FCMProvider) SendToTopic(ctx context.Context, topic string, notification *Notification) error {
	message := f.buildMessage(notification)
	message.Topic = topic

	_, err := f.client.Send(ctx, message)
	return err
}

func (f *FCMProvider) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	_, err := f.client.SubscribeToTopic(ctx, tokens, topic)
	return err
}

func (f *FCMProvider) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error {
	_, err := f.client.UnsubscribeFromTopic(ctx, tokens, topic)
	return err
}

func (f *FCMProvider) buildMessage(notification *Notification) *messaging.Message {
	message := &messaging.Message{
		Data: notification.Data,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
	}

	android := &messaging.AndroidNotification{
		Title: notification.Title,
		Body:  notification.Body,
		Sound: notification.Sound,
	}
	message.Android = &messaging.AndroidConfig{
		Priority:     notification.Priority,
		CollapseKey:  notification.CollapseKey,
		Notification: android,
	}

	return message
}
