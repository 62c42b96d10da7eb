package push

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"

	// DriversTopic is the FCM topic every driver app subscribes to for
	// fresh ride requests.
	DriversTopic = "drivers"
)

// Provider delivers a notification to a single device.
type Provider interface {
	Send(ctx context.Context, notification *Notification) error
}

// TopicProvider additionally supports fan-out by topic. Only FCM does.
type TopicProvider interface {
	Provider
	SendToTopic(ctx context.Context, topic string, notification *Notification) error
}

type Notification struct {
	Token       string            `json:"token,omitempty"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Sound       string            `json:"sound,omitempty"`
	Badge       int               `json:"badge,omitempty"`
	Priority    string            `json:"priority,omitempty"`
	TTLSeconds  int               `json:"ttl_seconds,omitempty"`
	CollapseKey string            `json:"collapse_key,omitempty"`
}

// DeviceToken is one registered device for a user. The identity service
// maintains registrations; this package only reads them.
type DeviceToken struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// TokenSource resolves a user's registered devices.
type TokenSource interface {
	Tokens(ctx context.Context, userID primitive.ObjectID) ([]DeviceToken, error)
}
