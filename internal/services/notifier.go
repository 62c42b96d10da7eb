package services

import (
	"context"
	"time"

	"ridelink/internal/models"
	"ridelink/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationSink receives committed ride transitions. Implementations
// live at the edges (websocket hub, push, SMS, Kafka); delivery failures
// never affect the state machine.
type NotificationSink interface {
	Name() string
	Publish(ctx context.Context, event models.RideEvent) error
}

const sinkPublishTimeout = 5 * time.Second

// Notifier fans a ride event out to every registered sink,
// fire-and-forget.
type Notifier struct {
	sinks  []NotificationSink
	logger *logger.Logger
}

func NewNotifier(log *logger.Logger, sinks ...NotificationSink) *Notifier {
	return &Notifier{sinks: sinks, logger: log}
}

// RideTransitioned emits the event for a committed transition. It must
// only be called after the status write has been accepted by the store.
func (n *Notifier) RideTransitioned(ride *models.Ride, previous models.RideStatus, actorID primitive.ObjectID) {
	event := models.RideEvent{
		RideID:         ride.ID,
		PreviousStatus: previous,
		NewStatus:      ride.Status,
		ActorID:        actorID,
		Timestamp:      time.Now(),
	}

	for _, sink := range n.sinks {
		go n.publish(sink, event)
	}
}

func (n *Notifier) publish(sink NotificationSink, event models.RideEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkPublishTimeout)
	defer cancel()

	if err := sink.Publish(ctx, event); err != nil {
		n.logger.WithError(err).WithFields(map[string]interface{}{
			"sink":    sink.Name(),
			"ride_id": event.RideID.Hex(),
			"to":      string(event.NewStatus),
		}).Warn("Failed to deliver ride event")
	}
}
