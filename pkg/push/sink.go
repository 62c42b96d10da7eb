package push

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridelink/internal/models"
	"ridelink/internal/repositories/interfaces"
	"ridelink/pkg/logger"
)

// EventSink turns committed ride transitions into device pushes. New
// requests fan out to the drivers topic; every other transition goes to
// the ride parties that did not perform it.
type EventSink struct {
	fcm      TopicProvider
	apns     Provider
	tokens   TokenSource
	rideRepo interfaces.RideRepository
	logger   *logger.Logger
}

func NewEventSink(fcm TopicProvider, apns Provider, tokens TokenSource, rideRepo interfaces.RideRepository, log *logger.Logger) *EventSink {
	return &EventSink{
		fcm:      fcm,
		apns:     apns,
		tokens:   tokens,
		rideRepo: rideRepo,
		logger:   log,
	}
}

func (s *EventSink) Name() string { return "push" }

func (s *EventSink) Publish(ctx context.Context, event models.RideEvent) error {
	notification := notificationFor(event)
	if notification == nil {
		return nil
	}

	if event.NewStatus == models.RideStatusPending {
		return s.fcm.SendToTopic(ctx, DriversTopic, notification)
	}

	ride, err := s.rideRepo.GetByID(ctx, event.RideID)
	if err != nil {
		return err
	}

	for _, userID := range recipients(ride, event.ActorID) {
		if err := s.sendToUser(ctx, userID, notification); err != nil {
			s.logger.WithError(err).WithActorID(userID).Debug("Push delivery failed")
		}
	}
	return nil
}

func (s *EventSink) sendToUser(ctx context.Context, userID primitive.ObjectID, notification *Notification) error {
	tokens, err := s.tokens.Tokens(ctx, userID)
	if err != nil {
		return err
	}

	for _, device := range tokens {
		perDevice := *notification
		perDevice.Token = device.Token

		var sendErr error
		switch device.Platform {
		case PlatformIOS:
			sendErr = s.apns.Send(ctx, &perDevice)
		default:
			sendErr = s.fcm.Send(ctx, &perDevice)
		}
		if sendErr != nil {
			err = sendErr
		}
	}
	return err
}

// recipients lists the ride parties excluding whoever caused the
// transition. Sweeper events carry a nil actor, so both sides hear.
func recipients(ride *models.Ride, actorID primitive.ObjectID) []primitive.ObjectID {
	var out []primitive.ObjectID
	if ride.PassengerID != actorID {
		out = append(out, ride.PassengerID)
	}
	if ride.DriverID != nil && *ride.DriverID != actorID {
		out = append(out, *ride.DriverID)
	}
	return out
}

func notificationFor(event models.RideEvent) *Notification {
	data := map[string]string{
		"ride_id": event.RideID.Hex(),
		"status":  string(event.NewStatus),
	}

	switch event.NewStatus {
	case models.RideStatusPending:
		return &Notification{
			Title:      "New ride request",
			Body:       "A new ride is open for offers",
			Data:       data,
			Priority:   "high",
			TTLSeconds: 300,
		}
	case models.RideStatusOffered:
		return &Notification{Title: "New offer", Body: "A driver has made an offer on your ride", Data: data, Priority: "high"}
	case models.RideStatusAccepted:
		return &Notification{Title: "Ride confirmed", Body: "Your offer was accepted", Data: data, Priority: "high"}
	case models.RideStatusArrived:
		return &Notification{Title: "Driver arrived", Body: "Your driver is waiting at the pickup point", Data: data, Priority: "high"}
	case models.RideStatusStarted:
		return &Notification{Title: "Ride started", Body: "Your ride is underway", Data: data}
	case models.RideStatusCompleted:
		return &Notification{Title: "Ride completed", Body: "Thanks for riding with us", Data: data}
	case models.RideStatusCancelled:
		return &Notification{Title: "Ride cancelled", Body: "The ride has been cancelled", Data: data, Priority: "high"}
	case models.RideStatusExpired:
		return &Notification{Title: "Request expired", Body: "Your ride request expired without a match", Data: data}
	default:
		return nil
	}
}
