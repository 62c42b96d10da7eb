package sms

import (
	"context"

	"ridelink/internal/models"
	"ridelink/internal/repositories/interfaces"
	"ridelink/pkg/logger"
)

// EventSink texts the passenger on the transitions that matter when the
// app is closed. Everything else stays on push and websocket.
type EventSink struct {
	provider SMSProvider
	phones   PhoneSource
	rideRepo interfaces.RideRepository
	logger   *logger.Logger
}

func NewEventSink(provider SMSProvider, phones PhoneSource, rideRepo interfaces.RideRepository, log *logger.Logger) *EventSink {
	return &EventSink{
		provider: provider,
		phones:   phones,
		rideRepo: rideRepo,
		logger:   log,
	}
}

func (s *EventSink) Name() string { return "sms" }

func (s *EventSink) Publish(ctx context.Context, event models.RideEvent) error {
	message := messageFor(event.NewStatus)
	if message == "" {
		return nil
	}

	ride, err := s.rideRepo.GetByID(ctx, event.RideID)
	if err != nil {
		return err
	}

	// Only the passenger gets texted, and never about their own action.
	if ride.PassengerID == event.ActorID {
		return nil
	}

	phone, err := s.phones.Phone(ctx, ride.PassengerID)
	if err != nil {
		return err
	}
	if phone == "" {
		return nil
	}

	_, err = s.provider.SendSMS(ctx, &SMSRequest{To: phone, Message: message})
	return err
}

func messageFor(status models.RideStatus) string {
	switch status {
	case models.RideStatusAccepted:
		return "Your ride is confirmed. Your driver is on the way."
	case models.RideStatusArrived:
		return "Your driver has arrived at the pickup point."
	case models.RideStatusCancelled:
		return "Your ride was cancelled. Open the app to request a new one."
	default:
		return ""
	}
}
