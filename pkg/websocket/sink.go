package websocket

import (
	"context"
	"time"

	"ridelink/internal/models"
)

// EventSink pushes committed ride transitions onto the hub. New ride
// requests go to the drivers room so idle drivers see fresh work; every
// transition also goes to the ride room for anyone following it.
type EventSink struct {
	hub *Hub
}

func NewEventSink(hub *Hub) *EventSink {
	return &EventSink{hub: hub}
}

func (s *EventSink) Name() string { return "websocket" }

func (s *EventSink) Publish(_ context.Context, event models.RideEvent) error {
	message := Message{
		Type:      "ride_" + string(event.NewStatus),
		RoomID:    rideRoom(event.RideID),
		Timestamp: time.Now().Unix(),
		Data: map[string]interface{}{
			"ride_id":         event.RideID.Hex(),
			"previous_status": string(event.PreviousStatus),
			"new_status":      string(event.NewStatus),
		},
	}

	s.hub.SendToRide(event.RideID, message)
	if event.NewStatus == models.RideStatusPending {
		s.hub.SendToDrivers(message)
	}
	return nil
}
