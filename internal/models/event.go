package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideEvent is emitted after every committed status transition. Delivery
// is fire-and-forget; the state machine never depends on it.
type RideEvent struct {
	RideID         primitive.ObjectID `json:"ride_id"`
	PreviousStatus RideStatus         `json:"previous_status"`
	NewStatus      RideStatus         `json:"new_status"`
	ActorID        primitive.ObjectID `json:"actor_id"`
	Timestamp      time.Time          `json:"timestamp"`
}
