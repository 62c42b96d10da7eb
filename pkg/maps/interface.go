package maps

import (
	"context"
	"time"

	"ridelink/internal/models"
)

// RouteEstimator computes distance and duration for a pickup followed
// by up to three drop-off points, in order.
type RouteEstimator interface {
	EstimateRoute(ctx context.Context, pickup models.Location, dropOffs []models.Location) (*RouteEstimate, error)
}

type RouteEstimate struct {
	DistanceMeters float64       `json:"distance_meters"`
	Duration       time.Duration `json:"duration"`
	Polyline       string        `json:"polyline,omitempty"`
}
