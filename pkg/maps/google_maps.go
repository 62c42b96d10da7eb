package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"ridelink/internal/models"
)

type GoogleMapsProvider struct {
	client *maps.Client
}

func NewGoogleMapsProvider(apiKey string) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{client: client}, nil
}

func (g *GoogleMapsProvider) EstimateRoute(ctx context.Context, pickup models.Location, dropOffs []models.Location) (*RouteEstimate, error) {
	if len(dropOffs) == 0 {
		return nil, fmt.Errorf("at least one drop-off point required")
	}

	final := dropOffs[len(dropOffs)-1]
	req := &maps.DirectionsRequest{
		Origin:      latLng(pickup),
		Destination: latLng(final),
		Mode:        maps.TravelModeDriving,
	}
	for _, stop := range dropOffs[:len(dropOffs)-1] {
		req.Waypoints = append(req.Waypoints, latLng(stop))
	}

	routes, _, err := g.client.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("no route found")
	}

	estimate := &RouteEstimate{Polyline: routes[0].OverviewPolyline.Points}
	for _, leg := range routes[0].Legs {
		estimate.DistanceMeters += float64(leg.Distance.Meters)
		estimate.Duration += leg.Duration
	}
	return estimate, nil
}

func latLng(loc models.Location) string {
	return fmt.Sprintf("%f,%f", loc.Latitude(), loc.Longitude())
}
