package services

import (
	"context"
	"testing"
	"time"

	"ridelink/internal/models"
	"ridelink/internal/utils"
	"ridelink/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testStack struct {
	rides     *fakeRideRepo
	offers    *fakeOfferRepo
	sink      *chanSink
	lifecycle LifecycleService
	matching  MatchingService
	sweeper   SweeperService
}

func newTestStack() *testStack {
	rides := newFakeRideRepo()
	offers := newFakeOfferRepo()
	sink := newChanSink()
	log := logger.NewNopLogger()
	notifier := NewNotifier(log, sink)

	return &testStack{
		rides:     rides,
		offers:    offers,
		sink:      sink,
		lifecycle: NewLifecycleService(rides, offers, notifier, log),
		matching:  NewMatchingService(rides, offers, notifier, log),
		sweeper:   NewSweeperService(rides, notifier, log),
	}
}

func passenger() models.Actor {
	return models.Actor{ID: primitive.NewObjectID(), Role: models.RolePassenger}
}

func driver(vt models.VehicleType) models.Actor {
	return models.Actor{ID: primitive.NewObjectID(), Role: models.RoleDriver, VehicleType: vt}
}

func autoRideRequest() *models.RideRequest {
	return &models.RideRequest{
		PickUpLocation:   models.NewPoint(90.4125, 23.8103),
		DropOffLocations: []models.Location{models.NewPoint(90.3563, 23.7850)},
		VehicleType:      models.VehicleTypeAuto,
		FareAmount:       150,
	}
}

// matchedRide drives a fresh ride to accepted and returns it with the
// actors involved.
func matchedRide(t *testing.T, s *testStack) (*models.Ride, models.Actor, models.Actor) {
	t.Helper()
	ctx := context.Background()

	p := passenger()
	d := driver(models.VehicleTypeAuto)

	ride, err := s.lifecycle.CreateRide(ctx, p, autoRideRequest())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	offer, err := s.matching.SubmitOffer(ctx, d, ride.ID, 180)
	if err != nil {
		t.Fatalf("SubmitOffer: %v", err)
	}
	ride, err = s.matching.AcceptOffer(ctx, p, ride.ID, offer.ID)
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	return ride, p, d
}

func TestCreateRideDefaults(t *testing.T) {
	s := newTestStack()
	p := passenger()

	ride, err := s.lifecycle.CreateRide(context.Background(), p, autoRideRequest())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	if ride.Status != models.RideStatusPending {
		t.Errorf("status = %s, want pending", ride.Status)
	}
	if ride.PassengerID != p.ID {
		t.Errorf("passenger id not set")
	}
	if ride.DriverID != nil {
		t.Errorf("driver id must be unset at creation")
	}

	ttl := time.Until(ride.ExpiresAt)
	if ttl < 4*time.Minute || ttl > 6*time.Minute {
		t.Errorf("expiry %v not near the 5 minute default", ttl)
	}
}

func TestCreateRideValidation(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	p := passenger()
	adminID := primitive.NewObjectID()

	cases := []struct {
		name string
		mut  func(*models.RideRequest)
	}{
		{"tourbus without group", func(r *models.RideRequest) {
			r.VehicleType = models.VehicleTypeTourbus
		}},
		{"unknown vehicle type", func(r *models.RideRequest) {
			r.VehicleType = "helicopter"
		}},
		{"no drop-offs", func(r *models.RideRequest) {
			r.DropOffLocations = nil
		}},
		{"too many drop-offs", func(r *models.RideRequest) {
			r.DropOffLocations = []models.Location{
				models.NewPoint(1, 1), models.NewPoint(2, 2),
				models.NewPoint(3, 3), models.NewPoint(4, 4),
			}
		}},
		{"bad pickup point", func(r *models.RideRequest) {
			r.PickUpLocation = models.Location{Type: "Point", Coordinates: []float64{200, 95}}
		}},
		{"negative fare", func(r *models.RideRequest) {
			r.FareAmount = -5
		}},
		{"group ride without admin", func(r *models.RideRequest) {
			r.IsGroupRide = true
			r.GroupAdminID = nil
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := autoRideRequest()
			tc.mut(req)
			_, err := s.lifecycle.CreateRide(ctx, p, req)
			if !utils.IsCode(err, utils.CodeInvalidInput) {
				t.Errorf("err = %v, want InvalidInput", err)
			}
		})
	}

	// The group form of the same request is fine.
	req := autoRideRequest()
	req.VehicleType = models.VehicleTypeTourbus
	req.IsGroupRide = true
	req.GroupAdminID = &adminID
	if _, err := s.lifecycle.CreateRide(ctx, p, req); err != nil {
		t.Errorf("valid group ride rejected: %v", err)
	}
}

func TestCreateRideRejectsForeignPassengerID(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	p := passenger()

	req := autoRideRequest()
	req.PassengerID = primitive.NewObjectID()
	if _, err := s.lifecycle.CreateRide(ctx, p, req); !utils.IsCode(err, utils.CodeUnauthorized) {
		t.Fatalf("foreign passenger id: got %v, want unauthorized", err)
	}

	req = autoRideRequest()
	req.PassengerID = p.ID
	ride, err := s.lifecycle.CreateRide(ctx, p, req)
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	if ride.PassengerID != p.ID {
		t.Errorf("passenger id = %s, want %s", ride.PassengerID.Hex(), p.ID.Hex())
	}
}

func TestCreateRideUsesSuggestedFare(t *testing.T) {
	s := newTestStack()
	suggested := 220.0

	req := autoRideRequest()
	req.FareAmount = 0
	req.SuggestedFare = &suggested

	ride, err := s.lifecycle.CreateRide(context.Background(), passenger(), req)
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	if ride.FareAmount != suggested {
		t.Errorf("fare = %v, want suggested %v", ride.FareAmount, suggested)
	}
}

func TestFullLifecycle(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	ride, p, d := matchedRide(t, s)

	if ride.Status != models.RideStatusAccepted {
		t.Fatalf("status = %s, want accepted", ride.Status)
	}
	if ride.DriverID == nil || *ride.DriverID != d.ID {
		t.Fatalf("driver not assigned after accept")
	}
	if ride.FareAmountDriver == nil || *ride.FareAmountDriver != 180 {
		t.Fatalf("driver fare not recorded")
	}

	ride, err := s.lifecycle.ReportArrival(ctx, d, ride.ID)
	if err != nil {
		t.Fatalf("ReportArrival: %v", err)
	}
	if ride.Status != models.RideStatusArrived {
		t.Fatalf("status = %s, want arrived", ride.Status)
	}

	ride, err = s.lifecycle.ConfirmComing(ctx, p, ride.ID)
	if err != nil {
		t.Fatalf("ConfirmComing: %v", err)
	}
	if ride.PassengerConfirmation != models.PassengerComing {
		t.Fatalf("confirmation = %q, want %q", ride.PassengerConfirmation, models.PassengerComing)
	}

	ride, err = s.lifecycle.StartRide(ctx, d, ride.ID)
	if err != nil {
		t.Fatalf("StartRide: %v", err)
	}

	ride, err = s.lifecycle.CompleteRide(ctx, d, ride.ID)
	if err != nil {
		t.Fatalf("CompleteRide: %v", err)
	}
	if ride.Status != models.RideStatusCompleted {
		t.Fatalf("status = %s, want completed", ride.Status)
	}

	ride, err = s.lifecycle.AttachReview(ctx, p, ride.ID, 5, "smooth trip")
	if err != nil {
		t.Fatalf("AttachReview: %v", err)
	}
	if ride.Review == nil || ride.Review.Rating != 5 {
		t.Fatalf("review not recorded")
	}
}

func TestStartRequiresPassengerConfirmation(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	ride, _, d := matchedRide(t, s)

	if _, err := s.lifecycle.ReportArrival(ctx, d, ride.ID); err != nil {
		t.Fatalf("ReportArrival: %v", err)
	}

	_, err := s.lifecycle.StartRide(ctx, d, ride.ID)
	if !utils.IsCode(err, utils.CodeInvalidState) {
		t.Errorf("err = %v, want InvalidState before confirmation", err)
	}
}

func TestArrivalAuthorization(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	ride, _, _ := matchedRide(t, s)

	stranger := driver(models.VehicleTypeAuto)
	_, err := s.lifecycle.ReportArrival(ctx, stranger, ride.ID)
	if !utils.IsCode(err, utils.CodeUnauthorized) {
		t.Errorf("err = %v, want Unauthorized for unassigned driver", err)
	}
}

func TestDriverCancelClearsAssignment(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	ride, _, d := matchedRide(t, s)

	ride, err := s.lifecycle.CancelRide(ctx, d, ride.ID)
	if err != nil {
		t.Fatalf("CancelRide: %v", err)
	}
	if ride.Status != models.RideStatusCancelled {
		t.Errorf("status = %s, want cancelled", ride.Status)
	}
	if ride.DriverID != nil {
		t.Errorf("driver id must be cleared on driver-side cancel")
	}
	if ride.CancelledBy != models.CancelledByDriver {
		t.Errorf("cancelled_by = %q, want driver", ride.CancelledBy)
	}
}

func TestPassengerCancelKeepsDriverOnRecord(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	ride, p, d := matchedRide(t, s)

	if _, err := s.lifecycle.ReportArrival(ctx, d, ride.ID); err != nil {
		t.Fatalf("ReportArrival: %v", err)
	}
	if _, err := s.lifecycle.ConfirmComing(ctx, p, ride.ID); err != nil {
		t.Fatalf("ConfirmComing: %v", err)
	}
	if _, err := s.lifecycle.StartRide(ctx, d, ride.ID); err != nil {
		t.Fatalf("StartRide: %v", err)
	}

	ride, err := s.lifecycle.CancelRide(ctx, p, ride.ID)
	if err != nil {
		t.Fatalf("CancelRide from started: %v", err)
	}
	if ride.DriverID == nil || *ride.DriverID != d.ID {
		t.Errorf("passenger-side cancel must keep the driver on record")
	}
	if ride.CancelledBy != models.CancelledByPassenger {
		t.Errorf("cancelled_by = %q, want passenger", ride.CancelledBy)
	}
}

func TestDriverCannotCancelStartedRide(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	ride, p, d := matchedRide(t, s)

	if _, err := s.lifecycle.ReportArrival(ctx, d, ride.ID); err != nil {
		t.Fatalf("ReportArrival: %v", err)
	}
	if _, err := s.lifecycle.ConfirmComing(ctx, p, ride.ID); err != nil {
		t.Fatalf("ConfirmComing: %v", err)
	}
	if _, err := s.lifecycle.StartRide(ctx, d, ride.ID); err != nil {
		t.Fatalf("StartRide: %v", err)
	}

	_, err := s.lifecycle.CancelRide(ctx, d, ride.ID)
	if !utils.IsCode(err, utils.CodeInvalidState) {
		t.Errorf("err = %v, want InvalidState for driver cancel after start", err)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	ride, p, d := matchedRide(t, s)

	if _, err := s.lifecycle.ReportArrival(ctx, d, ride.ID); err != nil {
		t.Fatalf("ReportArrival: %v", err)
	}
	if _, err := s.lifecycle.ConfirmComing(ctx, p, ride.ID); err != nil {
		t.Fatalf("ConfirmComing: %v", err)
	}
	if _, err := s.lifecycle.StartRide(ctx, d, ride.ID); err != nil {
		t.Fatalf("StartRide: %v", err)
	}
	if _, err := s.lifecycle.CompleteRide(ctx, d, ride.ID); err != nil {
		t.Fatalf("CompleteRide: %v", err)
	}

	if _, err := s.lifecycle.CancelRide(ctx, p, ride.ID); !utils.IsCode(err, utils.CodeInvalidState) {
		t.Errorf("cancel after complete: err = %v, want InvalidState", err)
	}
	if _, err := s.lifecycle.ReportArrival(ctx, d, ride.ID); !utils.IsCode(err, utils.CodeInvalidState) {
		t.Errorf("arrival after complete: err = %v, want InvalidState", err)
	}
	if _, err := s.lifecycle.CompleteRide(ctx, d, ride.ID); !utils.IsCode(err, utils.CodeInvalidState) {
		t.Errorf("double complete: err = %v, want InvalidState", err)
	}
}

func TestAttachReviewValidation(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	ride, p, _ := matchedRide(t, s)

	if _, err := s.lifecycle.AttachReview(ctx, p, ride.ID, 0, ""); !utils.IsCode(err, utils.CodeInvalidInput) {
		t.Errorf("rating 0: err = %v, want InvalidInput", err)
	}
	if _, err := s.lifecycle.AttachReview(ctx, p, ride.ID, 6, ""); !utils.IsCode(err, utils.CodeInvalidInput) {
		t.Errorf("rating 6: err = %v, want InvalidInput", err)
	}
	// Ride is only accepted, not completed.
	if _, err := s.lifecycle.AttachReview(ctx, p, ride.ID, 4, "nice"); !utils.IsCode(err, utils.CodeInvalidState) {
		t.Errorf("review before completion: err = %v, want InvalidState", err)
	}
}

func TestTransitionEventsEmitted(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()

	p := passenger()
	ride, err := s.lifecycle.CreateRide(ctx, p, autoRideRequest())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}

	event, ok := s.sink.wait(time.Second)
	if !ok {
		t.Fatal("no event after creation")
	}
	if event.RideID != ride.ID || event.NewStatus != models.RideStatusPending {
		t.Errorf("creation event = %+v", event)
	}

	d := driver(models.VehicleTypeAuto)
	if _, err := s.matching.SubmitOffer(ctx, d, ride.ID, 160); err != nil {
		t.Fatalf("SubmitOffer: %v", err)
	}

	event, ok = s.sink.wait(time.Second)
	if !ok {
		t.Fatal("no event after first offer")
	}
	if event.PreviousStatus != models.RideStatusPending || event.NewStatus != models.RideStatusOffered {
		t.Errorf("offer event = %+v, want pending->offered", event)
	}
	if event.ActorID != d.ID {
		t.Errorf("offer event actor = %s, want driver", event.ActorID.Hex())
	}
}
