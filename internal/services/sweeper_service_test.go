package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"ridelink/internal/models"
	"ridelink/internal/utils"
)

func TestSweepExpiresStalePendingRides(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()

	ride, err := s.lifecycle.CreateRide(ctx, passenger(), autoRideRequest())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}

	now := ride.ExpiresAt.Add(time.Second)
	count, err := s.sweeper.SweepExpired(ctx, now)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if count != 1 {
		t.Fatalf("swept %d rides, want 1", count)
	}

	current, _ := s.rides.GetByID(ctx, ride.ID)
	if current.Status != models.RideStatusExpired {
		t.Errorf("status = %s, want expired", current.Status)
	}

	// Second pass with the same clock is a no-op.
	count, err = s.sweeper.SweepExpired(ctx, now)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if count != 0 {
		t.Errorf("second sweep moved %d rides, want 0", count)
	}
}

func TestSweepSkipsFreshAndOfferedRides(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	p := passenger()

	fresh, err := s.lifecycle.CreateRide(ctx, p, autoRideRequest())
	if err != nil {
		t.Fatalf("CreateRide fresh: %v", err)
	}

	bidded, err := s.lifecycle.CreateRide(ctx, p, autoRideRequest())
	if err != nil {
		t.Fatalf("CreateRide bidded: %v", err)
	}
	if _, err := s.matching.SubmitOffer(ctx, driver(models.VehicleTypeAuto), bidded.ID, 170); err != nil {
		t.Fatalf("SubmitOffer: %v", err)
	}

	// Past both deadlines: the offered ride is out of the sweeper's
	// jurisdiction, the fresh pending one is not.
	count, err := s.sweeper.SweepExpired(ctx, fresh.ExpiresAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if count != 1 {
		t.Errorf("swept %d rides, want only the pending one", count)
	}

	current, _ := s.rides.GetByID(ctx, bidded.ID)
	if current.Status != models.RideStatusOffered {
		t.Errorf("offered ride became %s, sweeper must leave it alone", current.Status)
	}
}

func TestOfferAfterExpiryFails(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()

	ride, err := s.lifecycle.CreateRide(ctx, passenger(), autoRideRequest())
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	if _, err := s.sweeper.SweepExpired(ctx, ride.ExpiresAt.Add(time.Second)); err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}

	_, err = s.matching.SubmitOffer(ctx, driver(models.VehicleTypeAuto), ride.ID, 170)
	if !utils.IsCode(err, utils.CodeInvalidState) {
		t.Errorf("err = %v, want InvalidState against an expired ride", err)
	}
}

// TestSweepOfferRace runs the sweep concurrently with offer submission.
// Either side may win, but the outcome must be coherent: an expired ride
// carries no offers, an offered ride carries exactly one.
func TestSweepOfferRace(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		s := newTestStack()
		d := driver(models.VehicleTypeAuto)

		req := autoRideRequest()
		ride, err := s.lifecycle.CreateRide(ctx, passenger(), req)
		if err != nil {
			t.Fatalf("CreateRide: %v", err)
		}
		deadline := ride.ExpiresAt

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.sweeper.SweepExpired(ctx, deadline.Add(time.Second))
		}()
		go func() {
			defer wg.Done()
			_, _ = s.matching.SubmitOffer(ctx, d, ride.ID, 170)
		}()
		wg.Wait()

		current, _ := s.rides.GetByID(ctx, ride.ID)
		count, _ := s.offers.CountByRide(ctx, ride.ID)

		switch current.Status {
		case models.RideStatusExpired:
			if count != 0 {
				t.Fatalf("iteration %d: expired ride still has %d offers", i, count)
			}
		case models.RideStatusOffered:
			if count != 1 {
				t.Fatalf("iteration %d: offered ride has %d offers, want 1", i, count)
			}
		case models.RideStatusPending:
			// Offer failed its expiry precheck before the sweep
			// committed; the next sweep will retire the ride.
			if count != 0 {
				t.Fatalf("iteration %d: pending ride has %d offers", i, count)
			}
		default:
			t.Fatalf("iteration %d: unexpected status %s", i, current.Status)
		}
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	s := newTestStack()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.sweeper.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
