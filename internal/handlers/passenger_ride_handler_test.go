package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridelink/internal/models"
	"ridelink/pkg/logger"
)

// acceptCallRecorder satisfies services.MatchingService and records
// whether AcceptOffer was reached.
type acceptCallRecorder struct {
	accepted bool
}

func (r *acceptCallRecorder) ListAvailableRides(ctx context.Context, driver models.Actor) ([]*models.Ride, error) {
	return nil, nil
}

func (r *acceptCallRecorder) SubmitOffer(ctx context.Context, driver models.Actor, rideID primitive.ObjectID, amount float64) (*models.Offer, error) {
	return nil, nil
}

func (r *acceptCallRecorder) WithdrawOffer(ctx context.Context, driver models.Actor, rideID primitive.ObjectID) (*models.Ride, error) {
	return nil, nil
}

func (r *acceptCallRecorder) ListOffers(ctx context.Context, passenger models.Actor, rideID primitive.ObjectID) ([]*models.Offer, error) {
	return nil, nil
}

func (r *acceptCallRecorder) AcceptOffer(ctx context.Context, passenger models.Actor, rideID, offerID primitive.ObjectID) (*models.Ride, error) {
	r.accepted = true
	return &models.Ride{ID: rideID, Status: models.RideStatusAccepted}, nil
}

func (r *acceptCallRecorder) DeclineOffers(ctx context.Context, passenger models.Actor, rideID primitive.ObjectID) (*models.Ride, error) {
	return nil, nil
}

func acceptOfferRouter(t *testing.T, matching *acceptCallRecorder) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	handler := NewPassengerRideHandler(nil, matching, nil, log)

	router := gin.New()
	router.POST("/rides/:id/accept-offer", func(c *gin.Context) {
		c.Set("actor", models.Actor{ID: primitive.NewObjectID(), Role: models.RolePassenger})
		handler.AcceptOffer(c)
	})
	return router
}

func TestAcceptOfferRejectsMalformedOfferID(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not hex", `{"offer_id": "not-an-object-id"}`},
		{"short hex", `{"offer_id": "abc123"}`},
		{"missing", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matching := &acceptCallRecorder{}
			router := acceptOfferRouter(t, matching)

			req := httptest.NewRequest(http.MethodPost, "/rides/"+primitive.NewObjectID().Hex()+"/accept-offer", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if matching.accepted {
				t.Error("malformed offer id must not reach the matching service")
			}
		})
	}
}

func TestAcceptOfferPassesValidOfferID(t *testing.T) {
	matching := &acceptCallRecorder{}
	router := acceptOfferRouter(t, matching)

	body := `{"offer_id": "` + primitive.NewObjectID().Hex() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/rides/"+primitive.NewObjectID().Hex()+"/accept-offer", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !matching.accepted {
		t.Error("valid offer id should reach the matching service")
	}
}
