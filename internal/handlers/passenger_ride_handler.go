package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridelink/internal/middleware"
	"ridelink/internal/models"
	"ridelink/internal/services"
	"ridelink/internal/utils"
	"ridelink/internal/validators"
	"ridelink/pkg/logger"
)

// FareSuggester prices a route when the passenger leaves the fare
// blank. Nil means no pricing backend is configured.
type FareSuggester interface {
	SuggestFare(ctx context.Context, vehicleType models.VehicleType, pickup models.Location, dropOffs []models.Location) (float64, error)
}

// PassengerRideHandler exposes the passenger side of the ride lifecycle:
// requesting rides, reviewing offers, confirming, cancelling, reviewing.
type PassengerRideHandler struct {
	lifecycle services.LifecycleService
	matching  services.MatchingService
	fares     FareSuggester
	logger    *logger.Logger
}

func NewPassengerRideHandler(lifecycle services.LifecycleService, matching services.MatchingService, fares FareSuggester, logger *logger.Logger) *PassengerRideHandler {
	return &PassengerRideHandler{
		lifecycle: lifecycle,
		matching:  matching,
		fares:     fares,
		logger:    logger,
	}
}

// CreateRide handles POST /api/v1/passenger/rides
func (h *PassengerRideHandler) CreateRide(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, string(utils.CodeUnauthorized), "Authentication required")
		return
	}

	var req validators.CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, string(utils.CodeInvalidInput), "Invalid request body")
		return
	}
	if errs := validators.ValidateStruct(req); errs != nil {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	rideReq := req.ToRideRequest(actor.ID)
	if rideReq.FareAmount == 0 && h.fares != nil {
		suggested, err := h.fares.SuggestFare(c.Request.Context(), rideReq.VehicleType, rideReq.PickUpLocation, rideReq.DropOffLocations)
		if err != nil {
			h.logger.WithError(err).Debug("Fare suggestion unavailable")
		} else {
			rideReq.SuggestedFare = &suggested
		}
	}

	ride, err := h.lifecycle.CreateRide(c.Request.Context(), actor, &rideReq)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.logger.WithRideID(ride.ID).WithActorID(actor.ID).Info("Ride requested")
	utils.CreatedResponse(c, "Ride requested successfully", ride)
}

// GetRide handles GET /api/v1/passenger/rides/:id
func (h *PassengerRideHandler) GetRide(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	ride, err := h.lifecycle.GetRide(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Ride retrieved successfully", ride)
}

// ListActiveRides handles GET /api/v1/passenger/rides/active
func (h *PassengerRideHandler) ListActiveRides(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, string(utils.CodeUnauthorized), "Authentication required")
		return
	}

	rides, err := h.lifecycle.ListActiveRides(c.Request.Context(), actor)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Active rides retrieved successfully", rides, &utils.Meta{Count: len(rides)})
}

// History handles GET /api/v1/passenger/rides/history
func (h *PassengerRideHandler) History(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, string(utils.CodeUnauthorized), "Authentication required")
		return
	}

	params := utils.GetPaginationParams(c)
	rides, total, err := h.lifecycle.PassengerHistory(c.Request.Context(), actor, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Ride history retrieved successfully", rides, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
		Count:      len(rides),
	})
}

// ListOffers handles GET /api/v1/passenger/rides/:id/offers
func (h *PassengerRideHandler) ListOffers(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	offers, err := h.matching.ListOffers(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Offers retrieved successfully", offers, &utils.Meta{Count: len(offers)})
}

// AcceptOffer handles POST /api/v1/passenger/rides/:id/accept-offer
func (h *PassengerRideHandler) AcceptOffer(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	var req validators.AcceptOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, string(utils.CodeInvalidInput), "Invalid request body")
		return
	}
	if errs := validators.ValidateStruct(req); errs != nil {
		utils.ValidationErrorResponse(c, errs)
		return
	}
	offerID, err := primitive.ObjectIDFromHex(req.OfferID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, string(utils.CodeInvalidInput), "Invalid offer id")
		return
	}

	ride, err := h.matching.AcceptOffer(c.Request.Context(), actor, rideID, offerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.logger.WithRideID(rideID).WithActorID(actor.ID).Info("Offer accepted")
	utils.SuccessResponse(c, "Offer accepted successfully", ride)
}

// DeclineOffers handles POST /api/v1/passenger/rides/:id/decline
func (h *PassengerRideHandler) DeclineOffers(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	ride, err := h.matching.DeclineOffers(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Offers declined successfully", ride)
}

// ConfirmComing handles POST /api/v1/passenger/rides/:id/confirm-coming
func (h *PassengerRideHandler) ConfirmComing(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	var req validators.ConfirmComingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, string(utils.CodeInvalidInput), "Invalid request body")
		return
	}
	if errs := validators.ValidateStruct(req); errs != nil {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	ride, err := h.lifecycle.ConfirmComing(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Confirmation recorded", ride)
}

// CancelRide handles POST /api/v1/passenger/rides/:id/cancel
func (h *PassengerRideHandler) CancelRide(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	ride, err := h.lifecycle.CancelRide(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.logger.WithRideID(rideID).WithActorID(actor.ID).Info("Ride cancelled by passenger")
	utils.SuccessResponse(c, "Ride cancelled successfully", ride)
}

// AttachReview handles POST /api/v1/passenger/rides/:id/review
func (h *PassengerRideHandler) AttachReview(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	var req validators.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, string(utils.CodeInvalidInput), "Invalid request body")
		return
	}
	if errs := validators.ValidateStruct(req); errs != nil {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	ride, err := h.lifecycle.AttachReview(c.Request.Context(), actor, rideID, req.Rating, req.Comment)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Review submitted successfully", ride)
}

func (h *PassengerRideHandler) actorAndRideID(c *gin.Context) (models.Actor, primitive.ObjectID, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, string(utils.CodeUnauthorized), "Authentication required")
		return models.Actor{}, primitive.NilObjectID, false
	}
	rideID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, string(utils.CodeInvalidInput), "Invalid ride ID")
		return models.Actor{}, primitive.NilObjectID, false
	}
	return actor, rideID, true
}
