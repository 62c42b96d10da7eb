package handlers

import (
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

// DriverRideHandler exposes the driver side: browsing open requests,
// bidding, and moving a matched ride through arrival to completion.
type DriverRideHandler struct {
	lifecycle services.LifecycleService
	matching  services.MatchingService
	logger    *logger.Logger
}

func NewDriverRideHandler(lifecycle services.LifecycleService, matching services.MatchingService, logger *logger.Logger) *DriverRideHandler {
	return &DriverRideHandler{
		lifecycle: lifecycle,
		matching:  matching,
		logger:    logger,
	}
}

// ListAvailableRides handles GET /api/v1/driver/rides/available
func (h *DriverRideHandler) ListAvailableRides(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, string(utils.CodeUnauthorized), "Authentication required")
		return
	}

	rides, err := h.matching.ListAvailableRides(c.Request.Context(), actor)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Available rides retrieved successfully", rides, &utils.Meta{Count: len(rides)})
}

// SubmitOffer handles POST /api/v1/driver/rides/:id/offer
func (h *DriverRideHandler) SubmitOffer(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	var req validators.SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, string(utils.CodeInvalidInput), "Invalid request body")
		return
	}
	if errs := validators.ValidateStruct(req); errs != nil {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	offer, err := h.matching.SubmitOffer(c.Request.Context(), actor, rideID, req.Amount)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.logger.WithRideID(rideID).WithActorID(actor.ID).Info("Offer submitted")
	utils.CreatedResponse(c, "Offer submitted successfully", offer)
}

// WithdrawOffer handles POST /api/v1/driver/rides/:id/withdraw
func (h *DriverRideHandler) WithdrawOffer(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	ride, err := h.matching.WithdrawOffer(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Offer withdrawn successfully", ride)
}

// ReportArrival handles POST /api/v1/driver/rides/:id/arrived
func (h *DriverRideHandler) ReportArrival(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	ride, err := h.lifecycle.ReportArrival(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Arrival reported successfully", ride)
}

// StartRide handles POST /api/v1/driver/rides/:id/start
func (h *DriverRideHandler) StartRide(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	ride, err := h.lifecycle.StartRide(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.logger.WithRideID(rideID).WithActorID(actor.ID).Info("Ride started")
	utils.SuccessResponse(c, "Ride started successfully", ride)
}

// CompleteRide handles POST /api/v1/driver/rides/:id/complete
func (h *DriverRideHandler) CompleteRide(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	ride, err := h.lifecycle.CompleteRide(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.logger.WithRideID(rideID).WithActorID(actor.ID).Info("Ride completed")
	utils.SuccessResponse(c, "Ride completed successfully", ride)
}

// CancelRide handles POST /api/v1/driver/rides/:id/cancel
func (h *DriverRideHandler) CancelRide(c *gin.Context) {
	actor, rideID, ok := h.actorAndRideID(c)
	if !ok {
		return
	}

	ride, err := h.lifecycle.CancelRide(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.logger.WithRideID(rideID).WithActorID(actor.ID).Info("Ride cancelled by driver")
	utils.SuccessResponse(c, "Ride cancelled successfully", ride)
}

// History handles GET /api/v1/driver/rides/history
func (h *DriverRideHandler) History(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, string(utils.CodeUnauthorized), "Authentication required")
		return
	}

	params := utils.GetPaginationParams(c)
	rides, total, err := h.lifecycle.DriverHistory(c.Request.Context(), actor, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Ride history retrieved successfully", rides, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
		Count:      len(rides),
	})
}

func (h *DriverRideHandler) actorAndRideID(c *gin.Context) (models.Actor, primitive.ObjectID, bool) {
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
