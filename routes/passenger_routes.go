package routes

import (
	"github.com/gin-gonic/gin"

	"ridelink/internal/handlers"
	"ridelink/internal/middleware"
)

// SetupPassengerRoutes mounts the passenger ride surface under
// /api/v1/passenger. Every route requires a passenger token.
func SetupPassengerRoutes(router *gin.RouterGroup, handler *handlers.PassengerRideHandler, jwtSecret string) {
	passenger := router.Group("/passenger")
	passenger.Use(middleware.AuthRequired(jwtSecret), middleware.PassengerRequired())

	rides := passenger.Group("/rides")
	{
		rides.POST("", handler.CreateRide)
		rides.GET("/active", handler.ListActiveRides)
		rides.GET("/history", handler.History)
		rides.GET("/:id", handler.GetRide)
		rides.GET("/:id/offers", handler.ListOffers)
		rides.POST("/:id/accept-offer", handler.AcceptOffer)
		rides.POST("/:id/decline", handler.DeclineOffers)
		rides.POST("/:id/confirm-coming", handler.ConfirmComing)
		rides.POST("/:id/cancel", handler.CancelRide)
		rides.POST("/:id/review", handler.AttachReview)
	}
}
