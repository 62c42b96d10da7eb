package routes

import (
	"github.com/gin-gonic/gin"

	"ridelink/internal/handlers"
	"ridelink/internal/middleware"
)

// SetupDriverRoutes mounts the driver ride surface under
// /api/v1/driver. Every route requires a driver token.
func SetupDriverRoutes(router *gin.RouterGroup, handler *handlers.DriverRideHandler, jwtSecret string) {
	driver := router.Group("/driver")
	driver.Use(middleware.AuthRequired(jwtSecret), middleware.DriverRequired())

	rides := driver.Group("/rides")
	{
		rides.GET("/available", handler.ListAvailableRides)
		rides.GET("/history", handler.History)
		rides.POST("/:id/offer", handler.SubmitOffer)
		rides.POST("/:id/withdraw", handler.WithdrawOffer)
		rides.POST("/:id/arrived", handler.ReportArrival)
		rides.POST("/:id/start", handler.StartRide)
		rides.POST("/:id/complete", handler.CompleteRide)
		rides.POST("/:id/cancel", handler.CancelRide)
	}
}
