package utils

import "time"

// Application Constants
const (
	AppName    = "RideLink"
	AppVersion = "1.0.0"

	// Response statuses
	StatusSuccess = "success"
	StatusError   = "error"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Ride Constants
	RideRequestTTL   = 5 * time.Minute
	MaxDropOffPoints = 3
	MinReviewRating  = 1
	MaxReviewRating  = 5
	MaxReviewComment = 500

	// Sweeper Constants
	DefaultSweepInterval = 30 * time.Second
)

// Common error messages
const (
	ErrValidationFailed = "Validation failed"
	ErrInternalServer   = "Internal server error"
)
