package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ridelink", Name: "ride_transitions_total", Help: "Committed ride status transitions"},
		[]string{"from", "to"},
	)
	TransitionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "ridelink", Name: "ride_transition_conflicts_total", Help: "Status writes rejected by the optimistic check"},
	)
	OffersSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "ridelink", Name: "offers_submitted_total", Help: "Offers recorded in the ledger"},
	)
	OffersVoided = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "ridelink", Name: "offers_voided_total", Help: "Offers removed when a ride left its biddable state"},
	)
	RidesExpired = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "ridelink", Name: "rides_expired_total", Help: "Pending rides moved to expired by the sweeper"},
	)
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{Namespace: "ridelink", Name: "sweep_duration_seconds", Help: "Duration of expiry sweeps"},
	)
)
