package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	apiRequestsTotal         *prometheus.CounterVec
	apiLatencySeconds        *prometheus.HistogramVec
	apiErrorsTotal           *prometheus.CounterVec
	assessmentsTotal         *prometheus.CounterVec
	scoresFinalizedTotal     prometheus.Counter
	submissionsReservedTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peergrade_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "peergrade_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peergrade_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		assessmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peergrade_assessments_recorded_total",
			Help: "Total number of assessments recorded, by score type.",
		}, []string{"score_type"})

		scoresFinalizedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peergrade_scores_finalized_total",
			Help: "Total number of final scores computed and persisted.",
		})

		submissionsReservedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peergrade_submissions_reserved_total",
			Help: "Total number of grading reservations handed out.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			assessmentsTotal,
			scoresFinalizedTotal,
			submissionsReservedTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AssessmentsRecorded exposes the counter for recorded assessments.
func AssessmentsRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return assessmentsTotal
}

// ScoresFinalized exposes the counter for finalized scores.
func ScoresFinalized() prometheus.Counter {
	RegisterMetrics()
	return scoresFinalizedTotal
}

// SubmissionsReserved exposes the counter for grading reservations.
func SubmissionsReserved() prometheus.Counter {
	RegisterMetrics()
	return submissionsReservedTotal
}
