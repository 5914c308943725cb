// Package observability exposes the Prometheus collectors and the OpenTelemetry
// tracer provider of the API.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking outcomes recorded by ObserveBooking
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingRejected  = "rejected"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymdash_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gymdash_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	bookingOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymdash_booking_operations_total",
		Help: "Booking attempts by outcome and reason",
	}, []string{"outcome", "reason"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymdash_login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	bookingEventFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gymdash_booking_event_failures_total",
		Help: "Booking events that could not be published",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveBooking counts a booking operation. reason is empty unless the
// outcome is BookingRejected.
func ObserveBooking(outcome, reason string) {
	bookingOperations.WithLabelValues(outcome, reason).Inc()
}

// ObserveLogin counts a login attempt with result success, failure or throttled
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// ObserveBookingEventFailure counts a dropped booking event
func ObserveBookingEventFailure() {
	bookingEventFailures.Inc()
}
