package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	CheckOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lending_availability_checks_total",
			Help: "Availability checks by outcome (accepted, rejected)",
		},
		[]string{"outcome"},
	)
	ReservationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lending_reservations_created_total",
			Help: "Reservations recorded in pending state",
		},
	)
	ReservationConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lending_reservation_conflicts_total",
			Help: "Rejected reservation attempts by stage (advisory, commit)",
		},
		[]string{"stage"},
	)
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lending_status_transitions_total",
			Help: "Applied reservation status transitions by target status",
		},
		[]string{"to"},
	)
	CapacityAnomalies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lending_capacity_anomalies_total",
			Help: "Days where active reservations exceeded item total quantity",
		},
	)
)

// route: шаблон gin (/api/items/:id/...), чтобы не плодить метки по id
func route(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}

func Middleware(c *gin.Context) {
	if c.Request.URL.Path == "/metrics" {
		c.Next()
		return
	}
	start := time.Now()
	c.Next()
	duration := time.Since(start).Seconds()
	r := route(c)
	status := strconv.Itoa(c.Writer.Status())
	RequestTotal.WithLabelValues(c.Request.Method, r, status).Inc()
	RequestDuration.WithLabelValues(c.Request.Method, r).Observe(duration)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
