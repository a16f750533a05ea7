package router

import (
	"context"
	"net/http"
	"time"

	"lending-service/internal/handlers"
	"lending-service/internal/metrics"
	"lending-service/internal/middleware"
	"lending-service/internal/service"
	"lending-service/internal/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck: проверка зависимости для /health (БД, Redis)
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Service        service.LendingService
	Verifier       middleware.TokenVerifier
	Log            *zap.Logger
	CORSOrigins    []string
	RequestTimeout time.Duration
	HealthChecks   map[string]HealthCheck
}

func Router(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(tracing.Middleware())
	r.Use(metrics.Middleware)
	r.Use(middleware.Logger(d.Log))

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", "X-Total-Count"},
		AllowCredentials: !containsWildcard(origins),
	}))

	r.GET("/health", healthHandler(d.HealthChecks))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	availability := handlers.NewAvailabilityHandler(d.Service, d.Log)
	reservations := handlers.NewReservationHandler(d.Service, d.Log)
	admin := handlers.NewAdminHandler(d.Service, d.Log)
	auth := middleware.AuthRequired(d.Verifier, d.Log)

	api := r.Group("/api", middleware.Timeout(d.RequestTimeout))
	{
		api.GET("/items/:id/availability-map/", availability.AvailabilityMap)
		api.GET("/items/:id/availability/", availability.Remaining)
		api.GET("/items/:id/blocked-dates/", availability.BlockedDates)
		api.POST("/reservations/check/", availability.Check)
		api.GET("/inventory_list/", availability.InventoryList)

		api.POST("/create_reservation/", auth, reservations.Create)
		api.GET("/reservations/", auth, reservations.ListMine)
		api.GET("/reservations/:id/", auth, reservations.Get)
		api.PATCH("/reservations/:id/status/", auth, reservations.UpdateStatus)

		api.POST("/items/", auth, admin.CreateItem)
		api.PATCH("/items/:id/", auth, admin.UpdateItem)
		api.GET("/items/:id/reservations/", auth, admin.ItemReservations)
		api.POST("/items/:id/blocked-dates/", auth, admin.BlockDates)
		api.DELETE("/items/:id/blocked-dates/:date/", auth, admin.UnblockDate)
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "checks": result})
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
