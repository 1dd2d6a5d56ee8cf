package api

import (
	"net/http"

	"entitlement-api/internal/middleware"
	"entitlement-api/internal/response"
	"entitlement-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the subscription API
type Handler struct {
	subscriptions *services.SubscriptionService
	limiter       services.RateLimiter
	serviceName   string
}

// NewHandler creates the API handler. limiter may be nil to disable
// activation rate limiting.
func NewHandler(subscriptions *services.SubscriptionService, limiter services.RateLimiter, serviceName string) *Handler {
	return &Handler{
		subscriptions: subscriptions,
		limiter:       limiter,
		serviceName:   serviceName,
	}
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		// Checkout and activation (no authentication)
		subscriptions := api.Group("/subscriptions")
		{
			subscriptions.POST("", h.Checkout)
			subscriptions.POST("/activate", h.ActivateCode)
			subscriptions.GET("/verify", h.VerifySubscription)
			subscriptions.POST("/cancel", h.CancelSubscription)
		}

		// Routes that need a valid subscription
		premium := api.Group("/premium")
		premium.Use(middleware.RequireSubscription(h.subscriptions))
		{
			premium.GET("/status", h.PremiumStatus)
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": h.serviceName,
		})
	})
}

// PremiumStatus echoes the subscription attached by the middleware
// GET /api/premium/status
func (h *Handler) PremiumStatus(c *gin.Context) {
	sc, ok := middleware.CurrentSubscription(c)
	if !ok {
		response.AbortInternal(c)
		return
	}
	response.SuccessJSON(c, sc)
}
