package api

import (
	"errors"
	"net/http"
	"time"

	"entitlement-api/internal/metrics"
	"entitlement-api/internal/middleware"
	"entitlement-api/internal/models"
	"entitlement-api/internal/response"
	"entitlement-api/internal/services"
	"entitlement-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest represents a completed checkout
type CheckoutRequest struct {
	Email     string     `json:"email" binding:"required,email"`
	Plan      string     `json:"plan" binding:"required"`
	PaymentID string     `json:"payment_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // overrides the plan's default term
}

// CheckoutResponse carries the new subscription. The token and code are
// only ever returned here.
type CheckoutResponse struct {
	Success          bool                     `json:"success"`
	Message          string                   `json:"message"`
	Subscription     *models.SubscriptionView `json:"subscription,omitempty"`
	AccessToken      string                   `json:"access_token,omitempty"`
	MobileAccessCode string                   `json:"mobile_access_code,omitempty"`
}

// Checkout creates a subscription
// POST /api/subscriptions
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	plan, err := models.ParsePlan(req.Plan)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	subscription, err := h.subscriptions.Create(c.Request.Context(), services.CreateInput{
		Email:     req.Email,
		Plan:      plan,
		PaymentID: req.PaymentID,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidPlan) || errors.Is(err, services.ErrInvalidExpiry) || errors.Is(err, services.ErrInvalidEmail) {
			response.ErrorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
		logging.Errorf("Failed to create subscription: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to create subscription")
		return
	}

	view := subscription.View()
	c.JSON(http.StatusCreated, CheckoutResponse{
		Success:          true,
		Message:          "Subscription created successfully",
		Subscription:     &view,
		AccessToken:      subscription.AccessToken,
		MobileAccessCode: subscription.MobileAccessCode,
	})
}

// ActivateRequest represents a mobile access code activation
type ActivateRequest struct {
	Code string `json:"code" binding:"required"`
}

// ActivateResponse carries the access token bound to the code
type ActivateResponse struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	AccessToken string      `json:"access_token,omitempty"`
	Plan        models.Plan `json:"plan,omitempty"`
	ExpiresAt   string      `json:"expires_at,omitempty"`
}

// ActivateCode exchanges a mobile access code for its access token
// POST /api/subscriptions/activate
func (h *Handler) ActivateCode(c *gin.Context) {
	var req ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// fail open, the code lookup itself is still authoritative
			logging.Errorf("Rate limiter unavailable: %v", err)
		} else if !allowed {
			metrics.ActivationsTotal.WithLabelValues("rate_limited").Inc()
			response.ErrorJSON(c, http.StatusTooManyRequests, "Too many activation attempts, try again later")
			return
		}
	}

	subscription, err := h.subscriptions.ActivateCode(c.Request.Context(), req.Code)
	switch {
	case errors.Is(err, services.ErrInvalidCode):
		response.ErrorJSON(c, http.StatusBadRequest, "Access code must look like XXXX-XXXX-XXXX")
		return
	case errors.Is(err, services.ErrCodeNotFound):
		response.ErrorJSON(c, http.StatusNotFound, "Access code not found or no longer active")
		return
	case err != nil:
		logging.Errorf("Failed to activate access code: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to activate access code")
		return
	}

	c.JSON(http.StatusOK, ActivateResponse{
		Success:     true,
		Message:     "Access code activated",
		AccessToken: subscription.AccessToken,
		Plan:        subscription.Plan,
		ExpiresAt:   subscription.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// VerifySubscriptionResponse represents verify subscription response
type VerifySubscriptionResponse struct {
	Valid     bool        `json:"valid"`
	Plan      models.Plan `json:"plan,omitempty"`
	ExpiresAt string      `json:"expires_at,omitempty"`
}

// VerifySubscription reports the validity of the bearer token
// GET /api/subscriptions/verify
func (h *Handler) VerifySubscription(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		response.AbortSubscriptionRequired(c, "Subscription token required")
		return
	}

	result, err := h.subscriptions.VerifyToken(c.Request.Context(), token)
	if err != nil {
		logging.Errorf("Failed to verify subscription: %v", err)
		response.AbortInternal(c)
		return
	}

	resp := VerifySubscriptionResponse{Valid: result.Valid}
	if result.Valid {
		resp.Plan = result.Plan
		resp.ExpiresAt = result.ExpiresAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// CancelSubscription soft-cancels the bearer token's subscription
// POST /api/subscriptions/cancel
func (h *Handler) CancelSubscription(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		response.AbortSubscriptionRequired(c, "Subscription token required")
		return
	}

	result := h.subscriptions.CancelSubscription(c.Request.Context(), token)
	switch {
	case result.Success:
		c.JSON(http.StatusOK, result)
	case result.Error == services.MsgSubscriptionNotFound:
		c.JSON(http.StatusNotFound, result)
	default:
		c.JSON(http.StatusInternalServerError, result)
	}
}
