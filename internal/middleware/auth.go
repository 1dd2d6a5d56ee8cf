package middleware

import (
	"context"
	"strings"
	"time"

	"entitlement-api/internal/models"
	"entitlement-api/internal/response"
	"entitlement-api/internal/services"
	"entitlement-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// SubscriptionKey is the gin context key holding a SubscriptionContext.
const SubscriptionKey = "subscription"

// TokenVerifier checks an access token against the server record store.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (services.VerifyResult, error)
}

// SubscriptionContext is attached to requests that passed RequireSubscription.
type SubscriptionContext struct {
	Plan      models.Plan `json:"plan"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// RequireSubscription gates routes on a valid bearer access token
func RequireSubscription(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			response.AbortSubscriptionRequired(c, "Subscription token required")
			return
		}

		result, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			logging.Errorf("Subscription verification failed: %v", err)
			response.AbortInternal(c)
			return
		}
		if !result.Valid {
			response.AbortSubscriptionRequired(c, "Invalid or expired subscription")
			return
		}

		c.Set(SubscriptionKey, SubscriptionContext{
			Plan:      result.Plan,
			ExpiresAt: result.ExpiresAt,
		})
		c.Next()
	}
}

// CurrentSubscription returns the context set by RequireSubscription.
func CurrentSubscription(c *gin.Context) (SubscriptionContext, bool) {
	v, ok := c.Get(SubscriptionKey)
	if !ok {
		return SubscriptionContext{}, false
	}
	sc, ok := v.(SubscriptionContext)
	return sc, ok
}
