package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"entitlement-api/internal/models"
	"entitlement-api/pkg/logging"

	"github.com/google/uuid"
)

const (
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionCancelled = "subscription.cancelled"
)

// WebhookNotifier posts subscription events to a configured callback URL
type WebhookNotifier struct {
	callbackURL string
	secret      string
	httpClient  *http.Client
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(callbackURL, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		callbackURL: callbackURL,
		secret:      secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WebhookPayload represents the payload sent to the callback URL
type WebhookPayload struct {
	DeliveryID     string      `json:"delivery_id"`
	Event          string      `json:"event"`
	SubscriptionID uint        `json:"subscription_id"`
	Email          string      `json:"email"`
	Plan           models.Plan `json:"plan"`
	Active         bool        `json:"active"`
	ExpiresAt      string      `json:"expires_at"` // ISO 8601 format
	Timestamp      string      `json:"timestamp"`  // ISO 8601 format
}

// Notify sends the event in the background. Delivery is attempted once.
func (wn *WebhookNotifier) Notify(event string, subscription *models.Subscription) {
	if wn.callbackURL == "" {
		return
	}

	payload := WebhookPayload{
		DeliveryID:     uuid.NewString(),
		Event:          event,
		SubscriptionID: subscription.ID,
		Email:          subscription.Email,
		Plan:           subscription.Plan,
		Active:         subscription.Active,
		ExpiresAt:      subscription.ExpiresAt.UTC().Format(time.RFC3339),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		if err := wn.Send(payload); err != nil {
			logging.Errorf("Webhook notification failed - url: %s, event: %s, subscription: %d, error: %v",
				wn.callbackURL, event, subscription.ID, err)
			return
		}
		logging.Infof("Webhook notification sent - event: %s, subscription: %d", event, subscription.ID)
	}()
}

// Send delivers a single webhook request
func (wn *WebhookNotifier) Send(payload WebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, wn.callbackURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Entitlement-Webhook/1.0")
	req.Header.Set("X-Delivery-ID", payload.DeliveryID)

	if wn.secret != "" {
		req.Header.Set("X-Entitlement-Signature", Sign(jsonData, wn.secret))
	}

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// Sign returns the hex HMAC-SHA256 of payload, as sent in X-Entitlement-Signature
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
