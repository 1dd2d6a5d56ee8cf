package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"entitlement-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSendSignsPayload(t *testing.T) {
	var (
		gotBody      []byte
		gotSignature string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-Entitlement-Signature")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wn := NewWebhookNotifier(srv.URL, "hook-secret")
	payload := WebhookPayload{DeliveryID: "d-1", Event: EventSubscriptionCreated, SubscriptionID: 9, Plan: models.PlanMonthly}
	require.NoError(t, wn.Send(payload))

	assert.Equal(t, Sign(gotBody, "hook-secret"), gotSignature)

	var decoded WebhookPayload
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, uint(9), decoded.SubscriptionID)
	assert.Equal(t, EventSubscriptionCreated, decoded.Event)
}

func TestWebhookSendReportsFailureStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, "").Send(WebhookPayload{Event: "x"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "502"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retries")
}

func TestWebhookNotifyDeliversInBackground(t *testing.T) {
	received := make(chan WebhookPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		received <- p
	}))
	defer srv.Close()

	sub := &models.Subscription{Email: "a@b.c", Plan: models.PlanYearly, Active: false, ExpiresAt: time.Now().Add(time.Hour)}
	NewWebhookNotifier(srv.URL, "").Notify(EventSubscriptionCancelled, sub)

	select {
	case p := <-received:
		assert.Equal(t, EventSubscriptionCancelled, p.Event)
		assert.False(t, p.Active)
		assert.NotEmpty(t, p.DeliveryID)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestWebhookNotifyWithoutURLIsNoop(t *testing.T) {
	NewWebhookNotifier("", "").Notify(EventSubscriptionCreated, &models.Subscription{})
}
