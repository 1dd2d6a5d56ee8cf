package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"entitlement-api/internal/models"
	"entitlement-api/internal/repository"
	"entitlement-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type denyAll struct{ err error }

func (d denyAll) Allow(context.Context, string) (bool, error) { return false, d.err }

func newTestRouter(t *testing.T, limiter services.RateLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := services.NewSubscriptionService(repository.NewMemoryRepository(), nil, nil)
	r := gin.New()
	SetupRoutes(r, NewHandler(svc, limiter, "entitlement-api"))
	return r
}

func request(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func checkout(t *testing.T, r http.Handler, plan string) CheckoutResponse {
	t.Helper()
	rec := request(r, http.MethodPost, "/api/subscriptions", "", gin.H{"email": "ana@example.com", "plan": plan})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCheckoutReturnsCredentials(t *testing.T) {
	r := newTestRouter(t, nil)

	resp := checkout(t, r, "monthly_premium")
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Regexp(t, `^[A-Z2-9]{4}-[A-Z2-9]{4}-[A-Z2-9]{4}$`, resp.MobileAccessCode)
	require.NotNil(t, resp.Subscription)
	assert.Equal(t, models.PlanMonthlyPremium, resp.Subscription.Plan)
	assert.True(t, resp.Subscription.Active)
}

func TestCheckoutRejectsBadInput(t *testing.T) {
	r := newTestRouter(t, nil)
	past := time.Now().Add(-time.Hour).UTC()

	cases := map[string]gin.H{
		"missing email": {"plan": "monthly"},
		"bad email":     {"email": "nope", "plan": "monthly"},
		"unknown plan":  {"email": "ana@example.com", "plan": "lifetime"},
		"free no term":  {"email": "ana@example.com", "plan": "free"},
		"past expiry":   {"email": "ana@example.com", "plan": "monthly", "expires_at": past},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := request(r, http.MethodPost, "/api/subscriptions", "", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestVerifyAndCancelFlow(t *testing.T) {
	r := newTestRouter(t, nil)
	created := checkout(t, r, "yearly")

	rec := request(r, http.MethodGet, "/api/subscriptions/verify", created.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var verified VerifySubscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verified))
	assert.True(t, verified.Valid)
	assert.Equal(t, models.PlanYearly, verified.Plan)
	assert.NotEmpty(t, verified.ExpiresAt)

	rec = request(r, http.MethodGet, "/api/premium/status", created.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"plan":"yearly"`)

	rec = request(r, http.MethodPost, "/api/subscriptions/cancel", created.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = request(r, http.MethodGet, "/api/subscriptions/verify", created.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":false}`, rec.Body.String())

	rec = request(r, http.MethodGet, "/api/premium/status", created.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"requiresSubscription":true`)
}

func TestVerifyWithoutToken(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := request(r, http.MethodGet, "/api/subscriptions/verify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = request(r, http.MethodGet, "/api/subscriptions/verify", "tok_unknown", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":false}`, rec.Body.String())
}

func TestCancelUnknownToken(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := request(r, http.MethodPost, "/api/subscriptions/cancel", "tok_unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Subscription not found"}`, rec.Body.String())
}

func TestActivateCode(t *testing.T) {
	r := newTestRouter(t, nil)
	created := checkout(t, r, "premium")

	rec := request(r, http.MethodPost, "/api/subscriptions/activate", "", gin.H{"code": created.MobileAccessCode})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var activated ActivateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &activated))
	assert.Equal(t, created.AccessToken, activated.AccessToken)
	assert.Equal(t, models.PlanPremium, activated.Plan)

	rec = request(r, http.MethodPost, "/api/subscriptions/activate", "", gin.H{"code": "not-a-code"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(r, http.MethodPost, "/api/subscriptions/activate", "", gin.H{"code": "AAAA-BBBB-CCCC"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivateRateLimited(t *testing.T) {
	r := newTestRouter(t, denyAll{})

	rec := request(r, http.MethodPost, "/api/subscriptions/activate", "", gin.H{"code": "AAAA-BBBB-CCCC"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestActivateLimiterFailureFailsOpen(t *testing.T) {
	r := newTestRouter(t, denyAll{err: errors.New("redis: connection refused")})

	rec := request(r, http.MethodPost, "/api/subscriptions/activate", "", gin.H{"code": "AAAA-BBBB-CCCC"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivateMemoryLimiter(t *testing.T) {
	limiter := services.NewMemoryRateLimiter(2, time.Minute)
	defer limiter.Stop()
	r := newTestRouter(t, limiter)

	for i := 0; i < 2; i++ {
		rec := request(r, http.MethodPost, "/api/subscriptions/activate", "", gin.H{"code": "AAAA-BBBB-CCCC"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := request(r, http.MethodPost, "/api/subscriptions/activate", "", gin.H{"code": "AAAA-BBBB-CCCC"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := request(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"entitlement-api"}`, rec.Body.String())

	rec = request(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
