package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"entitlement-api/internal/api"
	"entitlement-api/internal/repository"
	"entitlement-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func storeFlag(t *testing.T) string {
	t.Helper()
	t.Setenv("MARKER_SECRET", "cli-test-secret")
	return "--store=" + filepath.Join(t.TempDir(), "client.db")
}

var tokenLine = regexp.MustCompile(`(?m)^token: (\S+)$`)

func TestOfflineLifecycle(t *testing.T) {
	store := storeFlag(t)

	out, err := runCLI(t, "checkout", store, "--platform=offline", "--plan=monthly_premium")
	require.NoError(t, err)
	assert.Contains(t, out, "state: active")
	assert.Contains(t, out, "plan: monthly_premium")
	assert.Contains(t, out, "days_remaining: 30")
	assert.Regexp(t, `mobile_access_code: [A-Z2-9]{4}-[A-Z2-9]{4}-[A-Z2-9]{4}`, out)

	out, err = runCLI(t, "status", store, "--platform=offline")
	require.NoError(t, err)
	assert.Contains(t, out, "state: active")
	assert.NotContains(t, out, "warning:")

	out, err = runCLI(t, "inspect", store)
	require.NoError(t, err)
	m := tokenLine.FindStringSubmatch(out)
	require.Len(t, m, 2)

	_, err = runCLI(t, "verify", store, m[1])
	assert.NoError(t, err)

	out, err = runCLI(t, "verify", store, "tok_someone_else")
	assert.EqualError(t, err, "token rejected: invalid_token")
	assert.Contains(t, out, "state: invalid")

	_, err = runCLI(t, "cancel", store, "--platform=offline")
	require.NoError(t, err)

	out, err = runCLI(t, "status", store, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"absent","reason":"missing_token","days_remaining":0}`, out)
}

func TestStatusWarnsNearExpiry(t *testing.T) {
	store := storeFlag(t)
	expires := time.Now().Add(3 * 24 * time.Hour).UTC().Format(time.RFC3339)

	_, err := runCLI(t, "checkout", store, "--plan=free", "--expires="+expires)
	require.NoError(t, err)

	out, err := runCLI(t, "status", store)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: subscription expires in 3 day(s)")
}

func TestCheckoutRejectsUnknownPlan(t *testing.T) {
	_, err := runCLI(t, "checkout", storeFlag(t), "--plan=lifetime")
	assert.Error(t, err)
}

func TestActivateOffline(t *testing.T) {
	store := storeFlag(t)

	_, err := runCLI(t, "activate", store, "ABCD-EFGH-JKLM")
	assert.EqualError(t, err, "activation failed: invalid_token")

	t.Setenv("ALLOW_UNVERIFIED_CODES", "true")
	out, err := runCLI(t, "activate", store, "ABCD-EFGH-JKLM")
	require.NoError(t, err)
	assert.Contains(t, out, "plan: monthly")
}

func TestWebLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := services.NewSubscriptionService(repository.NewMemoryRepository(), nil, nil)
	api.SetupRoutes(r, api.NewHandler(svc, nil, "test"))
	srv := httptest.NewServer(r)
	defer srv.Close()

	store := storeFlag(t)
	server := "--server=" + srv.URL

	out, err := runCLI(t, "checkout", store, server, "--platform=web", "--email=ana@example.com", "--plan=yearly")
	require.NoError(t, err)
	assert.Contains(t, out, "state: active")

	out, err = runCLI(t, "refresh", store, server, "--user-agent=Mozilla/5.0 (Windows NT 10.0)")
	require.NoError(t, err)
	assert.Contains(t, out, "plan: yearly")

	_, err = runCLI(t, "cancel", store, server)
	require.NoError(t, err)

	out, err = runCLI(t, "status", store, server)
	require.NoError(t, err)
	assert.Contains(t, out, "state: absent")
}
