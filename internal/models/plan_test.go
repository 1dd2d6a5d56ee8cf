package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	p, err := ParsePlan(" Monthly_Premium ")
	require.NoError(t, err)
	assert.Equal(t, PlanMonthlyPremium, p)

	_, err = ParsePlan("lifetime")
	assert.Error(t, err)
}

func TestDefaultDuration(t *testing.T) {
	assert.Equal(t, 30*24*time.Hour, PlanMonthly.DefaultDuration())
	assert.Equal(t, 365*24*time.Hour, PlanYearlyPremium.DefaultDuration())
	assert.Zero(t, PlanFree.DefaultDuration())
	assert.False(t, Plan("gold").Valid())
}

func TestSubscriptionValidity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Subscription{Active: true, ExpiresAt: now.Add(time.Hour)}

	assert.True(t, s.IsValidAt(now))
	assert.False(t, s.IsValidAt(now.Add(time.Hour)), "expiry instant is not valid")

	s.Active = false
	assert.False(t, s.IsValidAt(now))
}

func TestViewOmitsToken(t *testing.T) {
	s := &Subscription{Email: "a@b.c", AccessToken: "tok_x", Plan: PlanYearly, Active: true}
	s.ID = 7

	v := s.View()
	assert.Equal(t, uint(7), v.ID)
	assert.Equal(t, PlanYearly, v.Plan)
	assert.True(t, v.Active)
}
