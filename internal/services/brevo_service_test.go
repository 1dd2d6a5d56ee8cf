package services

import (
	"testing"
	"time"

	"entitlement-api/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAccessCodeEmailContent(t *testing.T) {
	sub := &models.Subscription{
		Plan:             models.PlanMonthlyPremium,
		MobileAccessCode: "ABCD-EFGH-JKLM",
		ExpiresAt:        time.Date(2026, 11, 13, 0, 0, 0, 0, time.UTC),
	}
	email := buildAccessCodeEmail("Travel Planner", sub)

	assert.Equal(t, "Your Travel Planner access code", email.Subject)
	assert.Contains(t, email.HTML, "ABCD-EFGH-JKLM")
	assert.Contains(t, email.Text, "monthly_premium")
	assert.Contains(t, email.Text, "November 13, 2026")
	assert.Nil(t, NewBrevoService("", "", "", ""))
}
