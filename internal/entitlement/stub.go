package entitlement

import (
	"context"
	"errors"
	"time"

	"entitlement-api/internal/codec"
	"entitlement-api/internal/models"
)

// ErrCodeRejected is returned by resolvers for codes that were never issued
// or no longer grant access.
var ErrCodeRejected = errors.New("mobile access code rejected")

// StubResolver accepts any well-formed code and grants a 30 day monthly
// plan without asking anyone. Development only.
type StubResolver struct {
	Now func() time.Time
}

func (r StubResolver) ResolveCode(_ context.Context, code string) (*models.SubscriptionRecord, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	token, err := codec.GenerateToken()
	if err != nil {
		return nil, err
	}
	t := now()
	return &models.SubscriptionRecord{
		Token:            token,
		MobileAccessCode: code,
		Plan:             models.PlanMonthly,
		ExpiresAt:        t.Add(models.PlanMonthly.DefaultDuration()),
		CreatedAt:        t,
	}, nil
}
