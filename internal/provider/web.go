package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entitlement-api/internal/client"
	"entitlement-api/internal/entitlement"
	"entitlement-api/internal/models"
)

// WebProvider obtains subscriptions through checkout.
type WebProvider struct {
	online
}

func NewWebProvider(svc *entitlement.Service, api API) *WebProvider {
	return &WebProvider{online{svc: svc, api: api}}
}

func (p *WebProvider) Platform() Platform { return PlatformWeb }

// Create runs a checkout and keeps the issued token as the local record.
func (p *WebProvider) Create(ctx context.Context, req CreateRequest) (entitlement.Result, error) {
	if req.Email == "" {
		return entitlement.Result{Reason: entitlement.ReasonError}, errors.New("email is required for checkout")
	}

	in := client.CheckoutRequest{Email: req.Email, Plan: req.Plan, PaymentID: req.PaymentID}
	if !req.ExpiresAt.IsZero() {
		in.ExpiresAt = &req.ExpiresAt
	}
	out, err := p.api.Checkout(ctx, in)
	if err != nil {
		return entitlement.Result{Reason: entitlement.ReasonError}, fmt.Errorf("checkout failed: %w", err)
	}

	rec, err := recordFromCheckout(out)
	if err != nil {
		return entitlement.Result{Reason: entitlement.ReasonError}, err
	}
	if err := p.svc.Adopt(ctx, rec); err != nil {
		return entitlement.Result{Reason: entitlement.ReasonError}, err
	}
	return p.svc.Verify(ctx, rec.Token), nil
}

func recordFromCheckout(out *client.Checkout) (*models.SubscriptionRecord, error) {
	expiresAt, err := time.Parse(time.RFC3339, out.Subscription.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("checkout returned bad expiry %q: %w", out.Subscription.ExpiresAt, err)
	}
	// start_date is informational; fall back to now when it is unreadable
	createdAt, _ := time.Parse(time.RFC3339, out.Subscription.StartDate)
	return &models.SubscriptionRecord{
		Token:            out.AccessToken,
		MobileAccessCode: out.MobileAccessCode,
		Plan:             out.Subscription.Plan,
		ExpiresAt:        expiresAt,
		CreatedAt:        createdAt,
	}, nil
}
