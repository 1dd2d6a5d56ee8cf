// Package provider binds the client entitlement record to a platform:
// web checkout, mobile code activation, or a local offline mode.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"entitlement-api/internal/client"
	"entitlement-api/internal/entitlement"
	"entitlement-api/internal/models"
	"entitlement-api/internal/tokenstore"
	"entitlement-api/pkg/logging"
)

type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformMobile  Platform = "mobile"
	PlatformOffline Platform = "offline"
)

// CreateRequest carries what any platform may need to obtain a
// subscription. Each adapter reads only its own fields.
type CreateRequest struct {
	Email     string
	Plan      models.Plan
	PaymentID string
	ExpiresAt time.Time
	Code      string
}

// EntitlementProvider is the capability set every client surface shares.
type EntitlementProvider interface {
	Platform() Platform
	Create(ctx context.Context, req CreateRequest) (entitlement.Result, error)
	Verify(ctx context.Context) entitlement.Result
	Cancel(ctx context.Context) error
	Refresh(ctx context.Context) (entitlement.Result, error)
}

// API is the server surface the online adapters use. *client.Client
// implements it.
type API interface {
	Checkout(ctx context.Context, in client.CheckoutRequest) (*client.Checkout, error)
	Activate(ctx context.Context, code string) (*client.Activation, error)
	Verify(ctx context.Context, token string) (*client.Verification, error)
	Cancel(ctx context.Context, token string) error
}

var _ API = (*client.Client)(nil)

// online holds the behavior web and mobile share. The local record is a
// cache of what the server issued.
type online struct {
	svc *entitlement.Service
	api API
}

func (o *online) Verify(ctx context.Context) entitlement.Result {
	return o.svc.Current(ctx)
}

// Refresh asks the server about the cached token. A server that no longer
// honors it clears the cache; otherwise plan and expiry are taken from the
// server, which also rewrites a record whose fields no longer decode.
// Transport failures leave the cache untouched.
func (o *online) Refresh(ctx context.Context) (entitlement.Result, error) {
	rec, err := o.svc.Record(ctx)
	token, err := tokenstore.TokenOf(rec, err)
	switch {
	case errors.Is(err, tokenstore.ErrAbsent):
		return o.svc.Current(ctx), nil
	case err != nil:
		return o.svc.Current(ctx), fmt.Errorf("failed to read local subscription: %w", err)
	}

	v, err := o.api.Verify(ctx, token)
	if err != nil {
		logging.Warnf("Subscription refresh failed, keeping cached record: %v", err)
		return o.svc.Current(ctx), fmt.Errorf("failed to refresh subscription: %w", err)
	}
	if !v.Valid {
		logging.Infof("Server no longer honors cached subscription, clearing it")
		if err := o.svc.Clear(ctx); err != nil {
			return entitlement.Result{Reason: entitlement.ReasonError}, err
		}
		return entitlement.Result{Reason: entitlement.ReasonInvalidToken}, nil
	}

	if rec == nil {
		logging.Warnf("Rebuilding unreadable local subscription from the server")
		rec = &models.SubscriptionRecord{Token: token}
	}
	rec.Plan = v.Plan
	rec.ExpiresAt = v.ExpiresAt
	if err := o.svc.Adopt(ctx, rec); err != nil {
		return entitlement.Result{Reason: entitlement.ReasonError}, err
	}
	return o.svc.Verify(ctx, rec.Token), nil
}

// Cancel cancels on the server first; the local record is only dropped
// once the server agrees or has never heard of the token.
func (o *online) Cancel(ctx context.Context) error {
	rec, err := o.svc.Record(ctx)
	token, err := tokenstore.TokenOf(rec, err)
	switch {
	case errors.Is(err, tokenstore.ErrAbsent):
		return nil
	case err != nil:
		return fmt.Errorf("failed to read local subscription: %w", err)
	}

	if err := o.api.Cancel(ctx, token); err != nil {
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}
	}
	return o.svc.Clear(ctx)
}
