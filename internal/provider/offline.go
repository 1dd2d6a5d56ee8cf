package provider

import (
	"context"
	"fmt"
	"time"

	"entitlement-api/internal/entitlement"
)

// OfflineProvider keeps the record purely on the device. Nothing is
// checked with a server, so it is only suitable for development.
type OfflineProvider struct {
	svc *entitlement.Service
	now func() time.Time
}

func NewOfflineProvider(svc *entitlement.Service) *OfflineProvider {
	return &OfflineProvider{svc: svc, now: time.Now}
}

func (p *OfflineProvider) Platform() Platform { return PlatformOffline }

// Create issues a record locally. A code is handed to whatever resolver
// svc was built with.
func (p *OfflineProvider) Create(ctx context.Context, req CreateRequest) (entitlement.Result, error) {
	if req.Code != "" {
		return p.svc.VerifyMobileCode(ctx, req.Code), nil
	}

	expiresAt := req.ExpiresAt
	if expiresAt.IsZero() {
		d := req.Plan.DefaultDuration()
		if d <= 0 {
			return entitlement.Result{Reason: entitlement.ReasonError}, fmt.Errorf("plan %q requires an explicit expiry", req.Plan)
		}
		expiresAt = p.now().Add(d)
	}

	rec, err := p.svc.Create(ctx, req.Plan, expiresAt)
	if err != nil {
		return entitlement.Result{Reason: entitlement.ReasonError}, err
	}
	return p.svc.Verify(ctx, rec.Token), nil
}

func (p *OfflineProvider) Verify(ctx context.Context) entitlement.Result {
	return p.svc.Current(ctx)
}

func (p *OfflineProvider) Refresh(ctx context.Context) (entitlement.Result, error) {
	return p.svc.Current(ctx), nil
}

func (p *OfflineProvider) Cancel(ctx context.Context) error {
	return p.svc.Clear(ctx)
}
