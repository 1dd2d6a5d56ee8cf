package provider

import (
	"context"
	"errors"
	"net/http"

	"entitlement-api/internal/client"
	"entitlement-api/internal/entitlement"
	"entitlement-api/internal/models"
)

// RemoteResolver checks mobile access codes against the server.
type RemoteResolver struct {
	API API
}

var _ entitlement.CodeResolver = RemoteResolver{}

func (r RemoteResolver) ResolveCode(ctx context.Context, code string) (*models.SubscriptionRecord, error) {
	act, err := r.API.Activate(ctx, code)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusBadRequest) {
			return nil, entitlement.ErrCodeRejected
		}
		return nil, err
	}
	return &models.SubscriptionRecord{
		Token:            act.AccessToken,
		MobileAccessCode: code,
		Plan:             act.Plan,
		ExpiresAt:        act.ExpiresAt,
	}, nil
}

// MobileProvider obtains subscriptions by activating a code issued at
// checkout on another device.
type MobileProvider struct {
	online
}

// NewMobileProvider expects svc to resolve codes with a RemoteResolver.
func NewMobileProvider(svc *entitlement.Service, api API) *MobileProvider {
	return &MobileProvider{online{svc: svc, api: api}}
}

func (p *MobileProvider) Platform() Platform { return PlatformMobile }

func (p *MobileProvider) Create(ctx context.Context, req CreateRequest) (entitlement.Result, error) {
	return p.svc.VerifyMobileCode(ctx, req.Code), nil
}
