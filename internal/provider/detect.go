package provider

import (
	"strings"

	"entitlement-api/internal/codec"
	"entitlement-api/internal/entitlement"
)

var mobileAgents = []string{"iphone", "ipad", "ipod", "android", "mobile"}

// Detector picks a platform for a client surface.
type Detector struct {
	UserAgent string
}

// DetectPlatform honors an explicit hint first and falls back to sniffing
// the user agent. Anything unrecognized is web.
func (d Detector) DetectPlatform(hint string) Platform {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "web", "browser":
		return PlatformWeb
	case "mobile", "ios", "android":
		return PlatformMobile
	case "offline", "local":
		return PlatformOffline
	}

	ua := strings.ToLower(d.UserAgent)
	for _, m := range mobileAgents {
		if strings.Contains(ua, m) {
			return PlatformMobile
		}
	}
	return PlatformWeb
}

// Registry hands out the adapter for a platform. All adapters share one
// record store since a device holds a single record.
type Registry struct {
	providers map[Platform]EntitlementProvider
	offline   EntitlementProvider
}

// NewRegistry builds the adapters over store. With a nil api every
// platform resolves to the offline adapter. opts apply to every
// adapter's entitlement service.
func NewRegistry(store entitlement.RecordStore, signer codec.Signer, api API, opts ...entitlement.Option) *Registry {
	offline := NewOfflineProvider(entitlement.New(store, signer, opts...))
	r := &Registry{
		providers: map[Platform]EntitlementProvider{PlatformOffline: offline},
		offline:   offline,
	}
	if api == nil {
		return r
	}

	r.providers[PlatformWeb] = NewWebProvider(entitlement.New(store, signer, opts...), api)
	mobileOpts := append(append([]entitlement.Option{}, opts...), entitlement.WithCodeResolver(RemoteResolver{API: api}))
	r.providers[PlatformMobile] = NewMobileProvider(entitlement.New(store, signer, mobileOpts...), api)
	return r
}

func (r *Registry) For(p Platform) EntitlementProvider {
	if prov, ok := r.providers[p]; ok {
		return prov
	}
	return r.offline
}
