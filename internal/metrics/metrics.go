package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Server-side token verification outcomes
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_verifications_total",
			Help: "Total number of access token verifications by result",
		},
		[]string{"result"}, // valid, invalid, error
	)

	SubscriptionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_subscriptions_created_total",
			Help: "Total number of subscriptions created by plan",
		},
		[]string{"plan"},
	)

	SubscriptionsCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "entitlement_subscriptions_cancelled_total",
			Help: "Total number of subscriptions cancelled",
		},
	)

	ActivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_code_activations_total",
			Help: "Total number of mobile access code activations by result",
		},
		[]string{"result"}, // activated, rejected, rate_limited, error
	)
)
