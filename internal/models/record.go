package models

import "time"

// SubscriptionRecord is the single entitlement record a client device holds.
type SubscriptionRecord struct {
	Token            string
	MobileAccessCode string
	Plan             Plan
	ExpiresAt        time.Time
	CreatedAt        time.Time
	ValidationMarker string
}
