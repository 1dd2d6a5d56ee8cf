package models

import (
	"fmt"
	"strings"
	"time"
)

// Plan identifies a subscription tier.
type Plan string

const (
	PlanMonthlyPremium Plan = "monthly_premium"
	PlanYearlyPremium  Plan = "yearly_premium"
	PlanMonthly        Plan = "monthly"
	PlanYearly         Plan = "yearly"
	PlanFree           Plan = "free"
	PlanPremium        Plan = "premium"
)

var knownPlans = map[Plan]time.Duration{
	PlanMonthlyPremium: 30 * 24 * time.Hour,
	PlanYearlyPremium:  365 * 24 * time.Hour,
	PlanMonthly:        30 * 24 * time.Hour,
	PlanYearly:         365 * 24 * time.Hour,
	PlanPremium:        30 * 24 * time.Hour,
	PlanFree:           0,
}

// ParsePlan maps user input onto a known plan.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownPlans[p]; !ok {
		return "", fmt.Errorf("unknown plan %q", s)
	}
	return p, nil
}

// Valid reports whether p is one of the known plans.
func (p Plan) Valid() bool {
	_, ok := knownPlans[p]
	return ok
}

// DefaultDuration is the term granted when checkout doesn't name an expiry.
// Zero means the plan has no default term.
func (p Plan) DefaultDuration() time.Duration {
	return knownPlans[p]
}

func (p Plan) String() string {
	return string(p)
}
