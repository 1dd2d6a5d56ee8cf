package entitlement

import (
	"time"

	"entitlement-api/internal/models"
)

// Reason explains a negative verification result.
type Reason string

const (
	ReasonMissingToken Reason = "missing_token"
	ReasonInvalidToken Reason = "invalid_token"
	ReasonExpired      Reason = "expired"
	ReasonTampered     Reason = "tampered"
	ReasonError        Reason = "error"
)

// State of the locally held record, derived from a Result.
type State string

const (
	StateAbsent   State = "absent"
	StateActive   State = "active"
	StateExpired  State = "expired"
	StateTampered State = "tampered"
	StateInvalid  State = "invalid"
)

// Result is what Verify reports. Reason is empty when Valid.
type Result struct {
	Valid         bool        `json:"valid"`
	Reason        Reason      `json:"reason,omitempty"`
	Plan          models.Plan `json:"plan,omitempty"`
	ExpiresAt     time.Time   `json:"expires_at"`
	DaysRemaining int         `json:"days_remaining"`
}

func invalid(r Reason) Result {
	return Result{Valid: false, Reason: r}
}

// State maps the result onto the record lifecycle.
func (r Result) State() State {
	if r.Valid {
		return StateActive
	}
	switch r.Reason {
	case ReasonMissingToken:
		return StateAbsent
	case ReasonExpired:
		return StateExpired
	case ReasonTampered:
		return StateTampered
	default:
		return StateInvalid
	}
}
