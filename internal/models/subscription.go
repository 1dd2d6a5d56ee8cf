package models

import (
	"time"
)

// Subscription 订阅模型
// Server-side subscription record. Cancellation flips Active; rows are never removed.
type Subscription struct {
	BaseModel

	Email            string `json:"email" gorm:"not null;size:255;index"`
	AccessToken      string `json:"-" gorm:"not null;size:100;uniqueIndex"`
	MobileAccessCode string `json:"-" gorm:"not null;size:14;index"`
	Plan             Plan   `json:"plan" gorm:"not null;size:32"`
	PaymentID        string `json:"payment_id" gorm:"size:100;index"`
	Active           bool   `json:"active" gorm:"not null;default:true;index"`

	StartDate time.Time `json:"start_date"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}

// IsValidAt reports served validity: active and not yet expired.
func (s *Subscription) IsValidAt(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}

// SubscriptionView is the caller-facing projection; the token is omitted.
type SubscriptionView struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Plan      Plan   `json:"plan"`
	StartDate string `json:"start_date"`
	ExpiresAt string `json:"expires_at"`
	Active    bool   `json:"active"`
}

// View returns the public fields of s.
func (s *Subscription) View() SubscriptionView {
	return SubscriptionView{
		ID:        s.ID,
		Email:     s.Email,
		Plan:      s.Plan,
		StartDate: s.StartDate.UTC().Format(time.RFC3339),
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
		Active:    s.Active,
	}
}
