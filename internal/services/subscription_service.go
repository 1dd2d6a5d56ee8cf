package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"entitlement-api/internal/codec"
	"entitlement-api/internal/metrics"
	"entitlement-api/internal/models"
	"entitlement-api/internal/repository"
	"entitlement-api/pkg/logging"

	"github.com/google/uuid"
)

var (
	ErrInvalidPlan   = errors.New("invalid plan")
	ErrInvalidExpiry = errors.New("invalid expiry")
	ErrInvalidEmail  = errors.New("email is required")
	ErrInvalidCode   = errors.New("malformed mobile access code")
	ErrCodeNotFound  = errors.New("mobile access code not found or no longer active")
)

// MsgSubscriptionNotFound is the cancel error for unknown tokens.
const MsgSubscriptionNotFound = "Subscription not found"

// Mailer delivers the mobile access code to a new subscriber.
type Mailer interface {
	SendAccessCode(ctx context.Context, subscription *models.Subscription) error
}

// Notifier publishes subscription lifecycle events.
type Notifier interface {
	Notify(event string, subscription *models.Subscription)
}

// SubscriptionService is the server-side authority over subscriptions.
type SubscriptionService struct {
	repo     repository.SubscriptionRepository
	mailer   Mailer
	notifier Notifier
	now      func() time.Time
}

// NewSubscriptionService creates a subscription service over repo. mailer
// and notifier may be nil.
func NewSubscriptionService(repo repository.SubscriptionRepository, mailer Mailer, notifier Notifier) *SubscriptionService {
	return &SubscriptionService{
		repo:     repo,
		mailer:   mailer,
		notifier: notifier,
		now:      time.Now,
	}
}

// CreateInput describes a completed checkout.
type CreateInput struct {
	Email     string
	Plan      models.Plan
	PaymentID string
	// ExpiresAt overrides the plan's default term when set.
	ExpiresAt *time.Time
}

// VerifyResult reports served validity for an access token.
type VerifyResult struct {
	Valid     bool
	Plan      models.Plan
	ExpiresAt time.Time
}

// CancelResult mirrors the cancel endpoint's body.
type CancelResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Create issues a new subscription with a fresh token and access code.
func (s *SubscriptionService) Create(ctx context.Context, in CreateInput) (*models.Subscription, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if !in.Plan.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlan, in.Plan)
	}

	now := s.now().UTC()
	var expiresAt time.Time
	switch {
	case in.ExpiresAt != nil:
		expiresAt = in.ExpiresAt.UTC()
	case in.Plan.DefaultDuration() > 0:
		expiresAt = now.Add(in.Plan.DefaultDuration())
	default:
		return nil, fmt.Errorf("%w: plan %s requires an explicit expiry", ErrInvalidExpiry, in.Plan)
	}
	if !expiresAt.After(now) {
		return nil, fmt.Errorf("%w: %s is not in the future", ErrInvalidExpiry, expiresAt.Format(time.RFC3339))
	}

	token, err := codec.GenerateToken()
	if err != nil {
		return nil, err
	}
	code, err := codec.GenerateMobileAccessCode()
	if err != nil {
		return nil, err
	}

	paymentID := in.PaymentID
	if paymentID == "" {
		paymentID = "pay_" + uuid.NewString()
	}

	subscription := &models.Subscription{
		Email:            email,
		AccessToken:      token,
		MobileAccessCode: code,
		Plan:             in.Plan,
		PaymentID:        paymentID,
		Active:           true,
		StartDate:        now,
		ExpiresAt:        expiresAt,
	}
	if err := s.repo.Create(ctx, subscription); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	metrics.SubscriptionsCreatedTotal.WithLabelValues(string(in.Plan)).Inc()
	logging.Infof("Subscription created - id: %d, plan: %s, expires_at: %s",
		subscription.ID, subscription.Plan, subscription.ExpiresAt.Format(time.RFC3339))

	if s.mailer != nil {
		if err := s.mailer.SendAccessCode(ctx, subscription); err != nil {
			// The subscription exists either way; the code can be resent.
			logging.Errorf("Failed to send access code email - id: %d, error: %v", subscription.ID, err)
		}
	}
	if s.notifier != nil {
		s.notifier.Notify(EventSubscriptionCreated, subscription)
	}

	return subscription, nil
}

// VerifyToken reports whether token belongs to an active, unexpired
// subscription. Unknown tokens are invalid, not errors.
func (s *SubscriptionService) VerifyToken(ctx context.Context, token string) (VerifyResult, error) {
	if token == "" {
		metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
		return VerifyResult{Valid: false}, nil
	}

	subscription, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
			return VerifyResult{Valid: false}, nil
		}
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		return VerifyResult{}, fmt.Errorf("failed to look up subscription: %w", err)
	}

	result := VerifyResult{
		Valid:     subscription.IsValidAt(s.now()),
		Plan:      subscription.Plan,
		ExpiresAt: subscription.ExpiresAt,
	}
	if result.Valid {
		metrics.VerificationsTotal.WithLabelValues("valid").Inc()
	} else {
		metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
	}
	return result, nil
}

// ActivateCode exchanges an issued mobile access code for its subscription.
func (s *SubscriptionService) ActivateCode(ctx context.Context, code string) (*models.Subscription, error) {
	code = codec.NormalizeMobileAccessCode(code)
	if !codec.ValidMobileAccessCode(code) {
		metrics.ActivationsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidCode
	}

	subscription, err := s.repo.FindByMobileCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.ActivationsTotal.WithLabelValues("rejected").Inc()
			return nil, ErrCodeNotFound
		}
		metrics.ActivationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to look up access code: %w", err)
	}
	if !subscription.IsValidAt(s.now()) {
		metrics.ActivationsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrCodeNotFound
	}

	metrics.ActivationsTotal.WithLabelValues("activated").Inc()
	logging.Infof("Mobile access code activated - id: %d", subscription.ID)
	return subscription, nil
}

// CancelSubscription soft-cancels the subscription holding token.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, token string) CancelResult {
	if token == "" {
		return CancelResult{Success: false, Error: MsgSubscriptionNotFound}
	}

	subscription, err := s.repo.Cancel(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return CancelResult{Success: false, Error: MsgSubscriptionNotFound}
		}
		logging.Errorf("Failed to cancel subscription: %v", err)
		return CancelResult{Success: false, Error: "Failed to cancel subscription"}
	}

	metrics.SubscriptionsCancelledTotal.Inc()
	logging.Infof("Subscription cancelled - id: %d", subscription.ID)
	if s.notifier != nil {
		s.notifier.Notify(EventSubscriptionCancelled, subscription)
	}
	return CancelResult{Success: true}
}
