package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entitlement-api/internal/codec"
	"entitlement-api/internal/models"
	"entitlement-api/internal/tokenstore"
	"entitlement-api/pkg/logging"
)

const (
	day                  = 24 * time.Hour
	defaultWarningWindow = 7
)

// CodeResolver turns a well-formed mobile access code into an issued record.
type CodeResolver interface {
	ResolveCode(ctx context.Context, code string) (*models.SubscriptionRecord, error)
}

// RecordStore is the subset of tokenstore.Store the service needs.
type RecordStore interface {
	Store(ctx context.Context, rec *models.SubscriptionRecord) error
	Load(ctx context.Context) (*models.SubscriptionRecord, error)
	Clear(ctx context.Context) error
}

// Service manages the single entitlement record on a client.
type Service struct {
	store       RecordStore
	signer      codec.Signer
	resolver    CodeResolver
	warningDays int
	now         func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCodeResolver(r CodeResolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithWarningWindow sets how many days before expiry IsAboutToExpire fires.
func WithWarningWindow(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.warningDays = days
		}
	}
}

func New(store RecordStore, signer codec.Signer, opts ...Option) *Service {
	s := &Service{
		store:       store,
		signer:      signer,
		warningDays: defaultWarningWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create issues a fresh record and overwrites any previous one.
func (s *Service) Create(ctx context.Context, plan models.Plan, expiresAt time.Time) (*models.SubscriptionRecord, error) {
	if !plan.Valid() {
		return nil, fmt.Errorf("unknown plan %q", plan)
	}
	now := s.now()
	if !expiresAt.After(now) {
		return nil, fmt.Errorf("expiry %s is not in the future", codec.FormatISO(expiresAt))
	}

	token, err := codec.GenerateToken()
	if err != nil {
		return nil, err
	}
	code, err := codec.GenerateMobileAccessCode()
	if err != nil {
		return nil, err
	}

	rec := &models.SubscriptionRecord{
		Token:            token,
		MobileAccessCode: code,
		Plan:             plan,
		ExpiresAt:        expiresAt.UTC().Truncate(time.Millisecond),
		CreatedAt:        now.UTC().Truncate(time.Millisecond),
	}
	if err := s.Adopt(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Adopt signs rec with the local signer and stores it as the current record.
func (s *Service) Adopt(ctx context.Context, rec *models.SubscriptionRecord) error {
	rec.ExpiresAt = rec.ExpiresAt.UTC().Truncate(time.Millisecond)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Millisecond)
	rec.ValidationMarker = s.signer.Sign(rec.Token, string(rec.Plan), rec.ExpiresAt)

	if err := s.store.Store(ctx, rec); err != nil {
		return fmt.Errorf("failed to store subscription: %w", err)
	}
	logging.Infof("Stored subscription record - plan: %s, expires_at: %s", rec.Plan, codec.FormatISO(rec.ExpiresAt))
	return nil
}

// Verify checks token against the stored record. It never fails; every
// negative case is a Result with a Reason.
func (s *Service) Verify(ctx context.Context, token string) Result {
	if token == "" {
		return invalid(ReasonMissingToken)
	}

	rec, err := s.store.Load(ctx)
	var corrupt *tokenstore.CorruptError
	switch {
	case errors.Is(err, tokenstore.ErrAbsent):
		return invalid(ReasonMissingToken)
	case errors.As(err, &corrupt):
		if corrupt.Token != token {
			return invalid(ReasonInvalidToken)
		}
		logging.Warnf("Stored subscription record is unreadable: %v", err)
		return invalid(ReasonTampered)
	case err != nil:
		logging.Errorf("Failed to load subscription record: %v", err)
		return invalid(ReasonError)
	}

	if rec.Token != token {
		return invalid(ReasonInvalidToken)
	}
	if !s.now().Before(rec.ExpiresAt) {
		return invalid(ReasonExpired)
	}
	if !codec.Verify(s.signer, rec.Token, string(rec.Plan), rec.ExpiresAt, rec.ValidationMarker) {
		logging.Warnf("Validation marker mismatch for stored subscription record")
		return invalid(ReasonTampered)
	}

	return Result{
		Valid:         true,
		Plan:          rec.Plan,
		ExpiresAt:     rec.ExpiresAt,
		DaysRemaining: s.DaysRemaining(rec.ExpiresAt),
	}
}

// Current verifies whatever record is stored against its own token.
func (s *Service) Current(ctx context.Context) Result {
	rec, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, tokenstore.ErrAbsent):
		return invalid(ReasonMissingToken)
	case errors.Is(err, tokenstore.ErrCorrupt):
		return invalid(ReasonTampered)
	case err != nil:
		logging.Errorf("Failed to load subscription record: %v", err)
		return invalid(ReasonError)
	}
	return s.Verify(ctx, rec.Token)
}

// Record returns the stored record as is, without verifying it.
func (s *Service) Record(ctx context.Context) (*models.SubscriptionRecord, error) {
	return s.store.Load(ctx)
}

// DaysRemaining is ceil((expiresAt - now) / 1 day), never negative.
func (s *Service) DaysRemaining(expiresAt time.Time) int {
	diff := expiresAt.Sub(s.now())
	if diff <= 0 {
		return 0
	}
	days := diff / day
	if diff%day != 0 {
		days++
	}
	return int(days)
}

// IsAboutToExpire is true while the current record is valid and within
// the warning window of its expiry.
func (s *Service) IsAboutToExpire(ctx context.Context) bool {
	r := s.Current(ctx)
	if !r.Valid {
		return false
	}
	return r.DaysRemaining > 0 && r.DaysRemaining <= s.warningDays
}

func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear subscription: %w", err)
	}
	return nil
}

// VerifyMobileCode shape-checks code and hands it to the configured
// resolver. On success the resolved record becomes the current one.
func (s *Service) VerifyMobileCode(ctx context.Context, code string) Result {
	code = codec.NormalizeMobileAccessCode(code)
	if code == "" {
		return invalid(ReasonMissingToken)
	}
	if !codec.ValidMobileAccessCode(code) {
		return invalid(ReasonInvalidToken)
	}
	if s.resolver == nil {
		logging.Warnf("No code resolver configured, rejecting mobile access code")
		return invalid(ReasonInvalidToken)
	}

	rec, err := s.resolver.ResolveCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeRejected) {
			return invalid(ReasonInvalidToken)
		}
		logging.Errorf("Failed to resolve mobile access code: %v", err)
		return invalid(ReasonError)
	}
	if rec.MobileAccessCode == "" {
		rec.MobileAccessCode = code
	}
	if err := s.Adopt(ctx, rec); err != nil {
		logging.Errorf("Failed to store activated subscription: %v", err)
		return invalid(ReasonError)
	}
	return s.Verify(ctx, rec.Token)
}
