package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"entitlement-api/internal/codec"
	"entitlement-api/internal/models"
)

var (
	// ErrAbsent means no token is stored in the namespace.
	ErrAbsent = errors.New("no subscription record stored")
	// ErrCorrupt means a stored field could not be decoded.
	ErrCorrupt = errors.New("stored subscription record is corrupt")
)

// CorruptError reports a field that could not be decoded. The token is
// still readable, so callers can compare or reconcile it.
type CorruptError struct {
	Token string
	Field string
	Value string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%v: %s %q", ErrCorrupt, e.Field, e.Value)
}

func (e *CorruptError) Unwrap() error { return ErrCorrupt }

// TokenOf returns the token carried by a Load result, including the token
// of a corrupt record. Other errors are returned as is.
func TokenOf(rec *models.SubscriptionRecord, err error) (string, error) {
	var ce *CorruptError
	switch {
	case err == nil:
		return rec.Token, nil
	case errors.As(err, &ce):
		return ce.Token, nil
	default:
		return "", err
	}
}

const (
	fieldToken      = "token"
	fieldExpiry     = "expiry"
	fieldPlan       = "plan"
	fieldCreatedAt  = "created_at"
	fieldValidation = "validation"
	fieldAccessCode = "access_code"
)

var allFields = []string{fieldToken, fieldExpiry, fieldPlan, fieldCreatedAt, fieldValidation, fieldAccessCode}

// Store persists one SubscriptionRecord under a namespace. Writes are one
// key at a time; an interrupted Store can leave fields from two records.
type Store struct {
	kv        KV
	namespace string
}

func New(kv KV, namespace string) *Store {
	return &Store{kv: kv, namespace: namespace}
}

func (s *Store) key(field string) string {
	return s.namespace + ":" + field
}

// Store overwrites whatever record the namespace held.
func (s *Store) Store(ctx context.Context, rec *models.SubscriptionRecord) error {
	values := []struct{ field, value string }{
		{fieldExpiry, codec.FormatISO(rec.ExpiresAt)},
		{fieldPlan, string(rec.Plan)},
		{fieldCreatedAt, codec.FormatISO(rec.CreatedAt)},
		{fieldValidation, rec.ValidationMarker},
		{fieldAccessCode, rec.MobileAccessCode},
		// token last: Load treats its presence as "a record exists"
		{fieldToken, rec.Token},
	}
	for _, v := range values {
		if err := s.kv.Set(ctx, s.key(v.field), v.value); err != nil {
			return fmt.Errorf("failed to store %s: %w", v.field, err)
		}
	}
	return nil
}

// Load reads the record back. ErrAbsent when no token is stored; a
// *CorruptError when a timestamp does not parse.
func (s *Store) Load(ctx context.Context) (*models.SubscriptionRecord, error) {
	token, ok, err := s.kv.Get(ctx, s.key(fieldToken))
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if !ok || token == "" {
		return nil, ErrAbsent
	}

	raw := make(map[string]string, len(allFields))
	for _, f := range allFields[1:] {
		v, _, err := s.kv.Get(ctx, s.key(f))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
		raw[f] = v
	}

	rec := &models.SubscriptionRecord{
		Token:            token,
		Plan:             models.Plan(raw[fieldPlan]),
		ValidationMarker: raw[fieldValidation],
		MobileAccessCode: raw[fieldAccessCode],
	}
	if rec.ExpiresAt, err = codec.ParseStrictISO(raw[fieldExpiry]); err != nil {
		return nil, &CorruptError{Token: token, Field: fieldExpiry, Value: raw[fieldExpiry]}
	}
	if rec.CreatedAt, err = codec.ParseStrictISO(raw[fieldCreatedAt]); err != nil {
		return nil, &CorruptError{Token: token, Field: fieldCreatedAt, Value: raw[fieldCreatedAt]}
	}
	return rec, nil
}

// Clear removes every key of the namespace.
func (s *Store) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(allFields))
	for _, f := range allFields {
		keys = append(keys, s.key(f))
	}
	return s.kv.Delete(ctx, keys...)
}

// SetField writes a single raw field. It exists for tooling that inspects
// or repairs local state; it does not recompute the validation marker.
func (s *Store) SetField(ctx context.Context, field, value string) error {
	for _, f := range allFields {
		if f == field {
			return s.kv.Set(ctx, s.key(field), value)
		}
	}
	return fmt.Errorf("unknown field %q", field)
}
