package codec

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"entitlement-api/pkg/logging"
)

// ISOLayout matches JavaScript's Date.prototype.toISOString.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// FormatISO renders t in ISOLayout (UTC, millisecond precision).
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseISO parses a timestamp written by FormatISO. RFC 3339 is accepted too.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	return t, err
}

// ParseStrictISO accepts only the exact FormatISO rendering. Anything that
// would format back differently, extra precision or an offset, is an error.
func ParseStrictISO(s string) (time.Time, error) {
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	if FormatISO(t) != s {
		return time.Time{}, fmt.Errorf("timestamp %q is not in canonical form", s)
	}
	return t, nil
}

// Signer computes the validation marker over (token, plan, expiry).
type Signer interface {
	Sign(token, plan string, expiresAt time.Time) string
}

func markerPayload(token, plan string, expiresAt time.Time) string {
	return token + ":" + plan + ":" + FormatISO(expiresAt)
}

// LegacySigner is the reversible base64 encoding older clients wrote.
// Anyone holding the three fields can forge it; it only detects edits
// made without re-encoding.
type LegacySigner struct{}

func (LegacySigner) Sign(token, plan string, expiresAt time.Time) string {
	return base64.StdEncoding.EncodeToString([]byte(markerPayload(token, plan, expiresAt)))
}

// HMACSigner keys the marker with a secret the client cannot recompute
// without.
type HMACSigner struct {
	key []byte
}

func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{key: []byte(secret)}
}

func (s *HMACSigner) Sign(token, plan string, expiresAt time.Time) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(markerPayload(token, plan, expiresAt)))
	return hex.EncodeToString(h.Sum(nil))
}

// NewSigner picks HMAC when a secret is configured.
func NewSigner(secret string) Signer {
	if secret == "" {
		logging.Warnf("MARKER_SECRET is not set, validation markers use the reversible legacy encoding")
		return LegacySigner{}
	}
	return NewHMACSigner(secret)
}

// Verify recomputes the marker and compares it to the stored one.
func Verify(s Signer, token, plan string, expiresAt time.Time, marker string) bool {
	want := s.Sign(token, plan, expiresAt)
	return subtle.ConstantTimeCompare([]byte(want), []byte(marker)) == 1
}
