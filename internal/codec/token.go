package codec

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	tokenPrefix     = "tok_"
	tokenEntropy    = 24
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeGroups      = 3
	codeGroupLength = 4
)

var mobileCodePattern = regexp.MustCompile(`^[` + codeAlphabet + `]{4}-[` + codeAlphabet + `]{4}-[` + codeAlphabet + `]{4}$`)

// now is swapped in tests.
var now = time.Now

// GenerateToken returns tok_<hex of 24 random bytes>_<base36 unix millis>.
// Uniqueness is probabilistic; callers don't check for collisions.
func GenerateToken() (string, error) {
	b := make([]byte, tokenEntropy)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	ts := strconv.FormatInt(now().UnixMilli(), 36)
	return tokenPrefix + hex.EncodeToString(b) + "_" + ts, nil
}

// GenerateMobileAccessCode returns a hand-typeable XXXX-XXXX-XXXX code.
func GenerateMobileAccessCode() (string, error) {
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))

	var sb strings.Builder
	sb.Grow(codeGroups*codeGroupLength + codeGroups - 1)
	for g := 0; g < codeGroups; g++ {
		if g > 0 {
			sb.WriteByte('-')
		}
		for i := 0; i < codeGroupLength; i++ {
			n, err := rand.Int(rand.Reader, alphabetLen)
			if err != nil {
				return "", fmt.Errorf("failed to generate access code: %w", err)
			}
			sb.WriteByte(codeAlphabet[n.Int64()])
		}
	}
	return sb.String(), nil
}

// NormalizeMobileAccessCode trims and upper-cases hand-typed input.
func NormalizeMobileAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidMobileAccessCode reports whether code has the XXXX-XXXX-XXXX shape
// over the restricted alphabet.
func ValidMobileAccessCode(code string) bool {
	return mobileCodePattern.MatchString(code)
}
