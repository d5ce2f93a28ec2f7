package otp

import (
	"errors"
	"math/rand"
	"strings"
	"time"
)

// Verification failure reasons. Expiry wins over mismatch.
var (
	ErrExpired  = errors.New("otp has expired")
	ErrMismatch = errors.New("otp does not match")
)

const (
	digits        = "0123456789"
	codeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeSuffixLen = 4
)

// DefaultTTL is how long a generated OTP stays valid.
const DefaultTTL = 10 * time.Minute

// Generate returns n random decimal digits. Leading zeros are allowed,
// so the result is a string rather than a number.
func Generate(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(digits[rand.Intn(len(digits))])
	}
	return b.String()
}

// IsExpired reports whether an OTP generated at generatedAt is past its
// TTL at the given instant.
func IsExpired(generatedAt, now time.Time, ttl time.Duration) bool {
	return now.After(generatedAt.Add(ttl))
}

// Verify checks a submitted OTP against the stored one. Expiry is checked
// first: an expired code reports ErrExpired even if it would also mismatch.
func Verify(input, stored string, generatedAt, now time.Time, ttl time.Duration) error {
	if IsExpired(generatedAt, now, ttl) {
		return ErrExpired
	}
	if input != stored {
		return ErrMismatch
	}
	return nil
}

// NewBookingCode builds a human-readable booking code of the form
// BOOK-YYYYMMDDHHMMSS-XXXX. The random suffix keeps codes generated in
// the same second apart; global uniqueness is enforced by the store.
func NewBookingCode(now time.Time) string {
	var b strings.Builder
	b.WriteString("BOOK-")
	b.WriteString(now.UTC().Format("20060102150405"))
	b.WriteByte('-')
	for i := 0; i < codeSuffixLen; i++ {
		b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return b.String()
}
