package otp

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

func TestGenerateLengthAndDigits(t *testing.T) {
	pat := regexp.MustCompile(`^\d{4}$`)
	for i := 0; i < 50; i++ {
		code := Generate(4)
		if !pat.MatchString(code) {
			t.Fatalf("Generate(4) = %q, want 4 decimal digits", code)
		}
	}
	if got := Generate(6); len(got) != 6 {
		t.Fatalf("Generate(6) = %q, want length 6", got)
	}
}

func TestIsExpiredBoundary(t *testing.T) {
	gen := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	// Exactly at the TTL the code is still valid.
	if IsExpired(gen, gen.Add(10*time.Minute), 10*time.Minute) {
		t.Error("code expired exactly at the TTL boundary")
	}
	if !IsExpired(gen, gen.Add(10*time.Minute+time.Second), 10*time.Minute) {
		t.Error("code still valid past the TTL")
	}
	if IsExpired(gen, gen.Add(time.Minute), 10*time.Minute) {
		t.Error("fresh code reported expired")
	}
}

func TestVerify(t *testing.T) {
	gen := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := Verify("1234", "1234", gen, gen.Add(5*time.Minute), DefaultTTL); err != nil {
		t.Errorf("valid code within TTL: %v", err)
	}
	if err := Verify("0000", "1234", gen, gen.Add(5*time.Minute), DefaultTTL); !errors.Is(err, ErrMismatch) {
		t.Errorf("wrong code err = %v, want ErrMismatch", err)
	}
	// An expired code reports expiry even when it also mismatches.
	if err := Verify("0000", "1234", gen, gen.Add(11*time.Minute), DefaultTTL); !errors.Is(err, ErrExpired) {
		t.Errorf("expired+wrong err = %v, want ErrExpired", err)
	}
	if err := Verify("1234", "1234", gen, gen.Add(11*time.Minute), DefaultTTL); !errors.Is(err, ErrExpired) {
		t.Errorf("expired+correct err = %v, want ErrExpired", err)
	}
}

func TestNewBookingCodeFormat(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)
	pat := regexp.MustCompile(`^BOOK-\d{14}-[A-Z0-9]{4}$`)
	code := NewBookingCode(now)
	if !pat.MatchString(code) {
		t.Fatalf("NewBookingCode = %q, want BOOK-YYYYMMDDHHMMSS-XXXX", code)
	}
	if want := "BOOK-20240315093045-"; code[:len(want)] != want {
		t.Fatalf("timestamp part = %q, want prefix %q", code, want)
	}
}
