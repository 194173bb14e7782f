package careauth

import (
	"regexp"
	"strings"
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	fullNamePattern = regexp.MustCompile(`^[A-Za-z\s'-]+$`)
)

// ValidateEmail checks the shape of an email address. It performs no storage
// or network access; callers run it before any lookup.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return ErrInvalidEmailFormat
	}
	return nil
}

// NormalizePhone strips every non-digit rune and requires exactly ten digits
// remaining. It returns the normalized national number.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 10 {
		return "", ErrInvalidPhoneLength
	}
	return digits, nil
}

// ValidateFullName accepts letters, spaces, hyphens, and apostrophes, and
// rejects names that are empty after trimming.
func ValidateFullName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || !fullNamePattern.MatchString(trimmed) {
		return ErrInvalidNameCharset
	}
	return nil
}
