package service

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError carries every violation found in one request so the
// client can fix them all at once.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, ", ")
}

// NormalizeEmail trims and lowercases an email address. All lookups and
// inserts go through the normalized form so "A@B.com" and "a@b.com"
// name the same account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateCredentials is a pure structural check on a credential pair.
// It returns one message per violation and an empty slice when valid.
func ValidateCredentials(email, password string) []string {
	var violations []string

	email = strings.TrimSpace(email)
	switch {
	case email == "":
		violations = append(violations, "email is required")
	case !emailPattern.MatchString(email):
		violations = append(violations, "email must be a valid address")
	}

	if len(password) < 6 {
		violations = append(violations, "password must be at least 6 characters")
	}

	return violations
}
