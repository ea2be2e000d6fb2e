package inputguard

import "unicode/utf8"

const (
	MinPasswordLength = 8
	MaxPasswordLength = 100
)

// Password policy messages, returned in this priority order
const (
	PasswordTooShort    = "Password must be at least 8 characters long"
	PasswordTooLong     = "Password must be less than 100 characters"
	PasswordComposition = "Password must contain uppercase, lowercase, and number"
)

// PasswordResult is the verdict of ValidatePassword. Message is empty when
// Valid is true.
type PasswordResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// ValidatePassword applies the password policy. Length is checked before
// composition so the most actionable message comes first. Composition counts
// ASCII letters and digits only; length counts code points.
func ValidatePassword(password string) PasswordResult {
	length := utf8.RuneCountInString(password)

	if length < MinPasswordLength {
		return PasswordResult{Message: PasswordTooShort}
	}
	if length > MaxPasswordLength {
		return PasswordResult{Message: PasswordTooLong}
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return PasswordResult{Message: PasswordComposition}
	}

	return PasswordResult{Valid: true}
}
