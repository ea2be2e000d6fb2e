// Package forms holds the request shapes accepted from users and runs every
// field through inputguard before anything else sees it.
//
// Callers run Validate on the form as received and, when it passes, keep the
// result of Sanitize.
package forms

import (
	"fmt"
	"sort"
	"strings"

	"talentlink/internal/inputguard"
)

// Field bounds, in characters
const (
	MaxNameLength     = 100
	MaxHeadlineLength = 200
	MaxLocationLength = 100
	MaxBioLength      = 2000

	MinPhoneDigits = 7
)

// ValidationErrors maps a field name to the first problem found with it
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, v[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) add(field, message string) {
	if _, exists := v[field]; !exists {
		v[field] = message
	}
}

func (v ValidationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// SignupForm is the account creation form
type SignupForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// Sanitize returns a cleaned copy. The password is never altered.
func (f SignupForm) Sanitize() SignupForm {
	return SignupForm{
		Name:     inputguard.SanitizeString(f.Name, MaxNameLength),
		Email:    inputguard.SanitizeEmail(f.Email),
		Password: f.Password,
		Phone:    inputguard.SanitizePhoneNumber(f.Phone),
	}
}

// Validate checks the form as it will look once sanitized
func (f SignupForm) Validate() error {
	errs := ValidationErrors{}
	f = f.Sanitize()

	if f.Name == "" {
		errs.add("name", "Name is required")
	}
	validateEmail(errs, f.Email)
	if result := inputguard.ValidatePassword(f.Password); !result.Valid {
		errs.add("password", result.Message)
	}
	validatePhone(errs, f.Phone)

	return errs.err()
}

// LoginForm is the sign-in form
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Sanitize returns a cleaned copy
func (f LoginForm) Sanitize() LoginForm {
	return LoginForm{
		Email:    inputguard.SanitizeEmail(f.Email),
		Password: f.Password,
	}
}

// Validate checks the form as it will look once sanitized. Login checks only
// that a password is present; the policy applies at signup.
func (f LoginForm) Validate() error {
	errs := ValidationErrors{}
	f = f.Sanitize()

	validateEmail(errs, f.Email)
	if f.Password == "" {
		errs.add("password", "Password is required")
	}

	return errs.err()
}

// ProfileForm is the profile edit form
type ProfileForm struct {
	Name     string `json:"name"`
	Headline string `json:"headline,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// Sanitize returns a cleaned copy. A website that is not an http(s) URL is
// dropped rather than kept in a dangerous form.
func (f ProfileForm) Sanitize() ProfileForm {
	return ProfileForm{
		Name:     inputguard.SanitizeString(f.Name, MaxNameLength),
		Headline: inputguard.SanitizeString(f.Headline, MaxHeadlineLength),
		Location: inputguard.SanitizeString(f.Location, MaxLocationLength),
		Website:  inputguard.SanitizeURL(f.Website),
		Phone:    inputguard.SanitizePhoneNumber(f.Phone),
		Bio:      inputguard.SanitizeString(f.Bio, MaxBioLength),
	}
}

// Validate checks the raw form, so a website that Sanitize would clear is
// reported instead.
func (f ProfileForm) Validate() error {
	errs := ValidationErrors{}

	if inputguard.SanitizeString(f.Name, MaxNameLength) == "" {
		errs.add("name", "Name is required")
	}
	if strings.TrimSpace(f.Website) != "" && inputguard.SanitizeURL(f.Website) == "" {
		errs.add("website", "Website must be an http or https URL")
	}
	validatePhone(errs, inputguard.SanitizePhoneNumber(f.Phone))

	return errs.err()
}

// PostForm is a feed post
type PostForm struct {
	Body string `json:"body"`
	Link string `json:"link,omitempty"`
}

// Sanitize returns a cleaned copy with markup removed from the body
func (f PostForm) Sanitize() PostForm {
	return PostForm{
		Body: inputguard.SanitizeRichText(f.Body),
		Link: inputguard.SanitizeURL(f.Link),
	}
}

// Validate checks the raw form, like ProfileForm.Validate
func (f PostForm) Validate() error {
	errs := ValidationErrors{}

	if inputguard.SanitizeRichText(f.Body) == "" {
		errs.add("body", "Post cannot be empty")
	}
	if strings.TrimSpace(f.Link) != "" && inputguard.SanitizeURL(f.Link) == "" {
		errs.add("link", "Link must be an http or https URL")
	}

	return errs.err()
}

func validateEmail(errs ValidationErrors, email string) {
	switch {
	case email == "":
		errs.add("email", "Email is required")
	case !inputguard.ValidateEmail(email):
		errs.add("email", "Please enter a valid email address")
	}
}

// ValidPhone reports whether a sanitized phone number has at least
// MinPhoneDigits digits
func ValidPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= MinPhoneDigits
}

// validatePhone accepts an empty phone; the field is optional everywhere
func validatePhone(errs ValidationErrors, phone string) {
	if strings.TrimSpace(phone) == "" {
		return
	}
	if !ValidPhone(phone) {
		errs.add("phone", "Please enter a valid phone number")
	}
}
