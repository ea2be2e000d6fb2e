// Package inputguard sanitizes and validates untrusted strings before they
// are accepted by a form, persisted, or sent to the backend.
//
// Every function is total: it never returns an error and never panics on
// adversarial input. Results are bounded and may be empty. Lengths are
// counted in Unicode code points and truncation never splits one.
package inputguard

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// DefaultStringLength is the SanitizeString bound used by SanitizeStringDefault.
	DefaultStringLength = 1000
	// MaxEmailLength bounds both SanitizeEmail output and ValidateEmail input.
	MaxEmailLength = 255
	// MaxPhoneLength bounds SanitizePhoneNumber output.
	MaxPhoneLength = 20
	// DefaultAlphanumericLength is the SanitizeAlphanumeric bound used by SanitizeAlphanumericDefault.
	DefaultAlphanumericLength = 100
	// MaxRichTextLength bounds SanitizeRichText output.
	MaxRichTextLength = 5000
)

var (
	// whitespace here is the ECMAScript class: ASCII controls, Unicode
	// separators and the byte order mark
	emailRegex = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

	angleBrackets   = strings.NewReplacer("<", "", ">", "")
	emailStripChars = strings.NewReplacer("<", "", ">", "", "'", "", `"`, "")
	sqlStripChars   = strings.NewReplacer("'", "", `"`, "", `\`, "")

	// htmlEscapes is applied in order; ampersand must come first so entities
	// produced by later steps are not escaped again.
	htmlEscapes = []struct{ from, to string }{
		{"&", "&amp;"},
		{"<", "&lt;"},
		{">", "&gt;"},
		{`"`, "&quot;"},
		{"'", "&#x27;"},
		{"/", "&#x2F;"},
	}

	richTextPolicy = bluemonday.StrictPolicy()
)

// SanitizeString trims input, truncates it to maxLength code points and
// removes angle brackets. It is a display-safety measure, not HTML escaping.
func SanitizeString(input string, maxLength int) string {
	return angleBrackets.Replace(truncate(strings.TrimSpace(input), maxLength))
}

// SanitizeStringDefault is SanitizeString with DefaultStringLength
func SanitizeStringDefault(input string) string {
	return SanitizeString(input, DefaultStringLength)
}

// SanitizeValue is SanitizeString for loosely typed callers such as decoded
// JSON. Anything that is not a string yields "".
func SanitizeValue(input any, maxLength int) string {
	s, ok := input.(string)
	if !ok {
		return ""
	}
	return SanitizeString(s, maxLength)
}

// SanitizeEmail lower-cases, trims and bounds an email address and strips
// quotes and angle brackets. It does not check the address shape.
func SanitizeEmail(email string) string {
	return emailStripChars.Replace(truncate(strings.TrimSpace(strings.ToLower(email)), MaxEmailLength))
}

// ValidateEmail reports whether email has a single @ and a dotted domain and
// is at most MaxEmailLength long. It is a coarse check, not RFC 5322.
func ValidateEmail(email string) bool {
	return utf8.RuneCountInString(email) <= MaxEmailLength && emailRegex.MatchString(email)
}

// SanitizeHTML entity-escapes & < > " ' and /. Escaping is one-shot:
// applying it twice escapes the ampersands of the first pass.
func SanitizeHTML(input string) string {
	for _, esc := range htmlEscapes {
		input = strings.ReplaceAll(input, esc.from, esc.to)
	}
	return input
}

// SanitizePhoneNumber keeps digits, plus, hyphen, parentheses and spaces and
// truncates to MaxPhoneLength.
func SanitizePhoneNumber(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if (r >= '0' && r <= '9') || r == '+' || r == '-' || r == '(' || r == ')' || r == ' ' {
			b.WriteRune(r)
		}
	}
	return truncate(b.String(), MaxPhoneLength)
}

// SanitizeURL returns the canonical form of raw when it is an absolute http
// or https URL with a host, and "" otherwise. The canonical form has a lower
// case scheme and host and at least the root path.
func SanitizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}

	if u.Host == "" || u.Opaque != "" {
		return ""
	}

	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	return u.String()
}

// PreventSQLInjection strips quotes and backslashes. It is defence in depth
// and never a substitute for parameterized queries.
func PreventSQLInjection(input string) string {
	return sqlStripChars.Replace(input)
}

// SanitizeAlphanumeric keeps ASCII letters and digits, whitespace, hyphen and
// underscore, then trims and truncates to maxLength.
func SanitizeAlphanumeric(input string, maxLength int) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if isAlphanumeric(r) || isSpace(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return truncate(strings.TrimSpace(b.String()), maxLength)
}

// SanitizeAlphanumericDefault is SanitizeAlphanumeric with DefaultAlphanumericLength
func SanitizeAlphanumericDefault(input string) string {
	return SanitizeAlphanumeric(input, DefaultAlphanumericLength)
}

// SanitizeRichText removes all markup from user-generated text such as post
// bodies and returns the remaining plain text, trimmed and bounded. The
// result is raw text; escape it with SanitizeHTML when rendering.
func SanitizeRichText(input string) string {
	text := html.UnescapeString(richTextPolicy.Sanitize(input))
	return truncate(strings.TrimSpace(text), MaxRichTextLength)
}

func truncate(s string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}

	count := 0
	for i := range s {
		if count == maxLength {
			return s[:i]
		}
		count++
	}
	return s
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// isSpace matches the same whitespace class as emailRegex
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', '\uFEFF':
		return true
	}
	return unicode.In(r, unicode.Z)
}
