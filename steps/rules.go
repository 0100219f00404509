// ABOUTME: Field format rules shared by step validators
// ABOUTME: Email, North American phone, and Canadian postal code checks
package steps

import (
	"regexp"
	"strings"
)

const maxEmailLength = 254

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Tolerates separators and an optional +1 country code.
	phonePattern = regexp.MustCompile(`^\+?1?[-. (]*\d{3}[-. )]*\d{3}[-. ]*\d{4}$`)

	postalCodePattern = regexp.MustCompile(`^[A-Za-z]\d[A-Za-z][ -]?\d[A-Za-z]\d$`)
)

// disposableDomains are rejected at email capture regardless of format.
// Matching is case-insensitive and exact on the domain part.
var disposableDomains = map[string]struct{}{
	"mailinator.com":    {},
	"guerrillamail.com": {},
	"10minutemail.com":  {},
	"tempmail.com":      {},
	"temp-mail.org":     {},
	"throwaway.email":   {},
	"yopmail.com":       {},
	"trashmail.com":     {},
	"getnada.com":       {},
	"maildrop.cc":       {},
	"sharklasers.com":   {},
	"dispostable.com":   {},
}

// checkEmail validates format, length, and the disposable-domain list,
// recording violations on v. The disposable case gets its own code so
// callers can distinguish it.
func checkEmail(v *violations, field, email string) {
	if email == "" {
		v.add(field, CodeRequired, "email is required")
		return
	}
	if len(email) > maxEmailLength {
		v.add(field, CodeTooLong, "email is too long")
		return
	}
	if !emailPattern.MatchString(email) {
		v.add(field, CodeInvalid, "email format is invalid")
		return
	}
	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])
	if _, blocked := disposableDomains[domain]; blocked {
		v.add(field, CodeDisposable, "disposable email addresses are not accepted")
	}
}

func validPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

func validPostalCode(code string) bool {
	return postalCodePattern.MatchString(code)
}

// normalizePostalCode uppercases an accepted postal code.
func normalizePostalCode(code string) string {
	return strings.ToUpper(code)
}
