// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "UA"

var nonDigits = regexp.MustCompile(`\D`)

// Normalize converts a phone number to the canonical digit-only
// international form used as the client lookup key (E.164 without the
// leading plus). Numbers that cannot be parsed fall back to a digit-only
// cleanup with the local country prefix applied, so lookups stay stable
// even for malformed input.
func Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err == nil && phonenumbers.IsValidNumber(number) {
		return strings.TrimPrefix(phonenumbers.Format(number, phonenumbers.E164), "+")
	}

	digits := nonDigits.ReplaceAllString(trimmed, "")
	if strings.HasPrefix(digits, "0") {
		digits = "38" + digits
	} else if !strings.HasPrefix(digits, "38") && len(digits) == 10 {
		digits = "38" + digits
	}
	return digits
}

// NormalizeE164 formats a phone number to E.164 with the leading plus,
// for outbound integrations that require it. Falls back to "+" plus the
// canonical digit form when parsing fails.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err == nil && phonenumbers.IsValidNumber(number) {
		return phonenumbers.Format(number, phonenumbers.E164)
	}

	return "+" + Normalize(trimmed)
}
