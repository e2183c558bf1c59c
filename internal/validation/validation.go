package validation

import (
	"errors"
	"strings"
	"unicode"
)

// ErrPostalCodeEmpty is returned when the postal code is empty or whitespace-only after trim.
var ErrPostalCodeEmpty = errors.New("postal code is required")

// ErrPostalCodeTooShort is returned when the postal code is shorter than the minimum length.
var ErrPostalCodeTooShort = errors.New("postal code too short")

// ErrPostalCodeTooLong is returned when the postal code exceeds the maximum length.
var ErrPostalCodeTooLong = errors.New("postal code too long")

// ErrPostalCodeInvalidChars is returned when the postal code contains disallowed characters.
var ErrPostalCodeInvalidChars = errors.New("postal code contains invalid characters")

// PostalCodeMinLength and PostalCodeMaxLength bound accepted postal codes.
const (
	PostalCodeMinLength = 3
	PostalCodeMaxLength = 10
)

// ValidatePostalCode trims the input, enforces length bounds (3-10 runes), and
// restricts to ASCII letters, digits, space and hyphen. Returns the trimmed
// string or an error suitable for a 400 response.
func ValidatePostalCode(input string) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrPostalCodeEmpty
	}
	if n < PostalCodeMinLength {
		return "", ErrPostalCodeTooShort
	}
	if n > PostalCodeMaxLength {
		return "", ErrPostalCodeTooLong
	}
	for _, c := range r {
		if !isAllowedPostalCodeRune(c) {
			return "", ErrPostalCodeInvalidChars
		}
	}
	return s, nil
}

// isAllowedPostalCodeRune returns true for ASCII letters, digits, space and hyphen.
func isAllowedPostalCodeRune(r rune) bool {
	if r > unicode.MaxASCII {
		return false
	}
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-':
		return true
	}
	return false
}
