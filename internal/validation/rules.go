// Package validation holds the rule engine that gates which change events may
// be persisted, its rule set and the reusable field rules shared with HTTP DTOs.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/workforce-sync/internal/errors"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	digitsOnly = regexp.MustCompile(`^\d+$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Email validates email format using regex
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Digits validates that a string holds exactly n decimal digits.
func Digits(n int) validation.StringRule {
	return validation.NewStringRuleWithError(
		func(s string) bool {
			return len(s) == n && digitsOnly.MatchString(s)
		},
		validation.NewError("validation_digits", "must contain exactly {{.count}} numeric digits").
			SetParams(map[string]any{"count": n}),
	)
}

// NotRepeatedDigit rejects values made of a single repeated character, such as 11111111111.
var NotRepeatedDigit = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.Count(s, s[:1]) != len(s)
	},
	validation.NewError("validation_repeated_digit", "must not be a single repeated digit"),
)

// OneOf validates membership in a set loaded at runtime.
func OneOf(values []string) validation.Rule {
	allowed := make([]any, len(values))
	for i, v := range values {
		allowed[i] = v
	}
	return validation.In(allowed...)
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
