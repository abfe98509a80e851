package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"
	"golang.org/x/text/unicode/norm"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/validation/domain"
)

// Rule identifiers for structural checks.
const (
	RuleNationalID    = "VE-001"
	RuleSecondaryID   = "VE-002"
	RuleFullName      = "VE-003"
	RuleBirthDate     = "VE-004"
	RuleAdmissionDate = "VE-005"
	RuleSalary        = "VE-006"
	RuleEmail         = "VE-007"
	RulePhone         = "VE-008"
)

var elevenDigits = regexp.MustCompile(`^\d{11}$`)

// NationalIDRule requires an 11-digit national id that is not one repeated digit.
func NationalIDRule() Rule {
	return pure(RuleNationalID, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		err := validation.Validate(evt.NationalID,
			validation.Required.Error("national id is required"),
			validation.Match(elevenDigits).Error("national id must contain 11 numeric digits"),
			NotRepeatedDigit.Error("national id must not be a single repeated digit"),
		)
		if err != nil {
			return []domain.Finding{errorFinding(RuleNationalID, "nationalId", evt.NationalID, err.Error())}
		}
		return nil
	})
}

// SecondaryIDRule checks the optional secondary id format.
func SecondaryIDRule() Rule {
	return pure(RuleSecondaryID, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		if err := Digits(11).Validate(evt.SecondaryID); err != nil {
			return []domain.Finding{
				errorFinding(RuleSecondaryID, "secondaryId", evt.SecondaryID, "secondary id "+err.Error()),
			}
		}
		return nil
	})
}

// FullNameRule requires a non-blank name between 3 and 200 characters. Length
// is measured on the NFC form, so a decomposed "José" counts four characters.
func FullNameRule() Rule {
	return pure(RuleFullName, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		err := validation.Validate(norm.NFC.String(evt.FullName),
			validation.Required.Error("full name is required"),
			NotBlank.Error("full name must not be blank"),
			validation.RuneLength(3, 200).Error("full name must be between 3 and 200 characters"),
		)
		if err != nil {
			return []domain.Finding{errorFinding(RuleFullName, "fullName", evt.FullName, err.Error())}
		}
		return nil
	})
}

// BirthDateRule requires a birth date that is not in the future.
func BirthDateRule(clock Clock) Rule {
	return pure(RuleBirthDate, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		return requiredPastDate(RuleBirthDate, "birthDate", "birth date", evt.BirthDate, clock)
	})
}

// AdmissionDateRule requires an admission date that is not in the future.
func AdmissionDateRule(clock Clock) Rule {
	return pure(RuleAdmissionDate, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		return requiredPastDate(RuleAdmissionDate, "admissionDate", "admission date", evt.AdmissionDate, clock)
	})
}

func requiredPastDate(ruleID, field, label string, date *eventDomain.Date, clock Clock) []domain.Finding {
	if date == nil || date.IsZero() {
		return []domain.Finding{errorFinding(ruleID, field, "", label+" is required")}
	}
	today := eventDomain.DateOf(clock())
	if date.After(today.Time) {
		return []domain.Finding{errorFinding(ruleID, field, date.String(), label+" must not be in the future")}
	}
	return nil
}

// SalaryRule requires a positive salary. The minimum wage is a business rule.
func SalaryRule() Rule {
	return pure(RuleSalary, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		if evt.Salary == nil {
			return []domain.Finding{errorFinding(RuleSalary, "salary", "", "salary is required")}
		}
		if salary := *evt.Salary; salary <= 0 {
			return []domain.Finding{errorFinding(RuleSalary, "salary", salary.String(), "salary must be greater than zero")}
		}
		return nil
	})
}

// EmailRule warns on malformed email addresses.
func EmailRule() Rule {
	return pure(RuleEmail, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		if err := Email.Validate(strings.TrimSpace(evt.Email)); err != nil {
			return []domain.Finding{warningFinding(RuleEmail, "email", evt.Email, "email "+err.Error())}
		}
		return nil
	})
}

// PhoneRule warns when a phone number does not have 10 or 11 digits.
func PhoneRule() Rule {
	return pure(RulePhone, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		if evt.Phone == "" {
			return nil
		}
		if n := countDigits(evt.Phone); n < 10 || n > 11 {
			return []domain.Finding{warningFinding(RulePhone, "phone", evt.Phone, "phone must have 10 or 11 digits")}
		}
		return nil
	})
}
