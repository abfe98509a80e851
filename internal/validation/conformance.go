package validation

import (
	"regexp"

	validation "github.com/jellydator/validation"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/validation/domain"
)

// Rule identifiers for reference-table conformance.
const (
	RuleCategory       = "VC-001"
	RuleContractType   = "VC-002"
	RuleOccupationCode = "VC-003"
	RuleStateCode      = "VC-004"
	RuleNationality    = "VC-005"
	RuleMaritalStatus  = "VC-006"
	RuleRace           = "VC-007"
	RuleEducationLevel = "VC-008"
	RuleDisability     = "VC-010"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

// codeRule describes one coded field checked against a reference table.
type codeRule struct {
	id       string
	field    string
	label    string
	required bool
	severity domain.Severity
	value    func(*eventDomain.ChangeEvent) string
	table    func(*ReferenceTables) []string
}

func (c codeRule) rule(ref ReferenceSource) Rule {
	return pure(c.id, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		value := c.value(evt)
		if value == "" {
			if c.required {
				return []domain.Finding{errorFinding(c.id, c.field, "", c.label+" is required")}
			}
			return nil
		}
		if err := validation.Validate(value, OneOf(c.table(ref.Tables()))); err != nil {
			f := warningFinding(c.id, c.field, value, c.label+" "+value+" is not a known code")
			f.Severity = c.severity
			return []domain.Finding{f}
		}
		return nil
	})
}

// CategoryRule requires a known worker category.
func CategoryRule(ref ReferenceSource) Rule {
	return codeRule{
		id: RuleCategory, field: "category", label: "category", required: true, severity: domain.SeverityError,
		value: func(e *eventDomain.ChangeEvent) string { return e.Category },
		table: func(t *ReferenceTables) []string { return t.Categories },
	}.rule(ref)
}

// ContractTypeRule requires a known contract type.
func ContractTypeRule(ref ReferenceSource) Rule {
	return codeRule{
		id: RuleContractType, field: "contractType", label: "contract type", required: true,
		severity: domain.SeverityError,
		value:    func(e *eventDomain.ChangeEvent) string { return e.ContractType },
		table:    func(t *ReferenceTables) []string { return t.ContractTypes },
	}.rule(ref)
}

// NationalityRule rejects unknown nationality codes.
func NationalityRule(ref ReferenceSource) Rule {
	return codeRule{
		id: RuleNationality, field: "nationality", label: "nationality", severity: domain.SeverityError,
		value: func(e *eventDomain.ChangeEvent) string { return e.Nationality },
		table: func(t *ReferenceTables) []string { return t.Nationalities },
	}.rule(ref)
}

// StateCodeRule warns on unknown state codes.
func StateCodeRule(ref ReferenceSource) Rule {
	return codeRule{
		id: RuleStateCode, field: "stateCode", label: "state code", severity: domain.SeverityWarning,
		value: func(e *eventDomain.ChangeEvent) string { return e.StateCode },
		table: func(t *ReferenceTables) []string { return t.StateCodes },
	}.rule(ref)
}

// MaritalStatusRule warns on unknown marital status codes.
func MaritalStatusRule(ref ReferenceSource) Rule {
	return codeRule{
		id: RuleMaritalStatus, field: "maritalStatus", label: "marital status", severity: domain.SeverityWarning,
		value: func(e *eventDomain.ChangeEvent) string { return e.MaritalStatus },
		table: func(t *ReferenceTables) []string { return t.MaritalStatuses },
	}.rule(ref)
}

// RaceRule warns on unknown race codes.
func RaceRule(ref ReferenceSource) Rule {
	return codeRule{
		id: RuleRace, field: "race", label: "race", severity: domain.SeverityWarning,
		value: func(e *eventDomain.ChangeEvent) string { return e.Race },
		table: func(t *ReferenceTables) []string { return t.Races },
	}.rule(ref)
}

// EducationLevelRule warns on unknown education level codes.
func EducationLevelRule(ref ReferenceSource) Rule {
	return codeRule{
		id: RuleEducationLevel, field: "educationLevel", label: "education level", severity: domain.SeverityWarning,
		value: func(e *eventDomain.ChangeEvent) string { return e.EducationLevel },
		table: func(t *ReferenceTables) []string { return t.EducationLevels },
	}.rule(ref)
}

// DisabilityRule warns on unknown disability codes.
func DisabilityRule(ref ReferenceSource) Rule {
	return codeRule{
		id: RuleDisability, field: "disability", label: "disability", severity: domain.SeverityWarning,
		value: func(e *eventDomain.ChangeEvent) string { return e.Disability },
		table: func(t *ReferenceTables) []string { return t.Disabilities },
	}.rule(ref)
}

// OccupationCodeRule requires an occupation code and warns when it is not six digits.
func OccupationCodeRule() Rule {
	return pure(RuleOccupationCode, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		if evt.OccupationCode == "" {
			return []domain.Finding{errorFinding(RuleOccupationCode, "occupationCode", "", "occupation code is required")}
		}
		if !sixDigits.MatchString(evt.OccupationCode) {
			return []domain.Finding{warningFinding(RuleOccupationCode, "occupationCode", evt.OccupationCode,
				"occupation code must contain 6 numeric digits")}
		}
		return nil
	})
}
