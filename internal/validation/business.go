package validation

import (
	"fmt"
	"time"

	validation "github.com/jellydator/validation"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/validation/domain"
)

// Rule identifiers for business checks.
const (
	RuleAgeAtAdmission     = "VN-001"
	RuleMaximumAge         = "VN-002"
	RuleAdmissionNotBefore = "VN-003"
	RuleTerminationAfter   = "VN-004"
	RuleStatusConsistency  = "VN-005"
	RuleSalaryMinimumWage  = "VN-007"
	RuleSalaryCeiling      = "VN-008"
	RuleJobTitleLength     = "VN-009"
	RuleDepartmentLength   = "VN-010"
)

const (
	minimumAgeAtAdmission     = 16
	maximumAge                = 120
	earliestAdmissionYear     = 1900
	fieldBirthAndAdmissionDay = "birthDate,admissionDate"
)

// yearsBetween returns the number of whole years from one date to another.
func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}

// AgeAtAdmissionRule rejects workers younger than 16 on their admission date.
func AgeAtAdmissionRule() Rule {
	return pure(RuleAgeAtAdmission, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		if evt.BirthDate == nil || evt.AdmissionDate == nil {
			return nil
		}
		if yearsBetween(evt.BirthDate.Time, evt.AdmissionDate.Time) < minimumAgeAtAdmission {
			return []domain.Finding{errorFinding(RuleAgeAtAdmission, fieldBirthAndAdmissionDay,
				evt.BirthDate.String()+"/"+evt.AdmissionDate.String(),
				fmt.Sprintf("worker must be at least %d years old at admission", minimumAgeAtAdmission))}
		}
		return nil
	})
}

// MaximumAgeRule warns on implausible ages.
func MaximumAgeRule(clock Clock) Rule {
	return pure(RuleMaximumAge, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		if evt.BirthDate == nil {
			return nil
		}
		if age := yearsBetween(evt.BirthDate.Time, clock()); age > maximumAge {
			return []domain.Finding{warningFinding(RuleMaximumAge, "birthDate", evt.BirthDate.String(),
				fmt.Sprintf("worker age %d is above %d years", age, maximumAge))}
		}
		return nil
	})
}

// AdmissionNotBeforeRule rejects admissions before 1900-01-01.
func AdmissionNotBeforeRule() Rule {
	earliest := eventDomain.NewDate(earliestAdmissionYear, time.January, 1)
	return pure(RuleAdmissionNotBefore, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		if evt.AdmissionDate == nil {
			return nil
		}
		if evt.AdmissionDate.Before(earliest.Time) {
			return []domain.Finding{errorFinding(RuleAdmissionNotBefore, "admissionDate", evt.AdmissionDate.String(),
				"admission date must not be before "+earliest.String())}
		}
		return nil
	})
}

// TerminationAfterAdmissionRule rejects terminations dated before admission.
func TerminationAfterAdmissionRule() Rule {
	return pure(RuleTerminationAfter, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		if evt.TerminationDate == nil || evt.AdmissionDate == nil {
			return nil
		}
		if evt.TerminationDate.Before(evt.AdmissionDate.Time) {
			return []domain.Finding{errorFinding(RuleTerminationAfter, "terminationDate", evt.TerminationDate.String(),
				"termination date must not be before admission date "+evt.AdmissionDate.String())}
		}
		return nil
	})
}

// StatusConsistencyRule checks status against the termination date.
func StatusConsistencyRule() Rule {
	return pure(RuleStatusConsistency, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		switch {
		case evt.Status == eventDomain.WorkerActive && evt.TerminationDate != nil:
			return []domain.Finding{errorFinding(RuleStatusConsistency, "status", evt.Status,
				"active worker must not have a termination date")}
		case evt.Status == eventDomain.WorkerInactive && evt.TerminationDate == nil:
			return []domain.Finding{warningFinding(RuleStatusConsistency, "status", evt.Status,
				"inactive worker has no termination date")}
		}
		return nil
	})
}

// SalaryMinimumWageRule warns when salary is below the legal minimum.
func SalaryMinimumWageRule(ref ReferenceSource) Rule {
	return pure(RuleSalaryMinimumWage, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		if evt.Salary == nil || *evt.Salary <= 0 {
			return nil
		}
		if minimum := ref.Tables().MinimumWage; *evt.Salary < minimum {
			return []domain.Finding{warningFinding(RuleSalaryMinimumWage, "salary", evt.Salary.String(),
				"salary is below the minimum wage of "+minimum.String())}
		}
		return nil
	})
}

// SalaryCeilingRule warns when salary is above the sanity bound.
func SalaryCeilingRule(ref ReferenceSource) Rule {
	return pure(RuleSalaryCeiling, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		if evt.Salary == nil {
			return nil
		}
		if ceiling := ref.Tables().SalaryCeiling; *evt.Salary > ceiling {
			return []domain.Finding{warningFinding(RuleSalaryCeiling, "salary", evt.Salary.String(),
				"salary is above "+ceiling.String()+", check for a typo")}
		}
		return nil
	})
}

// JobTitleRule warns on job titles outside 3 to 100 characters.
func JobTitleRule() Rule {
	return lengthWarning(RuleJobTitleLength, "jobTitle", "job title", 3, 100,
		func(evt *eventDomain.ChangeEvent) string { return evt.JobTitle })
}

// DepartmentRule warns on departments outside 2 to 100 characters.
func DepartmentRule() Rule {
	return lengthWarning(RuleDepartmentLength, "department", "department", 2, 100,
		func(evt *eventDomain.ChangeEvent) string { return evt.Department })
}

func lengthWarning(id, field, label string, minLen, maxLen int, get func(*eventDomain.ChangeEvent) string) Rule {
	return pure(id, func(evt *eventDomain.ChangeEvent) []domain.Finding {
		value := get(evt)
		err := validation.Validate(value,
			validation.Length(minLen, maxLen).Error(fmt.Sprintf("%s must be between %d and %d characters", label, minLen, maxLen)),
		)
		if err != nil {
			return []domain.Finding{warningFinding(id, field, value, err.Error())}
		}
		return nil
	})
}
