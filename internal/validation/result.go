package validation

import (
	"github.com/allisson/workforce-sync/internal/validation/domain"
)

// Result aggregates the findings of every rule run against one event.
type Result struct {
	errors   []domain.Finding
	warnings []domain.Finding
}

// Add files a finding under its severity.
func (r *Result) Add(findings ...domain.Finding) {
	for _, f := range findings {
		if f.Severity == domain.SeverityError {
			r.errors = append(r.errors, f)
			continue
		}
		r.warnings = append(r.warnings, f)
	}
}

// Valid is true when no ERROR finding is present. Warnings never affect it.
func (r *Result) Valid() bool {
	return len(r.errors) == 0
}

// Errors returns the ERROR findings in rule order.
func (r *Result) Errors() []domain.Finding {
	return r.errors
}

// Warnings returns the WARNING findings in rule order.
func (r *Result) Warnings() []domain.Finding {
	return r.warnings
}

// Findings returns errors followed by warnings.
func (r *Result) Findings() []domain.Finding {
	all := make([]domain.Finding, 0, len(r.errors)+len(r.warnings))
	all = append(all, r.errors...)
	return append(all, r.warnings...)
}
