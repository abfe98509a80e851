package validation

import (
	"context"
	"time"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/validation/domain"
)

// Rule is one independent check over a change event. Rules must not depend on
// each other's findings; registration order only affects display.
type Rule interface {
	ID() string
	Check(ctx context.Context, evt *eventDomain.ChangeEvent) ([]domain.Finding, error)
}

// Clock returns the current time. Rules comparing against today take one.
type Clock func() time.Time

// RuleFunc adapts a plain function into a Rule.
type RuleFunc struct {
	RuleID string
	Fn     func(ctx context.Context, evt *eventDomain.ChangeEvent) ([]domain.Finding, error)
}

// ID returns the rule identifier.
func (r RuleFunc) ID() string { return r.RuleID }

// Check runs the wrapped function.
func (r RuleFunc) Check(ctx context.Context, evt *eventDomain.ChangeEvent) ([]domain.Finding, error) {
	return r.Fn(ctx, evt)
}

// pure wraps a check that cannot fail into a RuleFunc.
func pure(id string, fn func(evt *eventDomain.ChangeEvent) []domain.Finding) RuleFunc {
	return RuleFunc{
		RuleID: id,
		Fn: func(_ context.Context, evt *eventDomain.ChangeEvent) ([]domain.Finding, error) {
			return fn(evt), nil
		},
	}
}

func errorFinding(ruleID, field, value, message string) domain.Finding {
	return domain.Finding{
		RuleID:   ruleID,
		Severity: domain.SeverityError,
		Field:    field,
		Value:    value,
		Message:  message,
	}
}

func warningFinding(ruleID, field, value, message string) domain.Finding {
	return domain.Finding{
		RuleID:   ruleID,
		Severity: domain.SeverityWarning,
		Field:    field,
		Value:    value,
		Message:  message,
	}
}
