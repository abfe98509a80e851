package validation

import (
	"context"
	"fmt"
	"log/slog"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/validation/domain"
)

// Engine runs a fixed set of rules against change events.
type Engine struct {
	rules  []Rule
	logger *slog.Logger
}

// NewEngine creates an Engine over the given rules.
func NewEngine(logger *slog.Logger, rules ...Rule) *Engine {
	return &Engine{rules: rules, logger: logger}
}

// Rules returns the registered rules in order.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Validate runs every rule and aggregates their findings. A rule that fails or
// panics yields a synthetic ERROR finding with its id and the rest still run.
func (e *Engine) Validate(ctx context.Context, evt *eventDomain.ChangeEvent) *Result {
	result := &Result{}

	for _, rule := range e.rules {
		findings, err := e.run(ctx, rule, evt)
		if err != nil {
			if e.logger != nil {
				e.logger.Error("validation rule failed",
					slog.String("rule_id", rule.ID()),
					slog.String("event_id", evt.EventID),
					slog.Any("error", err),
				)
			}
			result.Add(errorFinding(rule.ID(), "", "", "internal validation error: "+err.Error()))
			continue
		}
		for i := range findings {
			if findings[i].RuleID == "" {
				findings[i].RuleID = rule.ID()
			}
		}
		result.Add(findings...)
	}

	if e.logger != nil {
		e.logger.Debug("validation finished",
			slog.String("event_id", evt.EventID),
			slog.Bool("valid", result.Valid()),
			slog.Int("errors", len(result.Errors())),
			slog.Int("warnings", len(result.Warnings())),
		)
	}

	return result
}

func (e *Engine) run(
	ctx context.Context,
	rule Rule,
	evt *eventDomain.ChangeEvent,
) (findings []domain.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rule.Check(ctx, evt)
}
