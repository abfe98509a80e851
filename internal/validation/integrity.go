package validation

import (
	"context"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	personDomain "github.com/allisson/workforce-sync/internal/person/domain"
	"github.com/allisson/workforce-sync/internal/validation/domain"
)

// Rule identifiers for cross-record integrity.
const (
	RuleNationalIDUnique   = "VI-001"
	RuleSecondaryIDUnique  = "VI-002"
	RuleRegistrationUnique = "VI-003"
	RuleLaborCardUnique    = "VI-004"
)

// RecordLookup counts persons holding a natural key value under a different source id.
type RecordLookup interface {
	CountByKeyExcluding(ctx context.Context, key personDomain.NaturalKey, value, sourceID string) (int64, error)
}

func uniqueKeyRule(
	id string,
	key personDomain.NaturalKey,
	field, label string,
	lookup RecordLookup,
	value func(*eventDomain.ChangeEvent) string,
) Rule {
	return RuleFunc{
		RuleID: id,
		Fn: func(ctx context.Context, evt *eventDomain.ChangeEvent) ([]domain.Finding, error) {
			v := value(evt)
			if v == "" {
				return nil, nil
			}
			count, err := lookup.CountByKeyExcluding(ctx, key, v, evt.SourceID)
			if err != nil {
				return nil, err
			}
			if count > 0 {
				return []domain.Finding{errorFinding(id, field, v, label+" already belongs to another worker")}, nil
			}
			return nil, nil
		},
	}
}

// NationalIDUniqueRule rejects a national id already held by another source id.
func NationalIDUniqueRule(lookup RecordLookup) Rule {
	return uniqueKeyRule(RuleNationalIDUnique, personDomain.KeyNationalID, "nationalId", "national id", lookup,
		func(e *eventDomain.ChangeEvent) string { return e.NationalID })
}

// SecondaryIDUniqueRule rejects a secondary id already held by another source id.
func SecondaryIDUniqueRule(lookup RecordLookup) Rule {
	return uniqueKeyRule(RuleSecondaryIDUnique, personDomain.KeySecondaryID, "secondaryId", "secondary id", lookup,
		func(e *eventDomain.ChangeEvent) string { return e.SecondaryID })
}

// RegistrationUniqueRule rejects a registration number already held by another source id.
func RegistrationUniqueRule(lookup RecordLookup) Rule {
	return uniqueKeyRule(RuleRegistrationUnique, personDomain.KeyRegistrationNumber, "registrationNumber",
		"registration number", lookup,
		func(e *eventDomain.ChangeEvent) string { return e.RegistrationNumber })
}

// LaborCardUniqueRule rejects a labor card number already held by another source id.
func LaborCardUniqueRule(lookup RecordLookup) Rule {
	return uniqueKeyRule(RuleLaborCardUnique, personDomain.KeyLaborCard, "laborCard", "labor card", lookup,
		func(e *eventDomain.ChangeEvent) string { return e.LaborCard })
}
