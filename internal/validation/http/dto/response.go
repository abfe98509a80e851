// Package dto provides data transfer objects for validation finding responses.
package dto

import (
	"time"

	validationDomain "github.com/allisson/workforce-sync/internal/validation/domain"
)

// FindingResponse represents a validation finding in API responses.
type FindingResponse struct {
	ID            string    `json:"id"`
	RuleID        string    `json:"rule_id"`
	Severity      string    `json:"severity"`
	Message       string    `json:"message"`
	Field         string    `json:"field"`
	Value         string    `json:"value,omitempty"`
	EventID       string    `json:"event_id"`
	SourceID      string    `json:"source_id"`
	Topic         string    `json:"topic"`
	Partition     int       `json:"partition"`
	Offset        int64     `json:"offset"`
	CorrelationID string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// MapFindingToResponse converts a domain finding to an API response.
func MapFindingToResponse(f validationDomain.Finding) FindingResponse {
	return FindingResponse{
		ID:            f.ID.String(),
		RuleID:        f.RuleID,
		Severity:      string(f.Severity),
		Message:       f.Message,
		Field:         f.Field,
		Value:         f.Value,
		EventID:       f.EventID,
		SourceID:      f.SourceID,
		Topic:         f.Topic,
		Partition:     f.Partition,
		Offset:        f.Offset,
		CorrelationID: f.CorrelationID.String(),
		CreatedAt:     f.CreatedAt,
	}
}

// ListFindingsResponse represents a paginated list of findings.
type ListFindingsResponse struct {
	Data []FindingResponse `json:"data"`
}

// MapFindingsToListResponse converts domain findings to a list API response.
func MapFindingsToListResponse(findings []validationDomain.Finding) ListFindingsResponse {
	responses := make([]FindingResponse, 0, len(findings))
	for _, f := range findings {
		responses = append(responses, MapFindingToResponse(f))
	}
	return ListFindingsResponse{Data: responses}
}

// RuleCountResponse is the number of findings one rule produced.
type RuleCountResponse struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Count    int64  `json:"count"`
}

// StatsResponse aggregates findings per rule.
type StatsResponse struct {
	Data []RuleCountResponse `json:"data"`
}

// MapRuleCountsToStatsResponse converts rule counts to a stats API response.
func MapRuleCountsToStatsResponse(counts []validationDomain.RuleCount) StatsResponse {
	responses := make([]RuleCountResponse, 0, len(counts))
	for _, rc := range counts {
		responses = append(responses, RuleCountResponse{
			RuleID:   rc.RuleID,
			Severity: string(rc.Severity),
			Count:    rc.Count,
		})
	}
	return StatsResponse{Data: responses}
}
