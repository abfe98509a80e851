package dto

import (
	"encoding/json"
	"time"

	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
)

// DeadLetterResponse represents a dead letter in API responses.
type DeadLetterResponse struct {
	ID            string          `json:"id"`
	EventID       string          `json:"event_id"`
	Kind          string          `json:"kind"`
	SourceID      string          `json:"source_id"`
	Payload       json.RawMessage `json:"payload"`
	ErrorMessage  string          `json:"error_message"`
	StackTrace    string          `json:"stack_trace,omitempty"`
	RetryCount    int             `json:"retry_count"`
	MaxRetries    int             `json:"max_retries"`
	Status        string          `json:"status"`
	Topic         string          `json:"topic"`
	Partition     int             `json:"partition"`
	Offset        int64           `json:"offset"`
	CorrelationID string          `json:"correlation_id"`
	CreatedAt     time.Time       `json:"created_at"`
	LastRetryAt   *time.Time      `json:"last_retry_at,omitempty"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy    *string         `json:"resolved_by,omitempty"`
}

// MapDeadLetterToResponse converts a domain dead letter to an API response.
// Payloads that are not valid JSON are returned as a JSON string.
func MapDeadLetterToResponse(dl *deadLetterDomain.DeadLetter) DeadLetterResponse {
	payload := json.RawMessage(dl.Payload)
	if !json.Valid(dl.Payload) {
		payload, _ = json.Marshal(string(dl.Payload))
	}
	return DeadLetterResponse{
		ID:            dl.ID.String(),
		EventID:       dl.EventID,
		Kind:          dl.Kind,
		SourceID:      dl.SourceID,
		Payload:       payload,
		ErrorMessage:  dl.ErrorMessage,
		StackTrace:    dl.StackTrace,
		RetryCount:    dl.RetryCount,
		MaxRetries:    dl.MaxRetries,
		Status:        string(dl.Status),
		Topic:         dl.Topic,
		Partition:     dl.Partition,
		Offset:        dl.Offset,
		CorrelationID: dl.CorrelationID.String(),
		CreatedAt:     dl.CreatedAt,
		LastRetryAt:   dl.LastRetryAt,
		ResolvedAt:    dl.ResolvedAt,
		ResolvedBy:    dl.ResolvedBy,
	}
}

// ListDeadLettersResponse represents a paginated list of dead letters.
type ListDeadLettersResponse struct {
	Data []DeadLetterResponse `json:"data"`
}

// MapDeadLettersToListResponse converts domain dead letters to a list API response.
func MapDeadLettersToListResponse(deadLetters []*deadLetterDomain.DeadLetter) ListDeadLettersResponse {
	responses := make([]DeadLetterResponse, 0, len(deadLetters))
	for _, dl := range deadLetters {
		responses = append(responses, MapDeadLetterToResponse(dl))
	}
	return ListDeadLettersResponse{Data: responses}
}
