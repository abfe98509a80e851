// Package dto provides data transfer objects for person history responses.
package dto

import (
	"time"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	personDomain "github.com/allisson/workforce-sync/internal/person/domain"
)

// HistoryResponse represents one version of a person in API responses.
type HistoryResponse struct {
	ID                 string             `json:"id"`
	PersonID           string             `json:"person_id"`
	Version            int                `json:"version"`
	Operation          string             `json:"operation"`
	SourceID           string             `json:"source_id"`
	NationalID         string             `json:"national_id"`
	SecondaryID        string             `json:"secondary_id,omitempty"`
	LaborCard          string             `json:"labor_card,omitempty"`
	RegistrationNumber string             `json:"registration_number,omitempty"`
	FullName           string             `json:"full_name"`
	BirthDate          *eventDomain.Date  `json:"birth_date,omitempty"`
	AdmissionDate      *eventDomain.Date  `json:"admission_date,omitempty"`
	TerminationDate    *eventDomain.Date  `json:"termination_date,omitempty"`
	JobTitle           string             `json:"job_title,omitempty"`
	Department         string             `json:"department,omitempty"`
	Category           string             `json:"category,omitempty"`
	ContractType       string             `json:"contract_type,omitempty"`
	OccupationCode     string             `json:"occupation_code,omitempty"`
	Salary             *eventDomain.Money `json:"salary,omitempty"`
	Status             string             `json:"status"`
	ChangedAt          time.Time          `json:"changed_at"`
	ChangedBy          string             `json:"changed_by"`
	Offset             int64              `json:"offset"`
	CorrelationID      string             `json:"correlation_id"`
}

// ListHistoryResponse lists the versions of a person, oldest first.
type ListHistoryResponse struct {
	Data []HistoryResponse `json:"data"`
}

// MapHistoryToResponse converts a domain history entry to an API response.
func MapHistoryToResponse(h personDomain.History) HistoryResponse {
	return HistoryResponse{
		ID:                 h.ID.String(),
		PersonID:           h.PersonID.String(),
		Version:            h.Version,
		Operation:          string(h.Operation),
		SourceID:           h.SourceID,
		NationalID:         h.NationalID,
		SecondaryID:        h.SecondaryID,
		LaborCard:          h.LaborCard,
		RegistrationNumber: h.RegistrationNumber,
		FullName:           h.FullName,
		BirthDate:          h.BirthDate,
		AdmissionDate:      h.AdmissionDate,
		TerminationDate:    h.TerminationDate,
		JobTitle:           h.JobTitle,
		Department:         h.Department,
		Category:           h.Category,
		ContractType:       h.ContractType,
		OccupationCode:     h.OccupationCode,
		Salary:             h.Salary,
		Status:             string(h.Status),
		ChangedAt:          h.ChangedAt,
		ChangedBy:          h.ChangedBy,
		Offset:             h.Offset,
		CorrelationID:      h.CorrelationID.String(),
	}
}

// MapHistoryToListResponse converts history entries to a list API response.
func MapHistoryToListResponse(entries []personDomain.History) ListHistoryResponse {
	responses := make([]HistoryResponse, 0, len(entries))
	for _, h := range entries {
		responses = append(responses, MapHistoryToResponse(h))
	}
	return ListHistoryResponse{Data: responses}
}
