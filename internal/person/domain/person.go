// Package domain defines the reconciled worker record kept in the target store
// and its append-only version history.
package domain

import (
	"time"

	"github.com/google/uuid"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
)

// Status is the employment status of a person.
type Status string

const (
	StatusActive   Status = eventDomain.WorkerActive
	StatusInactive Status = eventDomain.WorkerInactive
)

// IntegrationStatus tracks the submission of a person to the external system.
type IntegrationStatus string

const (
	IntegrationPending   IntegrationStatus = "PENDING"
	IntegrationSent      IntegrationStatus = "SENT"
	IntegrationReceived  IntegrationStatus = "RECEIVED"
	IntegrationRejected  IntegrationStatus = "REJECTED"
	IntegrationProcessed IntegrationStatus = "PROCESSED"
)

// Fields are the business fields shared by a person and its history entries.
type Fields struct {
	SourceID           string
	NationalID         string
	SecondaryID        string
	LaborCard          string
	RegistrationNumber string
	FullName           string
	BirthDate          *eventDomain.Date
	AdmissionDate      *eventDomain.Date
	TerminationDate    *eventDomain.Date
	JobTitle           string
	Department         string
	Category           string
	ContractType       string
	OccupationCode     string
	Salary             *eventDomain.Money
	Status             Status
}

// Person is the reconciled state of one worker.
type Person struct {
	ID uuid.UUID
	Fields
	IntegrationStatus IntegrationStatus
	Version           int
	CreatedAt         time.Time
	CreatedBy         string
	UpdatedAt         time.Time
	UpdatedBy         string
	Topic             string
	Partition         int
	Offset            int64
	CorrelationID     uuid.UUID
}

func fieldsFromSnapshot(s eventDomain.WorkerSnapshot) Fields {
	status := StatusActive
	if s.Status == eventDomain.WorkerInactive {
		status = StatusInactive
	}
	return Fields{
		SourceID:           s.SourceID,
		NationalID:         s.NationalID,
		SecondaryID:        s.SecondaryID,
		LaborCard:          s.LaborCard,
		RegistrationNumber: s.RegistrationNumber,
		FullName:           s.FullName,
		BirthDate:          s.BirthDate,
		AdmissionDate:      s.AdmissionDate,
		TerminationDate:    s.TerminationDate,
		JobTitle:           s.JobTitle,
		Department:         s.Department,
		Category:           s.Category,
		ContractType:       s.ContractType,
		OccupationCode:     s.OccupationCode,
		Salary:             s.Salary,
		Status:             status,
	}
}

// NewPerson creates version 1 of a person from a change event.
func NewPerson(evt eventDomain.ChangeEvent, actor string, now time.Time) Person {
	return Person{
		ID:                uuid.Must(uuid.NewV7()),
		Fields:            fieldsFromSnapshot(evt.WorkerSnapshot),
		IntegrationStatus: IntegrationPending,
		Version:           1,
		CreatedAt:         now,
		CreatedBy:         actor,
		UpdatedAt:         now,
		UpdatedBy:         actor,
		Topic:             evt.Topic,
		Partition:         evt.Partition,
		Offset:            evt.Offset,
		CorrelationID:     evt.CorrelationID,
	}
}

// WithSnapshot returns the next version carrying the event's business fields.
// Identity, creation stamps and integration status are preserved.
func (p Person) WithSnapshot(evt eventDomain.ChangeEvent, actor string, now time.Time) Person {
	next := p.touch(evt, actor, now)
	next.Fields = fieldsFromSnapshot(evt.WorkerSnapshot)
	next.SourceID = p.SourceID
	return next
}

// Terminated returns the next version soft-deleted on the given date. The
// integration status goes back to PENDING so the termination is re-submitted.
func (p Person) Terminated(on eventDomain.Date, evt eventDomain.ChangeEvent, actor string, now time.Time) Person {
	next := p.touch(evt, actor, now)
	next.Status = StatusInactive
	next.TerminationDate = &on
	next.IntegrationStatus = IntegrationPending
	return next
}

// IsActive reports whether the person is ACTIVE.
func (p Person) IsActive() bool {
	return p.Status == StatusActive
}

func (p Person) touch(evt eventDomain.ChangeEvent, actor string, now time.Time) Person {
	p.Version++
	p.UpdatedAt = now
	p.UpdatedBy = actor
	p.Topic = evt.Topic
	p.Partition = evt.Partition
	p.Offset = evt.Offset
	p.CorrelationID = evt.CorrelationID
	return p
}
