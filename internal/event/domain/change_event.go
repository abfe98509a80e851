// Package domain defines the change event carried through the pipeline, the
// per-event processing record and its lifecycle state machine.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/workforce-sync/internal/errors"
)

// Worker status values as they appear in snapshots and in the target store.
const (
	WorkerActive   = "ACTIVE"
	WorkerInactive = "INACTIVE"
)

// CorrelationHeader carries the correlation id on broker messages.
const CorrelationHeader = "X-Correlation-Id"

// ErrMalformedEvent is returned when a payload cannot be decoded into a ChangeEvent.
var ErrMalformedEvent = errors.Wrap(errors.ErrInvalidInput, "malformed change event")

// WorkerSnapshot is the full set of business fields of a worker at emission time.
// Optional fields are pointers so that absence can be told apart from zero.
type WorkerSnapshot struct {
	SourceID           string `json:"sourceId"`
	NationalID         string `json:"cpf,omitempty"`
	SecondaryID        string `json:"pis,omitempty"`
	LaborCard          string `json:"ctps,omitempty"`
	RegistrationNumber string `json:"matricula,omitempty"`
	FullName           string `json:"fullName,omitempty"`
	BirthDate          *Date  `json:"birthDate,omitempty"`
	Sex                string `json:"sex,omitempty"`
	Nationality        string `json:"nationality,omitempty"`
	MaritalStatus      string `json:"maritalStatus,omitempty"`
	Race               string `json:"race,omitempty"`
	EducationLevel     string `json:"educationLevel,omitempty"`
	Disability         string `json:"disability,omitempty"`
	Email              string `json:"email,omitempty"`
	Phone              string `json:"phone,omitempty"`
	ZipCode            string `json:"zipCode,omitempty"`
	StateCode          string `json:"uf,omitempty"`
	AdmissionDate      *Date  `json:"admissionDate,omitempty"`
	TerminationDate    *Date  `json:"terminationDate,omitempty"`
	JobTitle           string `json:"jobTitle,omitempty"`
	Department         string `json:"department,omitempty"`
	Category           string `json:"category,omitempty"`
	ContractType       string `json:"contractType,omitempty"`
	OccupationCode     string `json:"cbo,omitempty"`
	Salary             *Money `json:"salary,omitempty"`
	Status             string `json:"status,omitempty"`
}

// Provenance locates a delivered message on the broker.
type Provenance struct {
	Topic     string `json:"-"`
	Partition int    `json:"-"`
	Offset    int64  `json:"-"`
}

// ChangeEvent is an immutable record of one mutation to one worker.
type ChangeEvent struct {
	EventID       string       `json:"eventId"`
	Kind          MutationKind `json:"eventType"`
	EmittedAt     time.Time    `json:"eventTimestamp"`
	CorrelationID uuid.UUID    `json:"correlationId"`
	SourceSystem  string       `json:"sourceSystem,omitempty"`
	WorkerSnapshot
	Provenance `json:"-"`
}

// NewChangeEvent builds a CREATE, UPDATE or DELETE event for a snapshot.
func NewChangeEvent(kind MutationKind, snapshot WorkerSnapshot, correlationID uuid.UUID, now time.Time) ChangeEvent {
	return ChangeEvent{
		EventID:        uuid.Must(uuid.NewV7()).String(),
		Kind:           kind,
		EmittedAt:      now.UTC(),
		CorrelationID:  correlationID,
		WorkerSnapshot: snapshot,
	}
}

// WithProvenance returns a copy of the event tagged with its broker location.
func (e ChangeEvent) WithProvenance(p Provenance) ChangeEvent {
	e.Provenance = p
	return e
}

// Encode serializes the event to its wire format.
func (e ChangeEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeChangeEvent parses a wire payload. Missing event ids are generated.
func DecodeChangeEvent(payload []byte) (ChangeEvent, error) {
	var evt ChangeEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return ChangeEvent{}, errors.Wrap(ErrMalformedEvent, err.Error())
	}
	if evt.Kind == "" {
		return ChangeEvent{}, errors.Wrap(ErrMalformedEvent, "event type is required")
	}
	if evt.SourceID == "" {
		return ChangeEvent{}, errors.Wrap(ErrMalformedEvent, "source id is required")
	}
	if evt.EventID == "" {
		evt.EventID = uuid.Must(uuid.NewV7()).String()
	}
	return evt, nil
}
