// Package domain defines validation findings produced by the rule engine.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity classifies a finding. Only ERROR blocks persistence.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// ParseSeverity accepts ERROR or WARNING in any case.
func ParseSeverity(value string) (Severity, bool) {
	switch Severity(strings.ToUpper(strings.TrimSpace(value))) {
	case SeverityError:
		return SeverityError, true
	case SeverityWarning:
		return SeverityWarning, true
	}
	return "", false
}

// Finding is one rule outcome tied to a field of an event.
type Finding struct {
	ID            uuid.UUID
	RuleID        string
	Severity      Severity
	Message       string
	Field         string
	Value         string
	EventID       string
	SourceID      string
	Payload       []byte
	Topic         string
	Partition     int
	Offset        int64
	CorrelationID uuid.UUID
	CreatedAt     time.Time
}

// RuleCount aggregates findings per rule for the inspection API.
type RuleCount struct {
	RuleID   string
	Severity Severity
	Count    int64
}

// Filter narrows finding queries. Zero values mean no restriction.
type Filter struct {
	EventID  string
	Severity Severity
	Since    *time.Time
}
