package domain

// EventStatus is the lifecycle position of one event.
type EventStatus string

const (
	StatusReceived          EventStatus = "RECEIVED"
	StatusValidating        EventStatus = "VALIDATING"
	StatusValidationFailed  EventStatus = "VALIDATION_FAILED"
	StatusValidationPassed  EventStatus = "VALIDATION_PASSED"
	StatusProcessing        EventStatus = "PROCESSING"
	StatusProcessingFailed  EventStatus = "PROCESSING_FAILED"
	StatusProcessed         EventStatus = "PROCESSED"
	StatusSendingToExternal EventStatus = "SENDING_TO_EXTERNAL"
	StatusSentToExternal    EventStatus = "SENT_TO_EXTERNAL"
	StatusExternalAccepted  EventStatus = "EXTERNAL_ACCEPTED"
	StatusExternalRejected  EventStatus = "EXTERNAL_REJECTED"
	StatusExternalProcessed EventStatus = "EXTERNAL_PROCESSED"
	StatusArchived          EventStatus = "ARCHIVED"
	StatusError             EventStatus = "ERROR"
)

// allowedTransitions is the whole state machine. Anything not listed is rejected.
var allowedTransitions = map[EventStatus][]EventStatus{
	StatusReceived:          {StatusValidating},
	StatusValidating:        {StatusValidationPassed, StatusValidationFailed},
	StatusValidationPassed:  {StatusProcessing},
	StatusProcessing:        {StatusProcessed, StatusProcessingFailed},
	StatusProcessingFailed:  {StatusError},
	StatusProcessed:         {StatusSendingToExternal},
	StatusSendingToExternal: {StatusSentToExternal},
	StatusSentToExternal:    {StatusExternalAccepted, StatusExternalRejected},
	StatusExternalAccepted:  {StatusExternalProcessed},
	StatusExternalProcessed: {StatusArchived},
	StatusError:             {StatusProcessing, StatusArchived},
}

// EXTERNAL_PROCESSED is terminal for processing purposes but may still be archived.
var terminalStatuses = map[EventStatus]bool{
	StatusValidationFailed:  true,
	StatusExternalRejected:  true,
	StatusExternalProcessed: true,
	StatusError:             true,
	StatusArchived:          true,
}

// CanTransition reports whether the machine allows moving from one status to another.
func CanTransition(from, to EventStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further processing is expected in status.
func IsTerminal(status EventStatus) bool {
	return terminalStatuses[status]
}

// NextStatuses lists the statuses reachable from status in one step.
func NextStatuses(status EventStatus) []EventStatus {
	next := allowedTransitions[status]
	out := make([]EventStatus, len(next))
	copy(out, next)
	return out
}
