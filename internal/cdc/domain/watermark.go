// Package domain defines the change detector's checkpoint and the rules that
// turn a modified source row into a change event.
package domain

import (
	"time"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
)

// DefaultLookback is how far back a detector with no checkpoint starts scanning.
const DefaultLookback = time.Hour

// Watermark is the latest source modification time already scanned.
type Watermark struct {
	At time.Time
}

// InitialWatermark is the starting point when no checkpoint exists, so a
// first run rescans a bounded recent window.
func InitialWatermark(now time.Time, lookback time.Duration) Watermark {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return Watermark{At: now.Add(-lookback).UTC()}
}

// Advance returns the watermark moved to t. It never moves backwards.
func (w Watermark) Advance(t time.Time) Watermark {
	if t.Before(w.At) {
		return w
	}
	return Watermark{At: t.UTC()}
}

// SourceRow is one worker row read from the source store.
type SourceRow struct {
	eventDomain.WorkerSnapshot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Classify decides which mutation a modified row represents, as seen at now.
// A row inserted within the last hour and never touched again is a CREATE; an
// inactive or terminated row is a DELETE; anything else is an UPDATE.
func Classify(row SourceRow, now time.Time) eventDomain.MutationKind {
	recent := now.Add(-time.Hour)
	if !row.CreatedAt.IsZero() && row.CreatedAt.After(recent) && row.CreatedAt.Equal(row.UpdatedAt) {
		return eventDomain.KindCreate
	}
	if row.Status == eventDomain.WorkerInactive || row.TerminationDate != nil {
		return eventDomain.KindDelete
	}
	return eventDomain.KindUpdate
}
