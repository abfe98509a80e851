package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/workforce-sync/internal/errors"
)

func TestEventRecord_Transition(t *testing.T) {
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Success_HappyPath", func(t *testing.T) {
		rec := NewEventRecord(sampleEvent(), nil, now)
		assert.Equal(t, StatusReceived, rec.Status)

		path := []EventStatus{
			StatusValidating,
			StatusValidationPassed,
			StatusProcessing,
			StatusProcessed,
			StatusSendingToExternal,
			StatusSentToExternal,
			StatusExternalAccepted,
			StatusExternalProcessed,
			StatusArchived,
		}
		for i, next := range path {
			require.NoError(t, rec.Transition(next, now.Add(time.Duration(i)*time.Second)))
		}
		assert.Equal(t, StatusArchived, rec.Status)
		require.NotNil(t, rec.ProcessingDuration)
		assert.Equal(t, time.Second, *rec.ProcessingDuration)
	})

	t.Run("Error_ReceivedToProcessed", func(t *testing.T) {
		rec := NewEventRecord(sampleEvent(), nil, now)

		err := rec.Transition(StatusProcessed, now)

		var transitionErr *InvalidTransitionError
		require.True(t, errors.As(err, &transitionErr))
		assert.Equal(t, StatusReceived, transitionErr.From)
		assert.Equal(t, StatusProcessed, transitionErr.To)
		assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
		assert.Equal(t, StatusReceived, rec.Status)
	})

	t.Run("Success_ErrorCanBeRetried", func(t *testing.T) {
		rec := NewEventRecord(sampleEvent(), nil, now)
		for _, next := range []EventStatus{
			StatusValidating, StatusValidationPassed, StatusProcessing, StatusProcessingFailed, StatusError,
		} {
			require.NoError(t, rec.Transition(next, now))
		}
		assert.NoError(t, rec.Transition(StatusProcessing, now))
	})
}

func TestStateMachineTables(t *testing.T) {
	all := []EventStatus{
		StatusReceived, StatusValidating, StatusValidationFailed, StatusValidationPassed,
		StatusProcessing, StatusProcessingFailed, StatusProcessed, StatusSendingToExternal,
		StatusSentToExternal, StatusExternalAccepted, StatusExternalRejected,
		StatusExternalProcessed, StatusArchived, StatusError,
	}

	t.Run("TerminalStatuses", func(t *testing.T) {
		for _, s := range []EventStatus{
			StatusValidationFailed, StatusExternalRejected, StatusError, StatusArchived, StatusExternalProcessed,
		} {
			assert.True(t, IsTerminal(s), s)
		}
		assert.False(t, IsTerminal(StatusProcessing))
		assert.False(t, IsTerminal(StatusReceived))
	})

	t.Run("OnlyListedMovesAllowed", func(t *testing.T) {
		allowed := 0
		for _, from := range all {
			for _, to := range all {
				if CanTransition(from, to) {
					allowed++
				}
			}
		}
		assert.Equal(t, 15, allowed)
	})

	t.Run("DeadEnds", func(t *testing.T) {
		for _, s := range []EventStatus{StatusValidationFailed, StatusExternalRejected, StatusArchived} {
			assert.Empty(t, NextStatuses(s), s)
		}
	})
}
