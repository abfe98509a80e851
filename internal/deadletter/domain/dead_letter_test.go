package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/workforce-sync/internal/errors"
)

func TestNew(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("starts pending with no retries", func(t *testing.T) {
		dl := New([]byte(`{"sourceId":"Y"}`), errors.New("person not found: Y"), []byte("stack"), 5, now)

		assert.Equal(t, StatusPending, dl.Status)
		assert.Equal(t, 0, dl.RetryCount)
		assert.Equal(t, 5, dl.MaxRetries)
		assert.Equal(t, "person not found: Y", dl.ErrorMessage)
		assert.Equal(t, `{"sourceId":"Y"}`, string(dl.Payload))
		assert.Equal(t, now, dl.CreatedAt)
		assert.True(t, dl.Retryable())
		assert.Nil(t, dl.ResolvedAt)
	})

	t.Run("caps stack trace", func(t *testing.T) {
		stack := []byte(strings.Repeat("x", MaxStackTraceBytes+100))
		dl := New(nil, errors.New("boom"), stack, 5, now)
		assert.Len(t, dl.StackTrace, MaxStackTraceBytes)
	})

	t.Run("nil cause", func(t *testing.T) {
		dl := New(nil, nil, nil, 5, now)
		assert.Equal(t, "unknown error", dl.ErrorMessage)
	})
}

func TestDeadLetter_RecordFailure(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	dl := New(nil, errors.New("first"), nil, 5, now)

	for i := 1; i < 5; i++ {
		dl.RecordFailure(errors.New("publish timeout"), now.Add(time.Duration(i)*time.Minute))
		assert.Equal(t, i, dl.RetryCount)
		assert.Equal(t, StatusPending, dl.Status)
		assert.True(t, dl.Retryable())
	}

	dl.RecordFailure(errors.New("publish timeout"), now.Add(5*time.Minute))
	assert.Equal(t, 5, dl.RetryCount)
	assert.Equal(t, StatusFailed, dl.Status)
	assert.Equal(t, "publish timeout", dl.ErrorMessage)
	assert.False(t, dl.Retryable())
	require.NotNil(t, dl.ResolvedAt)
	assert.Equal(t, now.Add(5*time.Minute), *dl.ResolvedAt)
}

func TestDeadLetter_MarkRetried(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	dl := New(nil, errors.New("first"), nil, 5, now)
	dl.RecordFailure(errors.New("again"), now)

	dl.MarkRetried(now.Add(time.Minute))

	assert.Equal(t, StatusRetried, dl.Status)
	assert.Equal(t, 1, dl.RetryCount)
	assert.False(t, dl.Retryable())
	require.NotNil(t, dl.ResolvedBy)
	assert.Equal(t, "retrier", *dl.ResolvedBy)
}

func TestDeadLetter_MarkReprocessed(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	dl := New(nil, errors.New("first"), nil, 5, now)

	require.NoError(t, dl.MarkReprocessed("operator", now))
	assert.Equal(t, StatusReprocessed, dl.Status)
	assert.Equal(t, 1, dl.RetryCount)
	assert.Equal(t, "operator", *dl.ResolvedBy)

	err := dl.MarkReprocessed("operator", now)
	assert.ErrorIs(t, err, ErrAlreadyReprocessed)
	assert.ErrorIs(t, err, errors.ErrConflict)
	assert.Equal(t, 1, dl.RetryCount)
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusFailed.Valid())
	assert.False(t, Status("DONE").Valid())
}
