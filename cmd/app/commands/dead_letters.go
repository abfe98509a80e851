package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
	deadLetterUseCase "github.com/allisson/workforce-sync/internal/deadletter/usecase"
)

// RetryPasser runs a single dead letter retry pass.
type RetryPasser interface {
	RetryPending(ctx context.Context) (int, error)
}

// RunDLQRetry re-publishes every eligible PENDING dead letter once and reports
// how many were re-published.
func RunDLQRetry(
	ctx context.Context,
	retrier RetryPasser,
	logger *slog.Logger,
	out io.Writer,
	format string,
) error {
	logger.Info("running dead letter retry pass")

	count, err := retrier.RetryPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to retry dead letters: %w", err)
	}

	logger.Info("dead letter retry pass completed", slog.Int("count", count))

	if format == "json" {
		return writeJSON(out, map[string]any{"retried": count})
	}
	_, err = fmt.Fprintf(out, "Re-published %d dead letter(s)\n", count)
	return err
}

// RunDLQReprocess replays one dead letter through validation and
// reconciliation, optionally with a corrected payload.
func RunDLQReprocess(
	ctx context.Context,
	useCase deadLetterUseCase.DeadLetterUseCase,
	logger *slog.Logger,
	out io.Writer,
	idStr, payload, format string,
) error {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid dead letter id %q: %w", idStr, err)
	}

	logger.Info("reprocessing dead letter",
		slog.String("dead_letter_id", id.String()),
		slog.Bool("payload_override", payload != ""),
	)

	dl, reprocessErr := useCase.Reprocess(ctx, id, []byte(payload))
	if dl == nil {
		return fmt.Errorf("failed to reprocess dead letter: %w", reprocessErr)
	}

	if format == "json" {
		if err := writeJSON(out, reprocessResult(dl, reprocessErr)); err != nil {
			return err
		}
	} else if err := writeReprocessText(out, dl, reprocessErr); err != nil {
		return err
	}

	if reprocessErr != nil {
		return fmt.Errorf("failed to reprocess dead letter: %w", reprocessErr)
	}
	return nil
}

func reprocessResult(dl *deadLetterDomain.DeadLetter, reprocessErr error) map[string]any {
	result := map[string]any{
		"id":          dl.ID.String(),
		"event_id":    dl.EventID,
		"status":      string(dl.Status),
		"retry_count": dl.RetryCount,
		"max_retries": dl.MaxRetries,
	}
	if reprocessErr != nil {
		result["error"] = reprocessErr.Error()
	}
	return result
}

func writeReprocessText(out io.Writer, dl *deadLetterDomain.DeadLetter, reprocessErr error) error {
	if reprocessErr != nil {
		_, err := fmt.Fprintf(out,
			"Dead letter %s failed to reprocess (status %s, attempt %d of %d): %v\n",
			dl.ID, dl.Status, dl.RetryCount, dl.MaxRetries, reprocessErr)
		return err
	}
	_, err := fmt.Fprintf(out, "Dead letter %s reprocessed (event %s)\n", dl.ID, dl.EventID)
	return err
}
