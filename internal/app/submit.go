package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/classpulse/internal/adapters/mq/queue"
	"github.com/okian/classpulse/internal/domain/dedupe"
	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/reconcile"
	"github.com/okian/classpulse/pkg/logger"
	"github.com/okian/classpulse/pkg/metrics"
)

// Submit queues an approved batch for delivery. A batch whose key was already
// accepted is acknowledged as a duplicate without being queued again. A full
// queue returns queue.ErrFull and forgets the key so the caller can retry.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (model.SubmitResult, error) {
	if err := s.running(); err != nil {
		return model.SubmitResult{}, err
	}
	if err := validateSubmission(sub); err != nil {
		metrics.RecordSubmission(string(sub.Kind), "invalid")
		return model.SubmitResult{}, err
	}

	sub.ID = dedupe.Key(sub)
	res := model.SubmitResult{ID: sub.ID, Kind: sub.Kind, Entries: sub.Size()}

	if s.deduper.SeenAndRecord(ctx, sub.ID) {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate submission, skipping", logger.String("id", sub.ID))
		res.Duplicate = true
		return res, nil
	}

	if err := s.queue.Enqueue(ctx, sub); err != nil {
		s.deduper.Unrecord(ctx, sub.ID)
		outcome := "rejected"
		if errors.Is(err, queue.ErrFull) {
			outcome = "backpressure"
		}
		metrics.RecordSubmission(string(sub.Kind), outcome)
		return model.SubmitResult{}, fmt.Errorf("submit: %w", err)
	}

	metrics.RecordSubmission(string(sub.Kind), "queued")
	s.logger.Debug(ctx, "queued submission",
		logger.String("id", sub.ID),
		logger.String("kind", string(sub.Kind)),
		logger.Int("entries", res.Entries),
	)
	return res, nil
}

// SubmitSheet queues the available difficulties of sheet.
func (s *Service) SubmitSheet(ctx context.Context, id string, sheet model.Sheet) (model.SubmitResult, error) {
	return s.Submit(ctx, model.Submission{
		ID:           id,
		Kind:         model.SubmitDifficulties,
		Difficulties: reconcile.Difficulties(sheet),
	})
}

func validateSubmission(sub model.Submission) error {
	switch sub.Kind {
	case model.SubmitAdaptations:
		for _, a := range sub.Adaptations {
			if a.StudentID == "" || !a.AdaptationType.Valid() || a.AdaptationValue == "" {
				return fmt.Errorf("submit: adaptation for %q is incomplete: %w", a.StudentID, model.ErrInvalidInput)
			}
		}
	case model.SubmitDifficulties:
		for _, d := range sub.Difficulties {
			if d.StudentID == "" || d.IdealDifficulty < 0 {
				return fmt.Errorf("submit: difficulty for %q is invalid: %w", d.StudentID, model.ErrInvalidInput)
			}
		}
	default:
		return fmt.Errorf("submit: unknown kind %q: %w", sub.Kind, model.ErrInvalidInput)
	}
	if sub.Size() == 0 {
		return fmt.Errorf("submit: nothing to submit: %w", model.ErrInvalidInput)
	}
	return nil
}
