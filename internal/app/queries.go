package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/classpulse/internal/adapters/repository"
	"github.com/okian/classpulse/internal/domain/aggregate"
	"github.com/okian/classpulse/internal/domain/correlate"
	"github.com/okian/classpulse/internal/domain/eligibility"
	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/normalize"
	"github.com/okian/classpulse/internal/domain/trend"
	"github.com/okian/classpulse/pkg/logger"
	"github.com/okian/classpulse/pkg/metrics"
)

// Class performance modes.
const (
	ModeSnapshot   = "snapshot"
	ModeCumulative = "cumulative"
)

// latest returns the newest snapshot, or repository.ErrNotFound before the
// first successful refresh.
func (s *Service) latest(ctx context.Context) (*repository.Snapshot, bool, error) {
	if err := s.running(); err != nil {
		return nil, false, err
	}
	return s.snapshots.Latest(ctx)
}

// ClassPerformance returns the class series of the latest snapshot with its
// projection and annotations. In cumulative mode the aggregate score is a
// running total over time steps.
func (s *Service) ClassPerformance(ctx context.Context, mode string) (model.ClassPerformance, error) {
	if mode == "" {
		mode = ModeSnapshot
	}
	if mode != ModeSnapshot && mode != ModeCumulative {
		return model.ClassPerformance{}, fmt.Errorf("mode %q: %w", mode, model.ErrInvalidInput)
	}
	snap, fresh, err := s.latest(ctx)
	if err != nil {
		return model.ClassPerformance{}, fmt.Errorf("class performance: %w", err)
	}

	points := aggregate.Class(snap.Sequences)
	correct, incorrect := aggregate.Totals(points)
	if mode == ModeCumulative {
		points = aggregate.Cumulative(points)
	}

	out := model.ClassPerformance{
		Mode:           mode,
		Points:         points,
		CorrectTotal:   correct,
		IncorrectTotal: incorrect,
		Annotations:    correlate.Annotate(points, s.events.List(ctx)),
		Rejected:       normalize.Issues(snap.Rejected),
		RefreshedAt:    snap.RefreshedAt,
		Stale:          !fresh,
	}
	out.Projection = s.project(ctx, aggregate.Scores(points))
	metrics.RecordAnnotations(len(out.Annotations))
	return out, nil
}

// project extrapolates scores, or returns nil when there are too few points.
func (s *Service) project(ctx context.Context, scores []int) *model.Projection {
	p, err := trend.ProjectScores(scores)
	if err != nil {
		metrics.RecordProjection("insufficient_data")
		if !errors.Is(err, trend.ErrInsufficientData) {
			s.logger.Warn(ctx, "projection failed", logger.Error(err))
		}
		return nil
	}
	metrics.RecordProjection("ok")
	return &p
}

// StudentPerformance returns the series of every student whose ID contains
// search, case-insensitively, in snapshot order.
func (s *Service) StudentPerformance(ctx context.Context, search string) ([]model.StudentPerformance, error) {
	snap, _, err := s.latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("student performance: %w", err)
	}
	visible := eligibility.Filter(rosterOf(snap.Sequences), search)
	out := make([]model.StudentPerformance, 0, len(visible))
	for _, r := range visible {
		seq, _ := snap.Sequence(r.StudentID)
		points := aggregate.Student(seq)
		out = append(out, model.StudentPerformance{
			StudentID:  seq.StudentID,
			Points:     points,
			Projection: s.project(ctx, aggregate.StudentScores(points)),
		})
	}
	return out, nil
}

func rosterOf(seqs []model.ResponseSequence) []model.RosterEntry {
	out := make([]model.RosterEntry, len(seqs))
	for i, seq := range seqs {
		out[i] = model.RosterEntry{StudentID: seq.StudentID}
	}
	return out
}

// Annotate records an adaptation event and returns the annotations of the
// current class series. Without a snapshot the event is still recorded.
func (s *Service) Annotate(ctx context.Context, ev model.AdaptationEvent) ([]model.Annotation, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	if err := s.events.Append(ctx, ev); err != nil {
		return nil, fmt.Errorf("annotate: %w: %w", model.ErrInvalidInput, err)
	}
	snap, _, err := s.snapshots.Latest(ctx)
	if err != nil {
		return []model.Annotation{}, nil
	}
	out := correlate.Annotate(aggregate.Class(snap.Sequences), s.events.List(ctx))
	metrics.RecordAnnotations(len(out))
	return out, nil
}

// Diagnosis returns the matrix rows of the students selected by view. When
// toggle is set that student's selection is flipped first and the resulting
// view is returned with the rows.
func (s *Service) Diagnosis(ctx context.Context, view model.ViewState, toggle string) (model.DiagnosisView, error) {
	if _, _, err := s.latest(ctx); err != nil {
		return model.DiagnosisView{}, fmt.Errorf("diagnosis: %w", err)
	}
	if toggle != "" {
		view = view.Toggle(toggle)
	}
	return model.DiagnosisView{
		Skills: s.matrix.Skills(),
		Rows:   s.matrix.Rows(view),
		View:   view,
	}, nil
}
