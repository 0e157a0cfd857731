package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/classpulse/internal/domain/eligibility"
	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/policy"
	"github.com/okian/classpulse/pkg/logger"
	"github.com/okian/classpulse/pkg/metrics"
)

const reasonNoResponses = "no responses"

// DecideAdaptations decides the next adaptation for every roster student
// with responses in the latest snapshot. Topic changes draw from the topics
// of themeName, or the configured theme when empty. A window of zero uses
// the configured decision window. Students that cannot be decided keep a
// reason instead of a decision; the view narrows the result.
func (s *Service) DecideAdaptations(ctx context.Context, themeName string, window int, view model.ViewState) (model.DecisionView, error) {
	snap, _, err := s.latest(ctx)
	if err != nil {
		return model.DecisionView{}, fmt.Errorf("decide: %w", err)
	}
	if themeName == "" {
		themeName = s.themeName
	}
	if window == 0 {
		window = s.decisionWindow
	}

	var (
		roster []model.RosterEntry
		topics []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roster, err = s.upstream.EligibleStudents(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		topics, err = s.upstream.Topics(gctx, themeName)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.DecisionView{}, fmt.Errorf("decide: %w", err)
	}

	inputs := make([]policy.Input, 0, len(roster))
	for _, r := range roster {
		if seq, ok := snap.Sequence(r.StudentID); ok {
			inputs = append(inputs, policy.Input{Sequence: seq, CurrentLevel: r.CurrentBloomLevel})
		}
	}

	s.rngMu.Lock()
	outcomes := policy.DecideAll(inputs, window, topics, s.rng)
	s.rngMu.Unlock()

	reasons := make(map[string]string, len(outcomes))
	for _, o := range outcomes {
		switch {
		case o.Decision != nil:
			metrics.RecordDecision(string(o.Decision.Type))
		case errors.Is(o.Err, policy.ErrNoAlternativeTopic):
			metrics.RecordDecision("no_alternative")
			reasons[o.StudentID] = o.Err.Error()
		default:
			s.logger.Warn(ctx, "decision failed", logger.String("studentID", o.StudentID), logger.Error(o.Err))
			reasons[o.StudentID] = o.Err.Error()
		}
	}

	candidates := eligibility.Candidates(roster, policy.Decisions(outcomes))
	for i := range candidates {
		if candidates[i].Decision != nil {
			continue
		}
		if reason, ok := reasons[candidates[i].Entry.StudentID]; ok {
			candidates[i].Reason = reason
		} else {
			candidates[i].Reason = reasonNoResponses
		}
	}

	visible := eligibility.Apply(view, candidates)
	return model.DecisionView{
		ThemeName:  themeName,
		Topics:     topics,
		Candidates: visible,
		Eligible:   eligibility.Eligible(visible),
		View:       view,
	}, nil
}
