package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/reconcile"
	"github.com/okian/classpulse/pkg/logger"
	"github.com/okian/classpulse/pkg/metrics"
)

// Recommend builds the sheet of skillID. Each student's requests are sent as
// one upstream batch, with at most recommendConcurrency batches in flight. A
// failed batch turns its rows into "N/A"; only cancellation fails the sheet.
// Without groups every diagnosed student that has skillID is included. An
// empty skillID uses the first skill of the first group.
func (s *Service) Recommend(ctx context.Context, skillID string, groups []reconcile.Group) (model.Sheet, error) {
	if err := s.running(); err != nil {
		return model.Sheet{}, err
	}
	if skillID == "" {
		for _, g := range groups {
			if len(g.Skills) > 0 {
				skillID = g.Skills[0]
				break
			}
		}
	}
	if skillID == "" {
		return model.Sheet{}, fmt.Errorf("recommend: skill is required: %w", model.ErrInvalidInput)
	}
	if len(groups) == 0 {
		groups = s.groupsFor(skillID)
	}

	reqs, err := reconcile.Requests(groups, s.recommendThreshold)
	if err != nil {
		return model.Sheet{}, fmt.Errorf("recommend: %w: %w", model.ErrInvalidInput, err)
	}

	batches := byStudent(reqs)
	found := make([][]reconcile.Candidate, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.recommendConcurrency)
	for i, batch := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found[i] = s.recommendBatch(gctx, batch)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		metrics.RecordRecommendation("cancelled")
		return model.Sheet{}, fmt.Errorf("recommend: %w", err)
	}

	var cands []reconcile.Candidate
	for _, c := range found {
		cands = append(cands, c...)
	}
	sheet := reconcile.Merge(skillID, s.matrix.Label(skillID), reqs, cands, s.matrix)
	for _, row := range sheet.Rows {
		if row.RecommendedDifficulty.IsNA() {
			metrics.RecordRecommendation("na")
		} else {
			metrics.RecordRecommendation("ok")
		}
	}
	return sheet, nil
}

// groupsFor lists every diagnosed student with a value for skillID.
func (s *Service) groupsFor(skillID string) []reconcile.Group {
	var out []reconcile.Group
	for _, id := range s.matrix.Students() {
		if _, err := s.matrix.Lookup(id, skillID); err == nil {
			out = append(out, reconcile.Group{StudentID: id, Skills: []string{skillID}})
		}
	}
	return out
}

// byStudent splits reqs into per-student batches in first-seen order.
func byStudent(reqs []model.RecommendationRequest) [][]model.RecommendationRequest {
	index := make(map[string]int)
	var out [][]model.RecommendationRequest
	for _, r := range reqs {
		i, ok := index[r.StudentID]
		if !ok {
			i = len(out)
			index[r.StudentID] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], r)
	}
	return out
}

// recommendBatch answers batch from the cache and asks the upstream for the rest.
func (s *Service) recommendBatch(ctx context.Context, batch []model.RecommendationRequest) []reconcile.Candidate {
	out := make([]reconcile.Candidate, 0, len(batch))
	var missing []model.RecommendationRequest
	for _, r := range batch {
		if c, ok := s.recs.Get(r.StudentID, r.SkillID, r.Threshold); ok {
			out = append(out, c)
			continue
		}
		missing = append(missing, r)
	}
	if len(missing) == 0 {
		return out
	}

	cands, err := s.upstream.Recommend(ctx, missing)
	if err != nil {
		s.logger.Warn(ctx, "recommendation lookup failed",
			logger.String("studentID", missing[0].StudentID),
			logger.Error(err),
		)
		for _, r := range missing {
			out = append(out, reconcile.Candidate{StudentID: r.StudentID, SkillID: r.SkillID, Failed: true})
		}
		return out
	}
	for _, c := range cands {
		s.recs.Add(c, s.recommendThreshold)
	}
	return append(out, cands...)
}

// Adjust shifts the recommended difficulties of studentID in sheet by delta,
// bounded by the configured maximum.
func (s *Service) Adjust(_ context.Context, sheet model.Sheet, studentID string, delta float64) (model.Sheet, error) {
	out, err := reconcile.Adjust(sheet, studentID, delta, s.maxAdjustDelta)
	if err != nil {
		metrics.RecordAdjustment("rejected")
		return model.Sheet{}, fmt.Errorf("adjust: %w", err)
	}
	metrics.RecordAdjustment("ok")
	return out, nil
}
