package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/classpulse/internal/adapters/repository"
	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/normalize"
	"github.com/okian/classpulse/pkg/logger"
	"github.com/okian/classpulse/pkg/metrics"
)

// Pipeline stage names, used for metrics and logs.
const (
	StageTrain     = "train"
	StageActions   = "student_actions"
	StageDiagnose  = "diagnose"
	refreshFlight  = "refresh"
	outcomeOK      = "ok"
	outcomeFailed  = "failed"
	outcomeAborted = "cancelled"
)

// trained is the output of the train stage.
type trained struct {
	status string
}

// fetched is the output of the student actions stage.
type fetched struct {
	trained
	normalize.Result
}

// stage runs one typed step of the refresh. It refuses to start once ctx is
// done and records its latency either way.
func stage[In, Out any](ctx context.Context, name string, in In, run func(context.Context, In) (Out, error)) (Out, error) {
	var zero Out
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%s: %w", name, err)
	}
	start := time.Now()
	out, err := run(ctx, in)
	metrics.RecordPipelineStage(name, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return zero, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// pipeline is the train → actions → diagnose refresh.
type pipeline struct {
	up  Upstream
	log logger.Logger
}

func (p pipeline) train(ctx context.Context, _ struct{}) (trained, error) {
	status, err := p.up.Train(ctx)
	if err != nil {
		return trained{}, err
	}
	return trained{status: status}, nil
}

func (p pipeline) actions(ctx context.Context, in trained) (fetched, error) {
	raw, err := p.up.StudentActions(ctx)
	if err != nil {
		return fetched{}, err
	}
	res := normalize.Records(raw)
	metrics.RecordResponsesProcessed(res.TotalResponses())
	if n := len(res.Rejected); n > 0 {
		metrics.RecordMalformedRecords(n)
		p.log.Warn(ctx, "excluded malformed records",
			logger.Int("count", n),
			logger.Error(res.Err()),
		)
	}
	return fetched{trained: in, Result: res}, nil
}

func (p pipeline) diagnose(ctx context.Context, in fetched) (*repository.Snapshot, error) {
	snap := &repository.Snapshot{
		Sequences:   in.Sequences,
		Rejected:    in.Rejected,
		TrainStatus: in.status,
	}
	if len(in.Sequences) > 0 {
		ids := make([]string, len(in.Sequences))
		for i, seq := range in.Sequences {
			ids[i] = seq.StudentID
		}
		vecs, err := p.up.Diagnose(ctx, ids)
		if err != nil {
			return nil, err
		}
		snap.Vectors = vecs
	}
	snap.RefreshedAt = time.Now().UTC()
	return snap, nil
}

// run executes every stage in order.
func (p pipeline) run(ctx context.Context) (*repository.Snapshot, error) {
	t, err := stage(ctx, StageTrain, struct{}{}, p.train)
	if err != nil {
		return nil, err
	}
	f, err := stage(ctx, StageActions, t, p.actions)
	if err != nil {
		return nil, err
	}
	return stage(ctx, StageDiagnose, f, p.diagnose)
}

// refreshRun is one shared refresh. It runs on its own context, cancelled
// once every caller waiting on it has gone.
type refreshRun struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// join attaches the caller to the current run, starting one if needed.
func (s *Service) join(ctx context.Context) *refreshRun {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.run == nil {
		s.runSeq++
		rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.run = &refreshRun{
			key:    refreshFlight + "-" + strconv.FormatUint(s.runSeq, 10),
			ctx:    rctx,
			cancel: cancel,
		}
	}
	s.run.waiters++
	return s.run
}

// leave detaches a caller. The last one out cancels the run.
func (s *Service) leave(run *refreshRun) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	run.waiters--
	if run.waiters > 0 {
		return
	}
	run.cancel()
	if s.run == run {
		s.run = nil
	}
}

// Refresh retrains the upstream, refetches the response logs and rediagnoses
// every student. Concurrent calls share one run; Shared is set for callers
// that joined a run started by someone else. A caller whose context ends
// returns early; the run itself is cancelled only when no caller is left.
// The snapshot is replaced only when every stage succeeds, so a failed or
// cancelled refresh leaves the previous one in place.
func (s *Service) Refresh(ctx context.Context) (model.RefreshResult, error) {
	if err := s.running(); err != nil {
		return model.RefreshResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.RefreshResult{}, fmt.Errorf("refresh: %w", err)
	}

	run := s.join(ctx)
	defer s.leave(run)

	ch := s.flight.DoChan(run.key, func() (any, error) {
		return s.refresh(run.ctx)
	})
	select {
	case <-ctx.Done():
		return model.RefreshResult{}, fmt.Errorf("refresh: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return model.RefreshResult{}, res.Err
		}
		out := res.Val.(model.RefreshResult)
		out.Shared = res.Shared
		return out, nil
	}
}

func (s *Service) refresh(ctx context.Context) (model.RefreshResult, error) {
	start := time.Now()
	p := pipeline{up: s.upstream, log: s.logger}

	snap, err := p.run(ctx)
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("refresh: %w", ctx.Err())
	}
	if err != nil {
		outcome := outcomeFailed
		if ctx.Err() != nil {
			outcome = outcomeAborted
		}
		metrics.RecordPipelineRun(outcome)
		metrics.RecordErrorByComponent("pipeline", outcome)
		s.logger.Warn(ctx, "refresh failed", logger.Error(err))
		return model.RefreshResult{}, err
	}

	if err := s.matrix.Replace(snap.Vectors); err != nil {
		metrics.RecordPipelineRun(outcomeFailed)
		s.logger.Warn(ctx, "rejected diagnosis", logger.Error(err))
		return model.RefreshResult{}, fmt.Errorf("refresh: %w", err)
	}
	s.snapshots.Put(ctx, snap)
	s.recs.Purge()
	metrics.RecordPipelineRun(outcomeOK)

	res := model.RefreshResult{
		TrainStatus: snap.TrainStatus,
		Students:    len(snap.Sequences),
		Rejected:    normalize.Issues(snap.Rejected),
		Diagnosed:   s.matrix.Len(),
		RefreshedAt: snap.RefreshedAt,
	}
	for _, seq := range snap.Sequences {
		res.Responses += seq.Len()
	}
	s.logger.Info(ctx, "refresh complete",
		logger.Int("students", res.Students),
		logger.Int("responses", res.Responses),
		logger.Int("rejected", len(res.Rejected)),
		logger.Duration("took", time.Since(start)),
	)
	return res, nil
}
