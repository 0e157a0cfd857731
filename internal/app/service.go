// Package app provides the engine service that implements the dependencies
// required by the HTTP API.
package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/classpulse/internal/adapters/mq/queue"
	"github.com/okian/classpulse/internal/adapters/mq/worker"
	"github.com/okian/classpulse/internal/adapters/repository"
	"github.com/okian/classpulse/internal/domain/dedupe"
	"github.com/okian/classpulse/internal/domain/diagnosis"
	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/normalize"
	"github.com/okian/classpulse/internal/domain/reconcile"
	"github.com/okian/classpulse/pkg/logger"
	"github.com/okian/classpulse/pkg/metrics"
)

// Upstream is the recommendation and training service.
type Upstream interface {
	Train(ctx context.Context) (string, error)
	StudentActions(ctx context.Context) ([]normalize.RawRecord, error)
	Diagnose(ctx context.Context, studentIDs []string) ([]model.SkillVector, error)
	Recommend(ctx context.Context, reqs []model.RecommendationRequest) ([]reconcile.Candidate, error)
	EligibleStudents(ctx context.Context) ([]model.RosterEntry, error)
	Topics(ctx context.Context, themeName string) ([]string, error)
	Deliver(ctx context.Context, s model.Submission) error
}

// Service runs the engine against one upstream.
type Service struct {
	mu sync.RWMutex

	// Core components
	upstream  Upstream
	snapshots *repository.SnapshotStore
	events    *repository.EventLog
	recs      *repository.RecommendationCache
	matrix    *diagnosis.Matrix
	deduper   dedupe.Deduper
	queue     queue.Queue
	pool      *worker.Pool
	flight    singleflight.Group

	runMu  sync.Mutex
	run    *refreshRun
	runSeq uint64

	rngMu sync.Mutex
	rng   *rand.Rand

	// Configuration
	workerCount          int
	queueSize            int
	dedupeSize           int
	recommendThreshold   float64
	recommendConcurrency int
	recommendCacheSize   int
	maxAdjustDelta       float64
	decisionWindow       int
	randomSeed           int64
	themeName            string
	snapshotTTL          time.Duration
	skillLabels          map[string]string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithUpstream sets the collaborator the service talks to.
func WithUpstream(up Upstream) Option {
	return func(s *Service) {
		s.upstream = up
	}
}

// WithWorkerCount sets the number of delivery workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRecommendThreshold sets the threshold sent with every recommendation request.
func WithRecommendThreshold(threshold float64) Option {
	return func(s *Service) {
		s.recommendThreshold = threshold
	}
}

// WithRecommendConcurrency bounds the parallel per-student recommendation calls.
func WithRecommendConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recommendConcurrency = n
		}
	}
}

// WithRecommendCacheSize sets the capacity of the recommendation cache.
func WithRecommendCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recommendCacheSize = n
		}
	}
}

// WithMaxAdjustDelta bounds a single manual difficulty adjustment.
func WithMaxAdjustDelta(d float64) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxAdjustDelta = d
		}
	}
}

// WithDecisionWindow sets how many trailing responses count toward the
// correct count. Zero or less counts the whole sequence.
func WithDecisionWindow(n int) Option {
	return func(s *Service) {
		s.decisionWindow = n
	}
}

// WithRandomSeed fixes the topic draw. Zero seeds from the clock.
func WithRandomSeed(seed int64) Option {
	return func(s *Service) {
		s.randomSeed = seed
	}
}

// WithThemeName sets the theme used when a request names none.
func WithThemeName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.themeName = name
		}
	}
}

// WithSnapshotTTL sets how long a refresh counts as fresh.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.snapshotTTL = ttl
		}
	}
}

// WithSkillLabels sets the display names of skill IDs.
func WithSkillLabels(labels map[string]string) Option {
	return func(s *Service) {
		if len(labels) > 0 {
			s.skillLabels = labels
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:          2,
		queueSize:            1024,
		dedupeSize:           dedupe.DefaultMaxSize,
		recommendThreshold:   reconcile.DefaultThreshold,
		recommendConcurrency: 4,
		recommendCacheSize:   4096,
		maxAdjustDelta:       reconcile.DefaultMaxDelta,
		themeName:            "default",
		snapshotTTL:          5 * time.Minute,
		skillLabels:          diagnosis.DefaultLabels(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the caches and starts the delivery workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.upstream == nil {
		return errors.New("start service: no upstream configured")
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting engine service...")

	seed := s.randomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // topic draws are not security sensitive

	s.snapshots = repository.NewSnapshotStore(repository.WithTTL(s.snapshotTTL))
	s.events = repository.NewEventLog()
	s.recs = repository.NewRecommendationCache(s.recommendCacheSize)
	s.matrix = diagnosis.New(diagnosis.WithLabels(s.skillLabels))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	s.pool = worker.NewPool(s.workerCount, s.queue, s.upstream,
		worker.WithForgetter(s.deduper),
		worker.WithLogger(s.logger.Named("worker")),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "engine service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("recommendConcurrency", s.recommendConcurrency),
	)

	return nil
}

// Stop drains queued submissions and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping engine service...")
	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		s.logger.Error(ctx, "worker pool did not drain", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "engine service stopped",
		logger.Any("delivered", s.pool.Delivered()),
		logger.Any("failed", s.pool.Failed()),
	)
	return nil
}

// running returns ErrNotStarted unless Start has completed.
func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.ErrNotStarted
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":              s.started,
		"workerCount":          s.workerCount,
		"queueSize":            s.queueSize,
		"dedupeSize":           s.dedupeSize,
		"recommendConcurrency": s.recommendConcurrency,
		"themeName":            s.themeName,
	}

	if s.started {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		stats["delivered"] = s.pool.Delivered()
		stats["deliveryFailures"] = s.pool.Failed()
		stats["annotations"] = s.events.Len()
		stats["cachedRecommendations"] = s.recs.Len()
		stats["diagnosedStudents"] = s.matrix.Len()

		if snap, fresh, err := s.snapshots.Latest(ctx); err == nil {
			stats["students"] = len(snap.Sequences)
			stats["rejectedRecords"] = len(snap.Rejected)
			stats["refreshedAt"] = snap.RefreshedAt
			stats["snapshotFresh"] = fresh
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerActiveCount(s.pool.Size())
	}

	return stats
}
