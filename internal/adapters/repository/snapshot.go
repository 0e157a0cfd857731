package repository

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/okian/classpulse/pkg/metrics"
)

const (
	defaultTTL     = 5 * time.Minute
	defaultCleanup = time.Minute

	keyFresh = "snapshot:fresh"
	keyLast  = "snapshot:last"
)

// SnapshotStore keeps the latest snapshot twice: once with a TTL to answer
// freshness, and once without expiry as the fallback served on upstream failure.
type SnapshotStore struct {
	ttl     time.Duration
	cleanup time.Duration
	cache   *gocache.Cache
}

var _ Store = (*SnapshotStore)(nil)

// NewSnapshotStore creates an empty store.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{ttl: defaultTTL, cleanup: defaultCleanup}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = gocache.New(s.ttl, s.cleanup)
	return s
}

// Put stores snap as both the fresh and the last known snapshot.
func (s *SnapshotStore) Put(_ context.Context, snap *Snapshot) {
	if snap == nil {
		return
	}
	s.cache.Set(keyFresh, snap, s.ttl)
	s.cache.Set(keyLast, snap, gocache.NoExpiration)
	metrics.UpdateSnapshotStudents(len(snap.Sequences))
}

// Latest returns the newest snapshot. fresh is false once the TTL elapsed.
func (s *SnapshotStore) Latest(_ context.Context) (*Snapshot, bool, error) {
	if v, ok := s.cache.Get(keyFresh); ok {
		return v.(*Snapshot), true, nil
	}
	if v, ok := s.cache.Get(keyLast); ok {
		return v.(*Snapshot), false, nil
	}
	return nil, false, ErrNotFound
}

// Age returns the time since the latest snapshot was refreshed.
func (s *SnapshotStore) Age(ctx context.Context) (time.Duration, error) {
	snap, _, err := s.Latest(ctx)
	if err != nil {
		return 0, err
	}
	return time.Since(snap.RefreshedAt), nil
}
