// Package dedupe tracks submission IDs so an approved batch is delivered at most once.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/classpulse/internal/domain/model"
)

// DefaultMaxSize bounds the number of remembered submissions.
const DefaultMaxSize = 10000

// Deduper records seen submission IDs.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a submission rejected downstream (for example
	// by queue backpressure) can be retried with the same key.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps the most recently recorded IDs. In bounded mode the
// oldest ID is evicted once maxSize is reached; in unbounded mode a plain
// map is used.
type inMemoryDeduper struct {
	maxSize int

	mu   sync.Mutex
	lru  *lru.Cache[string, struct{}]
	seen map[string]struct{}
}

// NewInMemoryDeduper creates a deduper. The default is bounded at DefaultMaxSize.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxSize > 0 {
		// New only fails for a non-positive size.
		d.lru, _ = lru.New[string, struct{}](d.maxSize)
	} else {
		d.seen = make(map[string]struct{})
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lru != nil {
		// ContainsOrAdd does not refresh recency, so eviction stays insertion ordered.
		ok, _ := d.lru.ContainsOrAdd(id, struct{}{})
		return ok
	}
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lru != nil {
		d.lru.Remove(id)
		return
	}
	delete(d.seen, id)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lru != nil {
		return int64(d.lru.Len())
	}
	return int64(len(d.seen))
}

// Key returns the idempotency key of s: its ID when set, otherwise a
// digest of its kind and payload so an identical resubmission collides.
func Key(s model.Submission) string {
	if s.ID != "" {
		return s.ID
	}
	h := sha256.New()
	h.Write([]byte(s.Kind))
	enc := json.NewEncoder(h)
	switch s.Kind {
	case model.SubmitDifficulties:
		_ = enc.Encode(s.Difficulties)
	default:
		_ = enc.Encode(s.Adaptations)
	}
	return string(s.Kind) + ":" + hex.EncodeToString(h.Sum(nil))[:32]
}
