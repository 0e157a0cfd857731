package repository

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/classpulse/internal/domain/reconcile"
)

const defaultRecommendationCacheSize = 4096

// RecommendationCache remembers upstream candidates per request so that
// adjusting or re-opening a sheet does not hit the service again.
type RecommendationCache struct {
	cache *lru.Cache[string, reconcile.Candidate]
}

// NewRecommendationCache creates a cache holding at most size entries.
// A non-positive size uses the default.
func NewRecommendationCache(size int) *RecommendationCache {
	if size <= 0 {
		size = defaultRecommendationCacheSize
	}
	c, _ := lru.New[string, reconcile.Candidate](size)
	return &RecommendationCache{cache: c}
}

func recommendationKey(studentID, skillID string, threshold float64) string {
	return studentID + "|" + skillID + "|" + strconv.FormatFloat(threshold, 'f', -1, 64)
}

// Get returns the cached candidate of a request.
func (c *RecommendationCache) Get(studentID, skillID string, threshold float64) (reconcile.Candidate, bool) {
	return c.cache.Get(recommendationKey(studentID, skillID, threshold))
}

// Add caches a successful candidate. Failed lookups are not cached.
func (c *RecommendationCache) Add(cand reconcile.Candidate, threshold float64) {
	if cand.Failed {
		return
	}
	c.cache.Add(recommendationKey(cand.StudentID, cand.SkillID, threshold), cand)
}

// Purge drops every entry; called when a refresh changes the diagnosis.
func (c *RecommendationCache) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached candidates.
func (c *RecommendationCache) Len() int {
	return c.cache.Len()
}
