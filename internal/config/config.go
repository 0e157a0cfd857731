// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New.
package config

import (
	"context"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// UpstreamURL is the base URL of the recommendation service.
	UpstreamURL string `koanf:"upstream_url"`
	// UpstreamTimeoutMS bounds a single upstream request.
	UpstreamTimeoutMS int `koanf:"upstream_timeout_ms"`
	// UpstreamRPS and UpstreamBurst shape the outbound token bucket.
	// A non-positive rate disables limiting.
	UpstreamRPS   float64 `koanf:"upstream_rps"`
	UpstreamBurst int     `koanf:"upstream_burst"`
	// UpstreamRetries is how often idempotent calls are retried.
	UpstreamRetries int `koanf:"upstream_retries"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of delivery workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many submission keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// RecommendThreshold is sent with every recommendation request.
	RecommendThreshold float64 `koanf:"recommend_threshold"`
	// RecommendConcurrency caps parallel per-student recommendation calls.
	RecommendConcurrency int `koanf:"recommend_concurrency"`
	// RecommendCacheSize bounds the recommendation LRU.
	RecommendCacheSize int `koanf:"recommend_cache_size"`
	// MaxAdjustDelta bounds a single manual difficulty adjustment.
	MaxAdjustDelta float64 `koanf:"max_adjust_delta"`

	// DecisionWindow is how many recent responses feed the decision
	// policy. Zero or less uses the whole sequence.
	DecisionWindow int `koanf:"decision_window"`
	// RandomSeed seeds topic draws. Zero seeds from the clock.
	RandomSeed int64 `koanf:"random_seed"`
	// ThemeName selects the topic pool for topic changes.
	ThemeName string `koanf:"theme_name"`

	// SnapshotTTLSeconds is how long a refresh counts as fresh.
	SnapshotTTLSeconds int `koanf:"snapshot_ttl_s"`

	// SkillLabels maps skill IDs to display names.
	SkillLabels map[string]string `koanf:"skill_labels"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	// MetricsLabels are constant labels on every metric, e.g. env.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
	// MetricsBucketsMS overrides the latency histogram buckets.
	MetricsBucketsMS []float64 `koanf:"metrics_buckets_ms"`
}

// New creates a Config with defaults. Context is accepted first to keep
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		UpstreamURL:          "http://localhost:9090",
		UpstreamTimeoutMS:    10_000,
		UpstreamRPS:          20,
		UpstreamBurst:        10,
		UpstreamRetries:      2,
		QueueSize:            1024,
		WorkerCount:          2,
		DedupeSize:           10_000,
		RecommendThreshold:   0.5,
		RecommendConcurrency: 4,
		RecommendCacheSize:   4096,
		MaxAdjustDelta:       1.0,
		DecisionWindow:       0,
		RandomSeed:           0,
		ThemeName:            "default",
		SnapshotTTLSeconds:   300,
		MetricsNamespace:     "classpulse",
		MetricsSubsystem:     "engine",
		SkillLabels: map[string]string{
			"66ab571cc92cc90278b759a1": "Plastic",
			"66ab5734c92cc90278b759a2": "Detergents",
			"66ab575fc92cc90278b759a3": "Bees",
		},
	}
}
