package model

import (
	"fmt"
	"time"
)

// Config holds all runtime settings for an enrichment run
type Config struct {
	Input  string `yaml:"input" mapstructure:"input"`   // Local Turtle graph to enrich
	Output string `yaml:"output" mapstructure:"output"` // Append-only Turtle output

	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Endpoint EndpointConfig `yaml:"endpoint" mapstructure:"endpoint"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Coercion CoercionConfig `yaml:"coercion" mapstructure:"coercion"`
	Progress ProgressConfig `yaml:"progress" mapstructure:"progress"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// BatchConfig controls partitioning, parallelism and pacing
type BatchConfig struct {
	Size     int           `yaml:"size" mapstructure:"size"`         // Entities per flushed segment
	Workers  int           `yaml:"workers" mapstructure:"workers"`   // Max parallel entity tasks
	Throttle time.Duration `yaml:"throttle" mapstructure:"throttle"` // Pause between batches
}

// EndpointConfig describes the remote SPARQL service
type EndpointConfig struct {
	URL               string        `yaml:"url" mapstructure:"url"`
	ResourceNamespace string        `yaml:"resource_namespace" mapstructure:"resource_namespace"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 disables per-request limiting
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"` // 0 keeps single-shot lookups
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the lookup response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"` // Empty keeps the cache in memory only
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// CoercionConfig controls label to resource minting
type CoercionConfig struct {
	FoldDiacritics bool `yaml:"fold_diacritics" mapstructure:"fold_diacritics"` // Strip every combining mark, not just the fixed table
}

// ProgressConfig controls the resume journal
type ProgressConfig struct {
	Journal string `yaml:"journal" mapstructure:"journal"` // SQLite path, empty disables journaling
	Resume  bool   `yaml:"resume" mapstructure:"resume"`   // Skip entities the journal already recorded
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, console
	Output string `yaml:"output" mapstructure:"output"` // stderr, stdout, or a file path
}

// DefaultConfig returns the baseline settings: 100 entities per batch,
// 3 workers, one second between batches
func DefaultConfig() *Config {
	return &Config{
		Input:  "schema/data/player.ttl",
		Output: "schema/data/players_enriched.ttl",
		Batch: BatchConfig{
			Size:     100,
			Workers:  3,
			Throttle: time.Second,
		},
		Endpoint: EndpointConfig{
			URL:               "https://dbpedia.org/sparql",
			ResourceNamespace: "http://dbpedia.org/resource/",
			Timeout:           30 * time.Second,
			UserAgent:         "footgraph/0.1 (+https://github.com/ppiankov/footgraph)",
			MaxBodyBytes:      4_000_000,
			Burst:             1,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if c.Batch.Size <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Batch.Size)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Batch.Workers)
	}
	if c.Batch.Throttle < 0 {
		return fmt.Errorf("throttle must not be negative, got %v", c.Batch.Throttle)
	}
	if c.Endpoint.URL == "" {
		return fmt.Errorf("endpoint url is required")
	}
	if c.Endpoint.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.Endpoint.MaxRetries)
	}
	if c.Progress.Resume && c.Progress.Journal == "" {
		return fmt.Errorf("resume requires a progress journal path")
	}
	return nil
}
